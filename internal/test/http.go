package test

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Logger is a no-op go-kit logger.
type Logger struct{}

// Log mock.
func (l *Logger) Log(keyvals ...interface{}) error {
	return nil
}

// ValidateErrMessage checks a JSON error response body against an
// expected message. An empty expectation passes.
func ValidateErrMessage(expectedMsg string, body *bytes.Buffer) error {
	if expectedMsg == "" {
		return nil
	}

	var errResponse map[string]map[string]string
	err := json.NewDecoder(body).Decode(&errResponse)
	if err != nil {
		return err
	}

	if errResponse["error"]["message"] != expectedMsg {
		return errors.Errorf("incorrect error response, want '%s' got '%s'",
			expectedMsg, errResponse["error"]["message"])
	}

	return nil
}
