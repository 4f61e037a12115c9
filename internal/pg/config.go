package pg

import (
	"database/sql"
	"io"

	"github.com/go-kit/kit/log"
)

// NewClient returns a new PostgreSQL client.
func NewClient(options ...ConfigOption) *Client {
	c := Client{
		logger: log.NewNopLogger(),
	}

	for _, opt := range options {
		opt(&c)
	}

	c.loadQueries()

	c.userRepository = &UserRepository{client: &c}
	c.otpRepository = &OtpTokenRepository{client: &c}
	c.deviceRepository = &TrustedDeviceRepository{client: &c}
	c.throttleRepo = &ThrottleRepository{client: &c}
	c.eventRepository = &AuthEventRepository{client: &c}
	c.signupRepository = &PendingSignupRepository{client: &c}
	c.orgRepository = &OrgRepository{client: &c}

	return &c
}

// ConfigOption configures the client.
type ConfigOption func(*Client)

// WithLogger configures the client with a logger.
func WithLogger(l log.Logger) ConfigOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithEntropy configures the client with an entropy source for
// ULID generation.
func WithEntropy(entropy io.Reader) ConfigOption {
	return func(c *Client) {
		c.entropy = entropy
	}
}

// WithDB configures the client with a database connection.
func WithDB(db *sql.DB) ConfigOption {
	return func(c *Client) {
		c.db = db
	}
}
