// Command API exposes a session based multi-factor authentication
// HTTP API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/smtp"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/oklog/run"
	"github.com/oklog/ulid/v2"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/geomark/authcore/internal/audit"
	"github.com/geomark/authcore/internal/loginapi"
	"github.com/geomark/authcore/internal/mail"
	"github.com/geomark/authcore/internal/messaging"
	"github.com/geomark/authcore/internal/otp"
	"github.com/geomark/authcore/internal/password"
	"github.com/geomark/authcore/internal/pg"
	"github.com/geomark/authcore/internal/resetapi"
	"github.com/geomark/authcore/internal/session"
	"github.com/geomark/authcore/internal/signupapi"
	"github.com/geomark/authcore/internal/throttle"
)

func main() {
	var err error

	var logger log.Logger
	{
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	var configPath string
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	{
		fs.Bool("api.debug", false, "Enable debug logging")
		fs.String("api.http-addr", ":8080", "Address to listen on")
		fs.String("api.allowed-origins", "*", "Comma separated list of allowed origins")
		fs.String("api.cookie-domain", "", "Domain to set HTTP cookie")
		fs.Bool("api.insecure-cookie", false, "Allow session cookies over plain HTTP")
		fs.String("pg.conn-string", "", "Postgres connection string")
		fs.String("redis.conn-string", "", "Redis connection string")
		fs.Int("password.min-length", 8, "Minimum password length")
		fs.Int("password.max-length", 1000, "Maximum password length")
		fs.Int("otp.code-length", 6, "OTP code length")
		fs.Duration("otp.expires-in", time.Minute*10, "OTP code expiry time")
		fs.Int("otp.max-failures", 5, "Failed attempts allowed per OTP code")
		fs.Duration("otp.purge-grace", time.Hour*24, "Grace window before expired OTP codes are purged")
		fs.Duration("otp.purge-interval", time.Hour, "How often expired OTP codes are purged")
		fs.Duration("session.expires-in", time.Hour*24*7, "Session expiry time")
		fs.String("mail.server-addr", "", "Outgoing mail server")
		fs.String("mail.from-addr", "", "Origin email address for outgoing email")
		fs.String("mail.auth.username", "", "Username for mailing service")
		fs.String("mail.auth.password", "", "Password for mailing service")
		fs.String("mail.auth.hostname", "", "Hostname for mailing service")

		fs.StringVar(&configPath, "config", "", "Path to the config file")
		err = fs.Parse(os.Args[1:])
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		if err != nil {
			logger.Log("message", "failed to parse cli flags", "error", err, "source", "cmd/api")
			os.Exit(1)
		}
	}

	if _, err = os.Stat(configPath); !os.IsNotExist(err) {
		viper.SetConfigFile(configPath)
		err = viper.ReadInConfig()
		if err != nil {
			logger.Log("message", "failed to load config file", "error", err, "source", "cmd/api")
			os.Exit(1)
		}
	}
	if err = viper.BindPFlags(fs); err != nil {
		logger.Log("message", "failed to load cli flags", "error", err, "source", "cmd/api")
		os.Exit(1)
	}

	if viper.GetBool("api.debug") {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	var entropy io.Reader
	{
		random := rand.New(rand.NewSource(time.Now().UnixNano()))
		entropy = ulid.Monotonic(random, 0)
	}

	passwordSvc := password.NewPassword(
		password.WithMinLength(viper.GetInt("password.min-length")),
		password.WithMaxLength(viper.GetInt("password.max-length")),
	)

	var pgDB *sql.DB
	{
		pgDB, err = sql.Open("postgres", viper.GetString("pg.conn-string"))
		if err != nil {
			logger.Log(
				"message", "postgres connection failed",
				"error", err,
				"source", "cmd/api",
			)
			os.Exit(1)
		}
		if err = pgDB.Ping(); err != nil {
			logger.Log("message", "postgres did not respond", "error", err, "source", "cmd/api")
			os.Exit(1)
		}
		defer func() {
			if err = pgDB.Close(); err != nil {
				logger.Log(
					"message", "failed to close postgres connection",
					"error", err,
					"source", "cmd/api",
				)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redisDB *redis.Client
	{
		redisConf, err := redis.ParseURL(viper.GetString("redis.conn-string"))
		if err != nil {
			logger.Log("message", "invalid redis configuration", "error", err, "source", "cmd/api")
			os.Exit(1)
		}
		redisDB = redis.NewClient(redisConf)
		closeRedis := func() {
			if err = redisDB.Close(); err != nil {
				logger.Log(
					"message", "failed to close redis connection",
					"error", err,
					"source", "cmd/api",
				)
			}
		}

		if _, err = redisDB.Ping(ctx).Result(); err != nil {
			logger.Log("message", "redis connection failed", "error", err, "source", "cmd/api")
			closeRedis()
			os.Exit(1)
		}
		defer closeRedis()
	}

	repoMngr := pg.NewClient(
		pg.WithLogger(logger),
		pg.WithEntropy(entropy),
		pg.WithDB(pgDB),
	)

	otpSvc := otp.NewOTP(
		otp.WithCodeLength(viper.GetInt("otp.code-length")),
		otp.WithTTL(viper.GetDuration("otp.expires-in")),
		otp.WithMaxFailures(viper.GetInt("otp.max-failures")),
	)

	sessionOptions := []session.ConfigOption{
		session.WithDB(redisDB),
		session.WithTTL(viper.GetDuration("session.expires-in")),
		session.WithCookieDomain(viper.GetString("api.cookie-domain")),
	}
	if viper.GetBool("api.insecure-cookie") {
		sessionOptions = append(sessionOptions, session.WithInsecureCookie())
	}
	sessionSvc := session.NewService(sessionOptions...)

	throttleSvc := throttle.NewService(
		throttle.WithLogger(logger),
		throttle.WithRepoManager(repoMngr),
	)

	auditSvc := audit.NewService(
		audit.WithLogger(logger),
		audit.WithRepoManager(repoMngr),
	)

	emailLib := mail.NewService(mail.WithDefaults(
		viper.GetString("mail.server-addr"),
		viper.GetString("mail.from-addr"),
		smtp.PlainAuth(
			"",
			viper.GetString("mail.auth.username"),
			viper.GetString("mail.auth.password"),
			viper.GetString("mail.auth.hostname"),
		),
	))

	messagingSvc := messaging.NewService(messaging.WithEmail(emailLib))

	loginAPI := loginapi.NewService(
		loginapi.WithLogger(logger),
		loginapi.WithRepoManager(repoMngr),
		loginapi.WithOTP(otpSvc),
		loginapi.WithPassword(passwordSvc),
		loginapi.WithSession(sessionSvc),
		loginapi.WithThrottle(throttleSvc),
		loginapi.WithAudit(auditSvc),
		loginapi.WithMessaging(messagingSvc),
	)

	signupAPI := signupapi.NewService(
		signupapi.WithLogger(logger),
		signupapi.WithRepoManager(repoMngr),
		signupapi.WithOTP(otpSvc),
		signupapi.WithPassword(passwordSvc),
		signupapi.WithThrottle(throttleSvc),
		signupapi.WithAudit(auditSvc),
		signupapi.WithMessaging(messagingSvc),
	)

	resetAPI := resetapi.NewService(
		resetapi.WithLogger(logger),
		resetapi.WithRepoManager(repoMngr),
		resetapi.WithOTP(otpSvc),
		resetapi.WithPassword(passwordSvc),
		resetapi.WithThrottle(throttleSvc),
		resetapi.WithAudit(auditSvc),
		resetapi.WithMessaging(messagingSvc),
	)

	router := mux.NewRouter()
	router.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	loginapi.SetupHTTPHandler(loginAPI, router, sessionSvc, logger)
	signupapi.SetupHTTPHandler(signupAPI, router, logger)
	resetapi.SetupHTTPHandler(resetAPI, router, logger)

	server := http.Server{
		Addr: viper.GetString("api.http-addr"),
		Handler: handlers.CORS(
			handlers.AllowedOrigins(strings.Split(
				viper.GetString("api.allowed-origins"), ","),
			),
			handlers.AllowedHeaders([]string{
				"X-Requested-With",
				"Content-Type",
			}),
			handlers.AllowCredentials(),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "OPTIONS", "HEAD"}),
		)(router),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	purgeGrace := viper.GetDuration("otp.purge-grace")
	purgeInterval := viper.GetDuration("otp.purge-interval")

	var g run.Group
	{
		g.Add(func() error {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			return fmt.Errorf("signal received: %v", <-sig)
		}, func(err error) {
			logger.Log("message", "program was interrupted", "error", err, "source", "cmd/api")
			cancel()
		})
	}
	{
		g.Add(func() error {
			logger.Log(
				"message", "OTP purge loop is starting",
				"interval", purgeInterval.String(),
				"source", "cmd/api",
			)

			ticker := time.NewTicker(purgeInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					cutoff := time.Now().Add(-purgeGrace)
					purged, err := repoMngr.OtpToken().PurgeExpired(ctx, cutoff)
					if err != nil {
						level.Error(logger).Log(
							"message", "failed to purge expired OTP codes",
							"error", err,
							"source", "cmd/api",
						)
						continue
					}
					if purged > 0 {
						logger.Log(
							"message", "purged expired OTP codes",
							"total", purged,
							"source", "cmd/api",
						)
					}
				}
			}
		}, func(err error) {
			logger.Log(
				"message", "OTP purge loop was shut down",
				"error", err,
				"source", "cmd/api",
			)
		})
	}
	{
		g.Add(func() error {
			logger.Log(
				"message", "API server is starting",
				"address", server.Addr,
				"source", "cmd/api",
			)
			return server.ListenAndServe()
		}, func(err error) {
			logger.Log(
				"message", "API server was interrupted",
				"error", err,
				"source", "cmd/api",
			)
			logger.Log(
				"message", "API server shut down",
				"error", server.Shutdown(ctx),
				"source", "cmd/api",
			)
		})
	}

	err = g.Run()
	logger.Log("message", "actors stopped", "error", err, "source", "cmd/api")
}
