package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	tasks "github.com/goliatone/go-tasks"
	"github.com/goliatone/go-tasks/middleware/jwtware"
	"github.com/lmittmann/tint"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// AppConfig is loaded from the environment and satisfies the options
// interface the authenticator expects.
type AppConfig struct {
	Addr        string `env:"ADDR" envDefault:":5000"`
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"file:tasks.db?cache=shared"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`

	SigningKey      string   `env:"JWT_SIGNING_KEY,required"`
	SigningMethod   string   `env:"JWT_SIGNING_METHOD" envDefault:"HS256"`
	TokenExpiration int      `env:"JWT_EXPIRATION_HOURS" envDefault:"24"`
	ContextKey      string   `env:"JWT_CONTEXT_KEY" envDefault:"user"`
	AuthScheme      string   `env:"JWT_AUTH_SCHEME" envDefault:"Bearer"`
	Issuer          string   `env:"JWT_ISSUER" envDefault:"go-tasks"`
	Audience        []string `env:"JWT_AUDIENCE" envSeparator:","`

	SMTP SMTPSettings `envPrefix:"SMTP_"`
}

type SMTPSettings struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
	FromName string `env:"FROM_NAME" envDefault:"Tasks"`
	TLS      bool   `env:"TLS" envDefault:"true"`
}

func (c *AppConfig) GetSigningKey() string    { return c.SigningKey }
func (c *AppConfig) GetSigningMethod() string { return c.SigningMethod }
func (c *AppConfig) GetContextKey() string    { return c.ContextKey }
func (c *AppConfig) GetTokenExpiration() int  { return c.TokenExpiration }
func (c *AppConfig) GetAuthScheme() string    { return c.AuthScheme }
func (c *AppConfig) GetIssuer() string        { return c.Issuer }
func (c *AppConfig) GetAudience() []string    { return c.Audience }

// slogAdapter bridges slog to the printf style logger the package
// components take.
type slogAdapter struct {
	l *slog.Logger
}

func (s slogAdapter) Debug(format string, args ...any) { s.l.Debug(fmt.Sprintf(format, args...)) }
func (s slogAdapter) Info(format string, args ...any)  { s.l.Info(fmt.Sprintf(format, args...)) }
func (s slogAdapter) Error(format string, args ...any) { s.l.Error(fmt.Sprintf(format, args...)) }

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: logLevel})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func main() {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := slogAdapter{l: setupLogger(cfg.LogLevel, cfg.LogFormat)}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited: %v", err)
		os.Exit(1)
	}
}

func run(cfg *AppConfig, logger slogAdapter) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqldb.Close()

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := tasks.CreateSchema(ctx, db); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	repo := tasks.NewRepositoryManager(db)
	repo.MustValidate()

	var mailer tasks.Mailer
	if cfg.SMTP.Host != "" {
		mailer, err = tasks.NewSMTPMailer(tasks.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
			TLS:      cfg.SMTP.TLS,
		})
		if err != nil {
			return fmt.Errorf("smtp mailer: %w", err)
		}
	} else {
		logger.Info("no SMTP host configured, codes are logged instead of mailed")
		mailer = tasks.NewLogMailer(logger)
	}

	provider := tasks.NewUserProvider(repo.Users()).WithLogger(logger)
	auther := tasks.NewAuthenticator(provider, cfg).WithLogger(logger)

	protected := jwtware.New(jwtware.Config{
		ContextKey: cfg.ContextKey,
		AuthScheme: cfg.AuthScheme,
		TokenValidator: jwtware.TokenValidatorFunc(func(token string) (jwtware.AuthClaims, error) {
			claims, err := auther.SessionFromToken(token)
			if err != nil {
				return nil, err
			}
			return claims, nil
		}),
		EpochChecker: jwtware.CheckEpoch(repo.Users().CurrentEpoch),
	})

	auth := tasks.NewAuthController(
		tasks.WithAuthLogger(logger),
		tasks.WithAuthRepo(repo),
		tasks.WithAuthAuthenticator(auther),
		tasks.WithAuthMailer(mailer),
		tasks.WithAuthContextKey(cfg.ContextKey),
	)
	profiles := tasks.NewProfileController(repo, logger, cfg.ContextKey)
	taskLists := tasks.NewTaskListController(repo, logger, cfg.ContextKey)
	taskItems := tasks.NewTaskController(repo, logger, cfg.ContextKey)

	app := fiber.New(fiber.Config{
		AppName:      "go-tasks",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "ok",
		})
	})

	api := app.Group("/api")
	tasks.RegisterAuthRoutes(api, auth, protected)
	tasks.RegisterProfileRoutes(api, profiles, protected)
	tasks.RegisterTaskListRoutes(api, taskLists, protected)
	tasks.RegisterTaskRoutes(api, taskItems, protected)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Addr)
	}()

	logger.Info("listening on %s", cfg.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}
