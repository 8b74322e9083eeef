package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	authapi "github.com/goliatone/go-auth-api"
)

// AppConfig is loaded from the environment and doubles as the auth options.
type AppConfig struct {
	Addr            string   `env:"AUTH_API_ADDR" envDefault:":8572"`
	DSN             string   `env:"AUTH_API_DSN" envDefault:"file:authapi.db?cache=shared"`
	SigningKey      string   `env:"AUTH_API_SIGNING_KEY" envDefault:"secret-dev-key"`
	TokenExpiration int      `env:"AUTH_API_TOKEN_EXPIRATION" envDefault:"24"`
	Issuer          string   `env:"AUTH_API_ISSUER" envDefault:"go-auth-api"`
	Audience        []string `env:"AUTH_API_AUDIENCE" envDefault:"go-auth-api"`
	Debug           bool     `env:"AUTH_API_DEBUG" envDefault:"false"`
	UseHashids      bool     `env:"AUTH_API_USE_HASHIDS" envDefault:"false"`

	SMTPHost     string `env:"AUTH_API_SMTP_HOST"`
	SMTPPort     int    `env:"AUTH_API_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"AUTH_API_SMTP_USERNAME"`
	SMTPPassword string `env:"AUTH_API_SMTP_PASSWORD"`
	SMTPFrom     string `env:"AUTH_API_SMTP_FROM" envDefault:"no-reply@localhost"`
}

var _ authapi.Config = AppConfig{}

func (c AppConfig) GetSigningKey() string   { return c.SigningKey }
func (c AppConfig) GetTokenExpiration() int { return c.TokenExpiration }
func (c AppConfig) GetIssuer() string       { return c.Issuer }
func (c AppConfig) GetAudience() []string   { return c.Audience }

type loggerAdapter struct {
	lgr glog.Logger
}

func (l loggerAdapter) Debug(format string, args ...any) { l.lgr.Debug(fmt.Sprintf(format, args...)) }
func (l loggerAdapter) Info(format string, args ...any)  { l.lgr.Info(fmt.Sprintf(format, args...)) }
func (l loggerAdapter) Warn(format string, args ...any)  { l.lgr.Warn(fmt.Sprintf(format, args...)) }
func (l loggerAdapter) Error(format string, args ...any) { l.lgr.Error(fmt.Sprintf(format, args...)) }

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("authapi"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := AppConfig{}
	if err := env.Parse(&cfg); err != nil {
		lgr.Error("unable to load configuration", "error", err)
		os.Exit(1)
	}

	if cfg.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybePrettyJSON(cfg))
		fmt.Println("============")
	}

	ctx := context.Background()

	db, err := openDatabase(ctx, cfg.DSN)
	if err != nil {
		lgr.Error("unable to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := authapi.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		lgr.Error("repository validation failed", "error", err)
		os.Exit(1)
	}

	userProvider := authapi.NewUserProvider(repo.Users()).
		WithLogger(loggerAdapter{lgr.GetLogger("auth:prv")})

	auditSink := authapi.NewAuditTrailSink(
		repo.AuditLogs(),
		loggerAdapter{lgr.GetLogger("auth:audit")},
	)

	auther := authapi.NewAuthenticator(userProvider, cfg).
		WithLogger(loggerAdapter{lgr.GetLogger("auth:authz")}).
		WithRevocationStore(repo.TokenRevocations()).
		WithActivitySink(auditSink)

	mailer := buildMailer(cfg, lgr)

	app := fiber.New(fiber.Config{
		AppName: "go-auth-api",
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("unhealthy")
		}
		return c.SendString("ok")
	})

	authapi.RegisterAPIRoutes(app,
		authapi.WithControllerRepo(repo),
		authapi.WithControllerAuther(auther),
		authapi.WithControllerMailer(mailer),
		authapi.WithControllerLogger(loggerAdapter{lgr.GetLogger("auth:ctrl")}),
		authapi.WithControllerDebug(cfg.Debug),
		authapi.WithControllerHashids(cfg.UseHashids),
	)

	go func() {
		if err := app.Listen(cfg.Addr); err != nil {
			lgr.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	lgr.Info("serving", "addr", cfg.Addr)

	WaitExitSignal()

	if err := app.Shutdown(); err != nil {
		lgr.Error("shutdown error", "error", err)
	}
}

func openDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	goose.SetBaseFS(authapi.GetMigrationsFS())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, err
	}

	if err := goose.UpContext(ctx, sqldb, "data/sql/migrations"); err != nil {
		return nil, err
	}

	return db, nil
}

func buildMailer(cfg AppConfig, lgr *glog.BaseLogger) authapi.Mailer {
	if cfg.SMTPHost == "" {
		return authapi.NewLoggerMailer(loggerAdapter{lgr.GetLogger("mailer")})
	}

	return authapi.NewSMTPMailer(authapi.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}).WithLogger(loggerAdapter{lgr.GetLogger("mailer")})
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
