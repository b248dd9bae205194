package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinexplorer/booking-api/internal/domain"
	"github.com/cinexplorer/booking-api/internal/mailer"
	"github.com/cinexplorer/booking-api/internal/repository"
	appvalidator "github.com/cinexplorer/booking-api/internal/validator"
	"github.com/cinexplorer/booking-api/internal/vcs"
	"github.com/exaring/otelpgx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
)

var (
	version = vcs.Version()
)

type Application struct {
	config    Config
	logger    *slog.Logger
	db        *pgxpool.Pool
	redis     redis.UniversalClient
	validator *validator.Validate
	mailer    mailer.Mailer
	metrics   *bookingMetrics

	catalogRepo domain.CatalogRepository
	seatRepo    domain.SeatRepository
	holdRepo    domain.HoldRepository
	paymentRepo domain.PaymentRepository
	ticketRepo  domain.TicketRepository
	promotions  domain.PromotionValidator
}

type Config struct {
	Port             int
	Env              string
	BaseURL          string
	JWTSecret        string
	OtelCollectorUrl string
	SweepInterval    time.Duration
	DB               DBConfig
	Redis            RedisConfig
	SMTP             SMTPConfig
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")
	flag.StringVar(&cfg.BaseURL, "base-url", "https://api.cinexplorer.com", "Public base URL used in PIX and ticket QR references")
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", "", "HMAC secret shared with the auth service")
	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")
	flag.DurationVar(&cfg.SweepInterval, "hold-sweep-interval", time.Minute, "Interval of the expired-hold hygiene sweep (0 disables it)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.SMTP.Host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.SMTP.Port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.SMTP.Username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.SMTP.Password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.SMTP.Sender, "smtp-sender", "CineXplorer <no-reply@cinexplorer.com>", "SMTP sender")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app, cleanup, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	return app.serve()
}

// New wires the application from its configuration. The returned cleanup
// function closes the database and Redis pools.
func New(cfg Config, logger *slog.Logger) (*Application, func(), error) {
	db, err := NewDatabasePool(cfg)
	if err != nil {
		return nil, nil, err
	}

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)

	app := NewApp(cfg, logger, db, redisClient, smtpMailer)

	cleanup := func() {
		db.Close()
		redisClient.Close()
	}

	return app, cleanup, nil
}

// NewApp assembles an Application around already-constructed infrastructure.
// The integration tests use it to swap in a mock mailer.
func NewApp(
	cfg Config,
	logger *slog.Logger,
	db *pgxpool.Pool,
	redisClient redis.UniversalClient,
	m mailer.Mailer) *Application {

	return &Application{
		config:      cfg,
		logger:      logger,
		db:          db,
		redis:       redisClient,
		validator:   appvalidator.NewValidator(),
		mailer:      m,
		metrics:     newBookingMetrics(),
		catalogRepo: repository.NewPostgresCatalogRepository(db),
		seatRepo:    repository.NewPostgresSeatRepository(db),
		holdRepo:    repository.NewPostgresHoldRepository(db),
		paymentRepo: repository.NewPostgresPaymentRepository(db),
		ticketRepo:  repository.NewPostgresTicketRepository(db),
		promotions:  repository.NewPostgresPromotionValidator(db),
	}
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()

	go app.sweepExpiredHolds(sweeperCtx)

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		stopSweeper()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

// sweepExpiredHolds is a hygiene loop releasing lapsed holds that no request
// happened to touch. Lazy expiry at the read/write boundaries keeps the grid
// correct even when this never runs.
func (app *Application) sweepExpiredHolds(ctx context.Context) {
	if app.config.SweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(app.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := app.holdRepo.ReleaseAllExpired(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					app.logger.Error("expired-hold sweep failed", "error", err)
				}
				continue
			}

			if released > 0 {
				app.logger.Info("expired-hold sweep released holds", "count", released)
				app.metrics.holdsExpired.Add(ctx, int64(released))
			}
		}
	}
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("booking-api", otelchi.WithChiRoutes(r)))
	r.Use(app.recoverPanic)
	r.Use(app.requestLogger)

	r.Get("/health", app.GetHealth)

	r.Get("/sessions/{sessionId}/seats", app.GetSessionSeatMap)

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/pix", app.PixWebhookHandler)
	})

	r.Group(func(r chi.Router) {
		r.Use(app.requireAuthentication)

		r.Post("/sessions/{sessionId}/holds", app.CreateHoldHandler)
		r.Delete("/holds/{holdId}", app.ReleaseHoldHandler)

		r.Post("/bookings", app.CreateBookingHandler)
		r.Get("/payments/{paymentId}", app.GetPaymentStatusHandler)
		r.Get("/payments/{paymentId}/details", app.GetPaymentDetailsHandler)

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", app.GetTicketsHandler)
			r.Get("/{ticketId}", app.GetTicketHandler)
			r.Get("/{ticketId}/qrcode", app.GetTicketQRCodeHandler)
			r.Delete("/{ticketId}", app.CancelTicketHandler)
		})
	})

	return r
}
