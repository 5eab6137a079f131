package main

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"runtime"

	"carrent/internal/auth"
	"carrent/internal/chat"
	"carrent/internal/db"
	"carrent/internal/domain/storage"
	"carrent/internal/mailer"
	"carrent/internal/notifications"
	"carrent/internal/ratelimiter"
	"carrent/internal/realtime"
	"carrent/internal/rental"
	"carrent/internal/reputation"
	"carrent/internal/wallet"

	"github.com/9ssi7/exponent"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a console zap logger with colored levels.
func NewLogger(env string) (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel
	if env == "development" {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level)

	return zap.New(core).Sugar(), nil
}

var version = "0.4.0"

//	@title			CarRent API
//	@description	Peer to peer car rental marketplace: listings, bookings, owner decisions, reputation, wallet and chat.

//	@contact.name	API Support

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer access token

func main() {
	// a missing .env is fine in containers
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file loaded:", err)
	}

	cfg := loadConfig()

	logger, err := NewLogger(cfg.env)
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	if err := cfg.validate(); err != nil {
		logger.Fatal(err)
	}

	// Database
	pool, err := db.New(
		cfg.db.addr,
		cfg.db.maxConns,
		cfg.db.minConns,
		cfg.db.maxIdleTime,
	)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	store := storage.NewContainer(pool)

	cld, err := cloudinary.NewFromURL(cfg.cloudinary.url)
	if err != nil {
		logger.Fatal(err)
	}

	smtp, err := mailer.NewSMTPClient(
		cfg.mail.smtp.host,
		cfg.mail.smtp.port,
		cfg.mail.smtp.username,
		cfg.mail.smtp.password,
		cfg.mail.fromEmail,
	)
	if err != nil {
		logger.Fatal(err)
	}

	// Push and realtime
	expo := exponent.NewClient()
	if cfg.push.expoAccessToken != "" {
		expo = exponent.NewClient(exponent.WithAccessToken(cfg.push.expoAccessToken))
	}
	push := notifications.NewExpoAdapter(expo)

	chatHub := realtime.NewHub("chat", logger)
	notificationHub := realtime.NewHub("notifications", logger)

	dispatcher := notifications.NewDispatcher(notificationHub, push, store.PushTokens, store.RentNotifications, logger)
	notificationHub.SetHandler(dispatcher)

	chatService := chat.NewService(store.Chat, chatHub, dispatcher, logger)
	chatHub.SetHandler(chatService)

	// Domain services
	refs, err := rental.NewReferences(cfg.bookings.referenceSalt)
	if err != nil {
		logger.Fatal(err)
	}

	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)
	defer rateLimiter.Stop()

	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.aud,
		cfg.auth.token.iss,
		cfg.auth.token.accessTokenExp,
	)

	app := &application{
		config:        cfg,
		store:         store,
		logger:        logger,
		cld:           cld,
		mailer:        smtp,
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,

		rental:        rental.NewService(store.Rental(), dispatcher, refs, logger),
		refs:          refs,
		reputation:    reputation.NewEngine(store.Reputation(), logger),
		wallet:        wallet.NewService(store.Wallet(), logger),
		chat:          chatService,
		notifications: dispatcher,

		chatHub:         chatHub,
		notificationHub: notificationHub,
	}

	// Metrics collected at /v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		s := pool.Stat()
		return map[string]any{
			"total_conns":    s.TotalConns(),
			"idle_conns":     s.IdleConns(),
			"acquired_conns": s.AcquiredConns(),
			"max_conns":      s.MaxConns(),
		}
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("websockets", expvar.Func(func() any {
		return map[string]int{
			"chat":          chatHub.Connections(),
			"notifications": notificationHub.Connections(),
		}
	}))

	stopJobs := app.startBackgroundJobs(context.Background())
	defer stopJobs()

	mux := app.mount()

	if err := app.run(mux); err != nil {
		logger.Errorw("server stopped with error", "error", err)
	}
}
