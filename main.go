package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"revisitly-backend/config"
	"revisitly-backend/events"
	"revisitly-backend/logger"
	"revisitly-backend/models"
	"revisitly-backend/repository"
	"revisitly-backend/routes"
	"revisitly-backend/services"
	"revisitly-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.LogLevel, os.Stdout)
	log := logger.Root()
	if envErr != nil {
		log.Debug().Msg("no .env file found")
	}
	gin.SetMode(cfg.Server.Mode)

	db, err := config.ConnectDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := config.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	store := repository.New(db)

	publisher := newPublisher(cfg.NATS.URL)
	defer publisher.Close()

	mailer := newMailer(cfg.Email)
	var sms services.SMSSender
	if t, err := services.NewTwilioSMS(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber); err == nil {
		sms = t
	} else {
		log.Info().Msg("sms disabled")
	}

	var fetcher services.SubscriptionFetcher
	if cfg.Stripe.SecretKey != "" {
		fetcher = services.NewStripeSubscriptions(cfg.Stripe.SecretKey)
	}
	prices := services.PriceMap{
		cfg.Stripe.StarterPrice: models.PlanStarter,
		cfg.Stripe.GrowthPrice:  models.PlanGrowth,
		cfg.Stripe.ProPrice:     models.PlanPro,
	}

	var limiter *utils.RateLimiter
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		limiter = utils.NewRateLimiter(rdb, "ratelimit:checkin", cfg.RateLimit.CheckinRequests, cfg.RateLimit.CheckinWindow)
	}

	tokens := utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	followups := services.NewFollowupService(store, mailer, sms, publisher)
	sweeps := services.NewReengagementService(store, mailer, publisher, cfg.Cron.Secret)
	deps := routes.Dependencies{
		Businesses:    services.NewBusinessService(store, tokens),
		Checkins:      services.NewCheckinService(store, followups, publisher),
		Followups:     followups,
		Sweeps:        sweeps,
		Billing:       services.NewBillingService(store, fetcher, prices, publisher),
		Tokens:        tokens,
		CheckinLimit:  limiter,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		AllowOrigins:  cfg.Server.AllowOrigins,
	}

	categories := make([]string, 0, len(models.Categories()))
	for _, c := range models.Categories() {
		categories = append(categories, string(c))
	}
	if err := utils.RegisterValidators(categories); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	var scheduler *services.Scheduler
	if cfg.Cron.Schedule != "" {
		scheduler, err = services.NewScheduler(cfg.Cron.Schedule, sweeps)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to schedule sweep")
		}
		scheduler.Start()
	}

	r := routes.SetupRouter(deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newPublisher(url string) events.Publisher {
	log := logger.Root()
	if url == "" {
		return events.Noop{}
	}
	p, err := events.NewNATSPublisher(url)
	if err != nil {
		log.Warn().Err(err).Msg("events disabled")
		return events.Noop{}
	}
	return p
}

func newMailer(cfg config.EmailConfig) services.Mailer {
	log := logger.Root()
	if cfg.DevMode {
		return services.DevMailer{}
	}
	m, err := services.NewMailerSendMailer(cfg.MailerSendKey, cfg.FromName, cfg.FromEmail)
	if err != nil {
		log.Warn().Err(err).Msg("falling back to dev mailer")
		return services.DevMailer{}
	}
	return m
}
