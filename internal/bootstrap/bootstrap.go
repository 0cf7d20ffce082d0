package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/fathima-sithara/user-service/internal/config"
	"github.com/fathima-sithara/user-service/internal/database"
	"github.com/fathima-sithara/user-service/internal/events"
	"github.com/fathima-sithara/user-service/internal/handlers"
	"github.com/fathima-sithara/user-service/internal/middleware"
	"github.com/fathima-sithara/user-service/internal/notify"
	"github.com/fathima-sithara/user-service/internal/repository"
	"github.com/fathima-sithara/user-service/internal/services"
	"github.com/fathima-sithara/user-service/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type AppContext struct {
	Config     *config.Config
	Logger     *zap.Logger
	Sugar      *zap.SugaredLogger
	Mongo      *mongo.Client
	Redis      *redis.Client
	Handler    *handlers.Handler
	AuthGuard  fiber.Handler
	OTPLimiter fiber.Handler
}

type CleanupFn func(context.Context)

// Init loads configuration, connects the backing stores and assembles the
// service graph.
func Init(configPath string) (*AppContext, CleanupFn, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := utils.NewLogger(cfg.App.Env)
	sugar := logger.Sugar()
	sugar.Infof("Starting user-service in %s environment", cfg.App.Env)

	db, mongoClient, err := database.ConnectMongo(cfg.Mongo.URI, cfg.Mongo.Database, sugar)
	if err != nil {
		return nil, nil, err
	}

	rdb, err := database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, sugar)
	if err != nil {
		return nil, nil, err
	}

	var publisher *events.Publisher
	if cfg.Kafka.Enabled {
		publisher = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	}

	sender := &notify.Sender{}
	if cfg.Brevo.Enabled {
		sender.Email = notify.NewBrevoClient(cfg.Brevo.APIKey, cfg.Brevo.FromEmail, cfg.Brevo.FromName)
	}
	if cfg.Twilio.Enabled {
		sender.SMS = notify.NewTwilioClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From)
	}

	userRepo := repository.NewMongoUserRepo(db, cfg.Mongo.Collection)
	tokens := utils.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL)

	creds := services.NewCredentialStore(cfg.Security.BcryptCost)
	otp := services.NewOTPManager(userRepo, cfg.Security.OTPTTL, cfg.Security.TokenTTL)
	lockout := services.NewLockoutGuard(userRepo, cfg.Security.MaxLoginAttempts, cfg.Security.LockDuration)
	usernames := services.NewUsernameAllocator(userRepo)

	accounts := services.NewAccountService(userRepo, creds, otp, lockout, usernames, tokens, sender, publisher, logger)
	social := services.NewSocialGraph(userRepo, publisher, logger)

	limiter := middleware.NewRateLimiter(rdb, "otp_rate", cfg.Security.OTPRequestsPerHour, time.Hour)

	app := &AppContext{
		Config:     cfg,
		Logger:     logger,
		Sugar:      sugar,
		Mongo:      mongoClient,
		Redis:      rdb,
		Handler:    handlers.NewHandler(accounts, social, logger),
		AuthGuard:  middleware.JWTAuth(tokens),
		OTPLimiter: limiter.MiddlewareByKey(func(c *fiber.Ctx) string {
			// authenticated OTP requests are limited per account, the
			// unauthenticated forgot-password route falls back to the caller ip
			if id, ok := c.Locals(middleware.UserIDKey).(string); ok && id != "" {
				return id
			}
			return c.IP()
		}),
	}

	cleanup := func(ctx context.Context) {
		if cerr := logger.Sync(); cerr != nil {
			log.Printf("Logger sync error: %v", cerr)
		}
		if cerr := publisher.Close(); cerr != nil {
			sugar.Errorf("Kafka producer close error: %v", cerr)
		}
		if cerr := mongoClient.Disconnect(ctx); cerr != nil {
			sugar.Errorf("MongoDB disconnect error: %v", cerr)
		}
		if cerr := rdb.Close(); cerr != nil {
			sugar.Errorf("Redis client close error: %v", cerr)
		}
	}
	return app, cleanup, nil
}
