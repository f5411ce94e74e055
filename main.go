// Package main provides the main entry point for the inox table pricing service
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/inox-pricing/app/handlers"
	"github.com/amirphl/inox-pricing/app/middleware"
	"github.com/amirphl/inox-pricing/app/router"
	"github.com/amirphl/inox-pricing/app/services"
	businessflow "github.com/amirphl/inox-pricing/business_flow"
	"github.com/amirphl/inox-pricing/config"
	"github.com/amirphl/inox-pricing/pricing"
	"github.com/amirphl/inox-pricing/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	logger    *zap.Logger
	stopFuncs []func()
}

func main() {
	issueFor := flag.String("issue-admin-token", "", "print an admin JWT for the given subject and exit")
	flag.Parse()

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if *issueFor != "" {
		if err := issueAdminToken(cfg, *issueFor); err != nil {
			logger.Fatal("Failed to issue admin token", zap.Error(err))
		}
		return
	}

	logger.Info("Starting inox pricing service",
		zap.String("version", cfg.Deployment.Version),
		zap.String("commit", cfg.Deployment.CommitHash),
		zap.String("environment", cfg.Deployment.Environment))

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-sigChan
	logger.Info("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// issueAdminToken prints a signed admin token for operators
func issueAdminToken(cfg *config.ProductionConfig, subject string) error {
	tokens, err := services.NewAdminTokenService(cfg.Security.AdminTokenTTL, cfg.Security.JWTIssuer, cfg.Security.JWTSecretKey)
	if err != nil {
		return err
	}
	token, expiresAt, err := tokens.GenerateAdminToken(subject)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n# expires %s\n", token, expiresAt.Format(time.RFC3339))
	return nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeRuleSet loads the rule file once so a broken file stops the deploy
func initializeRuleSet(cfg config.PricingConfig, logger *zap.Logger) (*pricing.CachedRuleSetProvider, error) {
	source, err := pricing.NewFileRuleSource(cfg.RuleSetPath)
	if err != nil {
		return nil, err
	}
	provider := pricing.NewCachedRuleSetProvider(source)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rules, err := provider.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing rules: %w", err)
	}
	logger.Info("Pricing rules loaded",
		zap.String("source", source.Name()),
		zap.String("version", rules.Version),
		zap.String("fingerprint", rules.Fingerprint()))
	return provider, nil
}

// initializeSheetSource picks the spreadsheet backend. A nil source disables sheet pricing.
func initializeSheetSource(cfg config.SheetsConfig) (services.SheetRowSource, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Provider {
	case "google":
		ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
		defer cancel()
		return services.NewGoogleSheetsRuleSource(ctx, cfg.CredentialsFile, cfg.SpreadsheetID, cfg.ReadRange)
	case "xlsx":
		return services.NewXLSXRuleSource(cfg.XLSXPath, cfg.XLSXSheet), nil
	default:
		return nil, fmt.Errorf("unsupported sheets provider %q", cfg.Provider)
	}
}

// initializeNotificationService initializes the notification service
func initializeNotificationService(cfg config.EmailConfig, logger *zap.Logger) services.NotificationService {
	var emailProvider services.EmailProvider

	switch cfg.Provider {
	case "smtp":
		emailProvider = services.NewSMTPEmailProvider(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.FromEmail, cfg.FromName, cfg.Timeout)
	default:
		emailProvider = services.NewMockEmailProvider(logger)
	}

	return services.NewNotificationService(emailProvider, cfg.RetryMaxElapsed, logger)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	var stopFuncs []func()

	rules, err := initializeRuleSet(cfg.Pricing, logger)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthCheckInterval, logger))
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
	}

	sheetSource, err := initializeSheetSource(cfg.Sheets)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize spreadsheet source: %w", err)
	}
	sheetRules := businessflow.NewSheetRulesProvider(sheetSource, rc, businessflow.SheetRulesProviderConfig{
		TTL:             cfg.Sheets.CacheTTL,
		FetchTimeout:    cfg.Sheets.FetchTimeout,
		RetryMaxElapsed: cfg.Sheets.RetryMaxElapsed,
		RedisPrefix:     cfg.Cache.RedisPrefix,
	}, logger)

	notificationService := initializeNotificationService(cfg.Email, logger)

	var captchaSvc services.CaptchaService
	if cfg.Captcha.Enabled {
		captchaSvc, err = services.NewCaptchaServiceRotate(cfg.Captcha.TTL, cfg.Captcha.Padding, cfg.Captcha.ImageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize captcha: %w", err)
		}
		if runner, ok := captchaSvc.(services.CleanupRunner); ok {
			ctx, cancel := context.WithCancel(context.Background())
			go runner.RunCleanup(ctx, cfg.Captcha.TTL)
			stopFuncs = append(stopFuncs, cancel)
		}
	}

	var tokenService services.AdminTokenService
	if cfg.Security.JWTSecretKey != "" {
		tokenService, err = services.NewAdminTokenService(cfg.Security.AdminTokenTTL, cfg.Security.JWTIssuer, cfg.Security.JWTSecretKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize admin token service: %w", err)
		}
	}
	if cfg.Security.AdminToken == "" && tokenService == nil {
		logger.Warn("No admin credential configured; overrides and admin endpoints are unreachable")
	}

	// Business flows
	quoteFlow := businessflow.NewQuoteFlow(rules, logger)
	sheetQuoteFlow := businessflow.NewSheetQuoteFlow(sheetRules, logger)
	inquiryFlow := businessflow.NewInquiryFlow(rules, captchaSvc, notificationService, services.NewQuoteEmailRenderer(), cfg.Email.SalesEmail, logger)
	adminFlow := businessflow.NewPricingAdminFlow(rules, sheetRules, logger)

	// Handlers
	h := router.Handlers{
		Pricing:      handlers.NewPricingHandler(quoteFlow, sheetQuoteFlow),
		Inquiry:      handlers.NewInquiryHandler(inquiryFlow, captchaSvc),
		AdminPricing: handlers.NewAdminPricingHandler(adminFlow),
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.Security.AdminToken, tokenService, logger)
	r := router.NewFiberRouter(cfg, h, authMiddleware, rules, rc, logger)

	return &Application{
		router:    r,
		config:    cfg,
		server:    r.GetApp(),
		logger:    logger,
		stopFuncs: stopFuncs,
	}, nil
}
