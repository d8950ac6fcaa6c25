package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/riskmonitor/internal/aml/application"
	"github.com/wyfcoding/riskmonitor/internal/aml/domain"
	"github.com/wyfcoding/riskmonitor/internal/aml/infrastructure"
	"github.com/wyfcoding/riskmonitor/internal/aml/interfaces"
	riskinfra "github.com/wyfcoding/riskmonitor/internal/risk/infrastructure"
	"github.com/wyfcoding/riskmonitor/pkg/cache"
	"github.com/wyfcoding/riskmonitor/pkg/config"
	"github.com/wyfcoding/riskmonitor/pkg/db"
	"github.com/wyfcoding/riskmonitor/pkg/logger"
	"github.com/wyfcoding/riskmonitor/pkg/metrics"
	"github.com/wyfcoding/riskmonitor/pkg/mq"
)

const watchlistRefreshInterval = 15 * time.Minute

func main() {
	// 1. 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/aml/config.toml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()

	// 3. 初始化指标
	m := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		go func() {
			if err := m.Serve(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				logger.Error(ctx, "metrics server stopped", "error", err)
			}
		}()
	}

	// 4. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Error(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// 5. 自动迁移
	if err := database.AutoMigrate(
		&infrastructure.CustomerRecord{},
		&infrastructure.TransactionRecord{},
		&domain.RiskAlert{},
		&domain.ComplianceReport{},
		&domain.RiskSnapshot{},
		&domain.WatchlistEntry{},
	); err != nil {
		logger.Error(ctx, "failed to migrate database", "error", err)
		os.Exit(1)
	}

	// 6. 初始化 Redis 与 Kafka
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Error(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.GroupID,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		logger.Error(ctx, "failed to create kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	// 7. 依赖注入
	customerRepo := infrastructure.NewGormCustomerRepository(database.DB)
	txRepo := infrastructure.NewGormTransactionRepository(database.DB)
	alertRepo := infrastructure.NewGormAlertRepository(database.DB)
	reportRepo := infrastructure.NewGormReportRepository(database.DB)
	snapshotRepo := infrastructure.NewGormSnapshotRepository(database.DB)

	watchlist := infrastructure.NewDBWatchlistProvider(database.DB)
	if err := watchlist.Refresh(ctx); err != nil {
		logger.Error(ctx, "failed to load initial watchlist", "error", err)
		os.Exit(1)
	}

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	go watchlist.RefreshLoop(refreshCtx, watchlistRefreshInterval)

	screening := domain.NewScreeningService(watchlist, domain.LevenshteinMatcher{}, cfg.AML.ScreeningMinScore)
	evaluator := domain.NewRuleEvaluator(ruleConfigFrom(cfg))
	aggregator, err := domain.NewAggregator(domain.LevelBands{
		Medium:   cfg.AML.MediumScoreFloor,
		High:     cfg.AML.HighScoreFloor,
		Critical: cfg.AML.CriticalScoreFloor,
	}, cfg.AML.AlertScoreThreshold)
	if err != nil {
		logger.Error(ctx, "invalid risk level configuration", "error", err)
		os.Exit(1)
	}

	generator := infrastructure.NewComplianceReportGenerator(reportRepo)
	dedup := infrastructure.NewRedisDedupStore(redisCache)
	publisher := infrastructure.NewKafkaEventPublisher(producer)
	trigger := application.NewAlertTrigger(alertRepo, generator, dedup, publisher, m,
		time.Duration(cfg.AML.AlertDedupWindowMinutes)*time.Minute)

	monitor := application.NewMonitorService(customerRepo, txRepo, evaluator, screening,
		aggregator, trigger, m, time.Duration(cfg.AML.ScreeningTimeoutMs)*time.Millisecond)

	quant := infrastructure.NewCreditQuantProvider(riskinfra.NewGormCreditRiskRepository(database.DB))
	assessment := application.NewAssessmentService(customerRepo, snapshotRepo, quant,
		aggregator, trigger, m, cfg.Assessment.WorkerPoolSize,
		time.Duration(cfg.Assessment.EntityTimeoutSec)*time.Second)

	handler := interfaces.NewHTTPHandler(monitor, assessment, alertRepo, reportRepo)

	// 8. 启动 HTTP 服务
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	handler.RegisterRoutes(engine.Group("/api/v1"))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "aml service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 9. 优雅关停
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopRefresh()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown failed", "error", err)
	}
	logger.Info(ctx, "aml service stopped")
}

func ruleConfigFrom(cfg *config.Config) domain.RuleConfig {
	return domain.RuleConfig{
		HomeCountry:             cfg.AML.HomeCountry,
		CTRThreshold:            decimal.NewFromFloat(cfg.AML.CTRThresholdUSD),
		StructuringFloor:        decimal.NewFromFloat(cfg.AML.StructuringFloorUSD),
		StructuringMinCount:     cfg.AML.StructuringMinCount,
		StructuringWindow:       time.Duration(cfg.AML.StructuringWindowDays) * 24 * time.Hour,
		RapidMovementMinCount:   cfg.AML.RapidMovementMinCount,
		RapidMovementWindow:     time.Duration(cfg.AML.RapidMovementWindowHours) * time.Hour,
		RoundAmountFloor:        decimal.NewFromFloat(cfg.AML.RoundAmountFloorUSD),
		RoundAmountStep:         decimal.NewFromFloat(cfg.AML.RoundAmountStepUSD),
		NightWindowStartHour:    cfg.AML.NightWindowStartHour,
		NightWindowEndHour:      cfg.AML.NightWindowEndHour,
		GeoVelocityMinCountries: cfg.AML.GeoVelocityMinCountries,
		GeoVelocityWindow:       time.Duration(cfg.AML.GeoVelocityWindowHours) * time.Hour,
		ProfileVolumeMultiplier: cfg.AML.ProfileVolumeMultiplier,
	}
}
