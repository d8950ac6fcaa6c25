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

	"github.com/wyfcoding/riskmonitor/internal/risk/application"
	"github.com/wyfcoding/riskmonitor/internal/risk/domain"
	"github.com/wyfcoding/riskmonitor/internal/risk/infrastructure"
	"github.com/wyfcoding/riskmonitor/internal/risk/interfaces"
	"github.com/wyfcoding/riskmonitor/pkg/config"
	"github.com/wyfcoding/riskmonitor/pkg/db"
	"github.com/wyfcoding/riskmonitor/pkg/logger"
	"github.com/wyfcoding/riskmonitor/pkg/metrics"
)

func main() {
	// 1. 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/risk/config.toml"
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
		&domain.CreditRiskRecord{},
		&domain.MarketRiskRecord{},
		&infrastructure.PositionRecord{},
		&infrastructure.ReturnRecord{},
	); err != nil {
		logger.Error(ctx, "failed to migrate database", "error", err)
		os.Exit(1)
	}

	// 6. 依赖注入
	creditRepo := infrastructure.NewGormCreditRiskRepository(database.DB)
	marketRepo := infrastructure.NewGormMarketRiskRepository(database.DB)
	portfolios := infrastructure.NewGormPortfolioReader(database.DB)

	riskService := application.NewRiskService(creditRepo, marketRepo, portfolios, m,
		time.Duration(cfg.Assessment.VaRValidityHours)*time.Hour)

	handler := interfaces.NewHTTPHandler(riskService)

	// 7. 启动 HTTP 服务
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
		logger.Info(ctx, "risk service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 8. 优雅关停
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown failed", "error", err)
	}
	logger.Info(ctx, "risk service stopped")
}
