package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/wyfcoding/pkg/cache"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/metrics"
	"github.com/wyfcoding/pkg/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/optionsrisk/internal/optionsrisk/application"
	"github.com/wyfcoding/optionsrisk/internal/optionsrisk/domain"
	md_client "github.com/wyfcoding/optionsrisk/internal/optionsrisk/infrastructure/client"
	"github.com/wyfcoding/optionsrisk/internal/optionsrisk/infrastructure/messaging"
	http_server "github.com/wyfcoding/optionsrisk/internal/optionsrisk/interfaces/http"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/optionsrisk/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Sprintf("read config failed: %v", err))
	}

	// 2. Logger
	logger := logging.NewLogger("optionsrisk", "main", viper.GetString("log.level"))
	slog.SetDefault(logger.Logger)

	// 3. Metrics
	m := metrics.NewMetrics("optionsrisk")

	// 4. Infrastructure
	snapshotTTL := viper.GetDuration("cache.snapshot_ttl")
	if snapshotTTL <= 0 {
		snapshotTTL = time.Minute
	}
	cacheMB := viper.GetInt("cache.max_mb")
	if cacheMB <= 0 {
		cacheMB = 64
	}
	localCache, err := cache.NewBigCache(snapshotTTL, cacheMB, logger)
	if err != nil {
		panic(fmt.Sprintf("init snapshot cache failed: %v", err))
	}

	var publisher domain.AlertEventPublisher
	if brokers := viper.GetStringSlice("kafka.brokers"); len(brokers) > 0 {
		kafkaPub := messaging.NewKafkaAlertPublisher(messaging.KafkaConfig{
			Brokers:      brokers,
			Topic:        viper.GetString("kafka.alert_topic"),
			MaxRetries:   viper.GetInt("kafka.max_retries"),
			RetryBackoff: viper.GetDuration("kafka.retry_backoff"),
		})
		defer kafkaPub.Close()
		publisher = kafkaPub
	}

	var source application.PositionSource
	var market application.ChainSurfaceSource
	if base := viper.GetString("services.marketdata"); base != "" {
		mdClient := md_client.NewMarketDataClient(base, viper.GetDuration("services.marketdata_timeout"))
		source = mdClient
		market = mdClient
	}

	// 5. Domain policy（默认值可被配置覆盖，权重与缓冲比例属于运营校准项）
	policy := domain.DefaultRiskPolicy()
	if viper.IsSet("risk.delta_weight") {
		policy.DeltaWeight = viper.GetFloat64("risk.delta_weight")
	}
	if viper.IsSet("risk.gamma_weight") {
		policy.GammaWeight = viper.GetFloat64("risk.gamma_weight")
	}
	if viper.IsSet("risk.theta_weight") {
		policy.ThetaWeight = viper.GetFloat64("risk.theta_weight")
	}
	if viper.IsSet("risk.vega_weight") {
		policy.VegaWeight = viper.GetFloat64("risk.vega_weight")
	}
	if viper.IsSet("risk.liquidity_buffer") {
		policy.LiquidityBuffer = decimal.NewFromFloat(viper.GetFloat64("risk.liquidity_buffer"))
	}

	// 6. Application
	appService := application.NewAnalyticsService(policy, localCache, publisher, source, market, snapshotTTL)

	// 7. Interfaces
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.HTTPMetricsMiddleware(m))

	handler := http_server.NewAnalyticsHandler(appService.Command(), appService.Query())
	handler.RegisterRoutes(r.Group(""))

	sys := r.Group("/sys")
	{
		sys.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		sys.GET("/ready", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "READY"}) })
	}
	r.GET("/metrics", gin.WrapH(m.Handler()))
	pp := r.Group("/debug/pprof")
	{
		pp.GET("/", gin.WrapF(pprof.Index))
		pp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/symbol", gin.WrapF(pprof.Symbol))
		pp.GET("/trace", gin.WrapF(pprof.Trace))
	}

	// 8. Start
	g, ctx := errgroup.WithContext(context.Background())

	httpPort := viper.GetString("server.http_port")
	if httpPort == "" {
		httpPort = "8098"
	}
	server := &http.Server{Addr: fmt.Sprintf(":%s", httpPort), Handler: r}

	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// 9. Graceful Shutdown
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down server...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
