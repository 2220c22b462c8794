package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ShatskikhS/NotifyMe/internal/api"
	"github.com/ShatskikhS/NotifyMe/internal/config"
	"github.com/ShatskikhS/NotifyMe/internal/domain"
	"github.com/ShatskikhS/NotifyMe/internal/logging"
	"github.com/ShatskikhS/NotifyMe/internal/metrics"
	"github.com/ShatskikhS/NotifyMe/internal/provider"
	"github.com/ShatskikhS/NotifyMe/internal/queue"
	"github.com/ShatskikhS/NotifyMe/internal/ratelimiter"
	"github.com/ShatskikhS/NotifyMe/internal/repository"
	"github.com/ShatskikhS/NotifyMe/internal/service"
	"github.com/ShatskikhS/NotifyMe/internal/worker"
)

func main() {
	// ---- configuration ----
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync() //nolint:errcheck

	// ---- storage ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	repo, err := repository.NewFileNotificationRepository(cfg.NotificationsFile, logger,
		repository.WithOpObserver(m.ObserveStoreOp))
	if err != nil {
		logger.Fatal("failed to open notification storage", zap.Error(err))
	}
	m.SetStored(repo.Len())

	// Context for all background goroutines; cancelled on shutdown signal.
	ctx := context.Background()
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	if cfg.WatchStorage {
		go func() {
			if err := repo.Watch(workerCtx); err != nil {
				logger.Error("storage watcher stopped", zap.Error(err))
			}
		}()
	}

	// ---- delivery ----
	senders, logfile, err := buildSenders(cfg, logger)
	if err != nil {
		logger.Fatal("failed to set up senders", zap.Error(err))
	}
	defer logfile.Close() //nolint:errcheck

	dispatcher := provider.NewDispatcher(senders, ratelimiter.New(cfg.ChannelRateLimit), m.DispatchHooks(), logger)
	for _, ch := range domain.AllChannels {
		if !dispatcher.Configured(ch) {
			logger.Warn("channel has no sender; notifications using it end in deliveryError",
				zap.String("channel", string(ch)))
		}
	}
	svc := service.NewNotificationService(repo, dispatcher,
		domain.Rules{AllowedSources: cfg.AllowedSources}, logger)

	// ---- worker pool ----
	q := queue.New()
	inflight := worker.NewInFlight()

	pool := worker.NewPool(cfg.Workers, q, svc, inflight, logger)
	pool.Start(workerCtx)

	schedulerW := worker.NewSchedulerWorker(svc, q, inflight, cfg.SchedulerInterval, logger)
	schedulerW.OnSample = func(high, medium, low int) {
		m.SetQueueDepths(high, medium, low)
		m.SetStored(svc.Count())
	}
	go schedulerW.Run(workerCtx)

	// ---- HTTP server ----
	var limiter *ratelimiter.RequestLimiter
	if cfg.RateLimitRequests > 0 {
		limiter = ratelimiter.NewRequestLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	router := api.NewRouter(api.Deps{
		Service:  svc,
		Queue:    q,
		Gatherer: reg,
		Limiter:  limiter,
		Debug:    cfg.Debug,
		Logger:   logger,
	})
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("storage", repo.Path()),
			zap.Int("workers", pool.Size()),
			zap.Bool("debug", cfg.Debug),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the scheduler and the workers.
	cancelWorkers()

	// 3. Wait for in-flight deliveries to finish and persist their status.
	pool.Wait()

	logger.Info("server stopped cleanly")
}

// buildSenders returns one sender per configured channel. Console and logfile
// are always on; telegram and email need credentials.
func buildSenders(cfg *config.Config, logger *zap.Logger) ([]provider.Sender, *provider.LogfileSender, error) {
	logfile, err := provider.NewLogfileSender(cfg.LogfilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open delivery log: %w", err)
	}

	senders := []provider.Sender{
		provider.NewConsoleSender(os.Stdout),
		logfile,
	}

	if cfg.TelegramEnabled() {
		senders = append(senders, provider.NewTelegramSender(
			cfg.TelegramBaseURL, cfg.TelegramToken, cfg.TelegramChatID, cfg.TelegramTimeout))
	}

	smtpCfg := provider.SMTPConfig(cfg.SMTP)
	if smtpCfg.Enabled() {
		senders = append(senders, provider.NewEmailSender(smtpCfg, logger))
	}

	return senders, logfile, nil
}
