package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"regexp"
	"sync"
	"syscall"
	"time"

	"bcp-export/internal/app"
	"bcp-export/internal/clients"
	"bcp-export/internal/config"
	"bcp-export/internal/session"
	"bcp-export/internal/transport/rest"
	"bcp-export/internal/transport/websocket"
	"bcp-export/internal/worker"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system env or defaults")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := app.NewLogger(cfg.IsLocal())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg config.AppConfig) error {
	// top-level context, cancelled on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	a, err := app.Build(ctx, cfg, app.Options{Notifier: clients.NewWebSocketClient(wsHub)})
	if err != nil {
		return err
	}
	defer a.Close()

	sessions, err := session.Open(cfg.Session.Path, cfg.Session.MaxUsers)
	if err != nil {
		return err
	}
	defer sessions.Close()

	lark := clients.NewLarkClient(clients.LarkConfig{
		BaseURL:     cfg.Lark.BaseURL,
		AppID:       cfg.Lark.AppID,
		AppSecret:   cfg.Lark.AppSecret,
		RedirectURI: cfg.Lark.RedirectURI,
	})

	handler := rest.NewHandler(a.Flows, a.Tracker, a.Catalog, lark, sessions, a.Storage, wsHub.HandleWebSocket, rest.Options{
		CookieName:   cfg.Session.CookieName,
		CookieMaxAge: cfg.Session.MaxAge.Std(),
		SecureCookie: !cfg.IsLocal(),
		EmailPattern: regexp.MustCompile(cfg.Session.EmailPattern),
	})

	var wg sync.WaitGroup
	startWorker(ctx, &wg, worker.NewCleaner("sessions", cfg.Session.CleanupInterval.Std(), func(ctx context.Context) (int64, error) {
		return sessions.CleanupInactive(ctx, cfg.Session.MaxAge.Std())
	}))
	if retention := cfg.Storage.Retention.Std(); retention > 0 {
		startWorker(ctx, &wg, worker.NewCleaner("archives", time.Hour, func(ctx context.Context) (int64, error) {
			n, err := a.Storage.CleanupOlderThan(retention)
			return int64(n), err
		}))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.InitRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zap.L().Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.Int("environments", len(cfg.Environments)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		zap.L().Info("shutdown initiated")
	case err := <-serverErr:
		if err != nil {
			cancel()
			wg.Wait()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown error", zap.Error(err))
	}

	cancel()
	wg.Wait()
	zap.L().Info("shutdown complete")
	return nil
}

func startWorker(ctx context.Context, wg *sync.WaitGroup, c *worker.Cleaner) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Run(ctx)
	}()
}
