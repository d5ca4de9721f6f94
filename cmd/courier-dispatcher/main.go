// Courier Dispatcher — фоновый процесс доставки запланированных сообщений.
//
// Dispatcher:
//   - По расписанию выбирает due-сообщения и отправляет их в шлюз
//   - Держит advisory lease, чтобы работал только один активный экземпляр
//   - Возвращает зависшие PROCESSING-сообщения обратно в очередь
//   - Ограничивает темп отправок, чтобы не получить rate limit шлюза
//
// Janitor-тик снимает сводку по статусам в метрики.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/Courier/internal/dispatcher"
	"github.com/shaiso/Courier/internal/gateway"
	"github.com/shaiso/Courier/internal/lock"
	"github.com/shaiso/Courier/internal/mq"
	"github.com/shaiso/Courier/internal/repo"
	"github.com/shaiso/Courier/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting courier-dispatcher")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	messageRepo := repo.NewMessageRepo(pool)
	locker := lock.NewAdvisoryLocker(pool)

	// Шлюз провайдера
	apiBase := os.Getenv("WA_API_BASE")
	if apiBase == "" {
		apiBase = "https://graph.facebook.com/v19.0"
	}
	token := os.Getenv("WA_ACCESS_TOKEN")
	if token == "" {
		logger.Error("WA_ACCESS_TOKEN is required")
		os.Exit(1)
	}

	cloud := gateway.NewCloudClient(gateway.CloudConfig{
		BaseURL: apiBase,
		Token:   token,
	})

	// RabbitMQ (опционально: без брокера события просто не публикуются)
	var publisher *mq.Publisher
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, events disabled", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	cfg := dispatcher.Config{
		Store:        messageRepo,
		Gateway:      cloud,
		Locker:       locker,
		Logger:       logger,
		BatchSize:    envInt("DISPATCH_BATCH_SIZE", 0),
		SendTimeout:  envDuration("SEND_TIMEOUT", 0),
		SendInterval: envDuration("SEND_INTERVAL", 0),
		StaleAfter:   envDuration("STALE_AFTER", 0),
	}
	if publisher != nil {
		cfg.Events = publisher
	}

	d := dispatcher.New(cfg)
	j := dispatcher.NewJanitor(messageRepo, locker, logger)

	// Расписание тиков
	dispatchEvery := envString("DISPATCH_EVERY", "1m")
	janitorEvery := envString("JANITOR_EVERY", "30m")

	// Затянувшийся тик не должен запускаться вторым экземпляром
	// параллельно: следующий триггер пропускается.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc("@every "+dispatchEvery, func() {
		if err := d.Tick(ctx); err != nil {
			logger.Error("dispatch cycle failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid dispatch schedule", "every", dispatchEvery, "error", err)
		os.Exit(1)
	}
	if _, err := c.AddFunc("@every "+janitorEvery, func() {
		if err := j.Tick(ctx); err != nil {
			logger.Error("janitor cycle failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid janitor schedule", "every", janitorEvery, "error", err)
		os.Exit(1)
	}

	c.Start()
	logger.Info("schedules registered", "dispatch", dispatchEvery, "janitor", janitorEvery)

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if mqConn != nil && !mqConn.IsConnected() {
			w.Write([]byte("ok (mq disconnected)"))
			return
		}
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("DISPATCHER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Дожидаемся завершения текущего тика
	<-c.Stop().Done()
	logger.Info("courier-dispatcher stopped")
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
