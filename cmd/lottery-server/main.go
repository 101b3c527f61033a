package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/bets"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/cache"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/draw"
	httpapi "github.com/radieske/lottery-agency-server/internal/lottery-server/http"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/producer"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/server"
	"github.com/radieske/lottery-agency-server/internal/lottery-server/store"
	sharedcache "github.com/radieske/lottery-agency-server/internal/shared/cache"
	"github.com/radieske/lottery-agency-server/internal/shared/config"
	"github.com/radieske/lottery-agency-server/internal/shared/db"
	"github.com/radieske/lottery-agency-server/internal/shared/kafka"
	"github.com/radieske/lottery-agency-server/internal/shared/logger"
	"github.com/radieske/lottery-agency-server/internal/shared/metrics"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fs := pflag.NewFlagSet("lottery-server", pflag.ExitOnError)
	cfg.RegisterServerFlags(fs)
	_ = fs.Parse(os.Args[1:])
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("config",
		zap.String("action", "config"),
		zap.String("result", "success"),
		zap.Int("port", cfg.Port),
		zap.Int("listen_backlog", cfg.ListenBacklog),
		zap.Int("agencies", cfg.Agencies),
		zap.String("store", cfg.StoreBackend),
		zap.String("log_level", cfg.LogLevel),
	)

	// Armazenamento de apostas
	var (
		backend store.Store
		pg      *sql.DB
	)
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pg, err = db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		if err := db.EnsureSchema(context.Background(), pg); err != nil {
			log.Fatal("postgres schema", zap.Error(err))
		}
		backend = store.NewPostgres(pg)
	case config.StoreMemory:
		backend = store.NewMemory()
	default:
		backend = store.NewFile(cfg.StorePath)
	}
	shared := store.NewShared(backend)

	// Métricas Prometheus
	connections := prometheus.NewCounter(prometheus.CounterOpts{Name: "lottery_connections_total", Help: "conexões aceitas"})
	stored := prometheus.NewCounter(prometheus.CounterOpts{Name: "lottery_bets_stored_total", Help: "apostas persistidas"})
	flushed := prometheus.NewCounter(prometheus.CounterOpts{Name: "lottery_batches_flushed_total", Help: "lotes persistidos"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lottery_errors_total", Help: "conexões abortadas por estágio"}, []string{"stage"})
	ready := prometheus.NewGauge(prometheus.GaugeOpts{Name: "lottery_agencies_ready", Help: "agências na barreira do sorteio"})
	reports := prometheus.NewCounter(prometheus.CounterOpts{Name: "lottery_draw_reports_total", Help: "resultados enviados às agências"})
	prometheus.MustRegister(connections, stored, flushed, errorsBy, ready, reports)

	coord := draw.NewCoordinator(draw.NewBarrier(cfg.Agencies), shared, bets.WinningNumber(cfg.WinnerNumber))
	coord.OnArrive = func(n int) { ready.Set(float64(n)) }

	deps := server.Deps{
		Store:       shared,
		Coordinator: coord,
		Hooks: server.Hooks{
			OnConnection: func() { connections.Inc() },
			OnBetsStored: func(n int) {
				flushed.Inc()
				stored.Add(float64(n))
			},
			OnDrawReported: func() { reports.Inc() },
			OnError:        func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
		},
	}
	api := &httpapi.API{Draw: coord}

	// Redis (opcional): resultado por agência para a API de consulta
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = sharedcache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		wc := cache.NewWinnersCache(rdb, 24*time.Hour)
		deps.Cache = wc
		api.Cache = wc
	}

	// Kafka (opcional): eventos de lote e de sorteio
	if cfg.KafkaBrokers != "" {
		pub := producer.NewKafkaPublisher(
			kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBatchStored),
			kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDrawResults),
		)
		defer func() {
			if err := pub.Close(); err != nil {
				log.Warn("kafka writers close", zap.Error(err))
			}
		}()
		deps.Publisher = pub
	}

	// metrics/health + API de consulta
	if cfg.MetricsPort != "" {
		health := func(ctx context.Context) error {
			if pg != nil {
				if err := pg.PingContext(ctx); err != nil {
					return fmt.Errorf("pg: %w", err)
				}
			}
			if rdb != nil {
				if err := rdb.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
			}
			return nil
		}
		msrv := metrics.StartMetricsServer(cfg.MetricsPort, health, api.Router())
		log.Info("metrics/health listening", zap.String("addr", msrv.Addr))
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = msrv.Shutdown(ctx)
		}()
	}

	ln, err := server.Listen(cfg.Port, cfg.ListenBacklog)
	if err != nil {
		log.Fatal("listen", zap.Error(err))
	}
	srv := server.New(ln, log, deps)

	// SIGTERM/SIGINT fecham o listener; workers em andamento terminam sozinhos
	ctx, stop := server.NotifyShutdown(context.Background())
	defer stop()

	log.Info("lottery-server started", zap.String("addr", srv.Addr().String()))
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("serve", zap.Error(err))
	}

	srv.Wait()
	log.Info("lottery-server stopped")
}
