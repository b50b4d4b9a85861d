package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/rental-service/pkg/kafka"
	"github.com/Astemirdum/rental-service/pkg/logger"
	"github.com/Astemirdum/rental-service/pkg/postgres"
	"github.com/Astemirdum/rental-service/rental/config"
	"github.com/Astemirdum/rental-service/rental/internal/handler"
	"github.com/Astemirdum/rental-service/rental/internal/ledger"
	"github.com/Astemirdum/rental-service/rental/internal/notify"
	"github.com/Astemirdum/rental-service/rental/internal/overdue"
	"github.com/Astemirdum/rental-service/rental/internal/repository"
	"github.com/Astemirdum/rental-service/rental/internal/server"
	"github.com/Astemirdum/rental-service/rental/internal/service"
	"github.com/Astemirdum/rental-service/rental/internal/stats"
	"github.com/Astemirdum/rental-service/rental/migrations"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "rental")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := newStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("store init", zap.Error(err))
	}

	ledg, err := ledger.New(ctx, store, cfg.Errors.Messages(), log)
	if err != nil {
		log.Fatal("ledger init", zap.Error(err))
	}
	monitor := overdue.NewMonitor(ledg, log)

	notifier, err := newNotifier(ctx, cfg, log)
	if err != nil {
		log.Fatal("notifier init", zap.Error(err))
	}
	sweeper := notify.NewSweeper(notifier, log)

	agg := stats.New(ledg, monitor, sweeper, log)
	svc := service.NewService(ledg, monitor, agg, sweeper, log)

	h := handler.New(svc, svc, svc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	cancel()
	if err := store.Close(); err != nil {
		log.Error("store close", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
}

func newStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	if cfg.Store != config.StorePostgres {
		log.Info("using in-memory store")
		return repository.NewMemory(), nil
	}
	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return nil, err
	}
	return repository.NewPostgres(db, log)
}

// newNotifier picks the reminder transport: Kafka hand-off with an SMTP
// mailer consumer when brokers are configured, direct SMTP otherwise, nil
// when neither is set.
func newNotifier(ctx context.Context, cfg *config.Config, log *zap.Logger) (notify.Notifier, error) {
	if len(cfg.Kafka.Addrs) == 0 {
		if !cfg.SMTP.Enabled() {
			log.Warn("no notifier configured, overdue reminders disabled")
			return nil, nil
		}
		return notify.NewSMTP(cfg.SMTP, log), nil
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.MailerConsumerGroup)
	if err != nil {
		return nil, err
	}
	mailer := notify.NewSMTP(cfg.SMTP, log)
	go func() {
		if err := kafka.Consume(ctx, consumer, notify.NewConsumer(mailer, log), kafka.NoticesTopic); err != nil {
			log.Error("kafka.Consume", zap.Error(err))
		}
	}()

	return notify.NewKafka(producer, kafka.NoticesTopic, log), nil
}
