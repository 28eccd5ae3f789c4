package main

import (
	"context"
	"os"
	"time"

	"github.com/florelle/veiling-BE/api"
	"github.com/florelle/veiling-BE/internal/auction"
	db "github.com/florelle/veiling-BE/internal/db/sqlc"
	"github.com/florelle/veiling-BE/internal/event"
	"github.com/florelle/veiling-BE/internal/mailer"
	"github.com/florelle/veiling-BE/internal/sweep"
	"github.com/florelle/veiling-BE/internal/util"
	"github.com/florelle/veiling-BE/internal/webhook"
	"github.com/florelle/veiling-BE/internal/worker"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configurations
	config, err := util.LoadConfig("./app.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config file 😣")
	}

	log.Info().Msg("configurations loaded successfully ✅")

	// Create connection pool
	connPool, err := pgxpool.New(context.Background(), config.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to validate db connection string 😣")
	}

	pingErr := connPool.Ping(context.Background())
	if pingErr != nil {
		log.Fatal().Err(pingErr).Msg("failed to connect to db 😣")
	}
	log.Info().Msg("connected to db ✅")

	store := db.NewStore(connPool)

	redisDb := redis.NewClient(&redis.Options{
		Addr:     config.RedisServerAddress,
		Password: "", // no password set
		DB:       0,  // use default DB
	})
	if err = redisDb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis 😣")
	}
	log.Info().Msg("connected to redis ✅")

	redisOpt := asynq.RedisClientOpt{
		Addr: config.RedisServerAddress,
	}

	taskDistributor := worker.NewTaskDistributor(redisOpt)
	taskInspector := worker.NewTaskInspector(redisOpt)

	// The hub fans lot events out to SSE subscribers.
	eventSender := event.NewSSEServer()
	go eventSender.Run()

	// When a lot's clock closes, its terminal state is persisted through the
	// finalize task so a transient db outage retries instead of losing the
	// close.
	engine := auction.NewManager(eventSender, auction.NewStoreRecorder(store), auction.ManagerConfig{
		TickInterval:   config.TickInterval,
		PersistTimeout: config.PersistenceTimeout,
		OnTerminal: func(snap auction.LotSnapshot, finalPrice int64) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			err := taskDistributor.DistributeTaskFinalizeAuction(ctx, &worker.PayloadFinalizeAuction{
				LotID:             snap.ID,
				Phase:             string(snap.Phase),
				FinalPrice:        finalPrice,
				RemainingQuantity: int32(snap.Remaining),
				EndedAt:           time.Now(),
			}, asynq.MaxRetry(10), asynq.Queue(worker.QueueCritical))
			if err != nil {
				log.Error().Err(err).Str("lot_id", snap.ID.String()).Msg("failed to enqueue finalize task")
			}
		},
	})

	var mailService *mailer.Sender
	if config.SMTPHost != "" {
		mailService, err = mailer.NewSender(config.SMTPHost, config.SMTPPort, config.SMTPUsername, config.SMTPPassword, config.MailFrom)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create mailer service 😣")
		}
		log.Info().Msg("mailer service created successfully ✅")
	} else {
		log.Warn().Msg("SMTP is not configured, notifications will be logged only")
	}

	var saleNotifier *webhook.Notifier
	if config.SaleWebhookURL != "" {
		saleNotifier = webhook.NewNotifier(config.SaleWebhookURL)
		log.Info().Str("url", config.SaleWebhookURL).Msg("sale webhook notifier created successfully ✅")
	}

	taskProcessor := worker.NewRedisTaskProcessor(redisOpt, store, engine, taskDistributor, mailService, saleNotifier)
	go func() {
		if err := taskProcessor.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start task processor 😣")
		}
	}()

	// The sweeper reconciles durable lot rows against the in-memory engine,
	// recovering lots orphaned by a crash.
	sweeper, err := sweep.NewSweeper(store, engine, taskDistributor)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create sweeper 😣")
	}
	if err = sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start sweeper 😣")
	}

	runHTTPServer(&config, store, taskDistributor, taskInspector, eventSender, engine)
}

func runHTTPServer(config *util.Config, store db.Store, taskDistributor worker.TaskDistributor, taskInspector worker.TaskInspector, eventSender event.Sender, engine *auction.Manager) {
	server, err := api.NewServer(store, config, taskDistributor, taskInspector, eventSender, engine)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create HTTP server 😣")
	}

	err = server.Start(config.HTTPServerAddress)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start HTTP server 😣")
	}
}
