package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/florelle/veiling-BE/internal/auction"
	db "github.com/florelle/veiling-BE/internal/db/sqlc"
	"github.com/florelle/veiling-BE/internal/worker"
	"github.com/go-co-op/gocron/v2"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// scheduleGrace is how far past its scheduled start a pending lot may be
// before the sweeper re-enqueues the start task.
const scheduleGrace = 30 * time.Second

// Sweeper reconciles the durable lot rows with the in-process engine. It
// covers the two gaps a crash leaves behind: active rows whose coordinator
// no longer exists, and pending rows whose scheduled start task was lost.
type Sweeper struct {
	store       db.Store
	engine      *auction.Manager
	distributor worker.TaskDistributor
	scheduler   gocron.Scheduler
}

func NewSweeper(store db.Store, engine *auction.Manager, distributor worker.TaskDistributor) (*Sweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Sweeper{
		store:       store,
		engine:      engine,
		distributor: distributor,
		scheduler:   scheduler,
	}, nil
}

// Start begins the periodic reconciliation jobs.
func (s *Sweeper) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(
			func() {
				s.reconcileActiveLots()
			},
		),
	)
	if err != nil {
		return err
	}

	_, err = s.scheduler.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(
			func() {
				s.recoverScheduledStarts()
			},
		),
	)
	if err != nil {
		return err
	}

	s.scheduler.Start()
	log.Info().Msg("lot sweeper started")
	return nil
}

// Stop shuts the scheduler down.
func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}

// reconcileActiveLots repairs active rows the normal close path missed.
// A row with no coordinator lost its in-memory clock to a crash and the run
// cannot resume, so the row is expired. A row whose registered coordinator
// has already stopped lost its finalize enqueue at close time (the registry
// entry is only removed by the finalize task), so that task is re-enqueued.
func (s *Sweeper) reconcileActiveLots() {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	lots, err := s.store.ListLots(ctx, db.NullLotPhase{LotPhase: db.LotPhaseActive, Valid: true})
	if err != nil {
		log.Error().Err(err).Msg("sweeper failed to list active lots")
		return
	}

	for _, lot := range lots {
		if coordinator, registered := s.engine.Get(lot.ID); registered {
			select {
			case <-coordinator.Done():
			default:
				// Clock is still running in this process.
				continue
			}

			// The run closed but the row is still active, so the finalize
			// enqueue at close time was lost. Re-enqueue from the
			// coordinator's terminal state; the stable task id makes this a
			// no-op when the task merely has not run yet.
			snap := coordinator.Snapshot()
			log.Warn().
				Str("lot_id", lot.ID.String()).
				Str("phase", string(snap.Phase)).
				Msg("closed coordinator still registered, re-enqueueing finalize")

			err = s.distributor.DistributeTaskFinalizeAuction(ctx, &worker.PayloadFinalizeAuction{
				LotID:             lot.ID,
				Phase:             string(snap.Phase),
				FinalPrice:        coordinator.LastTick().Price,
				RemainingQuantity: int32(snap.Remaining),
				EndedAt:           time.Now(),
			}, asynq.MaxRetry(3), asynq.Queue(worker.QueueCritical))
			if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
				log.Error().
					Err(err).
					Str("lot_id", lot.ID.String()).
					Msg("sweeper failed to re-enqueue finalize task")
			}
			continue
		}

		log.Warn().
			Str("lot_id", lot.ID.String()).
			Msg("active lot has no coordinator, expiring orphaned run")

		err = s.distributor.DistributeTaskFinalizeAuction(ctx, &worker.PayloadFinalizeAuction{
			LotID:             lot.ID,
			Phase:             string(db.LotPhaseExpired),
			FinalPrice:        lot.EndPrice,
			RemainingQuantity: lot.RemainingQuantity,
			EndedAt:           time.Now(),
		}, asynq.MaxRetry(3), asynq.Queue(worker.QueueCritical))
		if err != nil {
			log.Error().
				Err(err).
				Str("lot_id", lot.ID.String()).
				Msg("sweeper failed to enqueue finalize task")
		}
	}
}

// recoverScheduledStarts re-enqueues start tasks for pending lots past
// their scheduled start. The stable task id makes the enqueue a no-op when
// the original task still exists.
func (s *Sweeper) recoverScheduledStarts() {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	lots, err := s.store.ListLotsScheduledBefore(ctx, time.Now().Add(-scheduleGrace))
	if err != nil {
		log.Error().Err(err).Msg("sweeper failed to list overdue scheduled lots")
		return
	}

	for _, lot := range lots {
		err = s.distributor.DistributeTaskStartAuction(ctx, &worker.PayloadStartAuction{
			LotID: lot.ID,
		}, asynq.MaxRetry(3), asynq.Queue(worker.QueueCritical))
		if err != nil {
			// The original start task still being queued is the healthy case.
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				continue
			}
			log.Error().
				Err(err).
				Str("lot_id", lot.ID.String()).
				Msg("sweeper failed to re-enqueue start task")
			continue
		}

		log.Info().
			Str("lot_id", lot.ID.String()).
			Time("scheduled_at", *lot.ScheduledAt).
			Msg("re-enqueued overdue auction start")
	}
}
