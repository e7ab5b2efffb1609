// Package engine is the policy coordinator. It owns the wiring between the
// store, the gateway, and the policies, and exposes one entry point per
// policy operation.
//
// Every executing entry point opens exactly one transactional session, runs
// the policy against it, writes a job log row, and commits on success or
// rolls back on error. Preview and status entry points run in a session that
// is always rolled back and write no job log. Per-item failures live inside
// the policy reports; an error returned here means the run itself failed and
// nothing was committed.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"flipflow/internal/config"
	"flipflow/internal/gatekeeper"
	"flipflow/internal/gateway"
	"flipflow/internal/growth"
	"flipflow/internal/lifecycle"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

// Engine wires the policies to one store and one gateway.
type Engine struct {
	cfg    *config.Config
	store  store.Store
	logger *slog.Logger

	repricer    *lifecycle.Repricer
	zombies     *lifecycle.ZombieKiller
	resurrector *lifecycle.Resurrector
	relister    *lifecycle.AutoRelister
	queue       *lifecycle.SmartQueue
	shuffler    *lifecycle.PhotoShuffler
	pulse       *lifecycle.StorePulse
	kickstarter *growth.Kickstarter
	sniper      *growth.OfferSniper
	purgatory   *growth.Purgatory

	titles *gatekeeper.TitleSanitizer
	mobile *gatekeeper.MobileEnforcer
	profit *gatekeeper.ProfitCalc
	str    *gatekeeper.STREnforcer

	events chan types.JobEvent
	now    func() time.Time
}

// New wires all policies over the given store and gateway.
func New(cfg *config.Config, st store.Store, gw gateway.Gateway, logger *slog.Logger) (*Engine, error) {
	repricer, err := lifecycle.NewRepricer(gw, cfg, logger)
	if err != nil {
		return nil, err
	}
	queue, err := lifecycle.NewSmartQueue(gw, cfg, logger)
	if err != nil {
		return nil, err
	}
	sniper, err := growth.NewOfferSniper(gw, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:         cfg,
		store:       st,
		logger:      logger.With("component", "engine"),
		repricer:    repricer,
		zombies:     lifecycle.NewZombieKiller(gw, cfg, logger),
		resurrector: lifecycle.NewResurrector(gw, cfg, logger),
		relister:    lifecycle.NewAutoRelister(gw, cfg, logger),
		queue:       queue,
		shuffler:    lifecycle.NewPhotoShuffler(gw, cfg, logger),
		pulse:       lifecycle.NewStorePulse(gw, cfg, logger),
		kickstarter: growth.NewKickstarter(gw, cfg, logger),
		sniper:      sniper,
		purgatory:   growth.NewPurgatory(gw, cfg, logger),
		titles:      gatekeeper.NewTitleSanitizer(),
		mobile:      gatekeeper.NewMobileEnforcer(),
		profit:      gatekeeper.NewProfitCalc(cfg),
		str:         gatekeeper.NewSTREnforcer(cfg),
		events:      make(chan types.JobEvent, 16),
		now:         time.Now,
	}, nil
}

// Events is read by the dashboard hub; sends never block.
func (e *Engine) Events() <-chan types.JobEvent { return e.events }

// Queue exposes the surge-window predicate for the scheduler and API.
func (e *Engine) Queue() *lifecycle.SmartQueue { return e.queue }

// Profit exposes the fee calculator for the CLI and API.
func (e *Engine) Profit() *gatekeeper.ProfitCalc { return e.profit }

// Titles exposes the sanitizer for the CLI and API.
func (e *Engine) Titles() *gatekeeper.TitleSanitizer { return e.titles }

func (e *Engine) emit(event types.JobEvent) {
	select {
	case e.events <- event:
	default:
	}
}

// run is the session scope every entry point goes through: begin, job log,
// policy body, commit on success, rollback on error.
func (e *Engine) run(ctx context.Context, jobName, jobType string, fn func(sess store.Session) (processed, affected int, err error)) error {
	sess, err := e.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	defer sess.Rollback(ctx)

	job := &types.JobLog{
		JobName:   jobName,
		JobType:   jobType,
		StartedAt: e.now().UTC(),
		Status:    types.JobRunning,
	}
	if err := sess.InsertJobLog(ctx, job); err != nil {
		return fmt.Errorf("insert job log: %w", err)
	}

	processed, affected, err := fn(sess)
	finished := e.now().UTC()
	if err != nil {
		e.logger.Error("job failed", "job", jobName, "error", err)
		e.emit(types.JobEvent{
			JobName: jobName, Status: types.JobFailed, Error: err.Error(), FinishedAt: finished,
		})
		return err
	}

	job.Status = types.JobSuccess
	job.FinishedAt = finished
	job.ItemsProcessed = processed
	job.ItemsAffected = affected
	if err := sess.UpdateJobLog(ctx, job); err != nil {
		return fmt.Errorf("update job log: %w", err)
	}
	if err := sess.Commit(ctx); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}

	e.emit(types.JobEvent{
		JobName: jobName, Status: types.JobSuccess,
		Processed: processed, Affected: affected, FinishedAt: finished,
	})
	return nil
}

// ————————————————————————————————————————————————————————————————————————
// Repricer
// ————————————————————————————————————————————————————————————————————————

// RunRepricer executes the markdown ladder scan.
func (e *Engine) RunRepricer(ctx context.Context) (*types.RepriceReport, error) {
	var report *types.RepriceReport
	err := e.run(ctx, "repricer", "scan", func(sess store.Session) (int, int, error) {
		var err error
		report, err = e.repricer.ScanAndReprice(ctx, sess)
		if err != nil {
			return 0, 0, err
		}
		return report.TotalScanned, report.Repriced, nil
	})
	return report, err
}

// PreviewReprice computes the staged changes read-only.
func (e *Engine) PreviewReprice(ctx context.Context) (*types.RepriceReport, error) {
	return withReadSession(ctx, e, e.repricer.Preview)
}

// ————————————————————————————————————————————————————————————————————————
// Zombies
// ————————————————————————————————————————————————————————————————————————

// ScanZombies runs detection; view counts synced from the traffic report
// are committed.
func (e *Engine) ScanZombies(ctx context.Context) (*types.ZombieScanResult, error) {
	var result *types.ZombieScanResult
	err := e.run(ctx, "zombie_scan", "scan", func(sess store.Session) (int, int, error) {
		var err error
		result, err = e.zombies.Scan(ctx, sess)
		if err != nil {
			return 0, 0, err
		}
		return result.TotalScanned, result.ZombiesFound, nil
	})
	return result, err
}

// FlagZombie marks one listing as zombie (or purgatory past max cycles).
func (e *Engine) FlagZombie(ctx context.Context, listingID int64) (*types.ZombieRecord, error) {
	var record *types.ZombieRecord
	err := e.run(ctx, "zombie_flag", "single", func(sess store.Session) (int, int, error) {
		var err error
		record, err = e.zombies.FlagZombie(ctx, sess, listingID)
		if err != nil {
			return 0, 0, err
		}
		return 1, 1, nil
	})
	return record, err
}

// Resurrect runs the kill-and-clone pipeline for one listing.
func (e *Engine) Resurrect(ctx context.Context, listingID int64) (*types.ResurrectionResult, error) {
	var result *types.ResurrectionResult
	err := e.run(ctx, "resurrect", "single", func(sess store.Session) (int, int, error) {
		var err error
		result, err = e.resurrector.Resurrect(ctx, sess, listingID)
		if err != nil {
			return 0, 0, err
		}
		if result.Success {
			return 1, 1, nil
		}
		return 1, 0, nil
	})
	return result, err
}

// ————————————————————————————————————————————————————————————————————————
// AutoRelister
// ————————————————————————————————————————————————————————————————————————

// RunAutoRelister preventively relists aged low-view listings.
func (e *Engine) RunAutoRelister(ctx context.Context) (*types.RelistReport, error) {
	var report *types.RelistReport
	err := e.run(ctx, "auto_relist", "scan", func(sess store.Session) (int, int, error) {
		var err error
		report, err = e.relister.AutoRelist(ctx, sess)
		if err != nil {
			return 0, 0, err
		}
		return report.TotalScanned, report.Relisted, nil
	})
	return report, err
}

// PreviewRelists lists relist candidates read-only.
func (e *Engine) PreviewRelists(ctx context.Context) ([]types.RelistCandidate, error) {
	return withReadSession(ctx, e, e.relister.ScanForRelists)
}

// ————————————————————————————————————————————————————————————————————————
// SmartQueue
// ————————————————————————————————————————————————————————————————————————

// Enqueue queues a listing for the next surge release.
func (e *Engine) Enqueue(ctx context.Context, listingID int64, priority int, window string) (*types.QueueEntry, error) {
	var entry *types.QueueEntry
	err := e.run(ctx, "queue_enqueue", "single", func(sess store.Session) (int, int, error) {
		var err error
		entry, err = e.queue.Enqueue(ctx, sess, listingID, priority, window)
		if err != nil {
			return 0, 0, err
		}
		return 1, 1, nil
	})
	return entry, err
}

// ReleaseBatch releases the next pending batch; dryRun only selects.
func (e *Engine) ReleaseBatch(ctx context.Context, dryRun bool) ([]*types.QueueEntry, error) {
	if dryRun {
		return withReadSession(ctx, e, func(ctx context.Context, sess store.Session) ([]*types.QueueEntry, error) {
			return e.queue.ReleaseBatch(ctx, sess, true)
		})
	}
	var released []*types.QueueEntry
	err := e.run(ctx, "queue_release", "batch", func(sess store.Session) (int, int, error) {
		var err error
		released, err = e.queue.ReleaseBatch(ctx, sess, false)
		if err != nil {
			return 0, 0, err
		}
		return len(released), len(released), nil
	})
	return released, err
}

// QueueStatus summarizes the queue read-only.
func (e *Engine) QueueStatus(ctx context.Context) (*types.QueueStatusSummary, error) {
	return withReadSession(ctx, e, e.queue.Status)
}

// ————————————————————————————————————————————————————————————————————————
// Offers
// ————————————————————————————————————————————————————————————————————————

// RunOfferScan sends tiered offers to watchers not in cooldown.
func (e *Engine) RunOfferScan(ctx context.Context) (*types.OfferScanReport, error) {
	var report *types.OfferScanReport
	err := e.run(ctx, "offer_scan", "scan", func(sess store.Session) (int, int, error) {
		var err error
		report, err = e.sniper.ScanAndSnipe(ctx, sess)
		if err != nil {
			return 0, 0, err
		}
		return report.ListingsChecked, report.OffersSent, nil
	})
	return report, err
}

// HandleIncomingOffer triages one inbound buyer offer.
func (e *Engine) HandleIncomingOffer(ctx context.Context, listingID int64, buyerID, offerID string, amount decimal.Decimal) (*types.InboundOfferResult, error) {
	var result *types.InboundOfferResult
	err := e.run(ctx, "offer_inbound", "single", func(sess store.Session) (int, int, error) {
		var err error
		result, err = e.sniper.HandleIncomingOffer(ctx, sess, listingID, buyerID, offerID, amount)
		if err != nil {
			return 0, 0, err
		}
		return 1, 1, nil
	})
	return result, err
}

// ————————————————————————————————————————————————————————————————————————
// Kickstarter
// ————————————————————————————————————————————————————————————————————————

// Promote creates a kickstarter campaign for one listing.
func (e *Engine) Promote(ctx context.Context, listingID int64) (*types.KickstartResult, error) {
	var result *types.KickstartResult
	err := e.run(ctx, "kickstart", "single", func(sess store.Session) (int, int, error) {
		var err error
		result, err = e.kickstarter.PromoteNewListing(ctx, sess, listingID)
		if err != nil {
			return 0, 0, err
		}
		if result.Success {
			return 1, 1, nil
		}
		return 1, 0, nil
	})
	return result, err
}

// CleanupCampaigns ends campaigns past their end date.
func (e *Engine) CleanupCampaigns(ctx context.Context) (*types.CampaignCleanupReport, error) {
	var report *types.CampaignCleanupReport
	err := e.run(ctx, "kickstart_cleanup", "scan", func(sess store.Session) (int, int, error) {
		var err error
		report, err = e.kickstarter.CleanupExpired(ctx, sess)
		if err != nil {
			return 0, 0, err
		}
		return report.ExpiredFound, report.Ended, nil
	})
	return report, err
}

// ————————————————————————————————————————————————————————————————————————
// Purgatory
// ————————————————————————————————————————————————————————————————————————

// EnterPurgatory liquidation-prices one chronic zombie.
func (e *Engine) EnterPurgatory(ctx context.Context, listingID int64) (*types.PurgatoryResult, error) {
	var result *types.PurgatoryResult
	err := e.run(ctx, "purgatory_enter", "single", func(sess store.Session) (int, int, error) {
		var err error
		result, err = e.purgatory.EnterPurgatory(ctx, sess, listingID)
		if err != nil {
			return 0, 0, err
		}
		if result.Success {
			return 1, 1, nil
		}
		return 1, 0, nil
	})
	return result, err
}

// ScanPurgatory lists donate suggestions read-only.
func (e *Engine) ScanPurgatory(ctx context.Context) ([]types.DonateSuggestion, error) {
	return withReadSession(ctx, e, e.purgatory.ScanForPurgatory)
}

// ————————————————————————————————————————————————————————————————————————
// PhotoShuffler and StorePulse
// ————————————————————————————————————————————————————————————————————————

// RunPhotoShuffle rotates photos on zero-view listings.
func (e *Engine) RunPhotoShuffle(ctx context.Context) (*types.ShuffleReport, error) {
	var report *types.ShuffleReport
	err := e.run(ctx, "photo_shuffle", "scan", func(sess store.Session) (int, int, error) {
		var err error
		report, err = e.shuffler.ScanAndShuffle(ctx, sess)
		if err != nil {
			return 0, 0, err
		}
		return report.Candidates, report.Shuffled, nil
	})
	return report, err
}

// RunStorePulse toggles handling time to the pulse target.
func (e *Engine) RunStorePulse(ctx context.Context, targetDays int) (*types.PulseReport, error) {
	var report *types.PulseReport
	err := e.run(ctx, "store_pulse", "scan", func(sess store.Session) (int, int, error) {
		var err error
		report, err = e.pulse.ToggleHandlingTime(ctx, sess, targetDays)
		if err != nil {
			return 0, 0, err
		}
		return report.TotalActive, report.Updated, nil
	})
	return report, err
}

// RevertStorePulse restores the 1-day handling baseline.
func (e *Engine) RevertStorePulse(ctx context.Context) (*types.PulseReport, error) {
	var report *types.PulseReport
	err := e.run(ctx, "store_pulse_revert", "scan", func(sess store.Session) (int, int, error) {
		var err error
		report, err = e.pulse.RevertHandlingTime(ctx, sess)
		if err != nil {
			return 0, 0, err
		}
		return report.TotalActive, report.Updated, nil
	})
	return report, err
}

// withReadSession runs a read-only query in a session that is always rolled
// back, so previews can never leak mutations.
func withReadSession[T any](ctx context.Context, e *Engine, fn func(context.Context, store.Session) (T, error)) (T, error) {
	var zero T
	sess, err := e.store.Begin(ctx)
	if err != nil {
		return zero, fmt.Errorf("begin session: %w", err)
	}
	defer sess.Rollback(ctx)
	return fn(ctx, sess)
}
