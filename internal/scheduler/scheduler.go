// Package scheduler binds the recurring policy runs to cron schedules, all
// evaluated in the configured surge timezone:
//
//	zombie scan        daily 06:00
//	photo shuffle      daily 07:00
//	repricer           daily 05:00
//	campaign cleanup   daily 04:00
//	offer sniper       hourly
//	queue release      Sundays 20:00, 20:30, 21:00, 21:30
//	store pulse        monthly on the configured day, 03:00 (revert 24 h later)
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"flipflow/internal/config"
	"flipflow/internal/engine"
)

// Scheduler runs the engine's policies on their recurring schedules.
type Scheduler struct {
	cron   *cron.Cron
	engine *engine.Engine
	logger *slog.Logger
}

// New builds the scheduler with every recurring job registered.
func New(cfg *config.Config, eng *engine.Engine, logger *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Queue.SurgeTimezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone: %w", err)
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		engine: eng,
		logger: logger.With("component", "scheduler"),
	}

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"zombie_scan", "0 6 * * *", func(ctx context.Context) error {
			_, err := eng.ScanZombies(ctx)
			return err
		}},
		{"photo_shuffle", "0 7 * * *", func(ctx context.Context) error {
			_, err := eng.RunPhotoShuffle(ctx)
			return err
		}},
		{"repricer", "0 5 * * *", func(ctx context.Context) error {
			_, err := eng.RunRepricer(ctx)
			return err
		}},
		{"auto_relist", "30 5 * * *", func(ctx context.Context) error {
			_, err := eng.RunAutoRelister(ctx)
			return err
		}},
		{"campaign_cleanup", "0 4 * * *", func(ctx context.Context) error {
			_, err := eng.CleanupCampaigns(ctx)
			return err
		}},
		{fmt.Sprintf("offer_sniper_%dh", cfg.Offers.PollIntervalHours),
			fmt.Sprintf("0 */%d * * *", cfg.Offers.PollIntervalHours),
			func(ctx context.Context) error {
				_, err := eng.RunOfferScan(ctx)
				return err
			}},
		{"store_pulse", fmt.Sprintf("0 3 %d * *", cfg.Pulse.DayOfMonth),
			func(ctx context.Context) error {
				_, err := eng.RunStorePulse(ctx, 2)
				return err
			}},
		{"store_pulse_revert", fmt.Sprintf("0 3 %d * *", cfg.Pulse.DayOfMonth+1),
			func(ctx context.Context) error {
				_, err := eng.RevertStorePulse(ctx)
				return err
			}},
	}

	// Queue releases fire four times inside the surge window.
	day := weekdayAbbrev(cfg.Queue.SurgeDay)
	for _, minute := range []int{0, 30} {
		for hour := cfg.Queue.SurgeStartHour; hour < cfg.Queue.SurgeEndHour; hour++ {
			jobs = append(jobs, struct {
				name string
				spec string
				run  func(context.Context) error
			}{
				fmt.Sprintf("queue_release_%02d%02d", hour, minute),
				fmt.Sprintf("%d %d * * %s", minute, hour, day),
				func(ctx context.Context) error {
					_, err := eng.ReleaseBatch(ctx, false)
					return err
				},
			})
		}
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			if err := job.run(ctx); err != nil {
				s.logger.Error("scheduled job failed", "job", job.name, "error", err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("register job %s: %w", job.name, err)
		}
	}

	return s, nil
}

// Start begins firing jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func weekdayAbbrev(day string) string {
	if len(day) >= 3 {
		return day[:3]
	}
	return "sun"
}
