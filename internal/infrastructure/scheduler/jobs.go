package scheduler

import (
	"context"
	"time"

	appcatalog "github.com/storefront/fulfillment/internal/application/catalog"
	appinventory "github.com/storefront/fulfillment/internal/application/inventory"
	"go.uber.org/zap"
)

const (
	JobReleaseExpiredReservations = "release_expired_reservations"
	JobSyncSaleFlags              = "sync_sale_flags"
)

// ReservationSweeper releases stock held by abandoned checkouts
type ReservationSweeper interface {
	ReleaseExpiredReservations(ctx context.Context) (*appinventory.ExpiredReservationStats, error)
}

// SaleFlagSyncer flips on_sale flags when sale windows open or close
type SaleFlagSyncer interface {
	SyncSaleFlags(ctx context.Context) (*appcatalog.SaleSweepStats, error)
}

// ReservationSweepJob builds the expired-reservation job
func ReservationSweepJob(sweeper ReservationSweeper, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:       JobReleaseExpiredReservations,
		Interval:   interval,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			stats, err := sweeper.ReleaseExpiredReservations(ctx)
			if err != nil {
				return err
			}
			if stats.TotalExpired > 0 {
				logger.Info("Released expired reservations",
					zap.Int("total", stats.TotalExpired),
					zap.Int("released", stats.SuccessReleased),
					zap.Int("failed", stats.FailedReleases),
					zap.Int("skipped_lines", stats.SkippedLines),
				)
			}
			return nil
		},
	}
}

// SaleFlagJob builds the sale window job
func SaleFlagJob(syncer SaleFlagSyncer, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:       JobSyncSaleFlags,
		Interval:   interval,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			stats, err := syncer.SyncSaleFlags(ctx)
			if err != nil {
				return err
			}
			if stats.Activated+stats.Deactivated+stats.Failed > 0 {
				logger.Info("Synced sale flags",
					zap.Int("activated", stats.Activated),
					zap.Int("deactivated", stats.Deactivated),
					zap.Int("failed", stats.Failed),
				)
			}
			return nil
		},
	}
}
