package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"flipflow/internal/config"
	"flipflow/internal/gateway"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

// PhotoShuffler rotates the main photo on listings that nobody has clicked:
// after the threshold number of days with zero views, the second photo is
// promoted to the main slot to test whether a different angle gets the click.
type PhotoShuffler struct {
	gw            gateway.Gateway
	daysThreshold int
	logger        *slog.Logger
}

// NewPhotoShuffler builds the shuffler from the configured threshold.
func NewPhotoShuffler(gw gateway.Gateway, cfg *config.Config, logger *slog.Logger) *PhotoShuffler {
	return &PhotoShuffler{
		gw:            gw,
		daysThreshold: cfg.PhotoShuffleDaysNoViews,
		logger:        logger.With("component", "photo-shuffler"),
	}
}

// NeedsShuffle reports whether a listing qualifies for rotation.
func (ps *PhotoShuffler) NeedsShuffle(l *types.Listing) bool {
	return l.Status == types.StatusActive &&
		l.DaysActive >= ps.daysThreshold &&
		l.TotalViews == 0 &&
		len(l.PhotoURLs) >= 2
}

// ScanAndShuffle rotates photos on every qualifying listing and pushes the
// new order to the marketplace. Listings with fewer than two photos are
// reported as skipped, as are listings whose inventory update fails.
func (ps *PhotoShuffler) ScanAndShuffle(ctx context.Context, sess store.Session) (*types.ShuffleReport, error) {
	active, err := sess.ListingsByStatus(ctx, types.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query active listings: %w", err)
	}

	report := &types.ShuffleReport{}
	for _, l := range active {
		if l.DaysActive < ps.daysThreshold || l.TotalViews != 0 {
			continue
		}
		report.Candidates++

		if len(l.PhotoURLs) < 2 {
			report.SkipDetails = append(report.SkipDetails, types.ShuffleSkip{
				ListingID: l.ID,
				SKU:       l.SKU,
				Reason:    "fewer than 2 photos, cannot shuffle",
			})
			continue
		}

		oldMain := l.PhotoURLs[0]
		rotated := rotatePhotos(l.PhotoURLs)

		if err := ps.gw.UpdateInventoryItem(ctx, l.SKU, gateway.ItemPatch{PhotoURLs: rotated}); err != nil {
			if gateway.IsAuth(err) {
				return nil, err
			}
			report.SkipDetails = append(report.SkipDetails, types.ShuffleSkip{
				ListingID: l.ID,
				SKU:       l.SKU,
				Reason:    fmt.Sprintf("inventory update failed: %v", err),
			})
			continue
		}

		l.PhotoURLs = rotated
		l.MainPhotoIndex = 0
		if err := sess.UpdateListing(ctx, l); err != nil {
			return nil, fmt.Errorf("update listing %d: %w", l.ID, err)
		}

		report.Details = append(report.Details, types.ShuffleDetail{
			ListingID: l.ID,
			SKU:       l.SKU,
			OldMain:   oldMain,
			NewMain:   rotated[0],
		})
	}
	report.Shuffled = len(report.Details)
	report.Skipped = len(report.SkipDetails)

	ps.logger.Info("photo shuffle complete",
		"candidates", report.Candidates,
		"shuffled", report.Shuffled,
		"skipped", report.Skipped,
	)
	return report, nil
}
