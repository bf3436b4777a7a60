package server

import (
	"context"
	"log/slog"

	"github.com/playperu/pacer/internal/pacer"
)

// SeedPacers stores the given roster if no pacers exist.
// Idempotent: does nothing if pacers already exist.
func SeedPacers(ctx context.Context, logger *slog.Logger, store Store, pacers []pacer.Pacer) error {
	n, err := store.CountPacers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, p := range pacers {
		if err := store.PutPacer(ctx, p); err != nil {
			return err
		}
	}
	logger.Info("pacer roster seeded", "pacers", len(pacers))
	return nil
}
