package server

import (
	"context"
	"errors"

	"github.com/playperu/pacer/internal/pacer"
)

var ErrNotFound = errors.New("not found")

// ErrNotArchived means a run ended but its session could not be stored.
var ErrNotArchived = errors.New("run not archived")

// ArchivedRun is a finished run as stored.
type ArchivedRun struct {
	Session pacer.RunSession `json:"session"`
	Stats   pacer.RunStats   `json:"stats"`
}

type Store interface {
	ListPacers(ctx context.Context) ([]pacer.Pacer, error)
	GetPacer(ctx context.Context, id string) (pacer.Pacer, error)
	PutPacer(ctx context.Context, p pacer.Pacer) error
	CountPacers(ctx context.Context) (int, error)

	SaveRun(ctx context.Context, r ArchivedRun, points []pacer.GPSPoint) error
	GetRun(ctx context.Context, id string) (ArchivedRun, error)
	ListRuns(ctx context.Context) ([]ArchivedRun, error)
	RunPoints(ctx context.Context, id string) ([]pacer.GPSPoint, error)
}
