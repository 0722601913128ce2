// Package worker enriches one fortification candidate at a time: it resolves
// the display name, finds the Wikidata item and its coordinates, and appends a
// row to the shared sink when coordinates exist.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pjpmarques/Castelos/internal/fortification"
	"github.com/pjpmarques/Castelos/internal/progress"
)

// DefaultPause is the courtesy delay observed after every candidate.
const DefaultPause = 100 * time.Millisecond

// Config controls Worker behavior.
type Config struct {
	// Pause is slept after each candidate whatever its outcome. Zero disables it.
	Pause time.Duration
	RunID uuid.UUID
}

// Worker processes candidates. It holds no per-candidate state and is safe
// for concurrent use.
type Worker struct {
	names   *fortification.NameResolver
	items   fortification.ItemIDLookup
	coords  fortification.CoordinateLookup
	emitter progress.Emitter
	cfg     Config
	runID   [16]byte
	logger  *zap.Logger
	now     func() time.Time
}

// New constructs a Worker.
func New(
	names *fortification.NameResolver,
	items fortification.ItemIDLookup,
	coords fortification.CoordinateLookup,
	emitter progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if names == nil {
		names = fortification.NewNameResolver(logger)
	}
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	return &Worker{
		names:   names,
		items:   items,
		coords:  coords,
		emitter: emitter,
		cfg:     cfg,
		runID:   progress.UUIDToBytes(cfg.RunID),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Process enriches a single candidate and appends at most one row to sink.
// Lookup failures end the candidate silently; they are logged by the lookups.
func (w *Worker) Process(ctx context.Context, candidate fortification.Candidate, sink *fortification.Sink) {
	if ctx.Err() != nil {
		return
	}
	start := w.now()
	defer w.pause(ctx)

	w.emit(progress.StageCandidateStart, candidate.Reference, candidate.DisplayName, "", 0, "")

	name := w.names.Resolve(candidate.Reference, candidate.DisplayName)
	w.emit(progress.StageNameResolved, candidate.Reference, name, "", 0, "")

	id, ok := w.items.Lookup(ctx, candidate.Reference)
	if !ok {
		w.logger.Debug("no wikidata item", zap.String("reference", candidate.Reference), zap.String("name", name))
		w.emit(progress.StageItemMissing, candidate.Reference, name, "", w.since(start), "")
		return
	}
	w.emit(progress.StageItemFound, candidate.Reference, name, string(id), 0, "")

	coord, ok := w.coords.Lookup(ctx, id)
	if !ok {
		w.logger.Debug("no coordinates",
			zap.String("reference", candidate.Reference),
			zap.String("item", string(id)),
		)
		w.emit(progress.StageCoordMissing, candidate.Reference, name, string(id), w.since(start), "")
		return
	}
	w.emit(progress.StageCoordFound, candidate.Reference, name, string(id), 0, coord.Latitude+","+coord.Longitude)

	sink.Append(fortification.NewRow(name, coord, candidate.Reference))
	w.emit(progress.StageRowAppended, candidate.Reference, name, string(id), w.since(start), coord.Latitude+","+coord.Longitude)
}

func (w *Worker) pause(ctx context.Context) {
	if w.cfg.Pause <= 0 {
		return
	}
	timer := time.NewTimer(w.cfg.Pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (w *Worker) since(start time.Time) time.Duration {
	d := w.now().Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

func (w *Worker) emit(stage progress.Stage, reference, name, item string, dur time.Duration, note string) {
	w.emitter.Emit(progress.Event{
		RunID:     w.runID,
		TS:        w.now(),
		Stage:     stage,
		Reference: reference,
		Name:      name,
		ItemID:    item,
		Dur:       dur,
		Note:      note,
	})
}
