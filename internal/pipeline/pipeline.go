// Package pipeline runs one end-to-end dataset build: it fetches the listing
// page, discovers and filters candidates, enriches them concurrently, and
// writes the intermediate and final artifacts plus any optional exports.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pjpmarques/Castelos/internal/export"
	"github.com/pjpmarques/Castelos/internal/fortification"
	"github.com/pjpmarques/Castelos/internal/hash/sha256"
	"github.com/pjpmarques/Castelos/internal/progress"
	"github.com/pjpmarques/Castelos/internal/wiki"
)

// Dispatcher enriches every candidate into sink.
type Dispatcher interface {
	RunAll(ctx context.Context, candidates []fortification.Candidate, sink *fortification.Sink) error
}

// Config names the listing page and the artifact paths.
type Config struct {
	ListingURL       string
	IntermediatePath string
	FinalPath        string
	// GeoJSONPath enables the GeoJSON export when non-empty.
	GeoJSONPath string
	RunID       uuid.UUID
}

// Result summarizes a completed run.
type Result struct {
	RunID           uuid.UUID
	LinksSeen       int
	Candidates      int
	RowsCollected   int
	RowsWritten     int
	GeoJSONSkipped  int
	IntermediateURI string
	FinalURI        string
	// FinalSHA256 fingerprints the final CSV.
	FinalSHA256 string
	GeoJSONURI  string
	RowsStored  bool
	Duration    time.Duration
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRowStore mirrors the final dataset into store.
func WithRowStore(store fortification.RowStore) Option {
	return func(p *Pipeline) { p.rows = store }
}

// WithEmitter reports run-level progress to e.
func WithEmitter(e progress.Emitter) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.emitter = e
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline wires the fetch, discover, enrich and write stages.
type Pipeline struct {
	cfg        Config
	fetcher    fortification.PageFetcher
	dispatcher Dispatcher
	blobs      fortification.BlobStore
	rows       fortification.RowStore
	emitter    progress.Emitter
	logger     *zap.Logger
	now        func() time.Time
}

// New constructs a Pipeline.
func New(cfg Config, fetcher fortification.PageFetcher, dispatcher Dispatcher, blobs fortification.BlobStore, opts ...Option) (*Pipeline, error) {
	if fetcher == nil || dispatcher == nil || blobs == nil {
		return nil, errors.New("pipeline: fetcher, dispatcher and blob store are required")
	}
	if cfg.ListingURL == "" || cfg.IntermediatePath == "" || cfg.FinalPath == "" {
		return nil, errors.New("pipeline: listing url and artifact paths are required")
	}
	if cfg.RunID == uuid.Nil {
		cfg.RunID = progress.NewRunID()
	}
	p := &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		blobs:      blobs,
		emitter:    progress.NopEmitter{},
		logger:     zap.NewNop(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("run_id", cfg.RunID.String()))
	return p, nil
}

// Run executes the pipeline once. Only a listing fetch failure, cancellation,
// or a failed CSV write is returned as an error; per-candidate problems and
// optional exports are logged and skipped.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := p.now()
	res := Result{RunID: p.cfg.RunID}

	body, err := p.fetcher.Fetch(ctx, p.cfg.ListingURL)
	if err != nil {
		return res, fmt.Errorf("fetch listing page: %w", err)
	}
	listing, err := wiki.DiscoverCandidates(p.cfg.ListingURL, body)
	if err != nil {
		return res, fmt.Errorf("discover candidates: %w", err)
	}
	candidates := fortification.FilterCandidates(listing.Candidates)
	res.LinksSeen = listing.LinksSeen
	res.Candidates = len(candidates)
	p.logger.Info("listing parsed",
		zap.Int("links_seen", listing.LinksSeen),
		zap.Int("article_links", len(listing.Candidates)),
		zap.Int("candidates", len(candidates)),
	)
	p.emit(progress.StageRunStart, int64(len(candidates)), 0)

	sink := fortification.NewSink()
	if err := p.dispatcher.RunAll(ctx, candidates, sink); err != nil {
		return res, fmt.Errorf("enrich candidates: %w", err)
	}

	collected := sink.Rows()
	res.RowsCollected = len(collected)
	if res.IntermediateURI, _, err = p.writeCSV(ctx, p.cfg.IntermediatePath, collected); err != nil {
		return res, fmt.Errorf("write intermediate artifact: %w", err)
	}

	final := fortification.Dedupe(collected)
	res.RowsWritten = len(final)
	if res.FinalURI, res.FinalSHA256, err = p.writeCSV(ctx, p.cfg.FinalPath, final); err != nil {
		return res, fmt.Errorf("write final artifact: %w", err)
	}

	p.exportGeoJSON(ctx, final, &res)
	p.storeRows(ctx, final, &res)

	res.Duration = p.now().Sub(start)
	p.emit(progress.StageRunDone, int64(res.RowsWritten), res.Duration)
	p.logger.Info("run complete",
		zap.Int("rows_collected", res.RowsCollected),
		zap.Int("rows_written", res.RowsWritten),
		zap.String("intermediate", res.IntermediateURI),
		zap.String("final", res.FinalURI),
		zap.String("final_sha256", res.FinalSHA256),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) writeCSV(ctx context.Context, path string, rows []fortification.Row) (string, string, error) {
	data, err := export.EncodeCSV(rows)
	if err != nil {
		return "", "", err
	}
	uri, err := p.blobs.PutObject(ctx, path, export.CSVContentType, bytes.NewReader(data))
	if err != nil {
		return "", "", err
	}
	return uri, sha256.Digest(data), nil
}

func (p *Pipeline) exportGeoJSON(ctx context.Context, rows []fortification.Row, res *Result) {
	if p.cfg.GeoJSONPath == "" {
		return
	}
	data, skipped, err := export.EncodeGeoJSON(rows)
	if err != nil {
		p.logger.Warn("geojson export failed", zap.Error(err))
		return
	}
	for _, row := range skipped {
		p.logger.Warn("row left out of geojson",
			zap.String("reference", row.Reference),
			zap.String("latitude", row.Latitude),
			zap.String("longitude", row.Longitude),
		)
	}
	res.GeoJSONSkipped = len(skipped)
	uri, err := p.blobs.PutObject(ctx, p.cfg.GeoJSONPath, export.GeoJSONContentType, bytes.NewReader(data))
	if err != nil {
		p.logger.Warn("geojson export failed", zap.String("path", p.cfg.GeoJSONPath), zap.Error(err))
		return
	}
	res.GeoJSONURI = uri
}

func (p *Pipeline) storeRows(ctx context.Context, rows []fortification.Row, res *Result) {
	if p.rows == nil {
		return
	}
	if err := p.rows.StoreRows(ctx, rows); err != nil {
		p.logger.Warn("dataset mirror failed", zap.Int("rows", len(rows)), zap.Error(err))
		return
	}
	res.RowsStored = true
}

func (p *Pipeline) emit(stage progress.Stage, count int64, dur time.Duration) {
	p.emitter.Emit(progress.Event{
		RunID: progress.UUIDToBytes(p.cfg.RunID),
		TS:    p.now(),
		Stage: stage,
		Count: count,
		Dur:   dur,
	})
}
