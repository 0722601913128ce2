package sinks

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pjpmarques/Castelos/internal/progress"
)

// LogSink reports progress on the console. Run milestones and appended rows
// log at info; intermediate candidate steps log at debug.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		level, msg := describe(evt.Stage)
		ce := s.logger.Check(level, msg)
		if ce == nil {
			continue
		}
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("stage", string(evt.Stage)),
		}
		if evt.Reference != "" {
			fields = append(fields, zap.String("reference", evt.Reference))
		}
		if evt.Name != "" {
			fields = append(fields, zap.String("name", evt.Name))
		}
		if evt.ItemID != "" {
			fields = append(fields, zap.String("item", evt.ItemID))
		}
		if evt.Count != 0 {
			fields = append(fields, zap.Int64("count", evt.Count))
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		ce.Write(fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}

func describe(stage progress.Stage) (zapcore.Level, string) {
	switch stage {
	case progress.StageRunStart:
		return zapcore.InfoLevel, "run started"
	case progress.StageRunDone:
		return zapcore.InfoLevel, "run finished"
	case progress.StageRowAppended:
		return zapcore.InfoLevel, "fortification added"
	case progress.StageCandidateStart:
		return zapcore.DebugLevel, "processing candidate"
	case progress.StageNameResolved:
		return zapcore.DebugLevel, "name resolved"
	case progress.StageItemFound:
		return zapcore.DebugLevel, "wikidata item found"
	case progress.StageItemMissing:
		return zapcore.DebugLevel, "no wikidata item"
	case progress.StageCoordFound:
		return zapcore.DebugLevel, "coordinates found"
	case progress.StageCoordMissing:
		return zapcore.DebugLevel, "no coordinates"
	default:
		return zapcore.DebugLevel, "progress event"
	}
}
