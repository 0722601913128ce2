package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart       Stage = "RUN_START"
	StageRunDone        Stage = "RUN_DONE"
	StageCandidateStart Stage = "CANDIDATE_START"
	StageNameResolved   Stage = "NAME_RESOLVED"
	StageItemFound      Stage = "ITEM_FOUND"
	StageItemMissing    Stage = "ITEM_MISSING"
	StageCoordFound     Stage = "COORD_FOUND"
	StageCoordMissing   Stage = "COORD_MISSING"
	StageRowAppended    Stage = "ROW_APPENDED"
)

// Event captures a single step of a run.
type Event struct {
	// RunID identifies the run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// Reference is the candidate's article URL; empty for run-level stages.
	Reference string
	// Name is the display or resolved name at the time of the event.
	Name string
	// ItemID is the Wikidata item once known.
	ItemID string
	// Count carries run-level totals (candidates on RUN_START, rows on RUN_DONE).
	Count int64
	// Dur captures candidate or run latency.
	Dur time.Duration
	// Note lets emitters attach low-volume context such as coordinates.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageCandidateStart, StageNameResolved, StageItemFound, StageItemMissing,
		StageCoordFound, StageCoordMissing, StageRowAppended:
		if e.Reference == "" {
			return fmt.Errorf("%s requires reference", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// NewRunID returns a time-ordered run identifier, falling back to a random one.
func NewRunID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
