package timeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Entry is a single scene: one image shown from StartMS to EndMS.
// Text is a display label only, it is never rendered into pixels.
type Entry struct {
	Text       string  `json:"text"`
	ImagePath  string  `json:"image_path,omitempty"`
	StartMS    int     `json:"start_time_ms"`
	EndMS      int     `json:"end_time_ms"`
	Confidence float64 `json:"confidence,omitempty"`

	// DurationMS is derived during validation (EndMS - StartMS).
	DurationMS int `json:"duration_ms,omitempty"`
}

// DurationSeconds returns the display duration of the entry in seconds.
func (e *Entry) DurationSeconds() float64 {
	return float64(e.EndMS-e.StartMS) / 1000.0
}

// Timeline is an ordered, gap-free sequence of entries covering the full
// render duration.
type Timeline struct {
	ID              string  `json:"id"`
	IdeaID          string  `json:"idea_id"`
	Entries         []Entry `json:"timestamps"`
	TotalDurationMS int     `json:"total_duration_ms"`
}

// TotalDurationSeconds returns the declared total duration in seconds.
func (t *Timeline) TotalDurationSeconds() float64 {
	return float64(t.TotalDurationMS) / 1000.0
}

// Load reads a timeline from a JSON file.
func Load(path string) (*Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение таймлайна %s: %w", path, err)
	}

	var tl Timeline
	if err := json.Unmarshal(data, &tl); err != nil {
		return nil, fmt.Errorf("разбор таймлайна %s: %w", path, err)
	}

	if tl.ID == "" {
		tl.ID = uuid.NewString()
	}

	return &tl, nil
}

// ValidationError describes a malformed timeline. Index is the offending
// entry (-1 when the problem is not tied to a single entry).
type ValidationError struct {
	Index    int
	Reason   string
	Expected int
	Actual   int
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("timeline invalid: %s (expected %d, got %d)", e.Reason, e.Expected, e.Actual)
	}
	return fmt.Sprintf("timeline invalid at entry %d: %s (expected %d, got %d)", e.Index, e.Reason, e.Expected, e.Actual)
}

// Validate checks the timeline invariants and annotates each entry with its
// derived duration. It never repairs the input: gaps and overlaps are
// reported, not fixed. Validation is idempotent.
//
// Invariants:
//   - at least one entry
//   - every entry has EndMS > StartMS
//   - entries are contiguous: entries[i].EndMS == entries[i+1].StartMS
//   - the first entry starts at 0
//   - the last entry ends at TotalDurationMS
func (t *Timeline) Validate() error {
	if len(t.Entries) == 0 {
		return &ValidationError{Index: -1, Reason: "no entries", Expected: 1, Actual: 0}
	}

	if t.Entries[0].StartMS != 0 {
		return &ValidationError{Index: 0, Reason: "first entry must start at 0", Expected: 0, Actual: t.Entries[0].StartMS}
	}

	for i := range t.Entries {
		e := &t.Entries[i]
		if e.EndMS <= e.StartMS {
			return &ValidationError{Index: i, Reason: "entry end must be after start", Expected: e.StartMS + 1, Actual: e.EndMS}
		}
		if i > 0 {
			prev := t.Entries[i-1].EndMS
			if e.StartMS != prev {
				return &ValidationError{Index: i, Reason: "entries must be contiguous", Expected: prev, Actual: e.StartMS}
			}
		}
	}

	last := t.Entries[len(t.Entries)-1].EndMS
	if last != t.TotalDurationMS {
		return &ValidationError{
			Index:    len(t.Entries) - 1,
			Reason:   "last entry must end at total_duration_ms",
			Expected: t.TotalDurationMS,
			Actual:   last,
		}
	}

	for i := range t.Entries {
		t.Entries[i].DurationMS = t.Entries[i].EndMS - t.Entries[i].StartMS
	}

	return nil
}
