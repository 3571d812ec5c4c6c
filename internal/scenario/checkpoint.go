package scenario

import (
	"fmt"
	"sort"
	"time"

	"liquidityPool/internal/storage"
)

// Checkpoint is the replay progress of one script. Every step up to
// LastCompletedStep is done; Completed lists the later steps that finished
// inside a segment that did not.
type Checkpoint struct {
	Script            string    `json:"script"`
	LastCompletedStep int       `json:"last_completed_step"`
	Completed         []int     `json:"completed,omitempty"`
	SavedAt           time.Time `json:"saved_at"`
}

// Done reports whether the step at index needs no replay.
func (c Checkpoint) Done(index int) bool {
	if index <= c.LastCompletedStep {
		return true
	}
	for _, i := range c.Completed {
		if i == index {
			return true
		}
	}
	return false
}

// CheckpointStore persists checkpoints to disk. A disabled store loads
// nothing and saves nothing.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled && path != ""}
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}
	var cp Checkpoint
	ok, err := storage.ReadJSONFile(c.path, &cp)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("checkpoint: %w", err)
	}
	return cp, ok, nil
}

// Save records lastCompleted and the finished steps after it.
func (c *CheckpointStore) Save(script string, lastCompleted int, completed []int) error {
	if !c.enabled {
		return nil
	}

	var later []int
	for _, i := range completed {
		if i > lastCompleted {
			later = append(later, i)
		}
	}
	sort.Ints(later)

	err := storage.WriteJSONFile(c.path, Checkpoint{
		Script:            script,
		LastCompletedStep: lastCompleted,
		Completed:         later,
		SavedAt:           time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}
