package sync

import (
	"fmt"
	"time"

	"github.com/teemow/tasksync/internal/task"
)

// Result summarizes one reconciliation pass. Skipped counts the items that
// needed no write: title-less exclusions and linked tasks whose content
// already matched the remote value. When the pass is cut short by the
// context deadline the counters cover the work committed before the
// cutoff; those upserts stand.
type Result struct {
	Provider string        `json:"provider"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Errors   int           `json:"errors"`
	Tasks    []task.Task   `json:"tasks,omitempty"`
	Success  bool          `json:"success"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Processed returns how many remote tasks were reconciled into the store.
func (r *Result) Processed() int {
	return r.Created + r.Updated
}

// finish seals the result: success means every visited item reconciled and
// nothing aborted the pass early.
func (r *Result) finish(started time.Time, abort error) {
	r.Duration = time.Since(started)

	switch {
	case abort != nil:
		r.Success = false
		r.Err = abort.Error()
	case r.Errors > 0:
		r.Success = false
		r.Err = fmt.Sprintf("%d of %d items failed to reconcile", r.Errors, r.Processed()+r.Errors)
	default:
		r.Success = true
	}
}
