// Package attendance merges recognition outcomes into the per-day attendance ledger.
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/class-attendance/internal/facematch"
)

// UnknownRosterError is returned when the class a mark refers to does not exist.
type UnknownRosterError struct {
	ClassID int64
}

func (e *UnknownRosterError) Error() string {
	return fmt.Sprintf("unknown roster: class %d does not exist", e.ClassID)
}

// Mark is the presence decision for one student on one day.
type Mark struct {
	StudentID int64
	Present   bool
}

// Ledger persists marks. Implementations must apply every mark of one call in a
// single transaction, insert a record for a (student, day) pair that has none
// and overwrite presence and marked_at of an existing one. They return
// UnknownRosterError when classID does not resolve.
type Ledger interface {
	ApplyMarks(ctx context.Context, classID int64, day Day, marks []Mark, markedAt time.Time) error
}

// Outcome partitions a roster into present and absent students.
type Outcome struct {
	Day     Day
	Present []int64
	Absent  []int64
}

// Total returns the number of students evaluated.
func (o *Outcome) Total() int {
	return len(o.Present) + len(o.Absent)
}

// Reconciler writes matching outcomes to a Ledger.
type Reconciler struct {
	ledger Ledger
	now    func() time.Time
}

// NewReconciler creates a Reconciler writing to ledger.
func NewReconciler(ledger Ledger) *Reconciler {
	return &Reconciler{ledger: ledger, now: time.Now}
}

// WithClock returns a copy of r that timestamps marks using now.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	return &Reconciler{ledger: r.ledger, now: now}
}

// Reconcile records every roster student for day as present when they are in
// matched and absent otherwise. Students already marked earlier on the same day
// are overwritten, so a later frame that misses a student flips them to absent.
//
// Duplicate roster IDs are evaluated once. An empty roster writes nothing.
func (r *Reconciler) Reconcile(ctx context.Context, classID int64, matched facematch.MatchResult, roster []int64, day Day) (*Outcome, error) {
	out := &Outcome{Day: day, Present: []int64{}, Absent: []int64{}}
	if len(roster) == 0 {
		return out, nil
	}

	seen := make(map[int64]struct{}, len(roster))
	marks := make([]Mark, 0, len(roster))
	for _, id := range roster {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		present := matched.Has(id)
		marks = append(marks, Mark{StudentID: id, Present: present})
		if present {
			out.Present = append(out.Present, id)
		} else {
			out.Absent = append(out.Absent, id)
		}
	}

	if err := r.ledger.ApplyMarks(ctx, classID, day, marks, r.now()); err != nil {
		return nil, fmt.Errorf("apply attendance marks: %w", err)
	}
	return out, nil
}
