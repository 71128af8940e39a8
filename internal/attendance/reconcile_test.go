package attendance

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/class-attendance/internal/facematch"
)

type recordKey struct {
	studentID int64
	day       Day
}

type record struct {
	present  bool
	markedAt time.Time
}

// memLedger is a transactional in-memory ledger used to observe Reconcile writes.
type memLedger struct {
	mu      sync.Mutex
	classes map[int64]bool
	records map[recordKey]record
	calls   int
	failOn  int64 // fail the whole batch when this student is in it
}

func newMemLedger(classIDs ...int64) *memLedger {
	l := &memLedger{classes: make(map[int64]bool), records: make(map[recordKey]record)}
	for _, id := range classIDs {
		l.classes[id] = true
	}
	return l
}

func (l *memLedger) ApplyMarks(ctx context.Context, classID int64, day Day, marks []Mark, markedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if !l.classes[classID] {
		return &UnknownRosterError{ClassID: classID}
	}
	staged := make(map[recordKey]record, len(marks))
	for _, m := range marks {
		if l.failOn != 0 && m.StudentID == l.failOn {
			return errors.New("constraint violation")
		}
		staged[recordKey{m.StudentID, day}] = record{present: m.Present, markedAt: markedAt}
	}
	for k, v := range staged {
		l.records[k] = v
	}
	return nil
}

func (l *memLedger) get(studentID int64, day Day) (record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[recordKey{studentID, day}]
	return r, ok
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestReconcileScenario(t *testing.T) {
	ledger := newMemLedger(10)
	day := Day{Year: 2024, Month: time.March, Day: 4}
	r := NewReconciler(ledger)

	// Student 3 has no face data and is not part of the eligible roster.
	out, err := r.Reconcile(context.Background(), 10, facematch.NewMatchResult(1), []int64{1, 2}, day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(out.Present, []int64{1}) {
		t.Errorf("Present = %v, want [1]", out.Present)
	}
	if !slices.Equal(out.Absent, []int64{2}) {
		t.Errorf("Absent = %v, want [2]", out.Absent)
	}
	if out.Day != day {
		t.Errorf("Day = %v, want %v", out.Day, day)
	}

	if rec, ok := ledger.get(1, day); !ok || !rec.present {
		t.Errorf("student 1 record = %+v, %v; want present", rec, ok)
	}
	if rec, ok := ledger.get(2, day); !ok || rec.present {
		t.Errorf("student 2 record = %+v, %v; want absent", rec, ok)
	}
	if _, ok := ledger.get(3, day); ok {
		t.Error("student 3 should have no record")
	}
}

func TestReconcilePartition(t *testing.T) {
	tests := []struct {
		name    string
		matched facematch.MatchResult
		roster  []int64
		present []int64
		absent  []int64
	}{
		{"all present", facematch.NewMatchResult(1, 2, 3), []int64{1, 2, 3}, []int64{1, 2, 3}, []int64{}},
		{"all absent", facematch.NewMatchResult(), []int64{1, 2, 3}, []int64{}, []int64{1, 2, 3}},
		{"matched outside roster ignored", facematch.NewMatchResult(9, 2), []int64{1, 2}, []int64{2}, []int64{1}},
		{"roster order kept", facematch.NewMatchResult(1, 3), []int64{3, 2, 1}, []int64{3, 1}, []int64{2}},
		{"duplicate roster ids", facematch.NewMatchResult(1), []int64{1, 2, 1, 2}, []int64{1}, []int64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler(newMemLedger(1))
			out, err := r.Reconcile(context.Background(), 1, tt.matched, tt.roster, Day{2024, time.January, 1})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(out.Present, tt.present) {
				t.Errorf("Present = %v, want %v", out.Present, tt.present)
			}
			if !slices.Equal(out.Absent, tt.absent) {
				t.Errorf("Absent = %v, want %v", out.Absent, tt.absent)
			}
			for _, id := range out.Present {
				if slices.Contains(out.Absent, id) {
					t.Errorf("student %d is both present and absent", id)
				}
			}
		})
	}
}

func TestReconcileEmptyRosterWritesNothing(t *testing.T) {
	ledger := newMemLedger()
	r := NewReconciler(ledger)

	// Class 5 does not exist, but an empty roster never reaches the ledger.
	out, err := r.Reconcile(context.Background(), 5, facematch.NewMatchResult(1), nil, Day{2024, time.May, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Total() != 0 || out.Present == nil || out.Absent == nil {
		t.Errorf("Outcome = %+v, want two empty lists", out)
	}
	if ledger.calls != 0 {
		t.Errorf("ledger called %d times, want 0", ledger.calls)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	ledger := newMemLedger(1)
	day := Day{2024, time.June, 10}
	first := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	roster := []int64{1, 2, 3}
	matched := facematch.NewMatchResult(2)

	if _, err := NewReconciler(ledger).WithClock(fixedClock(first)).Reconcile(context.Background(), 1, matched, roster, day); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	before := map[int64]bool{}
	for _, id := range roster {
		rec, _ := ledger.get(id, day)
		before[id] = rec.present
	}

	if _, err := NewReconciler(ledger).WithClock(fixedClock(second)).Reconcile(context.Background(), 1, matched, roster, day); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	for _, id := range roster {
		rec, ok := ledger.get(id, day)
		if !ok {
			t.Fatalf("student %d record missing", id)
		}
		if rec.present != before[id] {
			t.Errorf("student %d presence changed from %v to %v", id, before[id], rec.present)
		}
		if !rec.markedAt.Equal(second) {
			t.Errorf("student %d marked_at = %v, want %v", id, rec.markedAt, second)
		}
	}
	if len(ledger.records) != len(roster) {
		t.Errorf("ledger holds %d records, want %d", len(ledger.records), len(roster))
	}
}

func TestReconcileLastCallWinsForDay(t *testing.T) {
	ledger := newMemLedger(1)
	day := Day{2024, time.June, 10}
	r := NewReconciler(ledger)

	if _, err := r.Reconcile(context.Background(), 1, facematch.NewMatchResult(1), []int64{1}, day); err != nil {
		t.Fatalf("morning reconcile: %v", err)
	}
	if _, err := r.Reconcile(context.Background(), 1, facematch.NewMatchResult(), []int64{1}, day); err != nil {
		t.Fatalf("afternoon reconcile: %v", err)
	}
	if rec, _ := ledger.get(1, day); rec.present {
		t.Error("student seen in the morning but missing later should be absent")
	}

	// A different day is a separate record.
	next := Day{2024, time.June, 11}
	if _, err := r.Reconcile(context.Background(), 1, facematch.NewMatchResult(1), []int64{1}, next); err != nil {
		t.Fatalf("next day reconcile: %v", err)
	}
	if rec, _ := ledger.get(1, day); rec.present {
		t.Error("previous day changed by a later day's reconcile")
	}
	if rec, _ := ledger.get(1, next); !rec.present {
		t.Error("next day record should be present")
	}
}

func TestReconcileUnknownRoster(t *testing.T) {
	r := NewReconciler(newMemLedger(1))
	_, err := r.Reconcile(context.Background(), 2, facematch.NewMatchResult(), []int64{1}, Day{2024, time.June, 10})
	var unknown *UnknownRosterError
	if !errors.As(err, &unknown) {
		t.Fatalf("Reconcile error = %v, want UnknownRosterError", err)
	}
	if unknown.ClassID != 2 {
		t.Errorf("ClassID = %d, want 2", unknown.ClassID)
	}
}

func TestReconcileFailureIsAllOrNothing(t *testing.T) {
	ledger := newMemLedger(1)
	ledger.failOn = 3
	day := Day{2024, time.June, 10}

	out, err := NewReconciler(ledger).Reconcile(context.Background(), 1, facematch.NewMatchResult(1), []int64{1, 2, 3}, day)
	if err == nil {
		t.Fatal("expected error")
	}
	if out != nil {
		t.Errorf("Outcome = %+v, want nil on failure", out)
	}
	for _, id := range []int64{1, 2, 3} {
		if _, ok := ledger.get(id, day); ok {
			t.Errorf("student %d has a record after a failed batch", id)
		}
	}
}

func TestReconcileConcurrentSameDay(t *testing.T) {
	ledger := newMemLedger(1)
	day := Day{2024, time.June, 10}
	r := NewReconciler(ledger)
	roster := []int64{1, 2, 3, 4}

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			matched := facematch.NewMatchResult(int64(i%4 + 1))
			if _, err := r.Reconcile(context.Background(), 1, matched, roster, day); err != nil {
				t.Errorf("reconcile %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if len(ledger.records) != len(roster) {
		t.Errorf("ledger holds %d records, want %d", len(ledger.records), len(roster))
	}
}
