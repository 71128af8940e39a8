//go:build integration

package mariadb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/class-attendance/internal/attendance"
	"github.com/kozaktomas/class-attendance/internal/config"
	"github.com/kozaktomas/class-attendance/internal/database"
	"github.com/kozaktomas/class-attendance/internal/facematch"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Store, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_USER":          "test",
			"MARIADB_PASSWORD":      "test",
			"MARIADB_DATABASE":      "testdb",
			"MARIADB_ROOT_PASSWORD": "root",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("test:test@tcp(%s:%s)/testdb", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	// The port opens before the server accepts connections.
	var pool *Pool
	for range 30 {
		if pool, err = NewPool(cfg); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return NewStore(pool), func() {
		pool.Close()
		container.Terminate(ctx)
	}
}

func TestStore(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	class := &database.StoredClass{Name: "Matematika 1.A", Subject: "Math"}
	if err := store.CreateClass(ctx, class); err != nil {
		t.Fatalf("CreateClass failed: %v", err)
	}
	roll := "1"
	a := &database.StoredStudent{ClassID: class.ID, Name: "Alice", RollNumber: &roll, FaceEmbedding: facematch.Encode(facematch.Embedding{0, 0})}
	b := &database.StoredStudent{ClassID: class.ID, Name: "Bob"}
	for _, s := range []*database.StoredStudent{a, b} {
		if err := store.CreateStudent(ctx, s); err != nil {
			t.Fatalf("CreateStudent failed: %v", err)
		}
	}

	t.Run("DuplicateRollNumber", func(t *testing.T) {
		err := store.CreateStudent(ctx, &database.StoredStudent{ClassID: class.ID, Name: "Carol", RollNumber: &roll})
		if !errors.Is(err, database.ErrDuplicateRollNumber) {
			t.Errorf("CreateStudent error = %v, want ErrDuplicateRollNumber", err)
		}
	})

	t.Run("PhotoRoundTrip", func(t *testing.T) {
		got, err := store.GetStudent(ctx, b.ID)
		if err != nil || got == nil {
			t.Fatalf("GetStudent = %+v, %v", got, err)
		}
		if got.Photo != nil {
			t.Errorf("photo = %v, want nil", got.Photo)
		}
		got.Photo = []byte{0xff, 0xd8, 0xff, 0x01}
		if err := store.UpdateStudent(ctx, got); err != nil {
			t.Fatalf("UpdateStudent failed: %v", err)
		}
		got, _ = store.GetStudent(ctx, b.ID)
		if string(got.Photo) != "\xff\xd8\xff\x01" {
			t.Errorf("photo = %x", got.Photo)
		}
	})

	t.Run("SearchAndCount", func(t *testing.T) {
		got, err := store.ListClasses(ctx, "MATEMATIKA")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].StudentCount != 2 {
			t.Errorf("ListClasses = %+v", got)
		}
	})

	t.Run("Enrolled", func(t *testing.T) {
		got, err := store.ListEnrolledStudents(ctx, class.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ID != a.ID {
			t.Errorf("ListEnrolledStudents = %+v", got)
		}
	})

	t.Run("ReconcileUpserts", func(t *testing.T) {
		day := attendance.Day{Year: 2024, Month: time.October, Day: 1}
		r := attendance.NewReconciler(store)
		if _, err := r.Reconcile(ctx, class.ID, facematch.NewMatchResult(a.ID), []int64{a.ID, b.ID}, day); err != nil {
			t.Fatal(err)
		}
		if _, err := r.Reconcile(ctx, class.ID, facematch.NewMatchResult(), []int64{a.ID, b.ID}, day); err != nil {
			t.Fatal(err)
		}
		records, err := store.ListAttendance(ctx, class.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 2 {
			t.Fatalf("ListAttendance = %d records, want 2", len(records))
		}
		for _, rec := range records {
			if rec.Present {
				t.Errorf("record %+v should be absent after the second call", rec)
			}
			if attendance.DayOf(rec.Day) != day {
				t.Errorf("record day = %v, want %v", rec.Day, day)
			}
		}
	})

	t.Run("ConcurrentReconcileKeepsOneRecord", func(t *testing.T) {
		day := attendance.Day{Year: 2024, Month: time.October, Day: 2}
		r := attendance.NewReconciler(store)
		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := range writers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				matched := facematch.NewMatchResult()
				if i%2 == 0 {
					matched = facematch.NewMatchResult(b.ID)
				}
				_, err := r.Reconcile(ctx, class.ID, matched, []int64{a.ID, b.ID}, day)
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent Reconcile failed: %v", err)
			}
		}

		if _, err := r.Reconcile(ctx, class.ID, facematch.NewMatchResult(b.ID), []int64{a.ID, b.ID}, day); err != nil {
			t.Fatal(err)
		}
		records, err := store.ListAttendance(ctx, class.ID)
		if err != nil {
			t.Fatal(err)
		}
		perStudent := map[int64]int{}
		for _, rec := range records {
			if attendance.DayOf(rec.Day) != day {
				continue
			}
			perStudent[rec.StudentID]++
			if rec.Present != (rec.StudentID == b.ID) {
				t.Errorf("record %+v does not match the last call", rec)
			}
		}
		if perStudent[a.ID] != 1 || perStudent[b.ID] != 1 {
			t.Errorf("records per student = %v, want exactly one each", perStudent)
		}
	})

	t.Run("UnknownClass", func(t *testing.T) {
		err := store.ApplyMarks(ctx, 999999, attendance.Day{Year: 2024, Month: 1, Day: 1}, nil, time.Now())
		var unknown *attendance.UnknownRosterError
		if !errors.As(err, &unknown) {
			t.Errorf("ApplyMarks error = %v, want UnknownRosterError", err)
		}
	})

	t.Run("DeleteClassCascades", func(t *testing.T) {
		if err := store.DeleteClass(ctx, class.ID); err != nil {
			t.Fatalf("DeleteClass failed: %v", err)
		}
		if s, _ := store.GetStudent(ctx, a.ID); s != nil {
			t.Error("student survived class deletion")
		}
	})
}
