package checkin

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/andino/pulso/internal/models"
)

// seedDay builds the reference scenario: three check-ins, one responded,
// two tasks carrying non-empty blockers across them.
func seedDay(t *testing.T, fs *fakeStore, svc *Service) (jane, bob, eve models.Employee) {
	t.Helper()
	ctx := context.Background()
	jane = seedEmployee(fs, "jane@example.com", "Jane", true)
	bob = seedEmployee(fs, "bob@example.com", "Bob", true)
	eve = seedEmployee(fs, "eve@example.com", "Eve", true)

	chk1, err := svc.UpsertCheckin(ctx, testDay, jane, "t1", "m1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpsertCheckin(ctx, testDay, bob, "t2", "m2"); err != nil {
		t.Fatal(err)
	}
	chk3, err := svc.UpsertCheckin(ctx, testDay, eve, "t3", "m3")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.MarkReplied(ctx, chk1.ID, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}

	blockerA := "esperando credenciales"
	blockerB := "entorno caído"
	empty := ""
	if _, err := svc.ReplaceTasks(ctx, chk1.ID, []TaskInput{
		{Title: "deploy", Status: "completado", Progress: float64(100)},
		{Title: "docs", Status: "en_progreso", Blocker: &blockerA},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ReplaceTasks(ctx, chk3.ID, []TaskInput{
		{Title: "review", Status: "pendiente", Blocker: &blockerB},
		{Title: "triage", Status: "pendiente", Blocker: &empty}, // empty blocker is no blocker
	}); err != nil {
		t.Fatal(err)
	}
	return jane, bob, eve
}

func TestBuildSummary(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs)
	seedDay(t, fs, svc)

	summary, err := svc.BuildSummary(context.Background(), testDay)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	want := Summary{Total: 3, Responded: 1, Pending: 2, Blockers: 2}
	if *summary != want {
		t.Errorf("summary = %+v, want %+v", *summary, want)
	}
}

func TestBuildSummary_Idempotent(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs)
	seedDay(t, fs, svc)
	ctx := context.Background()

	first, err := svc.BuildSummary(ctx, testDay)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.BuildSummary(ctx, testDay)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("summary changed without writes: %+v vs %+v", first, second)
	}
}

func TestBuildSummary_EmptyDay(t *testing.T) {
	svc := NewService(newFakeStore())
	summary, err := svc.BuildSummary(context.Background(), testDay)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	if *summary != (Summary{}) {
		t.Errorf("expected all-zero summary, got %+v", *summary)
	}
}

func TestSnapshotAndBreakdown(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs)
	jane, _, eve := seedDay(t, fs, svc)

	snapshot, err := svc.Snapshot(context.Background(), testDay)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snapshot) != 4 {
		t.Fatalf("expected 4 tasks in snapshot, got %d", len(snapshot))
	}
	for _, st := range snapshot {
		if st.EmployeeName == "" || st.EmployeeEmail == "" {
			t.Errorf("task %q missing employee enrichment: %+v", st.Title, st)
		}
	}

	reports := Breakdown(snapshot)
	if len(reports) != 2 {
		t.Fatalf("expected 2 employees in breakdown, got %d", len(reports))
	}
	// Sorted by name: Eve before Jane.
	if reports[0].EmployeeID != eve.ID || reports[1].EmployeeID != jane.ID {
		t.Fatalf("unexpected report order: %+v", reports)
	}

	evr := reports[0]
	if evr.Counts[models.StatusPendiente] != 2 {
		t.Errorf("eve pendiente count = %d, want 2", evr.Counts[models.StatusPendiente])
	}
	if len(evr.Blockers) != 1 || evr.Blockers[0] != "entorno caído" {
		t.Errorf("eve blockers = %v", evr.Blockers)
	}

	jr := reports[1]
	if jr.Counts[models.StatusCompletado] != 1 || jr.Counts[models.StatusEnProgreso] != 1 {
		t.Errorf("jane counts = %v", jr.Counts)
	}
	if len(jr.Blockers) != 1 || jr.Blockers[0] != "esperando credenciales" {
		t.Errorf("jane blockers = %v", jr.Blockers)
	}
}

func TestSnapshot_EmptyDay(t *testing.T) {
	svc := NewService(newFakeStore())
	snapshot, err := svc.Snapshot(context.Background(), testDay)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snapshot) != 0 {
		t.Errorf("expected empty snapshot, got %d tasks", len(snapshot))
	}
}
