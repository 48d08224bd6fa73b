package sqlite

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

func testConfig(dir string) types.Config {
	return types.Config{
		Backend: types.BackendSQLite,
		DataDir: dir,
	}
}

func attachTestBackend(t *testing.T, dir string) *Backend {
	t.Helper()
	b := NewBackend()
	if err := b.Attach(testConfig(dir)); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	t.Cleanup(func() { b.Detach() })
	return b
}

func testDescriptor(typeName, field, category string) types.StatDescriptor {
	id := types.TypeIdentity{
		FullName:      "example.com/game." + typeName,
		QualifiedName: "example.com/game." + typeName + ", game",
		Module:        "game",
	}
	tag := types.DefaultStatTag()
	tag.Category = category
	return types.NewStatDescriptor(id, field, tag)
}

func testSnapshot(scanID string, at time.Time) types.CatalogSnapshot {
	hidden := testDescriptor("Hero", "Secret", "Hidden")
	hidden.ShowInUI = false
	hidden.Description = "not shown"
	return types.CatalogSnapshot{
		ScanID:    scanID,
		ScannedAt: at,
		Source:    "unit",
		Descriptors: []types.StatDescriptor{
			testDescriptor("Hero", "Health", "Vitals"),
			testDescriptor("Hero", "Speed", "Movement"),
			hidden,
		},
	}
}

func TestAttachCreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	attachTestBackend(t, dir)

	if _, err := os.Stat(filepath.Join(dir, DatabaseFile)); err != nil {
		t.Fatalf("expected %s to exist: %v", DatabaseFile, err)
	}
}

func TestAttachTwice(t *testing.T) {
	b := attachTestBackend(t, t.TempDir())

	if err := b.Attach(testConfig(t.TempDir())); !errors.Is(err, types.ErrAlreadyAttached) {
		t.Fatalf("expected ErrAlreadyAttached, got %v", err)
	}
}

func TestAttachInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: "postgres", DataDir: t.TempDir()})
	if !errors.Is(err, types.ErrBackendUnknown) {
		t.Fatalf("expected ErrBackendUnknown, got %v", err)
	}
}

func TestDetachIsIdempotent(t *testing.T) {
	b := NewBackend()
	if err := b.Attach(testConfig(t.TempDir())); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if err := b.Detach(); err != nil {
		t.Fatalf("first Detach failed: %v", err)
	}
	if err := b.Detach(); err != nil {
		t.Fatalf("second Detach failed: %v", err)
	}
}

func TestOperationsAfterDetach(t *testing.T) {
	b := NewBackend()
	if err := b.Attach(testConfig(t.TempDir())); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	b.Detach()

	if _, err := b.SaveSnapshot(testSnapshot("s", time.Now())); !errors.Is(err, types.ErrStoreDetached) {
		t.Errorf("SaveSnapshot: expected ErrStoreDetached, got %v", err)
	}
	if _, err := b.LatestSnapshot(); !errors.Is(err, types.ErrStoreDetached) {
		t.Errorf("LatestSnapshot: expected ErrStoreDetached, got %v", err)
	}
	if _, err := b.ListSnapshots(); !errors.Is(err, types.ErrStoreDetached) {
		t.Errorf("ListSnapshots: expected ErrStoreDetached, got %v", err)
	}
	if err := b.DeleteSnapshot("s"); !errors.Is(err, types.ErrStoreDetached) {
		t.Errorf("DeleteSnapshot: expected ErrStoreDetached, got %v", err)
	}
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	b := attachTestBackend(t, t.TempDir())
	at := time.Date(2026, 5, 4, 10, 30, 0, 123000000, time.UTC)
	in := testSnapshot("scan-1", at)

	saved, err := b.SaveSnapshot(in)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if saved.Count != 3 {
		t.Errorf("expected count 3, got %d", saved.Count)
	}

	got, err := b.GetSnapshot("scan-1")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if !got.ScannedAt.Equal(at) {
		t.Errorf("expected scanned_at %v, got %v", at, got.ScannedAt)
	}
	if got.Source != "unit" || got.Count != 3 {
		t.Errorf("unexpected header: %+v", got)
	}
	if len(got.Descriptors) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(got.Descriptors))
	}

	byGUID := make(map[string]types.StatDescriptor)
	for _, d := range got.Descriptors {
		byGUID[d.GUID] = d
	}
	for _, want := range in.Descriptors {
		if byGUID[want.GUID] != want {
			t.Errorf("descriptor %s: expected %+v, got %+v", want.GUID, want, byGUID[want.GUID])
		}
	}
}

func TestSaveAssignsScanID(t *testing.T) {
	b := attachTestBackend(t, t.TempDir())

	saved, err := b.SaveSnapshot(testSnapshot("", time.Now()))
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if saved.ScanID == "" {
		t.Fatal("expected a generated scan id")
	}
	if _, err := b.GetSnapshot(saved.ScanID); err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
}

func TestSaveReplacesSameScanID(t *testing.T) {
	b := attachTestBackend(t, t.TempDir())
	snap := testSnapshot("scan-1", time.Now())
	if _, err := b.SaveSnapshot(snap); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	snap.Descriptors = snap.Descriptors[:1]
	if _, err := b.SaveSnapshot(snap); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	got, err := b.GetSnapshot("scan-1")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if len(got.Descriptors) != 1 {
		t.Errorf("expected 1 descriptor after replace, got %d", len(got.Descriptors))
	}
}

func TestLatestAndListOrdering(t *testing.T) {
	b := attachTestBackend(t, t.TempDir())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "newest", "middle"} {
		at := base.Add(time.Duration([]int{0, 2, 1}[i]) * time.Hour)
		if _, err := b.SaveSnapshot(testSnapshot(id, at)); err != nil {
			t.Fatalf("SaveSnapshot %s failed: %v", id, err)
		}
	}

	latest, err := b.LatestSnapshot()
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if latest.ScanID != "newest" {
		t.Errorf("expected newest, got %s", latest.ScanID)
	}
	if len(latest.Descriptors) != 3 {
		t.Errorf("expected descriptors on latest snapshot, got %d", len(latest.Descriptors))
	}

	list, err := b.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	var ids []string
	for _, s := range list {
		ids = append(ids, s.ScanID)
		if s.Descriptors != nil {
			t.Errorf("ListSnapshots should not load descriptors for %s", s.ScanID)
		}
	}
	want := []string{"newest", "middle", "old"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestSubSecondOrdering(t *testing.T) {
	b := attachTestBackend(t, t.TempDir())
	at := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)

	b.SaveSnapshot(testSnapshot("whole", at))
	b.SaveSnapshot(testSnapshot("fraction", at.Add(500*time.Millisecond)))

	latest, err := b.LatestSnapshot()
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if latest.ScanID != "fraction" {
		t.Errorf("expected fraction, got %s", latest.ScanID)
	}
}

func TestEmptyStore(t *testing.T) {
	b := attachTestBackend(t, t.TempDir())

	if _, err := b.LatestSnapshot(); !errors.Is(err, types.ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
	if _, err := b.GetSnapshot("missing"); !errors.Is(err, types.ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestDeleteSnapshot(t *testing.T) {
	b := attachTestBackend(t, t.TempDir())
	b.SaveSnapshot(testSnapshot("gone", time.Now()))

	if err := b.DeleteSnapshot("gone"); err != nil {
		t.Fatalf("DeleteSnapshot failed: %v", err)
	}
	if _, err := b.GetSnapshot("gone"); !errors.Is(err, types.ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound after delete, got %v", err)
	}
	if err := b.DeleteSnapshot("gone"); !errors.Is(err, types.ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound on second delete, got %v", err)
	}

	var n int
	if err := b.db.QueryRow("SELECT COUNT(*) FROM descriptors WHERE scan_id = 'gone'").Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected descriptors to cascade, %d left", n)
	}
}

func TestSnapshotsSurviveReattach(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	if err := b.Attach(testConfig(dir)); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	b.SaveSnapshot(testSnapshot("kept", time.Now()))
	b.Detach()

	b2 := attachTestBackend(t, dir)
	got, err := b2.GetSnapshot("kept")
	if err != nil {
		t.Fatalf("GetSnapshot after reattach failed: %v", err)
	}
	if len(got.Descriptors) != 3 {
		t.Errorf("expected 3 descriptors, got %d", len(got.Descriptors))
	}
}
