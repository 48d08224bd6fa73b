package sqlite

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExportImportRoundTrip(t *testing.T) {
	for _, name := range []string{"catalog.jsonl", "catalog.jsonl.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
			in := testSnapshot("scan-x", at)

			if err := ExportSnapshot(path, in); err != nil {
				t.Fatalf("ExportSnapshot failed: %v", err)
			}
			out, err := ImportSnapshot(path)
			if err != nil {
				t.Fatalf("ImportSnapshot failed: %v", err)
			}

			if out.ScanID != in.ScanID || out.Source != in.Source || !out.ScannedAt.Equal(at) {
				t.Errorf("header mismatch: %+v", out)
			}
			if out.Count != len(in.Descriptors) || len(out.Descriptors) != len(in.Descriptors) {
				t.Fatalf("expected %d descriptors, got %d", len(in.Descriptors), len(out.Descriptors))
			}
			for i := range in.Descriptors {
				if out.Descriptors[i] != in.Descriptors[i] {
					t.Errorf("descriptor %d: expected %+v, got %+v", i, in.Descriptors[i], out.Descriptors[i])
				}
			}
		})
	}
}

func TestExportFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.jsonl")
	if err := ExportSnapshot(path, testSnapshot("scan-x", time.Now())); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"format":"`+SnapshotFormat+`"`) {
		t.Errorf("header missing format: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"guid":"example.com/game.Hero.Health"`) {
		t.Errorf("unexpected descriptor line: %s", lines[1])
	}
}

func TestExportCompresses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.jsonl.zst")
	if err := ExportSnapshot(path, testSnapshot("scan-x", time.Now())); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	// zstd frame magic number.
	if !bytes.HasPrefix(raw, []byte{0x28, 0xB5, 0x2F, 0xFD}) {
		t.Errorf("expected zstd frame, got % x", raw[:4])
	}
}

func TestImportSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.jsonl")
	body := `{"format":"` + SnapshotFormat + `","scan_id":"s","scanned_at":"2026-01-01T00:00:00Z","count":9}
{"guid":"a.T.X","field_name":"X","display_name":"X","category":"General","type_full_name":"a.T","type_qualified_name":"a.T, a","type_module":"a","show_in_ui":true}
not json at all

{"field_name":"NoGUID"}
{"guid":"a.T.Y","field_name":"Y","display_name":"Y","category":"General","type_full_name":"a.T","type_qualified_name":"a.T, a","type_module":"a","show_in_ui":false,"future_field":1}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	snap, err := ImportSnapshot(path)
	if err != nil {
		t.Fatalf("ImportSnapshot failed: %v", err)
	}
	if snap.Count != 2 {
		t.Errorf("expected 2 descriptors, got %d", snap.Count)
	}
	if snap.Descriptors[1].ShowInUI {
		t.Error("expected show_in_ui false on second descriptor")
	}
}

func TestImportRequiresHeader(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"descriptor first", `{"guid":"a.T.X"}` + "\n"},
		{"wrong format", `{"format":"other/v9","scan_id":"s","scanned_at":"2026-01-01T00:00:00Z"}` + "\n"},
		{"bad time", `{"format":"` + SnapshotFormat + `","scan_id":"s","scanned_at":"yesterday"}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.jsonl")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("writing fixture: %v", err)
			}
			if _, err := ImportSnapshot(path); !errors.Is(err, ErrSnapshotHeader) {
				t.Errorf("expected ErrSnapshotHeader, got %v", err)
			}
		})
	}
}

func TestImportMissingFile(t *testing.T) {
	_, err := ImportSnapshot(filepath.Join(t.TempDir(), "nope.jsonl"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestWriteJSONLLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.jsonl")
	if err := ExportSnapshot(path, testSnapshot("s", time.Now())); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the export in %s, found %d entries", dir, len(entries))
	}
}
