package sqlite

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// ErrSnapshotHeader is returned when an export does not start with a valid
// snapshot header line.
var ErrSnapshotHeader = errors.New("missing or invalid snapshot header")

// compressed reports whether path selects zstd compression.
func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// ExportSnapshot writes snap to path as JSONL: a header line followed by one
// descriptor per line. A ".zst" suffix compresses the file with zstd. The
// write is atomic.
func ExportSnapshot(path string, snap types.CatalogSnapshot) error {
	records := make([]json.RawMessage, 0, len(snap.Descriptors)+1)
	hb, err := json.Marshal(newHeaderJSON(snap))
	if err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	records = append(records, hb)
	for _, d := range snap.Descriptors {
		b, err := json.Marshal(newDescriptorJSON(d))
		if err != nil {
			return fmt.Errorf("encoding %s: %w", d.GUID, err)
		}
		records = append(records, b)
	}
	return writeJSONL(path, records, compressed(path))
}

// ImportSnapshot reads a snapshot written by ExportSnapshot. Malformed
// descriptor lines are skipped; Count reflects the descriptors read.
func ImportSnapshot(path string) (types.CatalogSnapshot, error) {
	records, err := readJSONL(path, compressed(path))
	if err != nil {
		return types.CatalogSnapshot{}, err
	}
	if len(records) == 0 {
		return types.CatalogSnapshot{}, fmt.Errorf("%s: %w", path, ErrSnapshotHeader)
	}

	var h headerJSON
	if err := json.Unmarshal(records[0], &h); err != nil || h.Format != SnapshotFormat {
		return types.CatalogSnapshot{}, fmt.Errorf("%s: %w", path, ErrSnapshotHeader)
	}
	snap, err := h.snapshot()
	if err != nil {
		return types.CatalogSnapshot{}, fmt.Errorf("%s: %w: %w", path, ErrSnapshotHeader, err)
	}

	for _, rec := range records[1:] {
		var dj descriptorJSON
		if err := json.Unmarshal(rec, &dj); err != nil || dj.GUID == "" {
			continue
		}
		snap.Descriptors = append(snap.Descriptors, dj.descriptor())
	}
	snap.Count = len(snap.Descriptors)
	return snap, nil
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string, zstdCompressed bool) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if zstdCompressed {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}

	var records []json.RawMessage
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage, zstdCompressed bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	var (
		out io.Writer = tmp
		enc *zstd.Encoder
	)
	if zstdCompressed {
		enc, err = zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fail(fmt.Errorf("creating zstd encoder: %w", err))
		}
		out = enc
	}

	w := bufio.NewWriter(out)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail(fmt.Errorf("writing record: %w", err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(fmt.Errorf("writing newline: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fail(fmt.Errorf("closing zstd stream: %w", err))
		}
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
