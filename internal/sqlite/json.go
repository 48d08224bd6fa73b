package sqlite

import (
	"time"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// SnapshotFormat identifies the JSONL export layout in the header line.
const SnapshotFormat = "statcraft.snapshot/v1"

// headerJSON is the first line of a snapshot export.
type headerJSON struct {
	Format    string `json:"format"`
	ScanID    string `json:"scan_id"`
	ScannedAt string `json:"scanned_at"`
	Count     int    `json:"count"`
	Source    string `json:"source,omitempty"`
}

// descriptorJSON is one descriptor line of a snapshot export. Its field
// names match the descriptors table columns.
type descriptorJSON struct {
	GUID              string `json:"guid"`
	FieldName         string `json:"field_name"`
	DisplayName       string `json:"display_name"`
	Category          string `json:"category"`
	Description       string `json:"description,omitempty"`
	TypeFullName      string `json:"type_full_name"`
	TypeQualifiedName string `json:"type_qualified_name"`
	TypeModule        string `json:"type_module"`
	ShowInUI          bool   `json:"show_in_ui"`
}

func newHeaderJSON(snap types.CatalogSnapshot) headerJSON {
	return headerJSON{
		Format:    SnapshotFormat,
		ScanID:    snap.ScanID,
		ScannedAt: formatTime(snap.ScannedAt),
		Count:     len(snap.Descriptors),
		Source:    snap.Source,
	}
}

func (h headerJSON) snapshot() (types.CatalogSnapshot, error) {
	at, err := parseTime(h.ScannedAt)
	if err != nil {
		return types.CatalogSnapshot{}, err
	}
	return types.CatalogSnapshot{
		ScanID:    h.ScanID,
		ScannedAt: at,
		Count:     h.Count,
		Source:    h.Source,
	}, nil
}

func newDescriptorJSON(d types.StatDescriptor) descriptorJSON {
	return descriptorJSON{
		GUID:              d.GUID,
		FieldName:         d.FieldName,
		DisplayName:       d.DisplayName,
		Category:          d.Category,
		Description:       d.Description,
		TypeFullName:      d.DeclaringType.FullName,
		TypeQualifiedName: d.DeclaringType.QualifiedName,
		TypeModule:        d.DeclaringType.Module,
		ShowInUI:          d.ShowInUI,
	}
}

func (dj descriptorJSON) descriptor() types.StatDescriptor {
	return types.StatDescriptor{
		GUID:        dj.GUID,
		FieldName:   dj.FieldName,
		DisplayName: dj.DisplayName,
		Category:    dj.Category,
		Description: dj.Description,
		DeclaringType: types.TypeIdentity{
			FullName:      dj.TypeFullName,
			QualifiedName: dj.TypeQualifiedName,
			Module:        dj.TypeModule,
		},
		ShowInUI: dj.ShowInUI,
	}
}

// timeLayout is RFC 3339 with a fixed-width fraction, so stored timestamps
// sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime renders timestamps the way they are stored: UTC in timeLayout.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
