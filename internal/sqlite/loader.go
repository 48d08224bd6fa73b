package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// insertDescriptors writes the descriptors of one scan inside tx.
func insertDescriptors(tx *sql.Tx, scanID string, descs []types.StatDescriptor) error {
	placeholders := make([]string, len(descriptorColumns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO descriptors (%s) VALUES (%s)",
		strings.Join(descriptorColumns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("preparing descriptor insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range descs {
		dj := newDescriptorJSON(d)
		_, err := stmt.Exec(
			scanID,
			dj.GUID,
			dj.FieldName,
			dj.DisplayName,
			dj.Category,
			dj.Description,
			dj.TypeFullName,
			dj.TypeQualifiedName,
			dj.TypeModule,
			boolToInt(dj.ShowInUI),
		)
		if err != nil {
			return fmt.Errorf("inserting %s: %w", d.GUID, err)
		}
	}
	return nil
}

// loadDescriptors reads the descriptors of one scan ordered by GUID.
func loadDescriptors(db *sql.DB, scanID string) ([]types.StatDescriptor, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM descriptors WHERE scan_id = ? ORDER BY guid",
		strings.Join(descriptorColumns[1:], ", "),
	)
	rows, err := db.Query(query, scanID)
	if err != nil {
		return nil, fmt.Errorf("querying descriptors: %w", err)
	}
	defer rows.Close()

	var out []types.StatDescriptor
	for rows.Next() {
		var (
			dj   descriptorJSON
			show int
		)
		if err := rows.Scan(
			&dj.GUID,
			&dj.FieldName,
			&dj.DisplayName,
			&dj.Category,
			&dj.Description,
			&dj.TypeFullName,
			&dj.TypeQualifiedName,
			&dj.TypeModule,
			&show,
		); err != nil {
			return nil, fmt.Errorf("scanning descriptor row: %w", err)
		}
		dj.ShowInUI = show != 0
		out = append(out, dj.descriptor())
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
