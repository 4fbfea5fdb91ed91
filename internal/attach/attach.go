// Package attach manages the on-disk attachment tree that accompanies
// the database: one instance folder per row holding captured media, and
// one folder per table for form definition files. The engine only asks
// it to delete; reading and writing attachment files is the form
// runtime's business.
package attach

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Layout under the data directory:
//
//	tables/<tableID>/forms/...
//	tables/<tableID>/instances/<sanitized rowID>/...
const (
	tablesDirName    = "tables"
	formsDirName     = "forms"
	instancesDirName = "instances"
)

// Manager deletes attachment folders for dropped tables and
// hard-deleted rows. Satisfies types.Attachments.
type Manager struct {
	dataDir string
	log     *slog.Logger
}

// NewManager returns a Manager rooted at the store's data directory.
func NewManager(dataDir string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{dataDir: dataDir, log: log}
}

// TableDir returns the attachment folder for a table.
func (m *Manager) TableDir(tableID string) string {
	return filepath.Join(m.dataDir, tablesDirName, tableID)
}

// RowDir returns the instance folder for a row. Row ids contain
// characters that are unsafe in file names ("uuid:..." at minimum), so
// the id is sanitized the same way for every caller.
func (m *Manager) RowDir(tableID, rowID string) string {
	return filepath.Join(m.TableDir(tableID), instancesDirName, SanitizeRowID(rowID))
}

// FormsDir returns the form-definition folder for a table.
func (m *Manager) FormsDir(tableID string) string {
	return filepath.Join(m.TableDir(tableID), formsDirName)
}

// DeleteTableFiles removes the table's entire attachment folder. A
// folder that never existed is not an error.
func (m *Manager) DeleteTableFiles(tableID string) error {
	dir := m.TableDir(tableID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing table attachments %q: %w", dir, err)
	}
	m.log.Debug("table attachments removed", "table", tableID, "dir", dir)
	return nil
}

// DeleteRowFiles removes the row's instance folder. A folder that never
// existed is not an error.
func (m *Manager) DeleteRowFiles(tableID, rowID string) error {
	dir := m.RowDir(tableID, rowID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing row attachments %q: %w", dir, err)
	}
	m.log.Debug("row attachments removed", "table", tableID, "row", rowID, "dir", dir)
	return nil
}

// SanitizeRowID maps a row id to a safe directory name: every byte
// outside [A-Za-z0-9] becomes '_'.
func SanitizeRowID(rowID string) string {
	out := []byte(rowID)
	for i, b := range out {
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
