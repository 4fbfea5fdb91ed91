package types

// Attachments is the file-storage collaborator. The engine never walks
// the attachment tree itself; it only requests deletions as a side
// effect of dropping a table or hard-deleting a row.
type Attachments interface {
	// DeleteTableFiles removes the attachment directory for a whole table.
	DeleteTableFiles(tableID string) error

	// DeleteRowFiles removes the instance directory for one row.
	DeleteRowFiles(tableID, rowID string) error
}
