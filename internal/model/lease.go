package model

import "time"

// JobLease is the persisted lease + checkpoint record for a named background
// job. Created lazily on first acquisition; overwritten, never deleted.
type JobLease struct {
	Job            string     `json:"job"`
	Running        bool       `json:"running"`
	LeaseExpiresAt time.Time  `json:"lease_expires_at"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	LastError      string     `json:"last_error,omitempty"`

	// Resumable cursor: the (update-timestamp, id) of the last processed
	// candidate. Zero values mean "start from the beginning".
	CursorUpdatedAt time.Time `json:"cursor_updated_at"`
	CursorID        string    `json:"cursor_id,omitempty"`
}

// HasCursor reports whether the lease carries a resume position.
func (l *JobLease) HasCursor() bool {
	return l.CursorID != "" || !l.CursorUpdatedAt.IsZero()
}

// ClearCursor resets the resume position.
func (l *JobLease) ClearCursor() {
	l.CursorUpdatedAt = time.Time{}
	l.CursorID = ""
}
