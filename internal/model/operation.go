package model

import "time"

// Operation is one entry in the append-only history ledger. Every applied
// bulk mutation (including undos of earlier operations) produces exactly
// one entry. CanUndo flips to false at most once, when the undo executor
// claims the entry; entries are never deleted.
type Operation struct {
	ID              int64      `json:"id"`
	TenantID        int64      `json:"tenant_id"`
	Type            string     `json:"operation_type"`
	Description     string     `json:"description"`
	Details         string     `json:"details"`
	AffectedRecords int64      `json:"affected_records"`
	CanUndo         bool       `json:"can_undo"`
	CreatedAt       time.Time  `json:"created_at"`
	UndoneAt        *time.Time `json:"undone_at,omitempty"`
}
