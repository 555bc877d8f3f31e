package ops

import "time"

// The types below are the per-operation details records persisted as JSON
// in the ledger's details column. Each reversible operation type has its
// own record carrying both the request parameters and the pre-mutation
// capture its reverser needs; the undo executor decodes by operation type
// instead of trusting a loosely-shaped bag.

// PriorState is one package's state before a change_states apply.
type PriorState struct {
	PackageID int64 `json:"package_id"`
	State     int   `json:"state"`
}

// PriorDate is one package's delivery date before an update_dates apply.
type PriorDate struct {
	PackageID int64  `json:"package_id"`
	Date      string `json:"date"`
}

// PriorCategory is one package's category before a change_types apply.
type PriorCategory struct {
	PackageID int64  `json:"package_id"`
	Category  string `json:"category"`
}

// StateRewriteDetails captures a change_states apply.
type StateRewriteDetails struct {
	ConductorID int64        `json:"conductor_id"`
	NewState    int          `json:"new_state"`
	Previous    []PriorState `json:"previous"`
}

// DateRewriteDetails captures an update_dates apply.
type DateRewriteDetails struct {
	ConductorID int64       `json:"conductor_id"`
	NewDate     string      `json:"new_date"`
	Previous    []PriorDate `json:"previous"`
}

// CategoryRewriteDetails captures a change_types apply.
type CategoryRewriteDetails struct {
	ConductorID int64           `json:"conductor_id"`
	NewCategory string          `json:"new_category"`
	Previous    []PriorCategory `json:"previous"`
}

// TransferDetails captures a transfer_packages apply. Trackings lists the
// packages actually moved; it is empty for scope "all", which is exactly
// why full-scope transfers cannot be reversed.
type TransferDetails struct {
	FromConductorID int64    `json:"from_conductor_id"`
	ToConductorID   int64    `json:"to_conductor_id"`
	Scope           string   `json:"scope"`
	Trackings       []string `json:"trackings,omitempty"`
}

// CreateDetails captures a create_package apply.
type CreateDetails struct {
	PackageID int64  `json:"package_id"`
	Tracking  string `json:"tracking"`
}

// BulkCreateDetails captures a create_bulk_packages apply. LineErrors
// holds the per-line rejections that did not abort the batch.
type BulkCreateDetails struct {
	BatchID     string   `json:"batch_id"`
	ConductorID int64    `json:"conductor_id"`
	Category    string   `json:"category"`
	Trackings   []string `json:"trackings"`
	LineErrors  []string `json:"line_errors,omitempty"`
}

// DeleteSnapshotDetails captures a delete_package apply: the full row,
// including original id, timestamps and delivery proof, so undo restores
// a byte-identical record.
type DeleteSnapshotDetails struct {
	PackageID    int64     `json:"package_id"`
	ConductorID  int64     `json:"conductor_id"`
	Tracking     string    `json:"tracking"`
	Category     string    `json:"category"`
	State        int       `json:"state"`
	DeliveryDate string    `json:"delivery_date"`
	Value        *float64  `json:"value,omitempty"`
	Proof        []byte    `json:"proof,omitempty"`
	ProofMime    string    `json:"proof_mime,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DeletePredicateDetails records the predicate of an audit-only bulk
// delete. These operations never capture row state and are not undoable.
type DeletePredicateDetails struct {
	Scope       string   `json:"scope"`
	ConductorID int64    `json:"conductor_id,omitempty"`
	DateFrom    string   `json:"date_from,omitempty"`
	DateTo      string   `json:"date_to,omitempty"`
	State       *int     `json:"state,omitempty"`
	Trackings   []string `json:"trackings,omitempty"`
}

// ToggleDetails records a toggle_conductors apply.
type ToggleDetails struct {
	Activated    bool    `json:"activated"`
	ConductorIDs []int64 `json:"conductor_ids"`
}

// UndoDetails records an undo apply, cross-referencing the reversed entry.
type UndoDetails struct {
	OriginalOperationID int64  `json:"original_operation_id"`
	Result              string `json:"result"`
}
