// Package ops implements the administrative bulk-mutation engine: a closed
// set of tenant-scoped operations over conductors and packages, an
// append-only history ledger, and selective undo of the most recent
// reversible operation. Every apply and every undo runs as one SQLite
// transaction covering ownership check, pre-capture, mutation and ledger
// append, so a failed operation leaves no trace.
package ops

// Type identifies one operation in the closed operation set.
type Type string

const (
	TypeChangeStates            Type = "change_states"
	TypeTransferPackages        Type = "transfer_packages"
	TypeUpdateDates             Type = "update_dates"
	TypeChangeTypes             Type = "change_types"
	TypeToggleConductors        Type = "toggle_conductors"
	TypeRecalculateStats        Type = "recalculate_stats"
	TypeCreatePackage           Type = "create_package"
	TypeCreateBulkPackages      Type = "create_bulk_packages"
	TypeDeletePackage           Type = "delete_package"
	TypeDeleteConductorPackages Type = "delete_conductor_packages"
	TypeDeleteByDateRange       Type = "delete_by_date_range"
	TypeDeleteByState           Type = "delete_by_state"
	TypeDeleteBulkPackages      Type = "delete_bulk_packages"
	TypeDeleteAllConductors     Type = "delete_all_conductors"
	TypeDeleteAllPackages       Type = "delete_all_packages"
	TypeNuclearReset            Type = "nuclear_reset"
)

// Transfer scopes.
const (
	ScopeAll        = "all"
	ScopeIndividual = "individual"
	ScopeBulk       = "bulk"
)

// minTrackingLen is the minimum accepted tracking-code length.
const minTrackingLen = 5

// Request is the boundary-facing shape of an operation request. Which
// fields are required depends on the operation type; handlers validate
// their own parameters before touching the store.
type Request struct {
	Operation      Type   `json:"operation"`
	ConductorID    int64  `json:"conductor_id,omitempty"`
	ConductorID2   int64  `json:"conductor_id_2,omitempty"`
	NewState       *int   `json:"new_state,omitempty"`
	NewType        string `json:"new_type,omitempty"`
	NewDate        string `json:"new_date,omitempty"`
	TransferType   string `json:"transfer_type,omitempty"`
	SingleTracking string `json:"single_tracking,omitempty"`
	BulkTrackings  string `json:"bulk_trackings,omitempty"`

	// Creation parameters.
	Tracking     string   `json:"tracking,omitempty"`
	Category     string   `json:"category,omitempty"`
	Value        *float64 `json:"value,omitempty"`
	DeliveryDate string   `json:"delivery_date,omitempty"`
	BulkLines    string   `json:"bulk_lines,omitempty"`

	// Deletion predicates.
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
	State    *int   `json:"state,omitempty"`
}

// Result is the user-facing outcome of a successfully applied operation.
type Result struct {
	Message  string `json:"message"`
	Affected int64  `json:"affected_records"`
	Details  string `json:"details,omitempty"`
}

// Stats holds the read-only aggregation produced by recalculate_stats.
type Stats struct {
	TotalPackages int64   `json:"total_packages"`
	NotDelivered  int64   `json:"not_delivered"`
	Delivered     int64   `json:"delivered"`
	Returned      int64   `json:"returned"`
	CODTotal      float64 `json:"cod_total"`
	CODCollected  float64 `json:"cod_collected"`
	CODPending    float64 `json:"cod_pending"`
	CODReturned   float64 `json:"cod_returned"`
}
