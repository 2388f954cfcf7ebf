package audithook

// Action constants for audit events.
const (
	// Balance actions
	ActionTransfer = "token.transfer"
	ActionMinted   = "token.minted"

	// Account control actions
	ActionFrozen   = "token.frozen"
	ActionUnfrozen = "token.unfrozen"

	// Administrative actions
	ActionPricesSet            = "token.prices_set"
	ActionOwnershipTransferred = "token.ownership_transferred"

	// Rejections
	ActionRejected = "token.rejected"
)

// Resource constants for audit events.
const (
	ResourceAccount = "account"
	ResourceLedger  = "ledger"
)

// Category constants for audit events.
const (
	CategoryBalance = "balance"
	CategoryControl = "control"
	CategoryAdmin   = "admin"
	CategoryAccess  = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
