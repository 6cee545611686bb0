package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"

	FieldGroupID   = "group_id"
	FieldExpenseID = "expense_id"
	FieldPaymentID = "payment_id"
	FieldCurrency  = "currency"
)

// Components defines standard component names
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
)
