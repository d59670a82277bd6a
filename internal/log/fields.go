package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldPeriodID   = "period_id"
	FieldAccountID  = "account_id"
	FieldCurrency   = "currency"
	FieldAmount     = "amount"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentStorage    = "storage"
	ComponentAccounting = "accounting"
	ComponentAccounts   = "accounts"
	ComponentCategories = "categories"
	ComponentFolders    = "folders"
	ComponentPeriods    = "periods"
	ComponentExchange   = "exchange"
	ComponentCache      = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpClone    = "clone"
	OpReview   = "review"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
