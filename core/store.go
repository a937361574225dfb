package core

// Store is the key-value persistence gateway every ledger is built upon.
// Values are encoded as JSON documents, one per key.
type Store interface {
	// Load decodes the value stored under key into dst and reports whether it did.
	// A missing key or malformed content leaves dst untouched, so callers pre-populate dst with their default.
	// Malformed content is logged, never returned.
	Load(key string, dst interface{}) bool
	// Save encodes value and replaces whatever was stored under key.
	Save(key string, value interface{}) error
	// Remove deletes key. Removing an unknown key is not an error.
	Remove(key string) error
}

// Persistence keys.
const (
	KeyUsers             = "users"
	KeyChildren          = "children"
	KeyAttendance        = "attendance"
	KeyTeacherAttendance = "teacherAttendance"
	KeyPayments          = "payments"
	KeyPaymentReceipts   = "paymentReceipts"
)
