package errs

// ErrorKind identifies a kind of internal error.
// fully support for errors.Is and errors.As.
type ErrorKind string

const (
	// NotFound is returned when a requested item is not found.
	NotFound = ErrorKind("Not Found")

	// InvalidArgument is returned when an argument is malformed or out of range.
	InvalidArgument = ErrorKind("Invalid Argument")

	// Unsupported is returned when a feature or value is not supported.
	Unsupported = ErrorKind("Unsupported")

	// ConflictSetting is returned when persisted state conflicts with the running configuration.
	ConflictSetting = ErrorKind("Conflict Setting")

	InternalError = ErrorKind("Internal Error")

	Timeout = ErrorKind("Timeout")

	// TransientService is returned when an external service is unreachable, times out,
	// or answers with a retryable status. The operation may succeed if retried.
	TransientService = ErrorKind("Transient Service Failure")

	// ValidationRejected marks a protocol rule violation. Rejections are recorded as
	// outcomes, this kind only surfaces when a rejection must travel as an error.
	ValidationRejected = ErrorKind("Validation Rejected")

	// PersistenceConflict is returned when a commit hits a unique violation,
	// a serialization failure or a deadlock. The commit is retried against fresh state.
	PersistenceConflict = ErrorKind("Persistence Conflict")

	// RetryExhausted is returned when the immediate retry budget of an operation is spent.
	RetryExhausted = ErrorKind("Retry Exhausted")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}
