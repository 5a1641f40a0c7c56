package errors

// ErrorCode identifies a failure class. Codes are "<package>_<reason>"
// strings and double as the error_code log field.
type ErrorCode string

// Coded is implemented by every error carrying an ErrorCode
type Coded interface {
	Code() ErrorCode
}

// Error is a coded error with an optional cause and structured data.
// Two Errors match under Is when their codes are equal.
type Error interface {
	error
	Coded
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
