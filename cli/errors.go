package cli

// ErrorCode defines error types for CLI operations
type ErrorCode string

const (
	ErrInvalidArguments ErrorCode = "InvalidArguments"
	ErrUnknownBackend   ErrorCode = "UnknownBackend"
	ErrInvalidResources ErrorCode = "InvalidResources"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
