package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode identifies a specific failure of the asset subsystem.
type ErrorCode string

const (
	// Validation errors, raised before any I/O.
	ErrValidation       ErrorCode = "VALIDATION_FAILED"
	ErrDuplicateCommand ErrorCode = "DUPLICATE_COMMAND"
	ErrCommandTooLong   ErrorCode = "COMMAND_TOO_LONG"
	ErrInvalidIndex     ErrorCode = "INVALID_INDEX"

	// Acquisition errors (remote fetch).
	ErrAcquisition ErrorCode = "ACQUISITION_FAILED"

	// Storage errors (filesystem, transcode, compression tool).
	ErrStorage ErrorCode = "STORAGE_FAILED"

	// Lookup errors.
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrUnknownCommand ErrorCode = "UNKNOWN_COMMAND"
)

// Kind groups error codes into the categories the dispatcher reports on.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAcquisition
	KindStorage
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAcquisition:
		return "acquisition"
	case KindStorage:
		return "storage"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// AssetError is the structured error returned by the registry and pipeline.
type AssetError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Command   string                 `json:"command,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface.
func (ae *AssetError) Error() string {
	msg := fmt.Sprintf("[%s] %s", ae.Code, ae.Message)
	if ae.Command != "" {
		msg = fmt.Sprintf("[%s] %s (command: %s)", ae.Code, ae.Message, ae.Command)
	}
	if ae.Cause != nil {
		return msg + ": " + ae.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (ae *AssetError) Unwrap() error {
	return ae.Cause
}

// Is reports whether target is an *AssetError with the same code, so that
// errors.Is(err, &AssetError{Code: ErrNotFound}) matches.
func (ae *AssetError) Is(target error) bool {
	t, ok := target.(*AssetError)
	if !ok {
		return false
	}
	return t.Code == ae.Code
}

// Kind returns the category of the error code.
func (ae *AssetError) Kind() Kind {
	switch ae.Code {
	case ErrValidation, ErrDuplicateCommand, ErrCommandTooLong, ErrInvalidIndex:
		return KindValidation
	case ErrAcquisition:
		return KindAcquisition
	case ErrStorage:
		return KindStorage
	case ErrNotFound, ErrUnknownCommand:
		return KindNotFound
	default:
		return KindUnknown
	}
}

// NewAssetError creates a new structured error.
func NewAssetError(code ErrorCode, message string) *AssetError {
	return &AssetError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// WithCommand records the chat command the error relates to.
func (ae *AssetError) WithCommand(command string) *AssetError {
	ae.Command = command
	return ae
}

// WithCause adds the underlying cause error.
func (ae *AssetError) WithCause(err error) *AssetError {
	ae.Cause = err
	return ae
}

// WithContext adds arbitrary context to the error.
func (ae *AssetError) WithContext(key string, value interface{}) *AssetError {
	ae.Context[key] = value
	return ae
}

// AsAssetError unwraps err until it finds an *AssetError.
func AsAssetError(err error) (*AssetError, bool) {
	var ae *AssetError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// HasErrorCode checks if any error in the chain carries code.
func HasErrorCode(err error, code ErrorCode) bool {
	if ae, ok := AsAssetError(err); ok {
		return ae.Code == code
	}
	return false
}

// KindOf classifies any error; plain errors are KindUnknown.
func KindOf(err error) Kind {
	if ae, ok := AsAssetError(err); ok {
		return ae.Kind()
	}
	return KindUnknown
}

func IsValidation(err error) bool  { return KindOf(err) == KindValidation }
func IsAcquisition(err error) bool { return KindOf(err) == KindAcquisition }
func IsStorage(err error) bool     { return KindOf(err) == KindStorage }
func IsNotFound(err error) bool    { return KindOf(err) == KindNotFound }

func NewValidationError(message string) *AssetError {
	return NewAssetError(ErrValidation, message)
}

func NewDuplicateCommandError(command string) *AssetError {
	return NewAssetError(ErrDuplicateCommand, "command already exists").WithCommand(command)
}

func NewCommandTooLongError(command string, length, limit int) *AssetError {
	return NewAssetError(ErrCommandTooLong, "command is too long").
		WithCommand(command).
		WithContext("length", length).
		WithContext("limit", limit)
}

func NewInvalidIndexError(raw string) *AssetError {
	return NewAssetError(ErrInvalidIndex, "index is not a number").WithContext("index", raw)
}

func NewAcquisitionError(url string, cause error) *AssetError {
	return NewAssetError(ErrAcquisition, "failed to fetch remote resource").
		WithContext("url", url).
		WithCause(cause)
}

func NewStorageError(operation, path string, cause error) *AssetError {
	return NewAssetError(ErrStorage, operation+" failed").
		WithContext("path", path).
		WithCause(cause)
}

func NewIndexOutOfRangeError(index, length int) *AssetError {
	return NewAssetError(ErrNotFound, "index out of range").
		WithContext("index", index).
		WithContext("length", length)
}

func NewUnknownCommandError(command string) *AssetError {
	return NewAssetError(ErrUnknownCommand, "unrecognized command").WithCommand(command)
}
