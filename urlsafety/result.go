package urlsafety

import (
	"errors"
	"fmt"
)

// ErrorCode names the reason a URL was rejected.
type ErrorCode string

// Error codes reported in ValidationResult.ErrorCode.
const (
	CodeInvalidURL        ErrorCode = "INVALID_URL"
	CodeDangerousProtocol ErrorCode = "DANGEROUS_PROTOCOL"
	CodePrivateIP         ErrorCode = "PRIVATE_IP"
	CodeLocalhost         ErrorCode = "LOCALHOST"
	CodeCloudMetadata     ErrorCode = "CLOUD_METADATA"
	CodeDataURLNotAllowed ErrorCode = "DATA_URL_NOT_ALLOWED"
	CodeBlobURLNotAllowed ErrorCode = "BLOB_URL_NOT_ALLOWED"
)

// Sentinel errors, one per code. A *ValidationError matches the sentinel of
// its code under errors.Is.
var (
	ErrInvalidURL        = errors.New("invalid URL")
	ErrDangerousProtocol = errors.New("dangerous protocol")
	ErrPrivateIP         = errors.New("private IP addresses are not allowed")
	ErrLocalhost         = errors.New("localhost URLs are not allowed")
	ErrCloudMetadata     = errors.New("cloud metadata endpoints are not allowed")
	ErrDataURLNotAllowed = errors.New("data URLs are not allowed")
	ErrBlobURLNotAllowed = errors.New("blob URLs are not allowed")
)

var sentinels = map[ErrorCode]error{
	CodeInvalidURL:        ErrInvalidURL,
	CodeDangerousProtocol: ErrDangerousProtocol,
	CodePrivateIP:         ErrPrivateIP,
	CodeLocalhost:         ErrLocalhost,
	CodeCloudMetadata:     ErrCloudMetadata,
	CodeDataURLNotAllowed: ErrDataURLNotAllowed,
	CodeBlobURLNotAllowed: ErrBlobURLNotAllowed,
}

// Codes lists every error code in a stable order.
func Codes() []ErrorCode {
	return []ErrorCode{
		CodeInvalidURL,
		CodeDangerousProtocol,
		CodePrivateIP,
		CodeLocalhost,
		CodeCloudMetadata,
		CodeDataURLNotAllowed,
		CodeBlobURLNotAllowed,
	}
}

// ValidationResult is the verdict for a single URL.
type ValidationResult struct {
	IsValid       bool      `json:"isValid"`
	ErrorCode     ErrorCode `json:"errorCode,omitempty"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	NormalizedURL string    `json:"normalizedUrl,omitempty"`
}

func valid(normalized string) ValidationResult {
	return ValidationResult{IsValid: true, NormalizedURL: normalized}
}

func invalid(code ErrorCode, msg string) ValidationResult {
	return ValidationResult{ErrorCode: code, ErrorMessage: msg}
}

// Err returns nil for a valid result, otherwise a *ValidationError.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return &ValidationError{Code: r.ErrorCode, Message: r.ErrorMessage}
}

// ValidationError carries a rejected verdict as an error value.
type ValidationError struct {
	Code    ErrorCode
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is the sentinel for e.Code.
func (e *ValidationError) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}
