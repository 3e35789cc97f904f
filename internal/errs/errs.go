// Package errs defines the classified error type shared by every bridge
// component. The gateway, ledger, amount engine, signer client and
// coordinator return a *Error; the rpc transport and config loader return
// plain errors, which the gateway and daemons wrap or report.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes errors for HTTP mapping and retry decisions.
type Kind int

const (
	// Validation errors are caller mistakes detectable without chain state.
	Validation Kind = iota

	// Precondition errors are state conflicts: the request was well-formed but
	// the transfer or chain is not in a state that allows it.
	Precondition

	// Upstream errors come from a chain node, the signer service, or a decode
	// failure of their responses. Before the origin hash is recorded the
	// transfer stays PENDING; after it, only Transient codes keep it PENDING.
	Upstream

	// Internal errors are bugs or infrastructure failures. Never transition
	// transfer state.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "Validation"
	case Precondition:
		return "Precondition"
	case Upstream:
		return "Upstream"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Code identifies the precise failure. Codes are stable API surface.
type Code string

const (
	// Validation codes
	CodeInvalidAmount        Code = "InvalidAmount"
	CodeSameNetwork          Code = "SameNetwork"
	CodeBadHash              Code = "BadHash"
	CodeUnsupportedAsset     Code = "UnsupportedAsset"
	CodeTokenNetworkMismatch Code = "TokenNetworkMismatch"
	CodeUnknownNetwork       Code = "UnknownNetwork"
	CodeUnknownToken         Code = "UnknownToken"
	CodeUnknownTransfer      Code = "UnknownTransfer"
	CodeAddressParse         Code = "AddressParse"

	// Precondition codes
	CodeIllegalTransition         Code = "IllegalTransition"
	CodeAlreadyFinalized          Code = "AlreadyFinalized"
	CodeInsufficientBalance       Code = "InsufficientBalance"
	CodeInsufficientConfirmations Code = "InsufficientConfirmations"
	CodeOnChainMismatch           Code = "OnChainMismatch"

	// Upstream codes
	CodeChainUnavailable  Code = "ChainUnavailable"
	CodeSignerUnavailable Code = "SignerUnavailable"
	CodeDecodeError       Code = "DecodeError"
	CodeReceiptTimeout    Code = "ReceiptTimeout"
	CodeNotFound          Code = "NotFound"

	// Internal codes
	CodeAmountOverflow Code = "AmountOverflow"
	CodeLedgerError    Code = "LedgerError"
	CodeBug            Code = "Bug"
)

// Error is the classified bridge error.
type Error struct {
	Kind    Kind
	Code    Code
	Field   string // populated for OnChainMismatch: "from", "to" or "value"
	Message string
	Cause   error
}

func (e *Error) Error() string {
	code := string(e.Code)
	if e.Field != "" {
		code = fmt.Sprintf("%s{%s}", code, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates a classified error around a cause.
func Wrap(kind Kind, code Code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// Validationf builds a Validation error with a formatted message.
func Validationf(code Code, format string, args ...interface{}) *Error {
	return &Error{Kind: Validation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Preconditionf builds a Precondition error with a formatted message.
func Preconditionf(code Code, format string, args ...interface{}) *Error {
	return &Error{Kind: Precondition, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Upstreamf builds an Upstream error with a formatted message.
func Upstreamf(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: Upstream, Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Internalf builds an Internal error with a formatted message.
func Internalf(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: Internal, Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Mismatch builds the OnChainMismatch error for a specific envelope field.
func Mismatch(field, message string) *Error {
	return &Error{Kind: Precondition, Code: CodeOnChainMismatch, Field: field, Message: message}
}

// CodeOf extracts the Code from err, or CodeBug if err is not classified.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeBug
}

// KindOf extracts the Kind from err, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Transient reports whether the failure is safe to retry without state change.
func Transient(err error) bool {
	switch CodeOf(err) {
	case CodeChainUnavailable, CodeSignerUnavailable, CodeReceiptTimeout:
		return true
	default:
		return false
	}
}

// HTTPStatus maps an error to the HTTP status for the fail envelope.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Precondition:
		return http.StatusConflict
	case Upstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
