package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the user-facing category of a failure.
type ErrorKind string

const (
	ErrorKindProviderUnavailable  ErrorKind = "PROVIDER_UNAVAILABLE"
	ErrorKindUserRejected         ErrorKind = "USER_REJECTED"
	ErrorKindWrongNetwork         ErrorKind = "WRONG_NETWORK"
	ErrorKindChainUnregistered    ErrorKind = "CHAIN_UNREGISTERED"
	ErrorKindSwitchFailed         ErrorKind = "SWITCH_FAILED"
	ErrorKindVerificationPending  ErrorKind = "VERIFICATION_PENDING"
	ErrorKindVerificationRejected ErrorKind = "VERIFICATION_REJECTED"
	ErrorKindInsufficientFunds    ErrorKind = "INSUFFICIENT_FUNDS"
	ErrorKindRateLimited          ErrorKind = "RATE_LIMITED"
	ErrorKindNotConnected         ErrorKind = "NOT_CONNECTED"
	ErrorKindConfigUnavailable    ErrorKind = "CONFIG_UNAVAILABLE"
	ErrorKindInvalidQuantity      ErrorKind = "INVALID_QUANTITY"
	ErrorKindBusy                 ErrorKind = "BUSY"
	ErrorKindUnknown              ErrorKind = "UNKNOWN"
)

// MintError is a classified failure carrying the message shown to the user.
type MintError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *MintError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *MintError) Unwrap() error {
	return e.Err
}

// NewMintError builds a MintError without an underlying cause.
func NewMintError(kind ErrorKind, format string, args ...any) *MintError {
	return &MintError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// EIP-1193 provider error codes.
const (
	ProviderCodeUserRejected      = 4001
	ProviderCodeUnauthorized      = 4100
	ProviderCodeUnsupportedMethod = 4200
	ProviderCodeDisconnected      = 4900
	ProviderCodeChainDisconnected = 4901
	ProviderCodeUnrecognizedChain = 4902
	ProviderCodeInternal          = -32603
)

// ProviderError is an error raised by a wallet provider. It satisfies the
// go-ethereum rpc.Error and rpc.DataError interfaces.
type ProviderError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Cause   error  `json:"-"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

func (e *ProviderError) ErrorCode() int {
	return e.Code
}

func (e *ProviderError) ErrorData() interface{} {
	return e.Data
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ProviderCode returns the provider error code carried by err, if any.
func ProviderCode(err error) (int, bool) {
	var coded interface{ ErrorCode() int }
	if !errors.As(err, &coded) {
		return 0, false
	}
	return coded.ErrorCode(), true
}
