package usecase

import (
	"errors"
	"fmt"
)

const (
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodeInvalidPayload     = "INVALID_PAYLOAD"
	CodeMissingFields      = "MISSING_FIELDS"
	CodeUnresolvableEntity = "UNRESOLVABLE_ENTITY"
	CodeNotFound           = "NOT_FOUND"
	CodeNotConfigured      = "NOT_CONFIGURED"
	CodeStoreError         = "STORE_ERROR"
	CodeIntegrationError   = "INTEGRATION_ERROR"
)

// DomainError is a problem with the request itself. Providers should not
// retry it.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func newDomainError(code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// DomainCode returns the code of the first DomainError in err's chain.
func DomainCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// TechnicalError is a failure on our side or a dependency's. Providers retry
// these.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) *TechnicalError {
	return &TechnicalError{Code: CodeStoreError, Message: op, Err: err}
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

var ErrInvalidSignature = &DomainError{Code: CodeInvalidSignature, Message: "invalid webhook signature"}
