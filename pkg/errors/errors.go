package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation           = errors.New("validation failed")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanAlreadyCompleted = errors.New("this loan has already been completed")
	ErrDependency           = errors.New("dependency failure")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeLoanNotFound         = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyCompleted = "LOAN_ALREADY_COMPLETED"
	ErrCodeDependency           = "DEPENDENCY_ERROR"
	ErrCodeDatabaseError        = "DATABASE_ERROR"
)

// Wrap common errors with business context
func WrapValidation(message string) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, ErrValidation)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyCompleted(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyCompleted,
		fmt.Sprintf("Loan with ID %s has already been completed", loanID),
		ErrLoanAlreadyCompleted,
	)
}

// WrapDependency marks a collaborator failure (notification delivery, reminder ledger).
func WrapDependency(dependency string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDependency,
		fmt.Sprintf("%s unavailable", dependency),
		fmt.Errorf("%w: %w", ErrDependency, err),
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

// Code returns the BusinessError code carried by err, or "" when there is none.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
