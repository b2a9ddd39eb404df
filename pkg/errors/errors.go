package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeLaunch represents browser launch failures
	ErrorTypeLaunch ErrorType = "launch"
	// ErrorTypeNavigation represents navigation failures (timeout, bad status, network)
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeExtraction represents page-script or parsing failures during extraction
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeStore represents document store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeLedger represents purchase ledger errors
	ErrorTypeLedger ErrorType = "ledger"
	// ErrorTypeValidation represents input validation errors
	ErrorTypeValidation ErrorType = "validation"
)

// StorefrontError represents a component-specific error
type StorefrontError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *StorefrontError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *StorefrontError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if a later attempt could succeed
func (e *StorefrontError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeLaunch, ErrorTypeNavigation, ErrorTypeExtraction:
		return true
	default:
		return false
	}
}

// New creates a new StorefrontError
func New(errType ErrorType, component, message string, err error) *StorefrontError {
	return &StorefrontError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewLaunch creates a new browser launch error
func NewLaunch(component, message string, err error) *StorefrontError {
	return New(ErrorTypeLaunch, component, message, err)
}

// NewNavigation creates a new navigation error
func NewNavigation(component, message string, err error) *StorefrontError {
	return New(ErrorTypeNavigation, component, message, err)
}

// NewExtraction creates a new extraction error
func NewExtraction(component, message string, err error) *StorefrontError {
	return New(ErrorTypeExtraction, component, message, err)
}

// NewCache creates a new cache error
func NewCache(component, message string, err error) *StorefrontError {
	return New(ErrorTypeCache, component, message, err)
}

// NewStore creates a new document store error
func NewStore(component, message string, err error) *StorefrontError {
	return New(ErrorTypeStore, component, message, err)
}

// NewLedger creates a new ledger error
func NewLedger(component, message string, err error) *StorefrontError {
	return New(ErrorTypeLedger, component, message, err)
}

// NewValidation creates a new validation error
func NewValidation(component, message string) *StorefrontError {
	return New(ErrorTypeValidation, component, message, nil)
}
