// internal/common/errors/errors.go
// Package errors provides standardized error handling for the job lifecycle
// engine and its BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Entitlement / subscription errors — user-correctable, never retried.
const (
	ErrCodeEntitlementExhausted  ErrorCode = "ENTITLEMENT_EXHAUSTED"
	ErrCodeSubscriptionNotFound  ErrorCode = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeSubscriptionExpired   ErrorCode = "SUBSCRIPTION_EXPIRED"
	ErrCodeFreeTierThrottled     ErrorCode = "FREE_TIER_THROTTLED"
	ErrCodeCrossCountryPosting   ErrorCode = "CROSS_COUNTRY_POSTING"
	ErrCodeLocalityNotEntitled   ErrorCode = "LOCALITY_NOT_ENTITLED"
	ErrCodeInsufficientWallet    ErrorCode = "INSUFFICIENT_WALLET_BALANCE"
	ErrCodeEntitlementCheckError ErrorCode = "ENTITLEMENT_CHECK_FAILED"
)

// Lifecycle transition errors.
const (
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeAlreadyArchived   ErrorCode = "ALREADY_ARCHIVED"
	ErrCodeAllPositionsFull  ErrorCode = "ALL_POSITIONS_FILLED"
	ErrCodeAlreadyHired      ErrorCode = "ALREADY_HIRED"
	ErrCodeJobNotFound       ErrorCode = "JOB_NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
)

// Storage / upstream errors.
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseWriteFailed      ErrorCode = "DATABASE_WRITE_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeTranslationFailed        ErrorCode = "TRANSLATION_SERVICE_FAILED"
	ErrCodePricingLookupFailed      ErrorCode = "PRICING_LOOKUP_FAILED"
	ErrCodeCatalogLookupFailed      ErrorCode = "CATALOG_LOOKUP_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeCRMSyncFailed            ErrorCode = "CRM_SYNC_FAILED"
	ErrCodeIndexingFailed           ErrorCode = "SEARCH_INDEXING_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewEntitlementExhaustedError reports a quota shortfall. The message carries
// the exact user-facing reason ("job posting limit reached", ...).
func NewEntitlementExhaustedError(reason, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEntitlementExhausted,
		Message:   reason,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInsufficientWalletError reports a wallet balance shortfall.
func NewInsufficientWalletError(required, available float64) *StandardError {
	return &StandardError{
		Code:      ErrCodeInsufficientWallet,
		Message:   "insufficient wallet balance",
		Details:   fmt.Sprintf("required: %.2f, available: %.2f", required, available),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFreeTierThrottledError reports the one-post-per-window rejection for
// employers without a subscription.
func NewFreeTierThrottledError(windowDays int) *StandardError {
	return &StandardError{
		Code:      ErrCodeFreeTierThrottled,
		Message:   fmt.Sprintf("free tier, one job per %d days", windowDays),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubscriptionNotFoundError creates a non-retryable subscription error.
func NewSubscriptionNotFoundError(employerID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubscriptionNotFound,
		Message:   "no active subscription for employer",
		Details:   fmt.Sprintf("employerId: %s", employerID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubscriptionExpiredError creates a non-retryable subscription error.
func NewSubscriptionExpiredError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubscriptionExpired,
		Message:   "subscription has expired",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCrossCountryError rejects posting outside the subscription's country.
func NewCrossCountryError(jobCountry, subCountry string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCrossCountryPosting,
		Message:   "posting country does not match subscription country",
		Details:   fmt.Sprintf("job: %s, subscription: %s", jobCountry, subCountry),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError reports an illegal lifecycle transition.
func NewInvalidTransitionError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyArchivedError is the explicit rejected-but-non-fatal archive outcome.
func NewAlreadyArchivedError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadyArchived,
		Message:   "job is already archived",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAllPositionsFilledError rejects a hire beyond remaining capacity.
func NewAllPositionsFilledError(jobID string, requested, remaining int) *StandardError {
	return &StandardError{
		Code:      ErrCodeAllPositionsFull,
		Message:   "all positions filled",
		Details:   fmt.Sprintf("jobId: %s, requested: %d, remaining: %d", jobID, requested, remaining),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobNotFoundError creates a non-retryable not-found error.
func NewJobNotFoundError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobNotFound,
		Message:   "job not found",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError reports a caller acting on a resource it does not own.
func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "caller does not own this resource",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseWriteFailedError creates a retryable storage error.
func NewDatabaseWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseWriteFailed,
		Message:   "database write operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTranslationFailedError reports the translation collaborator failing hard
// enough that a requested sibling cannot be materialized.
func NewTranslationFailedError(language string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTranslationFailed,
		Message:   "translation service error",
		Details:   fmt.Sprintf("language: %s, error: %s", language, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPricingLookupFailedError creates a retryable rate-card lookup error.
func NewPricingLookupFailedError(country, feature string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePricingLookupFailed,
		Message:   "pricing lookup failed",
		Details:   fmt.Sprintf("country: %s, feature: %s, error: %s", country, feature, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count per error code. Business
// rejections never retry; transient storage and upstream calls do.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseWriteFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeEntitlementCheckError,
		ErrCodeNotificationSendFailed,
		ErrCodeCRMSyncFailed,
		ErrCodeIndexingFailed:
		return 3

	case ErrCodeTranslationFailed,
		ErrCodePricingLookupFailed,
		ErrCodeCatalogLookupFailed:
		return 2

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// IsUserCorrectable reports whether the rejection should surface verbatim to
// the caller instead of as a generic failure.
func IsUserCorrectable(code ErrorCode) bool {
	switch code {
	case ErrCodeEntitlementExhausted, ErrCodeInsufficientWallet,
		ErrCodeFreeTierThrottled, ErrCodeCrossCountryPosting,
		ErrCodeLocalityNotEntitled, ErrCodeInvalidTransition,
		ErrCodeAlreadyArchived, ErrCodeAllPositionsFull, ErrCodeAlreadyHired:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ENTITLEMENT") || strings.Contains(codeStr, "WALLET") ||
		strings.Contains(codeStr, "SUBSCRIPTION") || strings.Contains(codeStr, "FREE_TIER"):
		return "ENTITLEMENT"
	case strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "ARCHIVED") ||
		strings.Contains(codeStr, "POSITIONS") || strings.Contains(codeStr, "HIRED"):
		return "LIFECYCLE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "TRANSLATION") || strings.Contains(codeStr, "PRICING") ||
		strings.Contains(codeStr, "CATALOG"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "CRM") ||
		strings.Contains(codeStr, "INDEXING"):
		return "DISPATCH"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	default:
		return "OTHER"
	}
}
