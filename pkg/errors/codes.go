package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeMessagingError     ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Aliases used across layers.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Canonicalization Module Error Codes
const (
	ErrCodeMalformedPattern   ErrorCode = "CANON_001"
	ErrCodeNoHamiltonianPath  ErrorCode = "CANON_002"
	ErrCodeUnknownEmbedding   ErrorCode = "CANON_003"
	ErrCodeMalformedReaction  ErrorCode = "CANON_004"
	ErrCodePatternTooLarge    ErrorCode = "CANON_005"
	ErrCodeInvalidEmbedding   ErrorCode = "CANON_006"
	ErrCodeSerializationFault ErrorCode = "CANON_007"
)

// Rule Library Error Codes
const (
	ErrCodeRuleNotFound      ErrorCode = "RULE_001"
	ErrCodeRuleAlreadyExists ErrorCode = "RULE_002"
	ErrCodeRuleImportLocked  ErrorCode = "RULE_003"
	ErrCodeRuleFileInvalid   ErrorCode = "RULE_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,
	ErrCodeFeatureDisabled:    http.StatusForbidden,

	ErrCodeMalformedPattern:   http.StatusBadRequest,
	ErrCodeNoHamiltonianPath:  http.StatusUnprocessableEntity,
	ErrCodeUnknownEmbedding:   http.StatusBadRequest,
	ErrCodeMalformedReaction:  http.StatusBadRequest,
	ErrCodePatternTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeInvalidEmbedding:   http.StatusBadRequest,
	ErrCodeSerializationFault: http.StatusInternalServerError,

	ErrCodeRuleNotFound:      http.StatusNotFound,
	ErrCodeRuleAlreadyExists: http.StatusConflict,
	ErrCodeRuleImportLocked:  http.StatusConflict,
	ErrCodeRuleFileInvalid:   http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeMessagingError:     "messaging error",
	ErrCodeFeatureDisabled:    "feature disabled",

	ErrCodeMalformedPattern:   "malformed SMARTS pattern",
	ErrCodeNoHamiltonianPath:  "no traversal covers every atom of the pattern",
	ErrCodeUnknownEmbedding:   "unknown embedding preset",
	ErrCodeMalformedReaction:  "malformed reaction SMARTS",
	ErrCodePatternTooLarge:    "pattern exceeds the configured atom limit",
	ErrCodeInvalidEmbedding:   "invalid embedding table",
	ErrCodeSerializationFault: "failed to serialize canonical pattern",

	ErrCodeRuleNotFound:      "rule not found",
	ErrCodeRuleAlreadyExists: "rule already exists",
	ErrCodeRuleImportLocked:  "rule library import already in progress",
	ErrCodeRuleFileInvalid:   "invalid rule file",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
