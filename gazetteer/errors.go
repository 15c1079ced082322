// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for the failure kinds of a run.
var (
	// ErrCacheCorrupt is returned when the cache file exists but cannot be
	// parsed. It aborts the run before any resolution is attempted.
	ErrCacheCorrupt = errors.New("cache corrupt")
	// ErrPersistFailure is returned when the cache or the output cannot be
	// written.
	ErrPersistFailure = errors.New("persist failure")
	// ErrResolutionUnavailable is matched by every provider failure.
	ErrResolutionUnavailable = errors.New("resolution unavailable")
	// ErrEmptyQuery marks rows skipped because their place name is blank.
	ErrEmptyQuery = errors.New("empty query")
	// ErrRecordExists is returned when appending a raw name already cached.
	ErrRecordExists = errors.New("record already exists")
	// ErrUnresolvedRecord is returned when appending a record without a
	// suggested name.
	ErrUnresolvedRecord = errors.New("record has no suggested name")
)

// CorruptError describes where the cache file could not be parsed.
type CorruptError struct {
	Path string
	Line int
	Err  error
}

func (e *CorruptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("cache %s corrupt at line %d: %v", e.Path, e.Line, e.Err)
	}

	return fmt.Sprintf("cache %s corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Is reports CorruptError as ErrCacheCorrupt.
func (e *CorruptError) Is(target error) bool {
	return target == ErrCacheCorrupt
}

// ErrorType classifies provider failures.
type ErrorType int

const (
	// ErrorTypeUnknown unknown failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit the provider throttled the caller.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded the caller's quota is exhausted.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout the request timed out.
	ErrorTypeTimeout
	// ErrorTypeInvalidRequest the provider rejected the request.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError transport failure or unavailable service.
	ErrorTypeNetworkError
	// ErrorTypeAuth missing or rejected credentials.
	ErrorTypeAuth
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeQuotaExceeded:
		return "quota_exceeded"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeInvalidRequest:
		return "invalid_request"
	case ErrorTypeNetworkError:
		return "network"
	case ErrorTypeAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// ResolutionError is a failed Suggest or Geocode call.
type ResolutionError struct {
	Type     ErrorType
	Provider string
	Op       string // suggest, geocode
	Message  string
	Err      error
}

func (e *ResolutionError) Error() string {
	var b strings.Builder

	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(" ")
	}

	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is reports every ResolutionError as ErrResolutionUnavailable.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolutionUnavailable
}

// IsRateLimitError reports whether err is a provider rate limit.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr.Type == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsQuotaExceededError reports whether err is an exhausted provider quota.
func IsQuotaExceededError(err error) bool {
	if err == nil {
		return false
	}

	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr.Type == ErrorTypeQuotaExceeded
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "over_daily_limit") ||
		strings.Contains(errStr, "quota exceeded")
}

// IsTimeoutError reports whether err is a timed out provider call.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr.Type == ErrorTypeTimeout
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// ClassifyHTTPError maps a non-200 HTTP status into a ResolutionError.
func ClassifyHTTPError(statusCode int, _ string) *ResolutionError {
	switch statusCode {
	case http.StatusTooManyRequests: // 429
		return &ResolutionError{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit reached",
		}
	case http.StatusUnauthorized: // 401
		return &ResolutionError{
			Type:    ErrorTypeAuth,
			Message: "unauthorized",
		}
	case http.StatusForbidden: // 403
		return &ResolutionError{
			Type:    ErrorTypeQuotaExceeded,
			Message: "quota exceeded or access denied",
		}
	case http.StatusBadRequest: // 400
		return &ResolutionError{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &ResolutionError{
			Type:    ErrorTypeNetworkError,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		return &ResolutionError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("HTTP error %d", statusCode),
		}
	}
}

// ClassifyGoogleStatus maps a Google Maps API "status" field into a
// ResolutionError. OK and ZERO_RESULTS are not errors and return nil.
func ClassifyGoogleStatus(status, message string) *ResolutionError {
	var t ErrorType

	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "OVER_QUERY_LIMIT":
		t = ErrorTypeRateLimit
	case "OVER_DAILY_LIMIT":
		t = ErrorTypeQuotaExceeded
	case "REQUEST_DENIED":
		t = ErrorTypeAuth
	case "INVALID_REQUEST":
		t = ErrorTypeInvalidRequest
	default:
		t = ErrorTypeUnknown
	}

	msg := "status " + status
	if message != "" {
		msg += " (" + message + ")"
	}

	return &ResolutionError{Type: t, Message: msg}
}
