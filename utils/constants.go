package utils

import (
	"context"
	"time"
)

// Request handling constants
const (
	// DefaultRequestTimeout bounds a single pricing request
	DefaultRequestTimeout = 10 * time.Second

	// InquiryRequestTimeout leaves room for email delivery retries
	InquiryRequestTimeout = 45 * time.Second

	// AdminRequestTimeout covers rule reloads and spreadsheet fetches
	AdminRequestTimeout = 60 * time.Second
)

// Security constants
const (
	// AdminTokenHeader carries the shared admin secret
	AdminTokenHeader = "X-Admin-Token"

	// AdminRole is the JWT role granting pricing overrides
	AdminRole = "pricing_admin"
)

// Fiber locals keys
const (
	LocalsPrivileged = "privileged"
)

type contextKey string

// Context keys set by handlers for downstream logging
const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
)

// RequestIDFromContext returns the request id stored by a handler, if any.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}
