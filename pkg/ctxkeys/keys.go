// Package ctxkeys defines typed context keys shared by middleware and
// handlers.
package ctxkeys

// Key is a typed context key to prevent collisions.
type Key string

const (
	KeyRequestID   Key = "request_id"
	KeyRequesterID Key = "requester_id"
	KeyEmail       Key = "email"
	KeyRole        Key = "role"
	KeyAuthType    Key = "auth_type"
)
