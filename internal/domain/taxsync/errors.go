package taxsync

import "errors"

// Sentinel errors for the synchronization engine
var (
	// ErrInvalidTransition indicates an illegal state machine transition
	ErrInvalidTransition = errors.New("taxsync: invalid status transition")
	// ErrMissingExternalID indicates an operation that needs a remote
	// identifier was attempted before one was assigned
	ErrMissingExternalID = errors.New("taxsync: record has no external ID")
	// ErrMissingReason indicates a cancellation without a reason
	ErrMissingReason = errors.New("taxsync: cancellation requires a reason")
	// ErrInvalidPayload indicates the payload failed local validation
	ErrInvalidPayload = errors.New("taxsync: invalid payload")
	// ErrGatewayUnavailable indicates the remote API could not be reached
	ErrGatewayUnavailable = errors.New("taxsync: tax authority unreachable")
)

// Remote status strings reported by the tax authority's processing
// pipeline for submitted invoices
const (
	RemoteStatusPending  = "pending"
	RemoteStatusAccepted = "accepted"
	RemoteStatusRejected = "rejected"
)
