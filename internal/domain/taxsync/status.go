package taxsync

// Status is the lifecycle state of a local record's relationship with the
// tax-authority system. A record is created locally in Draft, becomes
// Pending once registered remotely, and (invoices only) moves through
// Submitted to a terminal Accepted or Rejected. Cancelled and Error are
// reachable as documented on CanTransitionTo.
type Status string

const (
	// StatusDraft is the local-only initial state
	StatusDraft Status = "draft"
	// StatusPending means the record is registered with the tax authority
	StatusPending Status = "pending"
	// StatusSubmitted means the record has been handed to the authority's
	// processing pipeline (invoices only)
	StatusSubmitted Status = "submitted"
	// StatusAccepted is terminal for the submission cycle
	StatusAccepted Status = "accepted"
	// StatusRejected is terminal for the submission cycle; a corrected
	// resubmission starts a new cycle from Pending
	StatusRejected Status = "rejected"
	// StatusCancelled is terminal; reachable from Pending or Submitted
	StatusCancelled Status = "cancelled"
	// StatusError marks a failed remote call; the local record is preserved
	StatusError Status = "error"
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusSubmitted, StatusAccepted,
		StatusRejected, StatusCancelled, StatusError:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transition is allowed within the
// current submission cycle
func (s Status) IsTerminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to target is a legal
// transition of the synchronization state machine
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusPending || target == StatusError
	case StatusPending:
		return target == StatusSubmitted || target == StatusCancelled ||
			target == StatusError || target == StatusAccepted
	case StatusSubmitted:
		return target == StatusAccepted || target == StatusRejected ||
			target == StatusCancelled || target == StatusError
	case StatusError:
		// A retry restarts wherever the failed call was headed
		return target == StatusPending || target == StatusSubmitted ||
			target == StatusCancelled
	case StatusRejected:
		// Corrected resubmission starts a new cycle
		return target == StatusPending
	case StatusAccepted, StatusCancelled:
		return false
	default:
		return false
	}
}
