package taxsync

import "time"

// Result is the normalized outcome of any remote call against the tax
// authority, in either operating mode. Success == false implies Error is
// set. Simulated is true whenever the call was served by the stub path
// instead of a live HTTP request, so callers can always tell "looks
// synced" from "actually reached the tax authority".
type Result struct {
	Success    bool      `json:"success"`
	ExternalID string    `json:"external_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	Simulated  bool      `json:"simulated"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Failure builds a failed result with the given error description
func Failure(err string, simulated bool) *Result {
	return &Result{
		Success:   false,
		Error:     err,
		Simulated: simulated,
		CheckedAt: time.Now(),
	}
}
