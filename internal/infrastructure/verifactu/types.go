package verifactu

// apiResponse is the envelope every Verifactu endpoint replies with
type apiResponse struct {
	ID      string `json:"id,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   struct {
		Code    string `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error,omitempty"`
}

// cancelRequest is the body of an invoice cancellation call
type cancelRequest struct {
	Reason string `json:"reason"`
}
