package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/gestionet/backend/internal/domain/fiscal"
)

// FiscalHandler exposes fiscal identifier validation as an API endpoint
type FiscalHandler struct {
	BaseHandler
}

// NewFiscalHandler creates a new FiscalHandler
func NewFiscalHandler() *FiscalHandler {
	return &FiscalHandler{}
}

// RegisterRoutes registers fiscal identifier routes on the given group
func (h *FiscalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/fiscal-ids/validate", h.Validate)
}

// ValidateFiscalIDRequest carries the identifier to validate
type ValidateFiscalIDRequest struct {
	FiscalID string `json:"fiscal_id" binding:"required,max=50"`
}

// ValidateFiscalIDResponse reports classification and checksum validity
type ValidateFiscalIDResponse struct {
	Input      string `json:"input"`
	Normalized string `json:"normalized"`
	Kind       string `json:"kind"`
	Valid      bool   `json:"valid"`
}

// Validate classifies and checksum-validates a Spanish fiscal identifier.
// A malformed identifier is a successful validation with valid=false, not
// an error.
func (h *FiscalHandler) Validate(c *gin.Context) {
	var req ValidateFiscalIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	h.Success(c, ValidateFiscalIDResponse{
		Input:      req.FiscalID,
		Normalized: fiscal.Normalize(req.FiscalID),
		Kind:       fiscal.Classify(req.FiscalID).String(),
		Valid:      fiscal.Validate(req.FiscalID),
	})
}
