package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "brokersync/internal/errors"
	"brokersync/internal/models"
	"brokersync/internal/pagination"
	"brokersync/internal/services"
)

// MappingHandler handles mapping registry maintenance requests.
type MappingHandler struct {
	registryService services.RegistryServicer
}

// NewMappingHandler creates a new MappingHandler.
func NewMappingHandler(registryService services.RegistryServicer) *MappingHandler {
	return &MappingHandler{registryService: registryService}
}

// ListMappings handles listing learned mappings.
// @Summary     List learned mappings
// @Description Get a paginated list of confirmed broker-symbol mappings
// @Tags        mappings
// @Produce     json
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.SymbolMapping] "Paginated mappings"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /mappings [get]
func (h *MappingHandler) ListMappings(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.registryService.List(page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpsertMappingRequest represents the request payload for saving a mapping.
type UpsertMappingRequest struct {
	BrokerSymbol string               `json:"broker_symbol" binding:"required,max=32"`
	Ticker       string               `json:"ticker" binding:"required,ticker"`
	Source       models.MappingSource `json:"source" binding:"omitempty,mapping_source"`
	Confidence   *int                 `json:"confidence" binding:"omitempty,min=0,max=100"`
}

// UpsertMapping handles saving a mapping directly, outside any session.
// @Summary     Save mapping
// @Description Create or overwrite a broker-symbol mapping; source defaults to manual
// @Tags        mappings
// @Accept      json
// @Produce     json
// @Param       request body UpsertMappingRequest true "Mapping"
// @Success     200 {object} models.SymbolMapping "Saved mapping"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /mappings [put]
func (h *MappingHandler) UpsertMapping(c *gin.Context) {
	var req UpsertMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	source := req.Source
	if source == "" {
		source = models.MappingSourceManual
	}
	confidence := 100
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	mapping, err := h.registryService.Upsert(req.BrokerSymbol, req.Ticker, source, confidence)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mapping": mapping})
}

// DeleteMapping handles forgetting one learned mapping.
// @Summary     Delete learned mapping
// @Description Remove a confirmed mapping so the symbol is resolved afresh next time
// @Tags        mappings
// @Produce     json
// @Param       symbol path string true "Broker symbol"
// @Success     204 "Mapping removed"
// @Failure     404 {object} ErrorResponse "Mapping not found"
// @Router      /mappings/{symbol} [delete]
func (h *MappingHandler) DeleteMapping(c *gin.Context) {
	if err := h.registryService.Delete(c.Param("symbol")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
