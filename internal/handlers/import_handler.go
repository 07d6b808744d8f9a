package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "brokersync/internal/errors"
	"brokersync/internal/services"
)

// ImportHandler handles import workflow requests.
type ImportHandler struct {
	sessionService services.SessionServicer
	parserService  services.ParserServicer
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(sessionService services.SessionServicer, parserService services.ParserServicer) *ImportHandler {
	return &ImportHandler{sessionService: sessionService, parserService: parserService}
}

// UploadRequest represents the request payload for uploading CSV text.
type UploadRequest struct {
	Text string `json:"text" binding:"required"`
}

// EditMappingRequest represents the request payload for editing one mapping row.
type EditMappingRequest struct {
	Ticker           string `json:"ticker" binding:"required,ticker"`
	FromAlternatives bool   `json:"from_alternatives"`
}

// OpenSession handles starting a new import session.
// @Summary     Open import session
// @Description Start a new import workflow session at the upload stage
// @Tags        imports
// @Produce     json
// @Success     201 {object} models.ImportSession "New session"
// @Router      /imports [post]
func (h *ImportHandler) OpenSession(c *gin.Context) {
	session := h.sessionService.Open()
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

// GetSession handles retrieving a session snapshot.
// @Summary     Get import session
// @Description Get the current stage, records, errors, and mapping rows of a session
// @Tags        imports
// @Produce     json
// @Param       id path string true "Session ID"
// @Success     200 {object} models.ImportSession "Session snapshot"
// @Failure     404 {object} ErrorResponse "Session not found"
// @Router      /imports/{id} [get]
func (h *ImportHandler) GetSession(c *gin.Context) {
	session, err := h.sessionService.Get(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Upload handles parsing pasted CSV text into the session.
// @Summary     Upload CSV text
// @Description Parse broker CSV text; advances to the map stage when clean
// @Tags        imports
// @Accept      json
// @Produce     json
// @Param       id      path string        true "Session ID"
// @Param       request body UploadRequest true "Raw CSV text"
// @Success     200 {object} models.ImportSession "Session after parsing"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Session not found"
// @Failure     409 {object} ErrorResponse "Wrong workflow stage"
// @Router      /imports/{id}/upload [post]
func (h *ImportHandler) Upload(c *gin.Context) {
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	session, err := h.sessionService.Upload(c.Param("id"), req.Text)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// EditMapping handles overwriting the selected ticker of one mapping row.
// @Summary     Edit symbol mapping
// @Description Select a ticker for a broker symbol, from alternatives or free text
// @Tags        imports
// @Accept      json
// @Produce     json
// @Param       id      path string             true "Session ID"
// @Param       symbol  path string             true "Broker symbol"
// @Param       request body EditMappingRequest true "Selected ticker"
// @Success     200 {object} models.SymbolMappingRow "Updated mapping row"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Session or mapping row not found"
// @Failure     409 {object} ErrorResponse "Wrong workflow stage"
// @Router      /imports/{id}/mappings/{symbol} [put]
func (h *ImportHandler) EditMapping(c *gin.Context) {
	var req EditMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	row, err := h.sessionService.EditMapping(c.Param("id"), c.Param("symbol"), req.Ticker, req.FromAlternatives)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mapping_row": row})
}

// ConfirmMappings handles the map-to-preview transition.
// @Summary     Confirm mappings
// @Description Rewrite record symbols with the resolved tickers and advance to preview
// @Tags        imports
// @Produce     json
// @Param       id path string true "Session ID"
// @Success     200 {object} models.ImportSession "Session at preview"
// @Failure     404 {object} ErrorResponse "Session not found"
// @Failure     409 {object} ErrorResponse "Unmapped symbols remain"
// @Router      /imports/{id}/confirm [post]
func (h *ImportHandler) ConfirmMappings(c *gin.Context) {
	session, err := h.sessionService.ConfirmMappings(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Back handles stepping the workflow backwards one stage.
// @Summary     Step back
// @Description Move from preview to map, or from map back to upload
// @Tags        imports
// @Produce     json
// @Param       id path string true "Session ID"
// @Success     200 {object} models.ImportSession "Session after stepping back"
// @Failure     404 {object} ErrorResponse "Session not found"
// @Failure     409 {object} ErrorResponse "Wrong workflow stage"
// @Router      /imports/{id}/back [post]
func (h *ImportHandler) Back(c *gin.Context) {
	session, err := h.sessionService.Back(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Import handles running the batch import and closing the session.
// @Summary     Run import
// @Description Submit the resolved batch to the ledger sequentially; the session closes afterward
// @Tags        imports
// @Produce     json
// @Param       id path string true "Session ID"
// @Success     200 {object} services.ImportResult "Aggregate import outcome"
// @Failure     404 {object} ErrorResponse "Session not found"
// @Failure     409 {object} ErrorResponse "Wrong workflow stage"
// @Failure     502 {object} ErrorResponse "A submission failed mid-batch"
// @Router      /imports/{id}/import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	result, err := h.sessionService.Import(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	if result.Err != nil {
		message := fmt.Sprintf("Import aborted after %d of %d attempted submissions succeeded (failed on %s); earlier records remain persisted",
			result.Succeeded, result.Attempted, result.FailedSymbol)
		c.JSON(apperrors.ErrImportFailed.StatusCode, gin.H{
			"error": gin.H{
				"code":    apperrors.ErrImportFailed.Code,
				"message": message,
			},
			"attempted":     result.Attempted,
			"succeeded":     result.Succeeded,
			"failed_symbol": result.FailedSymbol,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempted": result.Attempted,
		"succeeded": result.Succeeded,
	})
}

// Cancel handles discarding a session.
// @Summary     Cancel import session
// @Description Discard the session and all in-memory state; no side effects
// @Tags        imports
// @Produce     json
// @Param       id path string true "Session ID"
// @Success     204 "Session discarded"
// @Failure     404 {object} ErrorResponse "Session not found"
// @Failure     409 {object} ErrorResponse "Import already running"
// @Router      /imports/{id} [delete]
func (h *ImportHandler) Cancel(c *gin.Context) {
	if err := h.sessionService.Cancel(c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Template handles downloading the CSV import template.
// @Summary     Download CSV template
// @Description Get the canonical header plus three example rows
// @Tags        imports
// @Produce     plain
// @Success     200 {string} string "CSV template"
// @Router      /imports/template [get]
func (h *ImportHandler) Template(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="transactions_template.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(h.parserService.Template()))
}

// ErrorResponse documents the error envelope returned by all handlers.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
