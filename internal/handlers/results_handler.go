package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orvit/classroom-service/internal/services"
	"github.com/orvit/classroom-service/internal/utils"
)

type ResultsHandler struct {
	BaseHandler
	resultsService services.ResultsService
}

func NewResultsHandler(resultsService services.ResultsService, logger utils.Logger) *ResultsHandler {
	return &ResultsHandler{
		BaseHandler:    NewBaseHandler(logger),
		resultsService: resultsService,
	}
}

// GetTargetResults returns the teacher-facing results table for one target
func (h *ResultsHandler) GetTargetResults(c *gin.Context) {
	kind, ok := ParseSubmissionKind(c)
	if !ok {
		return
	}
	targetID := ParseStringIDParam(c, "target_id")
	if targetID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	results, err := h.resultsService.GetTargetResults(c.Request.Context(), kind, targetID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ExportTargetResults streams the results table as an xlsx workbook
func (h *ResultsHandler) ExportTargetResults(c *gin.Context) {
	h.LogRequest(c, "Exporting results")

	kind, ok := ParseSubmissionKind(c)
	if !ok {
		return
	}
	targetID := ParseStringIDParam(c, "target_id")
	if targetID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	workbook, err := h.resultsService.ExportTargetResults(c.Request.Context(), kind, targetID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("results_%s_%s_%s.xlsx", kind, targetID, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		workbook)
}

// GetMySubmissions returns the caller's completed attempts for one target
func (h *ResultsHandler) GetMySubmissions(c *gin.Context) {
	kind, ok := ParseSubmissionKind(c)
	if !ok {
		return
	}
	targetID := ParseStringIDParam(c, "target_id")
	if targetID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	results, err := h.resultsService.GetMySubmissions(c.Request.Context(), kind, targetID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetSubmission returns one submission to its owner or a room teacher
func (h *ResultsHandler) GetSubmission(c *gin.Context) {
	submissionID := ParseStringIDParam(c, "id")
	if submissionID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	submission, err := h.resultsService.GetSubmission(c.Request.Context(), submissionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}
