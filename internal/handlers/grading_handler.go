package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orvit/classroom-service/internal/services"
	"github.com/orvit/classroom-service/internal/utils"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
}

func NewGradingHandler(gradingService services.GradingService, logger utils.Logger) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
	}
}

// GradeEssay records a manual mark for one essay answer
func (h *GradingHandler) GradeEssay(c *gin.Context) {
	h.LogRequest(c, "Grading essay")

	submissionID := ParseStringIDParam(c, "id")
	if submissionID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.GradeEssayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	submission, err := h.gradingService.GradeEssay(c.Request.Context(), submissionID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// ListPendingEssays lists ungraded essay answers for a test or assignment
func (h *GradingHandler) ListPendingEssays(c *gin.Context) {
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

	pending, err := h.gradingService.ListPendingEssays(c.Request.Context(), kind, targetID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pending)
}
