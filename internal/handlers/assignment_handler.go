package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orvit/classroom-service/internal/services"
	"github.com/orvit/classroom-service/internal/utils"
)

type AssignmentHandler struct {
	BaseHandler
	assignmentService services.AssignmentService
}

func NewAssignmentHandler(assignmentService services.AssignmentService, logger utils.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assignmentService: assignmentService,
	}
}

// CreateAssignment creates a new assignment in a room
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	h.LogRequest(c, "Creating assignment")

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	assignment, err := h.assignmentService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// GetAssignment returns a single assignment, sanitized for students
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	assignmentID := ParseStringIDParam(c, "id")
	if assignmentID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	assignment, err := h.assignmentService.GetByID(c.Request.Context(), assignmentID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// UpdateAssignment updates assignment settings and questions
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	assignmentID := ParseStringIDParam(c, "id")
	if assignmentID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	assignment, err := h.assignmentService.Update(c.Request.Context(), assignmentID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// DeleteAssignment deletes an assignment
func (h *AssignmentHandler) DeleteAssignment(c *gin.Context) {
	assignmentID := ParseStringIDParam(c, "id")
	if assignmentID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.assignmentService.Delete(c.Request.Context(), assignmentID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Assignment deleted"})
}

// ListRoomAssignments lists assignments in a room, filtered by role
func (h *AssignmentHandler) ListRoomAssignments(c *gin.Context) {
	roomID := ParseStringIDParam(c, "id")
	if roomID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	assignments, err := h.assignmentService.ListByRoom(c.Request.Context(), roomID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignments)
}

// PublishAssignment makes the assignment visible to students
func (h *AssignmentHandler) PublishAssignment(c *gin.Context) {
	h.LogRequest(c, "Publishing assignment")

	assignmentID := ParseStringIDParam(c, "id")
	if assignmentID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	assignment, err := h.assignmentService.Publish(c.Request.Context(), assignmentID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// UnpublishAssignment hides the assignment from students again
func (h *AssignmentHandler) UnpublishAssignment(c *gin.Context) {
	assignmentID := ParseStringIDParam(c, "id")
	if assignmentID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	assignment, err := h.assignmentService.Unpublish(c.Request.Context(), assignmentID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}
