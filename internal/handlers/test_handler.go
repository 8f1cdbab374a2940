package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orvit/classroom-service/internal/services"
	"github.com/orvit/classroom-service/internal/utils"
)

type TestHandler struct {
	BaseHandler
	testService services.TestService
}

func NewTestHandler(testService services.TestService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
	}
}

// CreateTest creates a new test in a room
func (h *TestHandler) CreateTest(c *gin.Context) {
	h.LogRequest(c, "Creating test")

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	test, err := h.testService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}

// GetTest returns a single test, sanitized for students
func (h *TestHandler) GetTest(c *gin.Context) {
	testID := ParseStringIDParam(c, "id")
	if testID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), testID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// UpdateTest updates test settings and questions
func (h *TestHandler) UpdateTest(c *gin.Context) {
	testID := ParseStringIDParam(c, "id")
	if testID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.UpdateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	test, err := h.testService.Update(c.Request.Context(), testID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// DeleteTest deletes a test
func (h *TestHandler) DeleteTest(c *gin.Context) {
	testID := ParseStringIDParam(c, "id")
	if testID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), testID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test deleted"})
}

// ListRoomTests lists tests in a room, filtered by the caller's role
func (h *TestHandler) ListRoomTests(c *gin.Context) {
	roomID := ParseStringIDParam(c, "id")
	if roomID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	tests, err := h.testService.ListByRoom(c.Request.Context(), roomID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tests)
}

// PublishTest makes the test visible to students
func (h *TestHandler) PublishTest(c *gin.Context) {
	h.LogRequest(c, "Publishing test")

	testID := ParseStringIDParam(c, "id")
	if testID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	test, err := h.testService.Publish(c.Request.Context(), testID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// UnpublishTest hides the test from students again
func (h *TestHandler) UnpublishTest(c *gin.Context) {
	testID := ParseStringIDParam(c, "id")
	if testID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	test, err := h.testService.Unpublish(c.Request.Context(), testID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// ImportQuestions replaces the question set from an exported JSON document
func (h *TestHandler) ImportQuestions(c *gin.Context) {
	h.LogRequest(c, "Importing questions")

	testID := ParseStringIDParam(c, "id")
	if testID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 4<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to read request body",
			Details: err.Error(),
		})
		return
	}

	test, err := h.testService.ImportQuestions(c.Request.Context(), testID, payload, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}
