package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orvit/classroom-service/internal/services"
	"github.com/orvit/classroom-service/internal/utils"
)

type AnnouncementHandler struct {
	BaseHandler
	announcementService services.AnnouncementService
}

func NewAnnouncementHandler(announcementService services.AnnouncementService, logger utils.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{
		BaseHandler:         NewBaseHandler(logger),
		announcementService: announcementService,
	}
}

// CreateAnnouncement posts an announcement to a room; teachers only
func (h *AnnouncementHandler) CreateAnnouncement(c *gin.Context) {
	h.LogRequest(c, "Creating announcement")

	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	announcement, err := h.announcementService.Create(c.Request.Context(), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, announcement)
}

// ListRoomAnnouncements lists a room's announcements, newest first
func (h *AnnouncementHandler) ListRoomAnnouncements(c *gin.Context) {
	roomID := ParseStringIDParam(c, "id")
	if roomID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	announcements, err := h.announcementService.GetByRoom(c.Request.Context(), roomID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, announcements)
}

// DeleteAnnouncement removes an announcement; author or room teacher
func (h *AnnouncementHandler) DeleteAnnouncement(c *gin.Context) {
	announcementID := ParseStringIDParam(c, "id")
	if announcementID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.announcementService.Delete(c.Request.Context(), announcementID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Announcement deleted"})
}

// ToggleLike adds or removes the caller's like
func (h *AnnouncementHandler) ToggleLike(c *gin.Context) {
	announcementID := ParseStringIDParam(c, "id")
	if announcementID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	announcement, err := h.announcementService.ToggleLike(c.Request.Context(), announcementID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, announcement)
}

// AddComment appends a comment when the announcement allows them
func (h *AnnouncementHandler) AddComment(c *gin.Context) {
	announcementID := ParseStringIDParam(c, "id")
	if announcementID == "" {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	announcement, err := h.announcementService.AddComment(c.Request.Context(), announcementID, &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, announcement)
}
