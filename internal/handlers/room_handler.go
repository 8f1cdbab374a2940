package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orvit/classroom-service/internal/services"
	"github.com/orvit/classroom-service/internal/utils"
)

type RoomHandler struct {
	BaseHandler
	roomService services.RoomService
}

func NewRoomHandler(roomService services.RoomService, logger utils.Logger) *RoomHandler {
	return &RoomHandler{
		BaseHandler: NewBaseHandler(logger),
		roomService: roomService,
	}
}

// CreateRoom creates a new room owned by the caller
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	h.LogRequest(c, "Creating room")

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, room)
}

// ListRooms lists all rooms the caller belongs to
func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	rooms, err := h.roomService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, rooms)
}

// GetRoom returns one room the caller belongs to
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := ParseStringIDParam(c, "id")
	if roomID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	room, err := h.roomService.GetByID(c.Request.Context(), roomID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// UpdateRoom updates room metadata
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	roomID := ParseStringIDParam(c, "id")
	if roomID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	room, err := h.roomService.Update(c.Request.Context(), roomID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// DeleteRoom deletes a room; owner only
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID := ParseStringIDParam(c, "id")
	if roomID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.roomService.Delete(c.Request.Context(), roomID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Room deleted"})
}

// JoinRoom enrolls the caller using a join code
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	h.LogRequest(c, "Joining room")

	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	room, err := h.roomService.Join(c.Request.Context(), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// LeaveRoom removes the caller's membership
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	roomID := ParseStringIDParam(c, "id")
	if roomID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.roomService.Leave(c.Request.Context(), roomID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Left room"})
}

// GetRoster lists room memberships
func (h *RoomHandler) GetRoster(c *gin.Context) {
	roomID := ParseStringIDParam(c, "id")
	if roomID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	roster, err := h.roomService.GetRoster(c.Request.Context(), roomID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, roster)
}

// RemoveMember removes a member from the room; teachers only
func (h *RoomHandler) RemoveMember(c *gin.Context) {
	roomID := ParseStringIDParam(c, "id")
	if roomID == "" {
		return
	}
	memberID := ParseStringIDParam(c, "member_id")
	if memberID == "" {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.roomService.RemoveMember(c.Request.Context(), roomID, memberID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Member removed"})
}
