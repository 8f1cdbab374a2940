package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orvit/classroom-service/internal/models"
)

func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := strings.TrimSpace(c.Param(param))
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

// ParseSubmissionKind reads the kind path parameter, rejecting anything but
// test or assignment.
func ParseSubmissionKind(c *gin.Context) (models.SubmissionKind, bool) {
	kind := models.SubmissionKind(c.Param("kind"))
	if kind != models.SubmissionTest && kind != models.SubmissionAssignment {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid kind",
			Details: "kind must be test or assignment",
		})
		return "", false
	}
	return kind, true
}
