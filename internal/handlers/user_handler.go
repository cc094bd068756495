package handlers

import (
	"net/http"

	"capacity-planner-api/internal/apierr"
	"capacity-planner-api/internal/models"

	"github.com/gin-gonic/gin"
)

type UserResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	EmployeeID string `json:"employeeId,omitempty"`
}

// GetAllUsers returns all users (protected)
// GET /api/users
func (h *Handler) GetAllUsers(c *gin.Context) {
	users, err := h.Store.Users(c.Request.Context())
	if err != nil {
		apierr.From(c, err)
		return
	}

	// Map to safe response payload
	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse(u))
	}

	c.JSON(http.StatusOK, gin.H{
		"users": resp,
		"count": len(resp),
	})
}

func userResponse(u models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, EmployeeID: u.EmployeeID}
}
