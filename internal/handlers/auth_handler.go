package handlers

import (
	"errors"
	"log"
	"net/http"

	"capacity-planner-api/internal/apierr"
	"capacity-planner-api/internal/auth"
	"capacity-planner-api/internal/records"

	"github.com/gin-gonic/gin"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest creates a principal, optionally linked to an employee.
type RegisterRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	EmployeeID string `json:"employeeId"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token      string `json:"token"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	EmployeeID string `json:"employee_id,omitempty"`
	Message    string `json:"message"`
}

// Register handles POST /api/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.JSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrWeakPassword) {
		apierr.JSON(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err != nil {
		apierr.From(c, err)
		return
	}

	user, err := h.Store.CreateUser(c.Request.Context(), req.Username, hash, req.EmployeeID)
	if err != nil {
		apierr.From(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.EmployeeID)
	if err != nil {
		apierr.From(c, err)
		return
	}

	log.Printf("Register: user %s created", user.Username)
	c.JSON(http.StatusCreated, LoginResponse{
		Token:      token,
		UserID:     user.ID,
		Username:   user.Username,
		EmployeeID: user.EmployeeID,
		Message:    "Registration successful",
	})
}

// Login handles POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.JSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required")
		return
	}

	user, err := h.Store.UserByUsername(c.Request.Context(), req.Username)
	if errors.Is(err, records.ErrNotFound) || (err == nil && !auth.CheckPassword(user.Password, req.Password)) {
		apierr.Write(c, apierr.ErrBadLogin)
		return
	}
	if err != nil {
		apierr.From(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.EmployeeID)
	if err != nil {
		apierr.From(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:      token,
		UserID:     user.ID,
		Username:   user.Username,
		EmployeeID: user.EmployeeID,
		Message:    "Login successful",
	})
}
