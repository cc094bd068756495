package handlers

import (
	"log"
	"net/http"

	"capacity-planner-api/internal/apierr"
	"capacity-planner-api/internal/records"

	"github.com/gin-gonic/gin"
)

// CreateEmployeeRequest represents the request payload for creating an employee
type CreateEmployeeRequest struct {
	ID             string   `json:"id"`
	Name           string   `json:"name" binding:"required"`
	Role           string   `json:"role"`
	WeeklyCapacity float64  `json:"weeklyCapacity"`
	Skills         []string `json:"skills"`
}

// ListEmployees handles GET /api/employees
// Returns every employee with their current load, paginated.
func (h *Handler) ListEmployees(c *gin.Context) {
	loads, err := h.Engine.EmployeeLoads(c.Request.Context())
	if err != nil {
		apierr.From(c, err)
		return
	}

	page, limit := paging(c)
	total := len(loads)
	from := min((page-1)*limit, total)
	to := min(from+limit, total)
	items := loads[from:to]

	c.JSON(http.StatusOK, gin.H{
		"employees": items,
		"count":     len(items),
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// CreateEmployee handles POST /api/employees
func (h *Handler) CreateEmployee(c *gin.Context) {
	var req CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.JSON(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	emp, err := h.Store.CreateEmployee(c.Request.Context(), records.EmployeeInput{
		ID:             req.ID,
		Name:           req.Name,
		Role:           req.Role,
		WeeklyCapacity: req.WeeklyCapacity,
		Skills:         req.Skills,
	})
	if err != nil {
		apierr.From(c, err)
		return
	}

	log.Printf("CreateEmployee: %s (%s) with %g weekly hours", emp.ID, emp.Role, emp.WeeklyCapacity)
	c.JSON(http.StatusCreated, emp)
}

// EmployeeLoad handles GET /api/employees/:id/load
func (h *Handler) EmployeeLoad(c *gin.Context) {
	load, err := h.Engine.EmployeeLoad(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusOK, load)
}

// Suggestions handles GET /api/employees/:id/suggestions
func (h *Handler) Suggestions(c *gin.Context) {
	list, err := h.Engine.SuggestedTasksFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": list, "count": len(list)})
}

// EmployeeReviews handles GET /api/employees/:id/reviews
func (h *Handler) EmployeeReviews(c *gin.Context) {
	list, err := h.Engine.ReviewsFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list, "count": len(list)})
}

// ReleaseEmployee handles POST /api/employees/:id/release
func (h *Handler) ReleaseEmployee(c *gin.Context) {
	release, err := h.Engine.ReleaseEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusOK, release)
}

// DeleteEmployee handles DELETE /api/employees/:id
func (h *Handler) DeleteEmployee(c *gin.Context) {
	if err := h.Engine.DeleteEmployee(c.Request.Context(), c.Param("id")); err != nil {
		apierr.From(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
