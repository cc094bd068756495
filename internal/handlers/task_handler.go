package handlers

import (
	"net/http"

	"capacity-planner-api/internal/allocation"
	"capacity-planner-api/internal/apierr"
	"capacity-planner-api/internal/middleware"
	"capacity-planner-api/internal/records"

	"github.com/gin-gonic/gin"
)

// CreateProjectRequest represents the request payload for creating a project
type CreateProjectRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name" binding:"required"`
	Client    string `json:"client"`
	StartDate string `json:"startDate"`
	Deadline  string `json:"deadline"`
}

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	ID             string  `json:"id"`
	TechStack      string  `json:"techStack" binding:"required"`
	EstimatedHours float64 `json:"estimatedHours"`
	StartDate      string  `json:"startDate"`
	Deadline       string  `json:"deadline" binding:"required"`
}

// AssignRequest commits hours of a task to one or more employees.
type AssignRequest struct {
	Assignments []allocation.Allocation `json:"assignments"`
	StartDate   string                  `json:"startDate"`
}

// ReviewRequest rates one assignee of a completed task.
type ReviewRequest struct {
	EmployeeID string  `json:"employeeId" binding:"required"`
	Rating     int     `json:"rating"`
	Comment    *string `json:"comment"`
}

// SelfAssignRequest takes a suggested task. Zero hours means the full
// estimate.
type SelfAssignRequest struct {
	Hours float64 `json:"hours"`
}

// TechStacks handles GET /api/tech-stacks
func (h *Handler) TechStacks(c *gin.Context) {
	list, err := h.Store.TechStacks(c.Request.Context())
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"techStacks": list, "count": len(list)})
}

// CreateProject handles POST /api/projects
func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.JSON(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	start, ok := optionalDate(c, "startDate", req.StartDate)
	if !ok {
		return
	}
	deadline, ok := optionalDate(c, "deadline", req.Deadline)
	if !ok {
		return
	}

	in := records.ProjectInput{ID: req.ID, Name: req.Name, Client: req.Client}
	if start != nil {
		in.StartDate = *start
	}
	if deadline != nil {
		in.Deadline = *deadline
	}
	p, err := h.Store.CreateProject(c.Request.Context(), in)
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// CreateTask handles POST /api/projects/:id/tasks
func (h *Handler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.JSON(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	start, ok := optionalDate(c, "startDate", req.StartDate)
	if !ok {
		return
	}
	deadline, ok := requiredDate(c, "deadline", req.Deadline)
	if !ok {
		return
	}

	task, err := h.Store.CreateTask(c.Request.Context(), records.TaskInput{
		ID:             req.ID,
		ProjectID:      c.Param("id"),
		TechStack:      req.TechStack,
		EstimatedHours: req.EstimatedHours,
		StartDate:      start,
		Deadline:       deadline,
	})
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GetTask handles GET /api/tasks/:id
func (h *Handler) GetTask(c *gin.Context) {
	view, err := h.Engine.TaskView(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Candidates handles GET /api/tasks/:id/candidates
func (h *Handler) Candidates(c *gin.Context) {
	list, err := h.Engine.CandidatesFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": list, "count": len(list)})
}

// Assign handles POST /api/tasks/:id/assignments
func (h *Handler) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Write(c, apierr.ErrBadRequest)
		return
	}
	start, ok := optionalDate(c, "startDate", req.StartDate)
	if !ok {
		return
	}

	view, err := h.Engine.Assign(c.Request.Context(), c.Param("id"), req.Assignments, start)
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Unassign handles DELETE /api/tasks/:id/assignments/:employeeId
func (h *Handler) Unassign(c *gin.Context) {
	view, err := h.Engine.Unassign(c.Request.Context(), c.Param("id"), c.Param("employeeId"))
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ToggleCompletion handles PATCH /api/tasks/:id/completion
func (h *Handler) ToggleCompletion(c *gin.Context) {
	view, err := h.Engine.ToggleCompletion(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitReview handles POST /api/tasks/:id/reviews
func (h *Handler) SubmitReview(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.JSON(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	review, err := h.Engine.SubmitReview(c.Request.Context(), c.Param("id"), req.EmployeeID, req.Rating, req.Comment)
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// SelfAssign handles POST /api/tasks/:id/self-assign for the principal's
// own employee record.
func (h *Handler) SelfAssign(c *gin.Context) {
	employeeID := c.GetString(middleware.EmployeeIDKey)
	if employeeID == "" {
		apierr.Write(c, apierr.ErrNoEmployee)
		return
	}

	var req SelfAssignRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierr.Write(c, apierr.ErrBadRequest)
			return
		}
	}

	view, err := h.Engine.AcceptSuggestion(c.Request.Context(), employeeID, c.Param("id"), req.Hours)
	if err != nil {
		apierr.From(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
