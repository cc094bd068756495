package apierr

import (
	"errors"
	"log"
	"net/http"

	"capacity-planner-api/internal/allocation"
	"capacity-planner-api/internal/records"

	"github.com/gin-gonic/gin"
)

type ErrResp struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		TaskID     string `json:"taskId,omitempty"`
		EmployeeID string `json:"employeeId,omitempty"`
	} `json:"error"`
}

var (
	ErrBadRequest   = &AppError{http.StatusBadRequest, "BAD_REQUEST", "malformed request body"}
	ErrUnauthorized = &AppError{http.StatusUnauthorized, "UNAUTHORIZED", "authorization token is required"}
	ErrBadToken     = &AppError{http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token"}
	ErrBadLogin     = &AppError{http.StatusUnauthorized, "UNAUTHORIZED", "invalid username or password"}
	ErrNoEmployee   = &AppError{http.StatusForbidden, "FORBIDDEN", "principal is not linked to an employee"}
)

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

// JSON writes the error body and aborts the gin chain.
func JSON(c *gin.Context, status int, code, msg string) {
	e := ErrResp{}
	e.Error.Code = code
	e.Error.Message = msg
	c.AbortWithStatusJSON(status, e)
}

func Write(c *gin.Context, e *AppError) {
	JSON(c, e.Status, e.Code, e.Message)
}

// Status maps an error kind to its HTTP status and code.
func Status(err error) (int, string) {
	switch allocation.Kind(err) {
	case allocation.ErrValidation:
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case allocation.ErrCapacityExceeded:
		return http.StatusConflict, "CAPACITY_EXCEEDED"
	case allocation.ErrOverAllocated:
		return http.StatusConflict, "OVER_ALLOCATED"
	case allocation.ErrNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case allocation.ErrInvalidState:
		return http.StatusConflict, "INVALID_STATE"
	}

	switch {
	case errors.Is(err, records.ErrInvalid):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, records.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// From writes err with the status of its kind. Unclassified errors are
// logged and reported without their detail.
func From(c *gin.Context, err error) {
	var app *AppError
	if errors.As(err, &app) {
		Write(c, app)
		return
	}

	status, code := Status(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		JSON(c, status, code, "internal server error")
		return
	}

	e := ErrResp{}
	e.Error.Code = code
	e.Error.Message = err.Error()
	var aerr *allocation.Error
	if errors.As(err, &aerr) {
		e.Error.TaskID = aerr.TaskID
		e.Error.EmployeeID = aerr.EmployeeID
	}
	c.AbortWithStatusJSON(status, e)
}
