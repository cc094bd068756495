package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"capacity-planner-api/internal/allocation"
	"capacity-planner-api/internal/apierr"
	"capacity-planner-api/internal/realtime"
	"capacity-planner-api/internal/records"

	"github.com/gin-gonic/gin"
)

// Handler serves the HTTP API over the allocation engine and the record
// store.
type Handler struct {
	Engine *allocation.Engine
	Store  *records.Store
	Hub    *realtime.Hub
}

// New wires a Handler.
func New(engine *allocation.Engine, store *records.Store, hub *realtime.Hub) *Handler {
	return &Handler{Engine: engine, Store: store, Hub: hub}
}

func parseDateFlexible(dateStr string) (time.Time, bool) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, false
	}
	layouts := []string{
		"2006-01-02",  // ISO date
		"2 Jan 2006",  // e.g., 30 Oct 2025
		time.RFC3339,  // full RFC3339
		"02 Jan 2006", // zero-padded day
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// optionalDate parses an optional date field. An empty value yields nil;
// a malformed one writes a validation error and returns ok=false.
func optionalDate(c *gin.Context, field, value string) (*time.Time, bool) {
	if strings.TrimSpace(value) == "" {
		return nil, true
	}
	t, ok := parseDateFlexible(value)
	if !ok {
		apierr.JSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid "+field+": "+value)
		return nil, false
	}
	return &t, true
}

func requiredDate(c *gin.Context, field, value string) (time.Time, bool) {
	t, ok := optionalDate(c, field, value)
	if !ok {
		return time.Time{}, false
	}
	if t == nil {
		apierr.JSON(c, http.StatusBadRequest, "VALIDATION_ERROR", field+" is required")
		return time.Time{}, false
	}
	return *t, true
}

// paging reads page (default 1) and limit (default 20, capped at 100).
func paging(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
