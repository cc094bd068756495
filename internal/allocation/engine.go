// Package allocation is the capacity-aware assignment engine. It derives
// employee load from the assignment ledger, ranks candidates for tasks,
// suggests tasks to employees and owns every mutation of assignments,
// completion state and reviews.
package allocation

import (
	"errors"
	"fmt"
	"time"

	"capacity-planner-api/internal/models"

	"gorm.io/gorm"
)

// hoursTolerance absorbs float rounding when comparing hour sums.
const hoursTolerance = 1e-9

// ReviewPolicy decides what happens to a task's reviews when the task is
// toggled back to incomplete.
type ReviewPolicy string

const (
	// RetainReviews keeps existing reviews and ratings untouched.
	RetainReviews ReviewPolicy = "retain"
	// RetractReviews deletes the task's reviews and recomputes the
	// affected employees' average ratings.
	RetractReviews ReviewPolicy = "retract"
)

// Engine runs allocation operations against the record store. Writes are
// serialized per task and per employee; reads run against the latest
// committed state without taking locks.
type Engine struct {
	db       *gorm.DB
	locks    *keyLocker
	policy   ReviewPolicy
	notifier Notifier
	now      func() time.Time

	// afterAssigneeRead runs in ToggleCompletion between reading the
	// assignee set and locking it. Tests use it to interleave writers.
	afterAssigneeRead func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithReviewPolicy sets the review policy applied on reopen.
func WithReviewPolicy(p ReviewPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithNotifier sets where committed events are published.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an Engine over db.
func New(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:       db,
		locks:    newKeyLocker(),
		policy:   RetainReviews,
		notifier: nopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ParseReviewPolicy validates a policy name from configuration.
func ParseReviewPolicy(s string) (ReviewPolicy, error) {
	switch p := ReviewPolicy(s); p {
	case RetainReviews, RetractReviews:
		return p, nil
	default:
		return "", fmt.Errorf("allocation: unknown review policy %q", s)
	}
}

// Policy reports the configured review policy.
func (e *Engine) Policy() ReviewPolicy { return e.policy }

func findTask(tx *gorm.DB, op, id string) (*models.Task, error) {
	var task models.Task
	err := tx.Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, op, "task %s not found", id).onTask(id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: load task %s: %w", op, id, err)
	}
	return &task, nil
}

func findEmployee(tx *gorm.DB, op, id string) (*models.Employee, error) {
	var emp models.Employee
	err := tx.Where("id = ?", id).First(&emp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, op, "employee %s not found", id).onEmployee(id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: load employee %s: %w", op, id, err)
	}
	return &emp, nil
}

func taskAssignments(tx *gorm.DB, taskID string) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := tx.Where("task_id = ?", taskID).Order("employee_id").Find(&rows).Error
	return rows, err
}
