package allocation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"capacity-planner-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Allocation requests hours of a task for one employee.
type Allocation struct {
	EmployeeID string  `json:"employeeId"`
	Hours      float64 `json:"hours"`
}

// TaskView is a task together with its ledger rows.
type TaskView struct {
	Task           models.Task         `json:"task"`
	Assignments    []models.Assignment `json:"assignments"`
	AssignedHours  float64             `json:"assignedHours"`
	RemainingHours float64             `json:"remainingHours"`
	State          models.TaskState    `json:"state"`
}

// Release lists the assignments removed by ReleaseEmployee.
type Release struct {
	EmployeeID string              `json:"employeeId"`
	Removed    []models.Assignment `json:"removed"`
}

// TaskView returns the task with its assignments and derived state.
func (e *Engine) TaskView(ctx context.Context, taskID string) (*TaskView, error) {
	db := e.db.WithContext(ctx)
	task, err := findTask(db, "task", taskID)
	if err != nil {
		return nil, err
	}
	return loadTaskView(db, task)
}

// Assign commits hours of the task to each employee in allocs. An existing
// (task, employee) row has its hours replaced. Either every row is written
// or none is.
func (e *Engine) Assign(ctx context.Context, taskID string, allocs []Allocation, startDate *time.Time) (*TaskView, error) {
	const op = "assign"
	if verr := validateAllocations(op, allocs); verr != nil {
		log.Printf("Assign: rejected: %v", verr)
		return nil, verr.onTask(taskID)
	}

	ids := make([]string, 0, len(allocs))
	keys := []string{taskKey(taskID)}
	for _, a := range allocs {
		ids = append(ids, a.EmployeeID)
		keys = append(keys, employeeKey(a.EmployeeID))
	}

	var view *TaskView
	err := e.withLocks(keys, func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			task, err := findTask(tx, op, taskID)
			if err != nil {
				return err
			}
			if task.Completed {
				return newError(ErrInvalidState, op, "task %s is completed; reopen it before changing assignments", taskID).onTask(taskID)
			}
			employees, err := findEmployees(tx, op, ids)
			if err != nil {
				return err
			}
			existing, err := taskAssignments(tx, taskID)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}

			current := make(map[string]float64, len(existing))
			var assigned float64
			for _, a := range existing {
				current[a.EmployeeID] = a.Hours
				assigned += a.Hours
			}
			var requested, replaced float64
			for _, a := range allocs {
				requested += a.Hours
				replaced += current[a.EmployeeID]
			}
			if total := assigned - replaced + requested; total > task.EstimatedHours+hoursTolerance {
				return newError(ErrCapacityExceeded, op,
					"task %s would carry %g of %g estimated hours", taskID, total, task.EstimatedHours).onTask(taskID)
			}

			loads, err := activeLoads(tx, ids)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			var over []string
			firstOver := ""
			for _, a := range allocs {
				emp := employees[a.EmployeeID]
				// The task is open, so hours being replaced are part of the load.
				free := emp.WeeklyCapacity - loads[a.EmployeeID] + current[a.EmployeeID]
				if free+hoursTolerance < a.Hours {
					if firstOver == "" {
						firstOver = a.EmployeeID
					}
					over = append(over, fmt.Sprintf("%s has %g free hours, requested %g", a.EmployeeID, free, a.Hours))
				}
			}
			if len(over) > 0 {
				return newError(ErrOverAllocated, op, "%s", strings.Join(over, "; ")).onTask(taskID).onEmployee(firstOver)
			}

			start := startDate
			if start == nil {
				start = task.StartDate
			}
			rows := make([]models.Assignment, 0, len(allocs))
			for _, a := range allocs {
				rows = append(rows, models.Assignment{
					TaskID:     taskID,
					EmployeeID: a.EmployeeID,
					Hours:      a.Hours,
					StartDate:  start,
				})
			}
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "task_id"}, {Name: "employee_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"hours", "start_date", "updated_at"}),
			}).Create(&rows).Error
			if err != nil {
				return fmt.Errorf("%s: write assignments: %w", op, err)
			}

			if task.StartDate == nil && startDate != nil {
				if err := tx.Model(task).Update("start_date", startDate).Error; err != nil {
					return fmt.Errorf("%s: set task start date: %w", op, err)
				}
				task.StartDate = startDate
			}

			view, err = loadTaskView(tx, task)
			return err
		})
	})
	if err != nil {
		log.Printf("Assign: rejected: %v", err)
		return nil, err
	}

	log.Printf("Assign: task %s committed %d assignment(s) for %v", taskID, len(allocs), ids)
	e.publish(EventAssignmentCreated, taskID, ids...)
	return view, nil
}

// Unassign removes the employee's assignment on the task.
func (e *Engine) Unassign(ctx context.Context, taskID, employeeID string) (*TaskView, error) {
	const op = "unassign"
	var view *TaskView
	err := e.withLocks([]string{taskKey(taskID), employeeKey(employeeID)}, func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			task, err := findTask(tx, op, taskID)
			if err != nil {
				return err
			}
			if task.Completed {
				return newError(ErrInvalidState, op, "task %s is completed; reopen it before changing assignments", taskID).onTask(taskID)
			}

			res := tx.Where("task_id = ? AND employee_id = ?", taskID, employeeID).Delete(&models.Assignment{})
			if res.Error != nil {
				return fmt.Errorf("%s: %w", op, res.Error)
			}
			if res.RowsAffected == 0 {
				return newError(ErrNotFound, op, "employee %s is not assigned to task %s", employeeID, taskID).
					onTask(taskID).onEmployee(employeeID)
			}

			view, err = loadTaskView(tx, task)
			return err
		})
	})
	if err != nil {
		log.Printf("Unassign: rejected: %v", err)
		return nil, err
	}

	log.Printf("Unassign: employee %s removed from task %s", employeeID, taskID)
	e.publish(EventAssignmentRemoved, taskID, employeeID)
	return view, nil
}

// ReleaseEmployee removes every active assignment of the employee in one
// transaction. Assignments on completed tasks are history and stay.
func (e *Engine) ReleaseEmployee(ctx context.Context, employeeID string) (*Release, error) {
	const op = "release"
	release := &Release{EmployeeID: employeeID}
	err := e.withLocks([]string{employeeKey(employeeID)}, func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := findEmployee(tx, op, employeeID); err != nil {
				return err
			}

			var active []models.Assignment
			err := tx.Select("assignments.*").
				Joins("JOIN tasks ON tasks.id = assignments.task_id").
				Where("assignments.employee_id = ? AND tasks.completed = ?", employeeID, false).
				Order("assignments.task_id").
				Find(&active).Error
			if err != nil {
				return fmt.Errorf("%s: list active assignments: %w", op, err)
			}
			if len(active) == 0 {
				return nil
			}

			taskIDs := make([]string, 0, len(active))
			for _, a := range active {
				taskIDs = append(taskIDs, a.TaskID)
			}
			res := tx.Where("employee_id = ? AND task_id IN ?", employeeID, taskIDs).Delete(&models.Assignment{})
			if res.Error != nil {
				return fmt.Errorf("%s: %w", op, res.Error)
			}
			if res.RowsAffected != int64(len(active)) {
				return fmt.Errorf("%s: removed %d of %d assignments", op, res.RowsAffected, len(active))
			}
			release.Removed = active
			return nil
		})
	})
	if err != nil {
		log.Printf("ReleaseEmployee: rejected: %v", err)
		return nil, err
	}
	if release.Removed == nil {
		release.Removed = []models.Assignment{}
	}

	log.Printf("ReleaseEmployee: employee %s released from %d task(s)", employeeID, len(release.Removed))
	if len(release.Removed) > 0 {
		e.publish(EventEmployeeReleased, "", employeeID)
	}
	return release, nil
}

// toggleAttempts bounds how often ToggleCompletion re-reads the assignee
// set when it changes between the read and the lock.
const toggleAttempts = 5

var errAssigneesChanged = errors.New("assignees changed before lock")

// ToggleCompletion flips the task's completed flag. Completing requires at
// least one assignment. Reopening puts the assignments back into load, so
// it is rejected if any assignee no longer has room for their hours.
func (e *Engine) ToggleCompletion(ctx context.Context, taskID string) (*TaskView, error) {
	const op = "toggle completion"

	var (
		view      *TaskView
		completed bool
		ids       []string
		err       error
	)
	for attempt := 0; attempt < toggleAttempts; attempt++ {
		view, completed, ids, err = e.toggleOnce(ctx, op, taskID)
		if !errors.Is(err, errAssigneesChanged) {
			break
		}
	}
	if errors.Is(err, errAssigneesChanged) {
		err = newError(ErrInvalidState, op, "assignments of task %s kept changing, retry", taskID).onTask(taskID)
	}
	if err != nil {
		log.Printf("ToggleCompletion: rejected: %v", err)
		return nil, err
	}

	if completed {
		log.Printf("ToggleCompletion: task %s completed", taskID)
		e.publish(EventTaskCompleted, taskID, ids...)
	} else {
		log.Printf("ToggleCompletion: task %s reopened (review policy %s)", taskID, e.policy)
		e.publish(EventTaskReopened, taskID, ids...)
	}
	return view, nil
}

// toggleOnce locks the task and the assignees read just before. An
// assignment that appears between that read and the lock belongs to an
// employee whose key is not held, so the attempt fails with
// errAssigneesChanged and nothing is written.
func (e *Engine) toggleOnce(ctx context.Context, op, taskID string) (view *TaskView, completed bool, ids []string, err error) {
	var assignees []string
	err = e.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("task_id = ?", taskID).
		Pluck("employee_id", &assignees).Error
	if err != nil {
		return nil, false, nil, fmt.Errorf("%s: %w", op, err)
	}
	if e.afterAssigneeRead != nil {
		e.afterAssigneeRead()
	}

	locked := make(map[string]struct{}, len(assignees))
	keys := []string{taskKey(taskID)}
	for _, id := range assignees {
		locked[id] = struct{}{}
		keys = append(keys, employeeKey(id))
	}

	err = e.withLocks(keys, func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			task, err := findTask(tx, op, taskID)
			if err != nil {
				return err
			}
			rows, err := taskAssignments(tx, taskID)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			for _, a := range rows {
				if _, ok := locked[a.EmployeeID]; !ok {
					return errAssigneesChanged
				}
				ids = append(ids, a.EmployeeID)
			}

			if !task.Completed {
				if len(rows) == 0 {
					return newError(ErrInvalidState, op, "task %s has no active assignment", taskID).onTask(taskID)
				}
				reviewed, err := allReviewed(tx, taskID, rows)
				if err != nil {
					return fmt.Errorf("%s: %w", op, err)
				}
				err = tx.Model(task).Updates(map[string]any{"completed": true, "reviewed": reviewed}).Error
				if err != nil {
					return fmt.Errorf("%s: %w", op, err)
				}
				task.Completed, task.Reviewed = true, reviewed
				completed = true
			} else {
				if err := checkReopenCapacity(tx, op, taskID, rows); err != nil {
					return err
				}
				err = tx.Model(task).Updates(map[string]any{"completed": false, "reviewed": false}).Error
				if err != nil {
					return fmt.Errorf("%s: %w", op, err)
				}
				task.Completed, task.Reviewed = false, false
				if e.policy == RetractReviews {
					if err := retractReviews(tx, taskID); err != nil {
						return fmt.Errorf("%s: %w", op, err)
					}
				}
			}

			view, err = loadTaskView(tx, task)
			return err
		})
	})
	if err != nil {
		return nil, false, nil, err
	}
	return view, completed, ids, nil
}

func checkReopenCapacity(tx *gorm.DB, op, taskID string, rows []models.Assignment) error {
	ids := make([]string, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.EmployeeID)
	}
	employees, err := findEmployees(tx, op, ids)
	if err != nil {
		return err
	}
	loads, err := activeLoads(tx, ids)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, a := range rows {
		emp := employees[a.EmployeeID]
		if loads[a.EmployeeID]+a.Hours > emp.WeeklyCapacity+hoursTolerance {
			return newError(ErrOverAllocated, op,
				"reopening task %s would put employee %s at %g of %g hours",
				taskID, a.EmployeeID, loads[a.EmployeeID]+a.Hours, emp.WeeklyCapacity).
				onTask(taskID).onEmployee(a.EmployeeID)
		}
	}
	return nil
}

func validateAllocations(op string, allocs []Allocation) *Error {
	if len(allocs) == 0 {
		return newError(ErrValidation, op, "no employees selected")
	}
	seen := make(map[string]struct{}, len(allocs))
	for _, a := range allocs {
		if strings.TrimSpace(a.EmployeeID) == "" {
			return newError(ErrValidation, op, "employee id is required")
		}
		if !(a.Hours > 0) {
			return newError(ErrValidation, op, "hours for employee %s must be positive, got %g", a.EmployeeID, a.Hours).onEmployee(a.EmployeeID)
		}
		if _, dup := seen[a.EmployeeID]; dup {
			return newError(ErrValidation, op, "employee %s appears more than once", a.EmployeeID).onEmployee(a.EmployeeID)
		}
		seen[a.EmployeeID] = struct{}{}
	}
	return nil
}

func findEmployees(tx *gorm.DB, op string, ids []string) (map[string]models.Employee, error) {
	var list []models.Employee
	if err := tx.Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("%s: load employees: %w", op, err)
	}
	byID := make(map[string]models.Employee, len(list))
	for _, emp := range list {
		byID[emp.ID] = emp
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, newError(ErrNotFound, op, "employee %s not found", id).onEmployee(id)
		}
	}
	return byID, nil
}

func loadTaskView(tx *gorm.DB, task *models.Task) (*TaskView, error) {
	rows, err := taskAssignments(tx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("task view %s: %w", task.ID, err)
	}
	if rows == nil {
		rows = []models.Assignment{}
	}
	var assigned float64
	for _, a := range rows {
		assigned += a.Hours
	}
	return &TaskView{
		Task:           *task,
		Assignments:    rows,
		AssignedHours:  assigned,
		RemainingHours: max(task.EstimatedHours-assigned, 0),
		State:          taskState(task, len(rows)),
	}, nil
}

func taskState(task *models.Task, assignments int) models.TaskState {
	switch {
	case task.Completed && task.Reviewed:
		return models.StateReviewed
	case task.Completed:
		return models.StateCompleted
	case assignments > 0:
		return models.StateAssigned
	default:
		return models.StateUnassigned
	}
}
