package allocation

import (
	"context"
	"fmt"

	"capacity-planner-api/internal/models"

	"gorm.io/gorm"
)

// Load is an employee's capacity picture derived from the ledger.
type Load struct {
	Employee     models.Employee `json:"employee"`
	CurrentLoad  float64         `json:"currentLoad"`
	FreeCapacity float64         `json:"freeCapacity"`
	LoadPercent  float64         `json:"loadPercent"`
}

func newLoad(emp models.Employee, current float64) Load {
	return Load{
		Employee:     emp,
		CurrentLoad:  current,
		FreeCapacity: emp.WeeklyCapacity - current,
		LoadPercent:  LoadPercent(current, emp.WeeklyCapacity),
	}
}

// LoadPercent is current / capacity * 100. It is not capped, so an
// over-committed employee reports more than 100.
func LoadPercent(current, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}
	return current / capacity * 100
}

// CurrentLoad returns the hours committed to the employee on tasks that
// are not completed.
func (e *Engine) CurrentLoad(ctx context.Context, employeeID string) (float64, error) {
	l, err := e.EmployeeLoad(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	return l.CurrentLoad, nil
}

// FreeCapacity returns weekly capacity minus current load.
func (e *Engine) FreeCapacity(ctx context.Context, employeeID string) (float64, error) {
	l, err := e.EmployeeLoad(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	return l.FreeCapacity, nil
}

// EmployeeLoad returns the full load picture for one employee.
func (e *Engine) EmployeeLoad(ctx context.Context, employeeID string) (*Load, error) {
	db := e.db.WithContext(ctx)
	emp, err := findEmployee(db, "load", employeeID)
	if err != nil {
		return nil, err
	}
	loads, err := activeLoads(db, []string{employeeID})
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	l := newLoad(*emp, loads[employeeID])
	return &l, nil
}

// EmployeeLoads returns the load picture of every employee ordered by id.
func (e *Engine) EmployeeLoads(ctx context.Context) ([]Load, error) {
	db := e.db.WithContext(ctx)
	var employees []models.Employee
	if err := db.Order("id").Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("loads: list employees: %w", err)
	}
	loads, err := activeLoads(db, nil)
	if err != nil {
		return nil, fmt.Errorf("loads: %w", err)
	}
	out := make([]Load, 0, len(employees))
	for _, emp := range employees {
		out = append(out, newLoad(emp, loads[emp.ID]))
	}
	return out, nil
}

// activeLoads sums assignment hours per employee over tasks that are not
// completed. A nil ids slice means every employee. Employees with no
// active assignment are absent from the map.
func activeLoads(tx *gorm.DB, ids []string) (map[string]float64, error) {
	type row struct {
		EmployeeID string
		Hours      float64
	}
	q := tx.Model(&models.Assignment{}).
		Select("assignments.employee_id AS employee_id, COALESCE(SUM(assignments.hours), 0.0) AS hours").
		Joins("JOIN tasks ON tasks.id = assignments.task_id").
		Where("tasks.completed = ?", false).
		Group("assignments.employee_id")
	if ids != nil {
		if len(ids) == 0 {
			return map[string]float64{}, nil
		}
		q = q.Where("assignments.employee_id IN ?", ids)
	}

	var rows []row
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("sum active hours: %w", err)
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.EmployeeID] = r.Hours
	}
	return out, nil
}
