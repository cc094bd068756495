package allocation

import (
	"context"
	"fmt"
	"log"

	"capacity-planner-api/internal/models"

	"gorm.io/gorm"
)

// DeleteEmployee removes the employee with their skills, historic
// assignments and reviews. It is rejected while the employee still holds
// an assignment on an open task; release them first.
func (e *Engine) DeleteEmployee(ctx context.Context, employeeID string) error {
	const op = "delete employee"
	err := e.withLocks([]string{employeeKey(employeeID)}, func() error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := findEmployee(tx, op, employeeID); err != nil {
				return err
			}
			loads, err := activeLoads(tx, []string{employeeID})
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			var active int64
			err = tx.Model(&models.Assignment{}).
				Joins("JOIN tasks ON tasks.id = assignments.task_id").
				Where("assignments.employee_id = ? AND tasks.completed = ?", employeeID, false).
				Count(&active).Error
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			if active > 0 {
				return newError(ErrInvalidState, op,
					"employee %s holds %d active assignment(s) totalling %g hours", employeeID, active, loads[employeeID]).
					onEmployee(employeeID)
			}

			for _, model := range []any{&models.Review{}, &models.Assignment{}, &models.EmployeeSkill{}} {
				if err := tx.Where("employee_id = ?", employeeID).Delete(model).Error; err != nil {
					return fmt.Errorf("%s: %w", op, err)
				}
			}
			if err := tx.Model(&models.User{}).Where("employee_id = ?", employeeID).Update("employee_id", "").Error; err != nil {
				return fmt.Errorf("%s: unlink user: %w", op, err)
			}
			return tx.Where("id = ?", employeeID).Delete(&models.Employee{}).Error
		})
	})
	if err != nil {
		log.Printf("DeleteEmployee: rejected: %v", err)
		return err
	}

	log.Printf("DeleteEmployee: employee %s deleted", employeeID)
	e.publish(EventEmployeeDeleted, "", employeeID)
	return nil
}
