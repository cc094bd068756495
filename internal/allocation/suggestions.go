package allocation

import (
	"context"
	"fmt"
	"time"

	"capacity-planner-api/internal/models"
)

// Suggestion is an unassigned task proposed to an employee.
type Suggestion struct {
	TaskID         string     `json:"taskId"`
	ProjectID      string     `json:"projectId"`
	ProjectName    string     `json:"projectName"`
	TechStackID    uint       `json:"techStackId"`
	TechStack      string     `json:"techStack"`
	EstimatedHours float64    `json:"estimatedHours"`
	StartDate      *time.Time `json:"startDate"`
	Deadline       time.Time  `json:"deadline"`
}

// SuggestedTasksFor lists open tasks with no assignment at all, soonest
// deadline first. When the employee has recorded skills only tasks on
// those tech stacks are listed. Suggestions are advisory; acting on one
// goes through Assign again.
func (e *Engine) SuggestedTasksFor(ctx context.Context, employeeID string) ([]Suggestion, error) {
	db := e.db.WithContext(ctx)
	if _, err := findEmployee(db, "suggestions", employeeID); err != nil {
		return nil, err
	}

	var skills []uint
	err := db.Model(&models.EmployeeSkill{}).
		Where("employee_id = ?", employeeID).
		Pluck("tech_stack_id", &skills).Error
	if err != nil {
		return nil, fmt.Errorf("suggestions: skills: %w", err)
	}

	q := db.Model(&models.Task{}).
		Select(`tasks.id AS task_id, tasks.project_id, projects.name AS project_name,
			tasks.tech_stack_id, COALESCE(tech_stacks.name, '') AS tech_stack,
			tasks.estimated_hours, tasks.start_date, tasks.deadline`).
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Joins("LEFT JOIN tech_stacks ON tech_stacks.id = tasks.tech_stack_id").
		Where("tasks.completed = ?", false).
		Where("NOT EXISTS (SELECT 1 FROM assignments WHERE assignments.task_id = tasks.id)").
		Order("tasks.deadline ASC").
		Order("tasks.id ASC")
	if len(skills) > 0 {
		q = q.Where("tasks.tech_stack_id IN ?", skills)
	}

	out := []Suggestion{}
	if err := q.Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("suggestions: %w", err)
	}
	return out, nil
}

// AcceptSuggestion assigns the employee to the task through the same
// validation as Assign. Hours of zero mean the task's full estimate.
func (e *Engine) AcceptSuggestion(ctx context.Context, employeeID, taskID string, hours float64) (*TaskView, error) {
	if hours == 0 {
		task, err := findTask(e.db.WithContext(ctx), "self-assign", taskID)
		if err != nil {
			return nil, err
		}
		hours = task.EstimatedHours
	}
	today := e.now().UTC().Truncate(24 * time.Hour)
	return e.Assign(ctx, taskID, []Allocation{{EmployeeID: employeeID, Hours: hours}}, &today)
}
