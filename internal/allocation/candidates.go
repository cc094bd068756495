package allocation

import (
	"context"
	"fmt"
	"slices"

	"capacity-planner-api/internal/models"
)

// Candidate is one ranked entry of CandidatesFor.
type Candidate struct {
	Employee      models.Employee `json:"employee"`
	CurrentLoad   float64         `json:"currentLoad"`
	FreeCapacity  float64         `json:"freeCapacity"`
	LoadPercent   float64         `json:"loadPercent"`
	AverageRating *float64        `json:"averageRating"`
	// TentativeLoad is the load the employee would carry if given all of
	// the task's unassigned hours.
	TentativeLoad float64 `json:"tentativeLoad"`
	OverCapacity  bool    `json:"overCapacity"`
	SkillMatch    bool    `json:"skillMatch"`
}

// CandidatesFor ranks every employee for the task. Skill match is
// reported but does not exclude anyone. The list is rebuilt on each call.
func (e *Engine) CandidatesFor(ctx context.Context, taskID string) ([]Candidate, error) {
	db := e.db.WithContext(ctx)
	task, err := findTask(db, "candidates", taskID)
	if err != nil {
		return nil, err
	}

	var assigned float64
	err = db.Model(&models.Assignment{}).
		Where("task_id = ?", taskID).
		Select("COALESCE(SUM(hours), 0.0)").
		Scan(&assigned).Error
	if err != nil {
		return nil, fmt.Errorf("candidates: assigned hours: %w", err)
	}
	remaining := max(task.EstimatedHours-assigned, 0)

	var employees []models.Employee
	if err := db.Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("candidates: list employees: %w", err)
	}
	loads, err := activeLoads(db, nil)
	if err != nil {
		return nil, fmt.Errorf("candidates: %w", err)
	}

	var skilled []string
	err = db.Model(&models.EmployeeSkill{}).
		Where("tech_stack_id = ?", task.TechStackID).
		Pluck("employee_id", &skilled).Error
	if err != nil {
		return nil, fmt.Errorf("candidates: skills: %w", err)
	}

	out := make([]Candidate, 0, len(employees))
	for _, emp := range employees {
		load := loads[emp.ID]
		tentative := load + remaining
		out = append(out, Candidate{
			Employee:      emp,
			CurrentLoad:   load,
			FreeCapacity:  emp.WeeklyCapacity - load,
			LoadPercent:   LoadPercent(load, emp.WeeklyCapacity),
			AverageRating: emp.AverageRating,
			TentativeLoad: tentative,
			OverCapacity:  tentative > emp.WeeklyCapacity+hoursTolerance,
			SkillMatch:    slices.Contains(skilled, emp.ID),
		})
	}
	slices.SortFunc(out, CompareCandidates)
	return out, nil
}
