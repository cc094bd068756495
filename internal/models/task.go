package models

import (
	"time"
)

// TaskState is the lifecycle position of a task, derived from its
// completion flag, assignments and reviews.
type TaskState string

const (
	StateUnassigned TaskState = "unassigned"
	StateAssigned   TaskState = "assigned"
	StateCompleted  TaskState = "completed"
	StateReviewed   TaskState = "reviewed"
)

// Project owns a set of tasks.
type Project struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Client    string    `json:"client"`
	StartDate time.Time `json:"startDate" gorm:"column:start_date"`
	Deadline  time.Time `json:"deadline"`
	Tasks     []Task    `json:"tasks,omitempty" gorm:"foreignKey:ProjectID"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Project Model
func (Project) TableName() string {
	return "projects"
}

// Task is a unit of work that may be split across several employees.
type Task struct {
	ID             string       `json:"id" gorm:"primaryKey"`
	ProjectID      string       `json:"projectId" gorm:"column:project_id;not null;index"`
	TechStackID    uint         `json:"techStackId" gorm:"column:tech_stack_id;index"`
	EstimatedHours float64      `json:"estimatedHours" gorm:"column:estimated_hours;not null"`
	StartDate      *time.Time   `json:"startDate" gorm:"column:start_date"`
	Deadline       time.Time    `json:"deadline" gorm:"index"`
	Completed      bool         `json:"completed" gorm:"not null;default:false"`
	Reviewed       bool         `json:"reviewed" gorm:"not null;default:false"`
	Assignments    []Assignment `json:"assignments,omitempty" gorm:"foreignKey:TaskID"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}
