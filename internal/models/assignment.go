package models

import "time"

// Assignment commits part of a task's hours to one employee. The
// (TaskID, EmployeeID) pair is unique.
type Assignment struct {
	TaskID     string     `json:"taskId" gorm:"primaryKey;column:task_id"`
	EmployeeID string     `json:"employeeId" gorm:"primaryKey;column:employee_id;index"`
	Hours      float64    `json:"hours" gorm:"not null"`
	StartDate  *time.Time `json:"startDate" gorm:"column:start_date"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// Review rates one employee's work on one completed task.
type Review struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	TaskID     string    `json:"taskId" gorm:"column:task_id;not null;uniqueIndex:idx_review_pair"`
	EmployeeID string    `json:"employeeId" gorm:"column:employee_id;not null;uniqueIndex:idx_review_pair;index"`
	Rating     int       `json:"rating" gorm:"not null"`
	Comment    *string   `json:"comment"`
	ReviewedAt time.Time `json:"reviewedAt" gorm:"column:reviewed_at"`
}

func (Review) TableName() string {
	return "reviews"
}

// All lists every model migrated by the database package.
func All() []any {
	return []any{
		&User{},
		&TechStack{},
		&Employee{},
		&EmployeeSkill{},
		&Project{},
		&Task{},
		&Assignment{},
		&Review{},
	}
}
