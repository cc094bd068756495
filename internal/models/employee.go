package models

import "time"

// Employee is a person whose weekly capacity can be committed to tasks.
// AverageRating is nil until the first review is recorded.
type Employee struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null"`
	Role           string    `json:"role" gorm:"not null"`
	WeeklyCapacity float64   `json:"weeklyCapacity" gorm:"column:weekly_capacity;not null"`
	AverageRating  *float64  `json:"averageRating" gorm:"column:average_rating"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Employee Model
func (Employee) TableName() string {
	return "employees"
}

// EmployeeSkill links an employee to a tech stack they can work on.
type EmployeeSkill struct {
	EmployeeID  string `json:"employeeId" gorm:"primaryKey;column:employee_id"`
	TechStackID uint   `json:"techStackId" gorm:"primaryKey;column:tech_stack_id"`
}

func (EmployeeSkill) TableName() string {
	return "employee_skills"
}
