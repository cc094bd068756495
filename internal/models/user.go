package models

import "time"

// User is a login principal. EmployeeID links the principal to an employee
// record for self-service flows; it is empty for admin-only accounts.
type User struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Username   string    `json:"username" gorm:"unique;not null"`
	Password   string    `json:"-" gorm:"not null"`
	EmployeeID string    `json:"employeeId,omitempty" gorm:"column:employee_id;index"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}
