package testutil

import (
	"fmt"
	"testing"
	"time"

	"capacity-planner-api/internal/database"
	"capacity-planner-api/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations.
func NewInMemoryDB() (*gorm.DB, error) {
	db, err := database.Open(":memory:", 1, logger.Silent)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Fixture seeds records directly, bypassing the engine.
type Fixture struct {
	t  *testing.T
	db *gorm.DB
	n  int
}

// NewFixture opens a fresh in-memory database for t.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	db, err := NewInMemoryDB()
	require.NoError(t, err)
	return &Fixture{t: t, db: db}
}

// DB returns the fixture's database.
func (f *Fixture) DB() *gorm.DB { return f.db }

// Employee inserts an employee with the given id and weekly capacity.
func (f *Fixture) Employee(id string, capacity float64) models.Employee {
	f.t.Helper()
	e := models.Employee{ID: id, Name: "Employee " + id, Role: "Backend Developer", WeeklyCapacity: capacity}
	require.NoError(f.t, f.db.Create(&e).Error)
	return e
}

// Skill records that employee can work on techStack.
func (f *Fixture) Skill(employeeID string, techStack uint) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&models.EmployeeSkill{EmployeeID: employeeID, TechStackID: techStack}).Error)
}

// Task inserts a task on an auto-created project. Deadlines are spaced a
// day apart in insertion order unless overridden with TaskDue.
func (f *Fixture) Task(id string, estimated float64) models.Task {
	f.t.Helper()
	f.n++
	return f.TaskDue(id, estimated, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, f.n))
}

// TaskDue inserts a task with an explicit deadline.
func (f *Fixture) TaskDue(id string, estimated float64, deadline time.Time) models.Task {
	f.t.Helper()
	projectID := "p-" + id
	require.NoError(f.t, f.db.Create(&models.Project{
		ID:       projectID,
		Name:     fmt.Sprintf("Project for %s", id),
		Deadline: deadline,
	}).Error)
	task := models.Task{
		ID:             id,
		ProjectID:      projectID,
		TechStackID:    5,
		EstimatedHours: estimated,
		Deadline:       deadline,
	}
	require.NoError(f.t, f.db.Create(&task).Error)
	return task
}

// Assignment inserts an assignment row directly.
func (f *Fixture) Assignment(taskID, employeeID string, hours float64) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&models.Assignment{TaskID: taskID, EmployeeID: employeeID, Hours: hours}).Error)
}

// Complete flips the task's completion flag on directly.
func (f *Fixture) Complete(taskID string) {
	f.t.Helper()
	require.NoError(f.t, f.db.Model(&models.Task{}).Where("id = ?", taskID).Update("completed", true).Error)
}
