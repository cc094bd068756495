// Package records holds the plain persistence operations of the record
// store: creating and reading employees, projects, tasks, users and the
// tech-stack catalogue. It carries no allocation rules.
package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"capacity-planner-api/internal/cache"
	"capacity-planner-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrInvalid  = errors.New("invalid record")
	ErrConflict = errors.New("record already exists")
)

const techStacksKey = "all"

// RoleSkills maps an employee role to the tech stacks they work on.
var RoleSkills = map[string][]string{
	"Frontend Developer": {"Frontend Dev", "UI Design", "Design", "Feature"},
	"Backend Developer":  {"Backend API", "Security Review", "Database Setup", "Testing", "Planning", "Data Analysis", "Feature"},
	"QA Engineer":        {"Testing", "Security Review"},
	"Designer":           {"Design", "UI Design"},
	"Database Admin":     {"Database Setup"},
	"Project Manager":    {"Planning", "Supervising"},
	"Data Analyst":       {"Data Analysis", "Planning"},
	"Feature Developer":  {"Feature"},
	"Supervisor":         {"Supervising", "Planning"},
}

// Store reads and writes records.
type Store struct {
	db         *gorm.DB
	techStacks cache.Cache[string, []models.TechStack]
}

// New builds a Store. The tech-stack catalogue is cached for ttl.
func New(db *gorm.DB, ttl time.Duration) *Store {
	return &Store{
		db:         db,
		techStacks: cache.NewTTLCache[string, []models.TechStack](ttl),
	}
}

// TechStacks returns the catalogue ordered by id.
func (s *Store) TechStacks(ctx context.Context) ([]models.TechStack, error) {
	return s.techStacks.GetOrLoad(techStacksKey, func() ([]models.TechStack, error) {
		var list []models.TechStack
		if err := s.db.WithContext(ctx).Order("id").Find(&list).Error; err != nil {
			return nil, fmt.Errorf("records: tech stacks: %w", err)
		}
		return list, nil
	})
}

// TechStackByName resolves a catalogue name, case-insensitively.
func (s *Store) TechStackByName(ctx context.Context, name string) (models.TechStack, error) {
	list, err := s.TechStacks(ctx)
	if err != nil {
		return models.TechStack{}, err
	}
	for _, ts := range list {
		if strings.EqualFold(ts.Name, strings.TrimSpace(name)) {
			return ts, nil
		}
	}
	return models.TechStack{}, fmt.Errorf("%w: tech stack %q", ErrNotFound, name)
}

// AddTechStack extends the catalogue.
func (s *Store) AddTechStack(ctx context.Context, name string) (models.TechStack, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.TechStack{}, fmt.Errorf("%w: tech stack name is required", ErrInvalid)
	}
	if existing, err := s.TechStackByName(ctx, name); err == nil {
		return existing, nil
	}
	ts := models.TechStack{Name: name}
	if err := s.db.WithContext(ctx).Create(&ts).Error; err != nil {
		return models.TechStack{}, fmt.Errorf("records: add tech stack: %w", err)
	}
	s.techStacks.Invalidate(techStacksKey)
	return ts, nil
}

// EmployeeInput describes a new employee. Skills, when empty, default to
// the role's entry in RoleSkills.
type EmployeeInput struct {
	ID             string
	Name           string
	Role           string
	WeeklyCapacity float64
	Skills         []string
}

// CreateEmployee inserts the employee and their skills.
func (s *Store) CreateEmployee(ctx context.Context, in EmployeeInput) (models.Employee, error) {
	if strings.TrimSpace(in.Name) == "" {
		return models.Employee{}, fmt.Errorf("%w: employee name is required", ErrInvalid)
	}
	if !(in.WeeklyCapacity > 0) {
		return models.Employee{}, fmt.Errorf("%w: weekly capacity must be positive, got %g", ErrInvalid, in.WeeklyCapacity)
	}
	skills := in.Skills
	if len(skills) == 0 {
		skills = RoleSkills[in.Role]
	}
	stacks := make([]models.TechStack, 0, len(skills))
	for _, name := range skills {
		ts, err := s.TechStackByName(ctx, name)
		if err != nil {
			return models.Employee{}, err
		}
		stacks = append(stacks, ts)
	}

	emp := models.Employee{
		ID:             in.ID,
		Name:           strings.TrimSpace(in.Name),
		Role:           in.Role,
		WeeklyCapacity: in.WeeklyCapacity,
	}
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAbsent(tx, &models.Employee{}, emp.ID); err != nil {
			return err
		}
		if err := tx.Create(&emp).Error; err != nil {
			return fmt.Errorf("records: create employee: %w", err)
		}
		for _, ts := range stacks {
			skill := models.EmployeeSkill{EmployeeID: emp.ID, TechStackID: ts.ID}
			if err := tx.FirstOrCreate(&skill, skill).Error; err != nil {
				return fmt.Errorf("records: employee skill: %w", err)
			}
		}
		return nil
	})
	return emp, err
}

// Employee returns one employee.
func (s *Store) Employee(ctx context.Context, id string) (models.Employee, error) {
	var emp models.Employee
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&emp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return emp, fmt.Errorf("%w: employee %s", ErrNotFound, id)
	}
	return emp, err
}

// ProjectInput describes a new project.
type ProjectInput struct {
	ID        string
	Name      string
	Client    string
	StartDate time.Time
	Deadline  time.Time
}

// CreateProject inserts a project.
func (s *Store) CreateProject(ctx context.Context, in ProjectInput) (models.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return models.Project{}, fmt.Errorf("%w: project name is required", ErrInvalid)
	}
	if !in.StartDate.IsZero() && !in.Deadline.IsZero() && in.Deadline.Before(in.StartDate) {
		return models.Project{}, fmt.Errorf("%w: project deadline precedes start date", ErrInvalid)
	}
	p := models.Project{
		ID:        in.ID,
		Name:      strings.TrimSpace(in.Name),
		Client:    in.Client,
		StartDate: in.StartDate,
		Deadline:  in.Deadline,
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAbsent(tx, &models.Project{}, p.ID); err != nil {
			return err
		}
		return tx.Create(&p).Error
	})
	return p, err
}

// TaskInput describes a new task on an existing project.
type TaskInput struct {
	ID             string
	ProjectID      string
	TechStack      string
	EstimatedHours float64
	StartDate      *time.Time
	Deadline       time.Time
}

// CreateTask inserts an unassigned, incomplete task.
func (s *Store) CreateTask(ctx context.Context, in TaskInput) (models.Task, error) {
	if !(in.EstimatedHours > 0) {
		return models.Task{}, fmt.Errorf("%w: estimated hours must be positive, got %g", ErrInvalid, in.EstimatedHours)
	}
	ts, err := s.TechStackByName(ctx, in.TechStack)
	if err != nil {
		return models.Task{}, err
	}
	t := models.Task{
		ID:             in.ID,
		ProjectID:      in.ProjectID,
		TechStackID:    ts.ID,
		EstimatedHours: in.EstimatedHours,
		StartDate:      in.StartDate,
		Deadline:       in.Deadline,
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Project{}).Where("id = ?", in.ProjectID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: project %s", ErrNotFound, in.ProjectID)
		}
		if err := ensureAbsent(tx, &models.Task{}, t.ID); err != nil {
			return err
		}
		return tx.Create(&t).Error
	})
	return t, err
}

// CreateUser inserts a login principal with an already hashed password.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash, employeeID string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || passwordHash == "" {
		return models.User{}, fmt.Errorf("%w: username and password are required", ErrInvalid)
	}
	u := models.User{
		ID:         uuid.NewString(),
		Username:   username,
		Password:   passwordHash,
		EmployeeID: employeeID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: username %s", ErrConflict, username)
		}
		if employeeID != "" {
			if err := tx.Model(&models.Employee{}).Where("id = ?", employeeID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("%w: employee %s", ErrNotFound, employeeID)
			}
		}
		return tx.Create(&u).Error
	})
	return u, err
}

// UserByUsername looks up a principal for login.
func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return u, fmt.Errorf("%w: user %s", ErrNotFound, username)
	}
	return u, err
}

// Users lists principals ordered by username.
func (s *Store) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("records: users: %w", err)
	}
	return users, nil
}

func ensureAbsent(tx *gorm.DB, model any, id string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: id %s", ErrConflict, id)
	}
	return nil
}
