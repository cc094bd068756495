// Package seed loads a YAML fixture of employees, projects, tasks, users
// and starting assignments into a database. Assignments go through the
// allocation engine, so a fixture that over-commits anyone is rejected.
package seed

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"capacity-planner-api/internal/allocation"
	"capacity-planner-api/internal/auth"
	"capacity-planner-api/internal/records"

	"gopkg.in/yaml.v3"
)

// Fixture models a seed file.
type Fixture struct {
	TechStacks  []string     `yaml:"tech_stacks"`
	Employees   []Employee   `yaml:"employees"`
	Projects    []Project    `yaml:"projects"`
	Users       []User       `yaml:"users"`
	Assignments []Assignment `yaml:"assignments"`
}

type Employee struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Role           string   `yaml:"role"`
	WeeklyCapacity float64  `yaml:"weekly_capacity"`
	Skills         []string `yaml:"skills"`
}

type Project struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Client    string `yaml:"client"`
	StartDate string `yaml:"start_date"`
	Deadline  string `yaml:"deadline"`
	Tasks     []Task `yaml:"tasks"`
}

type Task struct {
	ID             string  `yaml:"id"`
	TechStack      string  `yaml:"tech_stack"`
	EstimatedHours float64 `yaml:"estimated_hours"`
	StartDate      string  `yaml:"start_date"`
	Deadline       string  `yaml:"deadline"`
}

type User struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	EmployeeID string `yaml:"employee_id"`
}

type Assignment struct {
	TaskID     string  `yaml:"task_id"`
	EmployeeID string  `yaml:"employee_id"`
	Hours      float64 `yaml:"hours"`
	StartDate  string  `yaml:"start_date"`
}

// ReadFile parses the fixture at path.
func ReadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("fixture %s is empty", path)
	}
	return Parse(data)
}

// Parse decodes a fixture document.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// Summary counts what Apply wrote.
type Summary struct {
	Employees   int
	Projects    int
	Tasks       int
	Users       int
	Assignments int
}

// Apply writes the fixture in dependency order and stops at the first
// error. Records written before the error are kept.
func Apply(ctx context.Context, f *Fixture, store *records.Store, engine *allocation.Engine) (Summary, error) {
	var sum Summary

	for _, name := range f.TechStacks {
		if _, err := store.AddTechStack(ctx, name); err != nil {
			return sum, err
		}
	}

	for _, e := range f.Employees {
		_, err := store.CreateEmployee(ctx, records.EmployeeInput{
			ID:             e.ID,
			Name:           e.Name,
			Role:           e.Role,
			WeeklyCapacity: e.WeeklyCapacity,
			Skills:         e.Skills,
		})
		if err != nil {
			return sum, fmt.Errorf("employee %s: %w", e.ID, err)
		}
		sum.Employees++
	}

	for _, p := range f.Projects {
		start, err := parseDate(p.StartDate)
		if err != nil {
			return sum, fmt.Errorf("project %s: %w", p.ID, err)
		}
		deadline, err := parseDate(p.Deadline)
		if err != nil {
			return sum, fmt.Errorf("project %s: %w", p.ID, err)
		}
		in := records.ProjectInput{ID: p.ID, Name: p.Name, Client: p.Client}
		if start != nil {
			in.StartDate = *start
		}
		if deadline != nil {
			in.Deadline = *deadline
		}
		project, err := store.CreateProject(ctx, in)
		if err != nil {
			return sum, fmt.Errorf("project %s: %w", p.ID, err)
		}
		sum.Projects++

		for _, t := range p.Tasks {
			taskStart, err := parseDate(t.StartDate)
			if err != nil {
				return sum, fmt.Errorf("task %s: %w", t.ID, err)
			}
			taskDeadline, err := parseDate(t.Deadline)
			if err != nil {
				return sum, fmt.Errorf("task %s: %w", t.ID, err)
			}
			if taskDeadline == nil {
				taskDeadline = deadline
			}
			if taskDeadline == nil {
				return sum, fmt.Errorf("task %s: deadline is required", t.ID)
			}
			_, err = store.CreateTask(ctx, records.TaskInput{
				ID:             t.ID,
				ProjectID:      project.ID,
				TechStack:      t.TechStack,
				EstimatedHours: t.EstimatedHours,
				StartDate:      taskStart,
				Deadline:       *taskDeadline,
			})
			if err != nil {
				return sum, fmt.Errorf("task %s: %w", t.ID, err)
			}
			sum.Tasks++
		}
	}

	for _, u := range f.Users {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return sum, fmt.Errorf("user %s: %w", u.Username, err)
		}
		if _, err := store.CreateUser(ctx, u.Username, hash, u.EmployeeID); err != nil {
			return sum, fmt.Errorf("user %s: %w", u.Username, err)
		}
		sum.Users++
	}

	for _, a := range f.Assignments {
		start, err := parseDate(a.StartDate)
		if err != nil {
			return sum, fmt.Errorf("assignment %s/%s: %w", a.TaskID, a.EmployeeID, err)
		}
		allocs := []allocation.Allocation{{EmployeeID: a.EmployeeID, Hours: a.Hours}}
		if _, err := engine.Assign(ctx, a.TaskID, allocs, start); err != nil {
			return sum, fmt.Errorf("assignment %s/%s: %w", a.TaskID, a.EmployeeID, err)
		}
		sum.Assignments++
	}

	log.Printf("Seed: %d employees, %d projects, %d tasks, %d users, %d assignments",
		sum.Employees, sum.Projects, sum.Tasks, sum.Users, sum.Assignments)
	return sum, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}
