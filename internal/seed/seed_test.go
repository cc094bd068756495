package seed

import (
	"context"
	"testing"
	"time"

	"capacity-planner-api/internal/allocation"
	"capacity-planner-api/internal/records"
	"capacity-planner-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

const fixture = `
tech_stacks: [Mobile]
employees:
  - id: e1
    name: Ada
    role: Backend Developer
    weekly_capacity: 40
  - id: e2
    name: Lin
    role: Designer
    weekly_capacity: 20
    skills: [Mobile, Design]
projects:
  - id: p1
    name: Portal
    client: Acme
    start_date: 2030-01-01
    deadline: 2030-03-01
    tasks:
      - id: t1
        tech_stack: Backend API
        estimated_hours: 30
      - id: t2
        tech_stack: Mobile
        estimated_hours: 12
        deadline: 2030-02-01
users:
  - username: ada
    password: s3cret!
    employee_id: e1
assignments:
  - task_id: t1
    employee_id: e1
    hours: 30
    start_date: 2030-01-05
`

func TestApply(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	store := records.New(db, time.Minute)
	engine := allocation.New(db)
	ctx := context.Background()

	f, err := Parse([]byte(fixture))
	require.NoError(t, err)
	sum, err := Apply(ctx, f, store, engine)
	require.NoError(t, err)
	require.Equal(t, Summary{Employees: 2, Projects: 1, Tasks: 2, Users: 1, Assignments: 1}, sum)

	load, err := engine.EmployeeLoad(ctx, "e1")
	require.NoError(t, err)
	require.InDelta(t, 75, load.LoadPercent, 1e-9)

	view, err := engine.TaskView(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC), view.Task.Deadline.UTC())

	suggestions, err := engine.SuggestedTasksFor(ctx, "e2")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	require.Equal(t, "t2", suggestions[0].TaskID)
}

func TestApply_RejectsOverCommittedFixture(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	f := &Fixture{
		Employees: []Employee{{ID: "e1", Name: "Ada", WeeklyCapacity: 10}},
		Projects: []Project{{ID: "p1", Name: "Portal", Deadline: "2030-03-01", Tasks: []Task{
			{ID: "t1", TechStack: "Testing", EstimatedHours: 20},
		}}},
		Assignments: []Assignment{{TaskID: "t1", EmployeeID: "e1", Hours: 15}},
	}
	_, err = Apply(context.Background(), f, records.New(db, time.Minute), allocation.New(db))
	require.ErrorIs(t, err, allocation.ErrOverAllocated)
}

func TestParse_BadDate(t *testing.T) {
	f, err := Parse([]byte("projects:\n  - id: p1\n    name: X\n    deadline: soon\n"))
	require.NoError(t, err)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	_, err = Apply(context.Background(), f, records.New(db, time.Minute), allocation.New(db))
	require.Error(t, err)
}
