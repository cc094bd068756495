package allocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"capacity-planner-api/internal/models"
	"capacity-planner-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *testutil.Fixture) {
	t.Helper()
	f := testutil.NewFixture(t)
	return New(f.DB(), opts...), f
}

func assignmentsOf(t *testing.T, f *testutil.Fixture, taskID string) []models.Assignment {
	t.Helper()
	var rows []models.Assignment
	require.NoError(t, f.DB().Where("task_id = ?", taskID).Order("employee_id").Find(&rows).Error)
	return rows
}

func TestAssign_TaskBudget(t *testing.T) {
	eng, f := newEngine(t)
	ctx := context.Background()
	f.Employee("e1", 40)
	f.Employee("e2", 40)
	f.Task("t1", 10)

	_, err := eng.Assign(ctx, "t1", []Allocation{{"e1", 6}, {"e2", 5}}, nil)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Empty(t, assignmentsOf(t, f, "t1"))

	view, err := eng.Assign(ctx, "t1", []Allocation{{"e1", 6}, {"e2", 4}}, nil)
	require.NoError(t, err)
	require.Equal(t, 10.0, view.AssignedHours)
	require.Equal(t, 0.0, view.RemainingHours)
	require.Equal(t, models.StateAssigned, view.State)
	require.Len(t, view.Assignments, 2)
}

func TestAssign_CountsExistingTaskHours(t *testing.T) {
	eng, f := newEngine(t)
	ctx := context.Background()
	f.Employee("e1", 40)
	f.Employee("e2", 40)
	f.Task("t1", 10)
	f.Assignment("t1", "e1", 8)

	_, err := eng.Assign(ctx, "t1", []Allocation{{"e2", 3}}, nil)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = eng.Assign(ctx, "t1", []Allocation{{"e2", 2}}, nil)
	require.NoError(t, err)
}

func TestAssign_EmployeeCapacity(t *testing.T) {
	eng, f := newEngine(t)
	ctx := context.Background()
	f.Employee("e1", 20)
	f.Task("busy", 18)
	f.Task("new", 10)
	f.Assignment("busy", "e1", 18)

	_, err := eng.Assign(ctx, "new", []Allocation{{"e1", 5}}, nil)
	require.ErrorIs(t, err, ErrOverAllocated)

	var engErr *Error
	require.True(t, errors.As(err, &engErr))
	require.Equal(t, "e1", engErr.EmployeeID)
	require.Equal(t, "new", engErr.TaskID)

	_, err = eng.Assign(ctx, "new", []Allocation{{"e1", 2}}, nil)
	require.NoError(t, err)
}

func TestAssign_AllOrNothing(t *testing.T) {
	eng, f := newEngine(t)
	f.Employee("free", 40)
	f.Employee("full", 10)
	f.Task("other", 10)
	f.Task("t1", 20)
	f.Assignment("other", "full", 10)

	_, err := eng.Assign(context.Background(), "t1", []Allocation{{"free", 5}, {"full", 1}}, nil)
	require.ErrorIs(t, err, ErrOverAllocated)
	require.Empty(t, assignmentsOf(t, f, "t1"))
}

func TestAssign_CompletedLoadIsFree(t *testing.T) {
	eng, f := newEngine(t)
	f.Employee("e1", 20)
	f.Task("done", 18)
	f.Task("new", 10)
	f.Assignment("done", "e1", 18)
	f.Complete("done")

	load, err := eng.CurrentLoad(context.Background(), "e1")
	require.NoError(t, err)
	require.Equal(t, 0.0, load)

	_, err = eng.Assign(context.Background(), "new", []Allocation{{"e1", 10}}, nil)
	require.NoError(t, err)
}

func TestAssign_Validation(t *testing.T) {
	eng, f := newEngine(t)
	f.Employee("e1", 40)
	f.Task("t1", 10)

	cases := map[string][]Allocation{
		"empty":     nil,
		"zero":      {{"e1", 0}},
		"negative":  {{"e1", -2}},
		"duplicate": {{"e1", 2}, {"e1", 3}},
		"no id":     {{"", 2}},
	}
	for name, allocs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := eng.Assign(context.Background(), "t1", allocs, nil)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
	require.Empty(t, assignmentsOf(t, f, "t1"))
}

func TestAssign_NotFound(t *testing.T) {
	eng, f := newEngine(t)
	f.Employee("e1", 40)
	f.Task("t1", 10)

	_, err := eng.Assign(context.Background(), "missing", []Allocation{{"e1", 2}}, nil)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = eng.Assign(context.Background(), "t1", []Allocation{{"e1", 2}, {"ghost", 2}}, nil)
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, assignmentsOf(t, f, "t1"))
}

func TestAssign_UpsertReplacesHours(t *testing.T) {
	eng, f := newEngine(t)
	ctx := context.Background()
	f.Employee("e1", 10)
	f.Task("t1", 10)

	_, err := eng.Assign(ctx, "t1", []Allocation{{"e1", 8}}, nil)
	require.NoError(t, err)

	// 8 already held by e1 is replaced, not added: 9 fits both budgets.
	view, err := eng.Assign(ctx, "t1", []Allocation{{"e1", 9}}, nil)
	require.NoError(t, err)
	require.Len(t, view.Assignments, 1)
	require.Equal(t, 9.0, view.Assignments[0].Hours)

	load, err := eng.CurrentLoad(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, 9.0, load)
}

func TestAssign_RejectsCompletedTask(t *testing.T) {
	eng, f := newEngine(t)
	f.Employee("e1", 40)
	f.Employee("e2", 40)
	f.Task("t1", 10)
	f.Assignment("t1", "e1", 4)
	f.Complete("t1")

	_, err := eng.Assign(context.Background(), "t1", []Allocation{{"e2", 2}}, nil)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestAssign_SetsStartDate(t *testing.T) {
	eng, f := newEngine(t)
	f.Employee("e1", 40)
	f.Task("t1", 10)
	start := time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)

	view, err := eng.Assign(context.Background(), "t1", []Allocation{{"e1", 4}}, &start)
	require.NoError(t, err)
	require.NotNil(t, view.Task.StartDate)
	require.True(t, start.Equal(*view.Task.StartDate))
	require.NotNil(t, view.Assignments[0].StartDate)
	require.True(t, start.Equal(*view.Assignments[0].StartDate))
}

func TestUnassign(t *testing.T) {
	eng, f := newEngine(t)
	ctx := context.Background()
	f.Employee("e1", 40)
	f.Employee("e2", 40)
	f.Task("t1", 10)
	f.Assignment("t1", "e2", 3)
	before := assignmentsOf(t, f, "t1")

	_, err := eng.Assign(ctx, "t1", []Allocation{{"e1", 5}}, nil)
	require.NoError(t, err)

	view, err := eng.Unassign(ctx, "t1", "e1")
	require.NoError(t, err)
	require.Equal(t, 3.0, view.AssignedHours)

	after := assignmentsOf(t, f, "t1")
	require.Len(t, after, len(before))
	require.Equal(t, before[0].EmployeeID, after[0].EmployeeID)
	require.Equal(t, before[0].Hours, after[0].Hours)

	_, err = eng.Unassign(ctx, "t1", "e1")
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, assignmentsOf(t, f, "t1"), 1)
}

func TestUnassign_CompletedTask(t *testing.T) {
	eng, f := newEngine(t)
	f.Employee("e1", 40)
	f.Task("t1", 10)
	f.Assignment("t1", "e1", 3)
	f.Complete("t1")

	_, err := eng.Unassign(context.Background(), "t1", "e1")
	require.ErrorIs(t, err, ErrInvalidState)
	require.Len(t, assignmentsOf(t, f, "t1"), 1)
}

func TestReleaseEmployee(t *testing.T) {
	rec := &recorder{}
	eng, f := newEngine(t, WithNotifier(rec))
	ctx := context.Background()
	f.Employee("e1", 40)
	f.Employee("e2", 40)
	f.Task("a", 10)
	f.Task("b", 10)
	f.Task("done", 10)
	f.Assignment("a", "e1", 4)
	f.Assignment("a", "e2", 4)
	f.Assignment("b", "e1", 6)
	f.Assignment("done", "e1", 5)
	f.Complete("done")

	rel, err := eng.ReleaseEmployee(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, rel.Removed, 2)
	require.Equal(t, "a", rel.Removed[0].TaskID)
	require.Equal(t, "b", rel.Removed[1].TaskID)

	load, err := eng.CurrentLoad(ctx, "e1")
	require.NoError(t, err)
	require.Zero(t, load)
	require.Len(t, assignmentsOf(t, f, "a"), 1)
	require.Len(t, assignmentsOf(t, f, "done"), 1)
	require.Equal(t, []EventType{EventEmployeeReleased}, rec.types())

	rel, err = eng.ReleaseEmployee(ctx, "e1")
	require.NoError(t, err)
	require.Empty(t, rel.Removed)

	_, err = eng.ReleaseEmployee(ctx, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestToggleCompletion(t *testing.T) {
	eng, f := newEngine(t)
	ctx := context.Background()
	f.Employee("e1", 40)
	f.Task("t1", 10)

	_, err := eng.ToggleCompletion(ctx, "t1")
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = eng.ToggleCompletion(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = eng.Assign(ctx, "t1", []Allocation{{"e1", 6}}, nil)
	require.NoError(t, err)

	view, err := eng.ToggleCompletion(ctx, "t1")
	require.NoError(t, err)
	require.True(t, view.Task.Completed)
	require.Equal(t, models.StateCompleted, view.State)

	load, err := eng.CurrentLoad(ctx, "e1")
	require.NoError(t, err)
	require.Zero(t, load)

	view, err = eng.ToggleCompletion(ctx, "t1")
	require.NoError(t, err)
	require.False(t, view.Task.Completed)
	require.Equal(t, models.StateAssigned, view.State)

	load, err = eng.CurrentLoad(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, 6.0, load)
}

func TestToggleCompletion_ReopenRespectsCapacity(t *testing.T) {
	eng, f := newEngine(t)
	ctx := context.Background()
	f.Employee("e1", 20)
	f.Task("old", 15)
	f.Task("new", 15)
	f.Assignment("old", "e1", 15)
	f.Complete("old")

	_, err := eng.Assign(ctx, "new", []Allocation{{"e1", 15}}, nil)
	require.NoError(t, err)

	_, err = eng.ToggleCompletion(ctx, "old")
	require.ErrorIs(t, err, ErrOverAllocated)

	var task models.Task
	require.NoError(t, f.DB().First(&task, "id = ?", "old").Error)
	require.True(t, task.Completed)
}

func TestLedger_EventsOnlyOnCommit(t *testing.T) {
	rec := &recorder{}
	eng, f := newEngine(t, WithNotifier(rec))
	ctx := context.Background()
	f.Employee("e1", 40)
	f.Task("t1", 10)

	_, err := eng.Assign(ctx, "t1", []Allocation{{"e1", 20}}, nil)
	require.Error(t, err)
	require.Empty(t, rec.types())

	_, err = eng.Assign(ctx, "t1", []Allocation{{"e1", 5}}, nil)
	require.NoError(t, err)
	_, err = eng.ToggleCompletion(ctx, "t1")
	require.NoError(t, err)
	_, err = eng.ToggleCompletion(ctx, "t1")
	require.NoError(t, err)
	_, err = eng.Unassign(ctx, "t1", "e1")
	require.NoError(t, err)

	require.Equal(t, []EventType{
		EventAssignmentCreated,
		EventTaskCompleted,
		EventTaskReopened,
		EventAssignmentRemoved,
	}, rec.types())
}

func TestAssign_ConcurrentSameTask(t *testing.T) {
	eng, f := newEngine(t)
	f.Task("t1", 10)
	ids := []string{"e0", "e1", "e2", "e3", "e4", "e5", "e6", "e7"}
	for _, id := range ids {
		f.Employee(id, 40)
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Assign(context.Background(), "t1", []Allocation{{id, 3}}, nil)
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrCapacityExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, ok)
	var total float64
	for _, a := range assignmentsOf(t, f, "t1") {
		total += a.Hours
	}
	require.LessOrEqual(t, total, 10.0)
	require.Zero(t, eng.locks.size())
}

func TestAssign_ConcurrentSameEmployee(t *testing.T) {
	eng, f := newEngine(t)
	f.Employee("e1", 20)
	tasks := []string{"t0", "t1", "t2", "t3", "t4", "t5"}
	for _, id := range tasks {
		f.Task(id, 5)
	}

	var wg sync.WaitGroup
	for _, id := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Assign(context.Background(), id, []Allocation{{"e1", 5}}, nil)
			if err != nil && !errors.Is(err, ErrOverAllocated) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	load, err := eng.CurrentLoad(context.Background(), "e1")
	require.NoError(t, err)
	require.Equal(t, 20.0, load)
}

// stallingNotifier blocks its first Publish until release is closed.
type stallingNotifier struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (n *stallingNotifier) Publish(Event) {
	n.mu.Lock()
	n.calls++
	first := n.calls == 1
	n.mu.Unlock()
	if first {
		close(n.entered)
		<-n.release
	}
}

func TestAssign_SlowNotifierDoesNotHoldLocks(t *testing.T) {
	n := &stallingNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	eng, f := newEngine(t, WithNotifier(n))
	ctx := context.Background()
	f.Employee("e1", 40)
	f.Employee("e2", 40)
	f.Task("t1", 10)

	firstDone := make(chan error, 1)
	go func() {
		_, err := eng.Assign(ctx, "t1", []Allocation{{"e1", 2}}, nil)
		firstDone <- err
	}()
	<-n.entered
	defer close(n.release)

	secondDone := make(chan error, 1)
	go func() {
		_, err := eng.Assign(ctx, "t1", []Allocation{{"e2", 2}}, nil)
		secondDone <- err
	}()

	select {
	case err := <-secondDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("second Assign on the same task waited for the first one's Publish")
	}
	select {
	case <-firstDone:
		t.Fatal("first Assign returned before its Publish was released")
	default:
	}
	require.Zero(t, eng.locks.size())
	require.Len(t, assignmentsOf(t, f, "t1"), 2)
}

func TestToggleCompletion_AssigneeAddedBeforeLock(t *testing.T) {
	rec := &recorder{}
	eng, f := newEngine(t, WithNotifier(rec))
	ctx := context.Background()
	f.Employee("e1", 40)
	f.Employee("e2", 40)
	f.Task("t1", 10)
	f.Assignment("t1", "e1", 4)

	reads := 0
	eng.afterAssigneeRead = func() {
		reads++
		if reads == 1 {
			_, err := eng.Assign(ctx, "t1", []Allocation{{"e2", 3}}, nil)
			require.NoError(t, err)
		}
	}

	view, err := eng.ToggleCompletion(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, 2, reads)
	require.Equal(t, models.StateCompleted, view.State)
	require.Len(t, view.Assignments, 2)

	rec.mu.Lock()
	last := rec.events[len(rec.events)-1]
	rec.mu.Unlock()
	require.Equal(t, EventTaskCompleted, last.Type)
	require.Equal(t, []string{"e1", "e2"}, last.EmployeeIDs)
}

func TestToggleCompletion_AssigneesKeepChanging(t *testing.T) {
	eng, f := newEngine(t)
	ctx := context.Background()
	f.Task("t1", 10)
	f.Employee("e0", 40)
	f.Assignment("t1", "e0", 4)
	for i := 1; i <= toggleAttempts; i++ {
		f.Employee(fmt.Sprintf("e%d", i), 40)
	}

	reads := 0
	eng.afterAssigneeRead = func() {
		reads++
		_, err := eng.Assign(ctx, "t1", []Allocation{{fmt.Sprintf("e%d", reads), 1}}, nil)
		require.NoError(t, err)
	}

	_, err := eng.ToggleCompletion(ctx, "t1")
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, toggleAttempts, reads)

	view, err := eng.TaskView(ctx, "t1")
	require.NoError(t, err)
	require.False(t, view.Task.Completed)
	require.Zero(t, eng.locks.size())
}
