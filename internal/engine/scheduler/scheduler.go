// Package scheduler runs the tasks of a domain.Graph in dependency order.
package scheduler

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"go.trai.ch/zerr"
)

// AllTargets selects every task in the graph.
const AllTargets = "all"

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	// StatusPending indicates the task is waiting to be executed.
	StatusPending TaskStatus = "Pending"
	// StatusRunning indicates the task is currently executing.
	StatusRunning TaskStatus = "Running"
	// StatusCompleted indicates the task has finished successfully.
	StatusCompleted TaskStatus = "Completed"
	// StatusFailed indicates the task execution failed.
	StatusFailed TaskStatus = "Failed"
)

// Scheduler manages the execution of tasks in the dependency graph.
type Scheduler struct {
	executor ports.Executor
	tracer   ports.Tracer

	mu         sync.RWMutex
	taskStatus map[string]TaskStatus
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(executor ports.Executor, tracer ports.Tracer) *Scheduler {
	return &Scheduler{
		executor:   executor,
		tracer:     tracer,
		taskStatus: make(map[string]TaskStatus),
	}
}

// Status returns the last known status of the named task.
func (s *Scheduler) Status(name string) (TaskStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.taskStatus[name]
	return st, ok
}

func (s *Scheduler) initTaskStatuses(tasks []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range tasks {
		s.taskStatus[task] = StatusPending
	}
}

func (s *Scheduler) updateStatus(name string, status TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskStatus[name] = status
}

// Run executes the named targets and their prerequisites with at most
// parallelism tasks in flight. If targetNames contains "all", every task in
// the graph runs. After the first failure no further tasks are dispatched;
// tasks already running are allowed to finish and every error is joined.
func (s *Scheduler) Run(
	ctx context.Context,
	graph *domain.Graph,
	targetNames []string,
	parallelism int,
) error {
	if len(targetNames) == 0 {
		return domain.ErrNoTargetsSpecified
	}
	if err := graph.Validate(); err != nil {
		return err
	}
	if parallelism < 1 {
		parallelism = 1
	}

	state, err := s.newRunState(ctx, graph, targetNames, parallelism)
	if err != nil {
		return err
	}

	planned := make([]string, 0, len(state.tasks))
	depMap := make(map[string][]string, len(state.tasks))
	for task := range graph.Walk() {
		if _, ok := state.tasks[task.Name]; ok {
			planned = append(planned, task.Name)
			depMap[task.Name] = slices.Clone(task.Dependencies)
		}
	}

	s.tracer.EmitPlan(ctx, planned, depMap, targetNames)
	s.initTaskStatuses(planned)

	return state.runExecutionLoop()
}

type result struct {
	task string
	err  error
}

type schedulerRunState struct {
	graph       *domain.Graph
	inDegree    map[string]int
	tasks       map[string]domain.Task
	ready       []string
	active      int
	failed      bool
	resultsCh   chan result
	errs        error
	ctx         context.Context
	parallelism int
	s           *Scheduler
}

func (s *Scheduler) newRunState(
	ctx context.Context,
	graph *domain.Graph,
	targetNames []string,
	parallelism int,
) (*schedulerRunState, error) {
	tasksToRun, err := resolveTasksToRun(graph, targetNames)
	if err != nil {
		return nil, err
	}

	inDegree := make(map[string]int, len(tasksToRun))
	tasks := make(map[string]domain.Task, len(tasksToRun))
	for name := range tasksToRun {
		task, _ := graph.GetTask(name)
		tasks[name] = task

		// Only prerequisites that are part of this run hold a task back.
		degree := 0
		for _, dep := range task.Dependencies {
			if tasksToRun[dep] {
				degree++
			}
		}
		inDegree[name] = degree
	}

	// Seed the ready queue in execution order so dispatch is deterministic.
	var ready []string
	for task := range graph.Walk() {
		if deg, ok := inDegree[task.Name]; ok && deg == 0 {
			ready = append(ready, task.Name)
		}
	}

	return &schedulerRunState{
		graph:       graph,
		inDegree:    inDegree,
		tasks:       tasks,
		ready:       ready,
		resultsCh:   make(chan result, parallelism),
		ctx:         ctx,
		parallelism: parallelism,
		s:           s,
	}, nil
}

func resolveTasksToRun(graph *domain.Graph, targetNames []string) (map[string]bool, error) {
	tasksToRun := make(map[string]bool, graph.TaskCount())
	if slices.Contains(targetNames, AllTargets) {
		for _, name := range graph.Names() {
			tasksToRun[name] = true
		}
		return tasksToRun, nil
	}

	queue := make([]string, 0, len(targetNames))
	for _, name := range targetNames {
		if _, ok := graph.GetTask(name); !ok {
			return nil, zerr.With(domain.ErrTaskNotFound, "task", name)
		}
		if !tasksToRun[name] {
			tasksToRun[name] = true
			queue = append(queue, name)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		task, _ := graph.GetTask(current)
		for _, dep := range task.Dependencies {
			if !tasksToRun[dep] {
				tasksToRun[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return tasksToRun, nil
}

func (state *schedulerRunState) runExecutionLoop() error {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			return errors.Join(state.errs, state.ctx.Err())
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}

	return state.errs
}

func (state *schedulerRunState) isDone() bool {
	if state.failed {
		return state.active == 0
	}
	return state.active == 0 && len(state.ready) == 0
}

func (state *schedulerRunState) schedule() {
	for !state.failed && len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		taskName := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.s.updateStatus(taskName, StatusRunning)

		t := state.tasks[taskName]
		go state.executeTask(&t)
	}
}

func (state *schedulerRunState) executeTask(t *domain.Task) {
	// The span must end before the result is published so renderers see the
	// completion ahead of the scheduler returning.
	res := func() result {
		ctx, span := state.s.tracer.Start(state.ctx, t.Name)
		defer span.End()

		err := state.s.executor.Execute(ctx, t, span, span)
		if err != nil {
			span.RecordError(err)
		}
		return result{task: t.Name, err: err}
	}()

	state.resultsCh <- res
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--

	if res.err != nil {
		enhancedErr := zerr.With(zerr.Wrap(res.err, domain.ErrTaskExecutionFailed.Error()), "task", res.task)
		state.errs = errors.Join(state.errs, enhancedErr)
		state.s.updateStatus(res.task, StatusFailed)
		state.failed = true
		return
	}

	state.s.updateStatus(res.task, StatusCompleted)
	for _, dep := range state.graph.Dependents(res.task) {
		if _, ok := state.tasks[dep]; ok {
			state.inDegree[dep]--
			if state.inDegree[dep] == 0 {
				state.ready = append(state.ready, dep)
			}
		}
	}
}
