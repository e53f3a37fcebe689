package batch

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jbkim/weather-batch/internal/database"
)

// Params identifies a job run. Two launches of the same job with equal
// parameters are the same logical run. Triggers add a wall-clock "time"
// parameter to get a fresh run.
type Params map[string]string

// Key renders the parameters as a stable sorted string.
func (p Params) Key() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+p[k])
	}
	return strings.Join(parts, "&")
}

// NewRunParams returns parameters carrying the current wall clock in
// milliseconds, the conventional way to force a distinct run.
func NewRunParams() Params {
	return Params{"time": fmt.Sprintf("%d", time.Now().UnixMilli())}
}

// ExecutionStore records job executions.
type ExecutionStore interface {
	SaveExecution(ctx context.Context, exec *database.JobExecution) error
	UpdateExecution(ctx context.Context, exec *database.JobExecution) error
	FindExecution(ctx context.Context, jobName, paramsKey string) (*database.JobExecution, error)
}

// Launcher runs jobs and records every execution. A job already completed
// with identical parameters is not repeated; its prior execution is
// returned instead.
type Launcher struct {
	store ExecutionStore
	now   func() time.Time
}

func NewLauncher(store ExecutionStore) *Launcher {
	return &Launcher{store: store, now: time.Now}
}

// Run executes the steps of the named job in order. The job status is the
// terminal status of its last step.
func (l *Launcher) Run(ctx context.Context, jobName string, params Params, steps ...StepRunner) (*database.JobExecution, error) {
	key := params.Key()

	prior, err := l.store.FindExecution(ctx, jobName, key)
	if err != nil {
		return nil, err
	}
	if prior != nil && prior.Status == string(StatusCompleted) {
		log.Printf("job %s already completed with parameters [%s], skipping", jobName, key)
		return prior, nil
	}

	exec := &database.JobExecution{
		ID:        uuid.New().String(),
		JobName:   jobName,
		ParamsKey: key,
		Status:    string(StatusStarting),
		StartedAt: l.now(),
	}
	if err := l.store.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}

	exec.Status = string(StatusStarted)

	status := StatusCompleted
	var runErr error
	for _, step := range steps {
		log.Printf("job %s: executing step %s", jobName, step.StepName())
		status, runErr = step.Execute(ctx)
		if runErr != nil {
			log.Printf("job %s: step %s ended %s: %v", jobName, step.StepName(), status, runErr)
			break
		}
	}

	exec.Status = string(status)
	if runErr != nil {
		exec.ExitError = runErr.Error()
	}
	ended := l.now()
	exec.EndedAt = &ended

	if err := l.store.UpdateExecution(ctx, exec); err != nil {
		return exec, err
	}
	return exec, runErr
}
