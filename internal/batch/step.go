package batch

import (
	"context"
	"fmt"
)

// Status is the lifecycle state of a step or job execution.
type Status string

const (
	StatusStarting  Status = "STARTING"
	StatusStarted   Status = "STARTED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusStopped   Status = "STOPPED"
)

// ItemReader yields one input item per call. A nil item means end of
// stream. Readers are finite and not restartable; build a fresh step for
// every launch.
type ItemReader[I any] interface {
	Read(ctx context.Context) (*I, error)
}

// ItemProcessor maps an input item to zero or one output item. A nil
// output drops the item from the chunk without failing the step.
type ItemProcessor[I, O any] interface {
	Process(ctx context.Context, item I) (*O, error)
}

// ItemWriter consumes a full chunk. An implementation must write the
// chunk atomically: either every item is persisted or none is.
type ItemWriter[O any] interface {
	Write(ctx context.Context, chunk []O) error
}

// StepRunner is the type-erased face of Step used by Job and Launcher.
type StepRunner interface {
	StepName() string
	Execute(ctx context.Context) (Status, error)
}

// Step pulls items from the reader one at a time, processes them, and
// hands accumulated chunks of ChunkSize to the writer. A writer or
// processor failure aborts the step; chunks written earlier stay
// committed.
type Step[I, O any] struct {
	Name      string
	Reader    ItemReader[I]
	Processor ItemProcessor[I, O]
	Writer    ItemWriter[O]
	ChunkSize int
}

func (s *Step[I, O]) StepName() string {
	return s.Name
}

func (s *Step[I, O]) Execute(ctx context.Context) (Status, error) {
	if s.ChunkSize <= 0 {
		return StatusFailed, fmt.Errorf("step %s: chunk size must be positive", s.Name)
	}

	chunk := make([]O, 0, s.ChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			// Interrupted mid-chunk: the in-flight chunk is discarded,
			// committed chunks remain.
			return StatusStopped, err
		}

		item, err := s.Reader.Read(ctx)
		if err != nil {
			return StatusFailed, fmt.Errorf("step %s: read failed: %w", s.Name, err)
		}
		if item == nil {
			break
		}

		out, err := s.Processor.Process(ctx, *item)
		if err != nil {
			return StatusFailed, fmt.Errorf("step %s: process failed: %w", s.Name, err)
		}
		if out == nil {
			continue
		}

		chunk = append(chunk, *out)
		if len(chunk) >= s.ChunkSize {
			if err := s.Writer.Write(ctx, chunk); err != nil {
				return StatusFailed, fmt.Errorf("step %s: write failed: %w", s.Name, err)
			}
			chunk = chunk[:0]
		}
	}

	if len(chunk) > 0 {
		if err := s.Writer.Write(ctx, chunk); err != nil {
			return StatusFailed, fmt.Errorf("step %s: write failed: %w", s.Name, err)
		}
	}

	return StatusCompleted, nil
}
