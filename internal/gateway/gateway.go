package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kdduha/glowu/backend/internal/metrics"
	"github.com/kdduha/glowu/backend/internal/upload"
)

var (
	ErrExternalService = errors.New("external AI service error")
	ErrEmptyResponse   = errors.New("model returned no text")
)

// Generator performs a single multimodal model call.
type Generator interface {
	Generate(ctx context.Context, prompt string, img *upload.Image) (string, error)
}

// Error is the failure reason carried by a Result. It matches
// ErrExternalService and prints as its cause.
type Error struct {
	Task  string
	Cause error
}

func (e *Error) Error() string {
	return e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	return target == ErrExternalService
}

// Result is the outcome of one model call. Exactly one of Text and Err is set.
type Result struct {
	Task string
	Text string
	Err  error
}

func (r Result) Failed() bool {
	return r.Err != nil
}

type Gateway struct {
	logger    *zap.Logger
	generator Generator
}

func New(generator Generator, logger *zap.Logger) *Gateway {
	return &Gateway{
		logger:    logger,
		generator: generator,
	}
}

// Invoke calls the model once. Every failure, panics included, is returned
// inside the Result; Invoke itself never fails.
func (g *Gateway) Invoke(ctx context.Context, task, prompt string, img *upload.Image) (res Result) {
	start := time.Now()
	res.Task = task

	defer func() {
		if r := recover(); r != nil {
			res.Text = ""
			res.Err = &Error{Task: task, Cause: fmt.Errorf("panic: %v", r)}
		}

		status := metrics.StatusSuccess
		if res.Err != nil {
			status = metrics.StatusFailed
			g.logger.Error("model request failed",
				zap.String("task", task),
				zap.Error(res.Err),
			)
		}
		metrics.AIRequest(task, status, time.Since(start))
	}()

	text, err := g.generator.Generate(ctx, prompt, img)
	if err != nil {
		res.Err = &Error{Task: task, Cause: err}
		return res
	}
	if strings.TrimSpace(text) == "" {
		res.Err = &Error{Task: task, Cause: ErrEmptyResponse}
		return res
	}

	res.Text = text
	return res
}
