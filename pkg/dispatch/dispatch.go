// Package dispatch runs independent analyses over a batch of inputs on a
// bounded worker pool and hands the results back in input order.
//
// Workers operate on values they own. Anything a result needs to point back
// at in the caller's object graph is restored by a reattach callback that
// runs on the calling goroutine once the whole batch has finished.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// Sentinel errors. Both are fatal for the batch.
var (
	ErrResultCountMismatch = errors.New("dispatched result count differs from input count")
	ErrWorkerPanic         = errors.New("analysis worker panicked")
)

// Func analyzes one input. It must not share mutable state with other calls.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Reattach restores references of out to the caller's original input.
type Reattach[In, Out any] func(orig In, out *Out)

// Pair is a fixed-arity input of two values.
type Pair[A, B any] struct {
	First  A
	Second B
}

// MakePair builds a Pair.
func MakePair[A, B any](first A, second B) Pair[A, B] {
	return Pair[A, B]{First: first, Second: second}
}

// Recorder receives dispatch measurements.
type Recorder interface {
	RecordItem(ctx context.Context, batch string, duration time.Duration, err error)
	RecordBatch(ctx context.Context, batch string, items int, duration time.Duration)
	TrackInflight(ctx context.Context, batch string) func()
}

// Option configures a Run call.
type Option func(*settings)

type settings struct {
	name     string
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
}

// WithName labels the batch in logs, spans and metrics.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithTracer records one span per batch.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) { s.tracer = tracer }
}

// WithRecorder records per-item and per-batch metrics.
func WithRecorder(recorder Recorder) Option {
	return func(s *settings) { s.recorder = recorder }
}

func newSettings(opts []Option) *settings {
	s := &settings{name: "batch"}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("dispatch")
	}

	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}

	return s
}

// Workers resolves a configured worker count: zero or less means the host's
// available parallelism, never fewer than one.
func Workers(configured int) int {
	if configured > 0 {
		return configured
	}

	return max(runtime.NumCPU(), 1)
}

// Run applies fn to every input on at most workers goroutines and returns the
// results in input order. When reattach is not nil it is called once per
// item, in input order, on the calling goroutine after every worker has
// finished.
//
// An error or panic in fn fails the whole batch; fn is expected to fold
// content failures into its result instead. There is no per-item timeout.
func Run[In, Out any](
	ctx context.Context, workers int, fn Func[In, Out], inputs []In, reattach Reattach[In, Out], opts ...Option,
) ([]Out, error) {
	s := newSettings(opts)
	n := Workers(workers)
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "dispatch."+s.name, trace.WithAttributes(
		attribute.Int("dispatch.items", len(inputs)),
		attribute.Int("dispatch.workers", n),
	))
	defer span.End()

	s.logger.DebugContext(ctx, "dispatching batch", "batch", s.name, "items", len(inputs), "workers", n)

	results := make([]Out, len(inputs))

	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)

	for i, in := range inputs {
		g.Go(func() (err error) {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}

			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %s item %d: %v", ErrWorkerPanic, s.name, i, r)
				}
			}()

			untrack := s.recorder.TrackInflight(gctx, s.name)
			defer untrack()

			itemStart := time.Now()
			out, fnErr := fn(gctx, in)
			s.recorder.RecordItem(gctx, s.name, time.Since(itemStart), fnErr)

			if fnErr != nil {
				return fmt.Errorf("%s item %d: %w", s.name, i, fnErr)
			}

			results[i] = out
			completed.Add(1)

			return nil
		})
	}

	err := g.Wait()
	s.recorder.RecordBatch(ctx, s.name, len(inputs), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	err = checkCount(s.name, len(inputs), int(completed.Load()))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	if reattach != nil {
		for i := range results {
			reattach(inputs[i], &results[i])
		}
	}

	s.logger.DebugContext(ctx, "batch complete", "batch", s.name, "items", len(inputs), "elapsed", time.Since(start))

	return results, nil
}

// checkCount compares the number of stored results with the number of
// inputs. Every item that returns without error stores its result, so a
// mismatch means that contract was broken.
func checkCount(batch string, inputs, stored int) error {
	if stored != inputs {
		return fmt.Errorf("%w: %s: %d inputs, %d results", ErrResultCountMismatch, batch, inputs, stored)
	}

	return nil
}

// Detached wraps fn so every call receives its own copy of the input, made
// by clone. Results then reference the copy until reattached.
func Detached[In, Out any](fn Func[In, Out], clone func(In) In) Func[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		return fn(ctx, clone(in))
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordItem(context.Context, string, time.Duration, error) {}

func (nopRecorder) RecordBatch(context.Context, string, int, time.Duration) {}

func (nopRecorder) TrackInflight(context.Context, string) func() { return func() {} }
