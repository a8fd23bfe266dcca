package kernel

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gammazero/workerpool"

	"github.com/pithecene-io/ikernel/session"
)

// TaskFailure reports an evaluation task that panicked instead of
// returning.
type TaskFailure struct {
	Value any
	Stack []byte
}

func (e *TaskFailure) Error() string {
	return fmt.Sprintf("evaluation task panicked: %v", e.Value)
}

// Evaluator runs session evaluations on a dedicated single worker so the
// session is only ever touched from one goroutine.
type Evaluator struct {
	session *session.Session
	pool    *workerpool.WorkerPool
	// timeout bounds one engine call; zero means none.
	timeout time.Duration
}

// NewEvaluator starts the evaluation worker.
func NewEvaluator(s *session.Session, timeout time.Duration) *Evaluator {
	return &Evaluator{
		session: s,
		pool:    workerpool.New(1),
		timeout: timeout,
	}
}

type outcome struct {
	result *session.Result
	err    error
}

// Eval evaluates one cell. Waiting for the engine ignores cancellation of
// ctx; only the configured timeout bounds it.
func (e *Evaluator) Eval(ctx context.Context, code string) (*session.Result, error) {
	return e.run(ctx, func(ctx context.Context) (*session.Result, error) {
		return e.session.Eval(ctx, code)
	})
}

// EvalExpression evaluates code strictly as an expression.
func (e *Evaluator) EvalExpression(ctx context.Context, code string) (*session.Result, error) {
	return e.run(ctx, func(ctx context.Context) (*session.Result, error) {
		return e.session.EvaluateExpression(ctx, code)
	})
}

func (e *Evaluator) run(ctx context.Context, fn func(context.Context) (*session.Result, error)) (*session.Result, error) {
	engineCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc = func() {}
	if e.timeout > 0 {
		engineCtx, cancel = context.WithTimeout(engineCtx, e.timeout)
	}
	defer cancel()

	done := make(chan outcome, 1)
	e.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &TaskFailure{Value: r, Stack: debug.Stack()}}
			}
		}()
		res, err := fn(engineCtx)
		done <- outcome{result: res, err: err}
	})
	o := <-done
	return o.result, o.err
}

// Close waits for the running evaluation and stops the worker.
func (e *Evaluator) Close() {
	e.pool.StopWait()
}
