package kernel

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/pithecene-io/ikernel/adapter"
	"github.com/pithecene-io/ikernel/engine"
	"github.com/pithecene-io/ikernel/history"
	"github.com/pithecene-io/ikernel/log"
	"github.com/pithecene-io/ikernel/metrics"
	"github.com/pithecene-io/ikernel/session"
	"github.com/pithecene-io/ikernel/types"
)

// HistoryWriter persists completed executions.
type HistoryWriter interface {
	Append(ctx context.Context, e history.Entry) error
}

// historyTimeout bounds one history write.
const historyTimeout = 5 * time.Second

// TaskFailureName is the ename reported when an evaluation task panics.
const TaskFailureName = "TaskFailure"

// Shell serves the shell channel: kernel_info_request and
// execute_request, one at a time.
type Shell struct {
	ep       *endpoint
	pub      *publisher
	eval     *Evaluator
	counter  *Counter
	dialect  *session.Dialect
	kernelID string

	history  HistoryWriter
	notifier *adapter.Notifier
	metrics  *metrics.Collector
	logger   *log.Logger
}

// Run handles requests until ctx is done or the channel fails.
func (s *Shell) Run(ctx context.Context) error {
	for {
		in, err := s.ep.next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := s.handle(ctx, in); err != nil {
			return err
		}
	}
}

// handle dispatches one request. Only transport failures are returned.
func (s *Shell) handle(ctx context.Context, in *inbound) error {
	switch in.header.MsgType {
	case types.MsgKernelInfoRequest:
		return s.kernelInfo(in)
	case types.MsgExecuteRequest:
		msg, ok := decodeContent[types.ExecuteRequest](s.ep, in)
		if !ok {
			return nil
		}
		return s.execute(ctx, in, msg.Content)
	default:
		s.logger.Debug("ignoring shell message", map[string]any{"msg_type": string(in.header.MsgType)})
		return nil
	}
}

// KernelInfo returns the static kernel_info_reply content.
func KernelInfo(d *session.Dialect) types.KernelInfoReply {
	return types.KernelInfoReply{
		Status:                types.StatusOK,
		ProtocolVersion:       types.ProtocolVersion,
		Implementation:        "ikernel",
		ImplementationVersion: types.Version,
		LanguageInfo:          d.LanguageInfo,
		Banner:                d.Banner,
		Debugger:              false,
		HelpLinks:             d.HelpLinks,
		SupportedFeatures:     []string{},
	}
}

func (s *Shell) kernelInfo(in *inbound) error {
	s.pub.status(in.header, types.StateBusy)
	err := reply(s.ep, s.pub.session, in, types.MsgKernelInfoReply, KernelInfo(s.dialect))
	s.pub.status(in.header, types.StateIdle)
	return err
}

// execute runs one execute_request. Events go out in the order busy,
// execute_input, stream, execute_result or error, reply, idle.
func (s *Shell) execute(ctx context.Context, in *inbound, req types.ExecuteRequest) error {
	count := s.counter.Next()
	parent := in.header
	started := time.Now()

	s.pub.status(parent, types.StateBusy)
	if !req.Silent {
		emit(s.pub, parent, types.MsgExecuteInput, types.ExecuteInputContent{
			Code:           req.Code,
			ExecutionCount: count,
		})
	}

	res, err := s.eval.Eval(ctx, req.Code)

	var content types.ExecuteReply
	output := ""
	if err == nil {
		output = res.String()
		if res.Stdout != "" && !req.Silent {
			emit(s.pub, parent, types.MsgStream, types.StreamContent{Name: types.StreamStdout, Text: res.Stdout})
		}
		if output != "" && !req.Silent {
			emit(s.pub, parent, types.MsgExecuteResult, types.ExecuteResultContent{
				ExecutionCount: count,
				Data:           types.TextBundle(output),
				Metadata:       map[string]any{},
			})
		}
		content = types.ExecuteOK(count, s.userExpressions(ctx, req.UserExpressions))
		s.metrics.IncExecution(true)
	} else {
		ename, evalue, traceback := describeFailure(err)
		output = ename
		emit(s.pub, parent, types.MsgError, types.ErrorContent{
			Ename:     ename,
			Evalue:    evalue,
			Traceback: traceback,
		})
		content = types.ExecuteFailed(count, ename, evalue, traceback)
		s.metrics.IncExecution(false)
		s.logFailure(parent, count, err)
	}

	sendErr := reply(s.ep, s.pub.session, in, types.MsgExecuteReply, content)
	s.pub.status(parent, types.StateIdle)

	if req.StoreHistory && !req.Silent {
		s.record(ctx, req.Code, content, output, started)
	}
	return sendErr
}

// userExpressions evaluates each expression independently, in name order.
func (s *Shell) userExpressions(ctx context.Context, exprs map[string]string) map[string]types.MimeBundle {
	if len(exprs) == 0 {
		return map[string]types.MimeBundle{}
	}
	names := make([]string, 0, len(exprs))
	for name := range exprs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]types.MimeBundle, len(exprs))
	for _, name := range names {
		res, err := s.eval.EvalExpression(ctx, exprs[name])
		if err != nil {
			title, _, _ := describeFailure(err)
			out[name] = types.TextBundle("Error evaluating expression: " + title)
			continue
		}
		out[name] = types.TextBundle(res.String())
	}
	return out
}

// describeFailure maps an evaluation error to ename, evalue and traceback.
func describeFailure(err error) (ename, evalue string, traceback []string) {
	var tf *TaskFailure
	if errors.As(err, &tf) {
		return TaskFailureName, tf.Error(), []string{tf.Error()}
	}
	if d, ok := engine.AsDiagnostics(err); ok {
		return d.Title(), d.Message, d.Lines()
	}
	msg := err.Error()
	lines := strings.Split(strings.TrimRight(msg, "\n"), "\n")
	return lines[0], msg, lines
}

func (s *Shell) logFailure(parent types.Header, count int, err error) {
	logger := s.logger.ForRequest(string(parent.MsgType), parent.MsgID)
	fields := map[string]any{"execution_count": count, "error": err.Error()}
	var tf *TaskFailure
	switch {
	case errors.As(err, &tf):
		s.metrics.IncTaskFailure()
		fields["stack"] = string(tf.Stack)
		logger.Error("evaluation task failed", fields)
	case session.IsEvaluationError(err):
		logger.Debug("evaluation rejected", fields)
	default:
		logger.Warn("engine failure", fields)
	}
}

// record appends the execution to history and notifies downstream.
func (s *Shell) record(ctx context.Context, code string, content types.ExecuteReply, output string, started time.Time) {
	duration := time.Since(started).Milliseconds()

	if s.history != nil {
		entry := history.Entry{
			KernelID:       s.kernelID,
			Session:        s.pub.session,
			Dialect:        s.dialect.Name,
			ExecutionCount: content.ExecutionCount,
			Code:           code,
			Status:         string(content.Status),
			Output:         output,
			Ename:          content.Ename,
			StartedAt:      started,
			DurationMs:     duration,
		}
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
		err := s.history.Append(writeCtx, entry)
		cancel()
		s.metrics.IncHistoryWrite(err == nil)
		if err != nil {
			s.logger.Warn("history write failed", map[string]any{
				"execution_count": content.ExecutionCount,
				"error":           err.Error(),
			})
		}
	}

	s.notifier.Notify((&adapter.Event{
		EventType:      adapter.EventExecutionCompleted,
		KernelID:       s.kernelID,
		Session:        s.pub.session,
		Dialect:        s.dialect.Name,
		ExecutionCount: content.ExecutionCount,
		Status:         string(content.Status),
		Ename:          content.Ename,
		DurationMs:     duration,
	}).Stamp(time.Now()))
}
