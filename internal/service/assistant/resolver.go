package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/aiva/backend/internal/analysis/entity"
	"github.com/zhouzirui/aiva/backend/internal/analysis/guard"
	"github.com/zhouzirui/aiva/backend/internal/analysis/text"
	"github.com/zhouzirui/aiva/backend/internal/model/action"
	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
	"github.com/zhouzirui/aiva/backend/internal/model/session"
)

// Config tunes the resolver.
type Config struct {
	FuzzyThreshold   float64
	DescriptionLimit int
	FallbackDelay    time.Duration
	// Buffer is the capacity of the event pipe.
	Buffer int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:   entity.DefaultSimilarity,
		DescriptionLimit: 900,
		FallbackDelay:    300 * time.Millisecond,
		Buffer:           16,
	}
}

// Resolver turns one utterance plus session context into an ordered event
// stream. It holds no per-session state and is safe for concurrent use.
type Resolver struct {
	catalog   catalog.Catalog
	delegate  Delegate
	validator *Validator
	rules     []Rule
	tools     []*schema.ToolInfo
	logger    *zap.Logger
	cfg       Config
}

// NewResolver wires the pipeline. delegate may be nil, in which case every
// unmatched utterance goes to the keyword fallback.
func NewResolver(cat catalog.Catalog, delegate Delegate, validator *Validator, logger *zap.Logger, cfg Config) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validator == nil {
		validator = NewValidator(logger, nil)
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultConfig().Buffer
	}
	if cfg.DescriptionLimit <= 0 {
		cfg.DescriptionLimit = DefaultConfig().DescriptionLimit
	}
	logger = logger.Named("assistant")

	matcher := entity.NewProductMatcher(cat, cfg.FuzzyThreshold)
	return &Resolver{
		catalog:   cat,
		delegate:  delegate,
		validator: validator,
		rules: []Rule{
			&openProductRule{matcher: matcher, logger: logger},
			&multiVariantRule{logger: logger},
			offersRule{},
			categoryRule{},
			catalogRule{},
			&descriptionRule{limit: cfg.DescriptionLimit},
			viewingRule{},
			sizeAvailabilityRule{},
			&sizeGuideRule{catalog: cat, logger: logger},
		},
		tools:  action.Tools(),
		logger: logger,
		cfg:    cfg,
	}
}

// Resolve starts resolution and returns the event stream. The stream always
// ends with exactly one terminal event. Closing the reader early stops the
// producer at its next send.
func (r *Resolver) Resolve(ctx context.Context, utterance string, sc *session.Context) *schema.StreamReader[action.Event] {
	sr, sw := schema.Pipe[action.Event](r.cfg.Buffer)
	go r.run(ctx, utterance, sc, sw)
	return sr
}

func (r *Resolver) run(ctx context.Context, utterance string, sc *session.Context, sw *schema.StreamWriter[action.Event]) {
	out := &emitter{w: sw}
	defer sw.Close()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("resolution panicked", zap.Any("panic", rec), zap.Stack("stack"))
			out.fail(msgDelegateFailed)
		}
	}()

	r.resolve(ctx, utterance, sc, out)
	out.finish()
}

func (r *Resolver) resolve(ctx context.Context, utterance string, sc *session.Context, out *emitter) {
	if pattern := guard.Inspect(utterance); pattern != "" {
		r.logger.Warn("refused utterance",
			zap.Error(ErrInjectionDetected),
			zap.String("pattern", pattern),
			zap.String("text", truncate(utterance, 100)))
		out.emit(action.SecurityResponse(guard.SafeMessage))
		return
	}

	in := &Input{Text: utterance, Normalized: text.Normalize(utterance), Context: sc}
	for _, rule := range r.rules {
		if ctx.Err() != nil {
			return
		}
		outcome, ok := rule.Attempt(ctx, in)
		if !ok {
			continue
		}
		r.logger.Debug("shortcut matched", zap.String("rule", rule.Name()), zap.Int("events", len(outcome.Events)))
		for _, ev := range outcome.Events {
			if !out.emit(ev) {
				return
			}
		}
		out.emit(action.Complete())
		return
	}

	if r.delegate == nil {
		r.fallback(ctx, in, out)
		return
	}
	if err := r.streamDelegate(ctx, in, out); err != nil {
		r.logger.Info("delegate unusable, answering from keywords", zap.Error(err))
		r.fallback(ctx, in, out)
	}
}

type toolCall struct {
	id   string
	name string
	args strings.Builder
}

type toolCalls struct {
	byIndex map[int]*toolCall
	order   []*toolCall
}

// get returns the accumulator a delta belongs to, keyed by index, then id.
func (c *toolCalls) get(tc schema.ToolCall) (*toolCall, bool) {
	if tc.Index != nil {
		if call, ok := c.byIndex[*tc.Index]; ok {
			return call, false
		}
		call := &toolCall{}
		if c.byIndex == nil {
			c.byIndex = make(map[int]*toolCall)
		}
		c.byIndex[*tc.Index] = call
		c.order = append(c.order, call)
		return call, true
	}
	if tc.ID != "" {
		for _, call := range c.order {
			if call.id == tc.ID {
				return call, false
			}
		}
	} else if n := len(c.order); n > 0 {
		return c.order[n-1], false
	}
	call := &toolCall{}
	c.order = append(c.order, call)
	return call, true
}

// streamDelegate consumes the delegate's deltas. It returns an error only
// when nothing has been emitted yet, so the caller can still fall back.
func (r *Resolver) streamDelegate(ctx context.Context, in *Input, out *emitter) error {
	msgs, err := buildMessages(ctx, in.Text, in.Context)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelegateUnavailable, err)
	}
	stream, err := r.delegate.StreamComplete(ctx, msgs, r.tools)
	if err != nil {
		if errors.Is(err, ErrDelegateUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrDelegateUnavailable, err)
	}
	defer stream.Close()

	var (
		calls      toolCalls
		assembler  SentenceAssembler
		suppressed strings.Builder
		calling    bool
	)
	start := out.count

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if out.count == start {
				return fmt.Errorf("%w: %w", ErrDelegateFailure, err)
			}
			r.logger.Error("delegate failed mid-stream", zap.Error(fmt.Errorf("%w: %w", ErrDelegateFailure, err)))
			out.fail(msgDelegateFailed)
			return nil
		}
		if chunk == nil {
			continue
		}

		for _, tc := range chunk.ToolCalls {
			call, _ := calls.get(tc)
			if tc.ID != "" {
				call.id = tc.ID
			}
			if tc.Function.Name != "" && call.name == "" {
				call.name = tc.Function.Name
				if !calling {
					calling = true
					// text still buffered when the call begins is folded, not streamed
					suppressed.WriteString(assembler.Flush())
				}
				if action.Known(call.name) {
					if !out.emit(action.FunctionStart(action.Name(call.name), action.QuickResponse(action.Name(call.name)))) {
						return nil
					}
				}
			}
			call.args.WriteString(tc.Function.Arguments)
		}

		if chunk.Content == "" {
			continue
		}
		if calling {
			suppressed.WriteString(chunk.Content)
			continue
		}
		for _, sentence := range assembler.Push(chunk.Content) {
			if !out.emit(action.TextChunk(sentence)) {
				return nil
			}
		}
	}

	if calling {
		folded := strings.TrimSpace(suppressed.String())
		for i, call := range calls.order {
			msg := ""
			if i == 0 {
				msg = folded
			}
			if !r.completeCall(call, in, msg, out) {
				break
			}
		}
		out.emit(action.Complete())
		return nil
	}

	if rest := assembler.Flush(); rest != "" {
		out.emit(action.TextChunk(rest))
	}
	if out.count == start {
		out.emit(action.Response(msgHelp))
	}
	out.emit(action.Complete())
	return nil
}

// completeCall parses, validates and emits one accumulated tool call. It
// reports whether later calls may still be processed.
func (r *Resolver) completeCall(call *toolCall, in *Input, folded string, out *emitter) bool {
	params := map[string]any{}
	if raw := strings.TrimSpace(call.args.String()); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			r.logger.Error("tool arguments rejected",
				zap.String("function", call.name),
				zap.Error(fmt.Errorf("%w: %w", ErrMalformedArguments, err)))
			out.emit(action.Error(msgMalformed))
			return false
		}
		if params == nil {
			params = map[string]any{}
		}
	}

	if err := r.validator.Validate(call.name, params, in.Text); err != nil {
		r.logger.Warn("action rejected", zap.String("function", call.name), zap.Error(err))
		out.emit(action.Error(msgRejected))
		return false
	}

	name := action.Name(call.name)
	msg := folded
	if msg == "" {
		msg = r.validator.Message(name, params)
	}
	return out.emit(action.FunctionComplete(name, params, msg))
}

// emitter forwards events to the pipe and enforces a single terminal event.
type emitter struct {
	w        *schema.StreamWriter[action.Event]
	count    int
	closed   bool
	terminal bool
}

func (e *emitter) emit(ev action.Event) bool {
	if e.closed || e.terminal {
		return false
	}
	if closed := e.w.Send(ev, nil); closed {
		e.closed = true
		return false
	}
	e.count++
	if ev.Terminal() {
		e.terminal = true
	}
	return true
}

// fail reports an apology followed by the terminal event.
func (e *emitter) fail(msg string) {
	if e.terminal {
		return
	}
	e.emit(action.Error(msg))
	e.emit(action.Complete())
}

// finish guarantees the terminal event.
func (e *emitter) finish() {
	if !e.terminal {
		e.emit(action.Complete())
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
