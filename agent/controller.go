package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github/itish2003/ragchat/logger"
	"github/itish2003/ragchat/metrics"
	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/tools"
)

// ErrMaxIterations aborts a turn whose model keeps requesting tools.
var ErrMaxIterations = errors.New("reasoning loop safety limit exceeded")

const DefaultMaxIterations = 8

// TurnResult is the outcome of a completed turn.
type TurnResult struct {
	// Answer is the raw text of the final, tool-free model message.
	Answer     string
	Iterations int
	State      *RoutingState
}

// Controller drives the Reasoning -> ToolExecution -> Reasoning loop of one turn.
type Controller struct {
	llm           LLM
	registry      *tools.Registry
	systemPrompt  string
	maxIterations int
	log           logger.ILogger
	metrics       *metrics.Recorder
}

type ControllerOption func(*Controller)

func WithMaxIterations(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

func WithSystemPrompt(prompt string) ControllerOption {
	return func(c *Controller) { c.systemPrompt = prompt }
}

func WithMetrics(rec *metrics.Recorder) ControllerOption {
	return func(c *Controller) { c.metrics = rec }
}

func NewController(llm LLM, registry *tools.Registry, log logger.ILogger, opts ...ControllerOption) *Controller {
	c := &Controller{
		llm:           llm,
		registry:      registry,
		systemPrompt:  SystemPrompt,
		maxIterations: DefaultMaxIterations,
		log:           log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one turn. history is prior transcript carried into the turn.
func (c *Controller) Run(ctx context.Context, history []models.Message, userText string) (*TurnResult, error) {
	ctx, span := otel.Tracer("ragchat/agent").Start(ctx, "agent.turn")
	defer span.End()

	state := NewRoutingState(c.systemPrompt, history, userText)
	available := c.registry.List()
	current := StateReasoning

	for iteration := 1; ; {
		switch current {
		case StateReasoning:
			if iteration > c.maxIterations {
				err := fmt.Errorf("%w (%d iterations)", ErrMaxIterations, c.maxIterations)
				span.RecordError(err)
				span.SetStatus(codes.Error, "max iterations")
				c.log.Error("AGENT", "Routing aborted", map[string]interface{}{"max_iterations": c.maxIterations})
				return nil, err
			}

			reply, err := c.llm.Invoke(ctx, state.Messages(), available)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "reasoning failed")
				return nil, fmt.Errorf("reasoning step %d failed: %w", iteration, err)
			}
			assignCallIDs(reply.ToolCalls)
			state.Append(reply)

			if reply.HasToolCalls() {
				current = StateToolExecution
				continue
			}
			current = StateDone

		case StateToolExecution:
			calls := state.Last().ToolCalls
			c.log.Info("AGENT", "Dispatching tool calls", map[string]interface{}{
				"iteration": iteration,
				"calls":     toolNames(calls),
			})
			state.Append(c.dispatch(ctx, calls)...)
			iteration++
			current = StateReasoning

		case StateDone:
			c.metrics.ObserveRoutingIterations(iteration)
			span.SetAttributes(attribute.Int("iterations", iteration))
			return &TurnResult{
				Answer:     state.Last().Content,
				Iterations: iteration,
				State:      state,
			}, nil
		}
	}
}

// dispatch runs every call concurrently and returns one result message per
// call, in request order, once all of them have finished. A panicking tool
// does not stop the others; its result message carries the error text.
func (c *Controller) dispatch(ctx context.Context, calls []models.ToolCall) []models.Message {
	results := make([]models.Message, len(calls))
	var g errgroup.Group

	for i, call := range calls {
		g.Go(func() error {
			out, err := c.execute(ctx, call)
			results[i] = models.NewToolResultMessage(call, out)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Error("AGENT", "Tool call panicked", map[string]interface{}{"error": err.Error()})
	}
	return results
}

// execute turns tool errors and panics into result text for the model. Only a
// recovered panic is returned as an error.
func (c *Controller) execute(ctx context.Context, call models.ToolCall) (out string, panicErr error) {
	ctx, span := otel.Tracer("ragchat/agent").Start(ctx, "agent.tool")
	span.SetAttributes(attribute.String("tool", call.Name))
	defer span.End()

	start := time.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "error"
			panicErr = fmt.Errorf("tool %q panicked: %v", call.Name, r)
			span.RecordError(panicErr)
			out = "Error: " + panicErr.Error()
		}
		c.metrics.RecordToolCall(call.Name, status)
		c.log.Debug("AGENT", "Tool call finished", map[string]interface{}{
			"tool":     call.Name,
			"call_id":  call.ID,
			"status":   status,
			"duration": time.Since(start).String(),
		})
	}()

	result, err := c.registry.Call(ctx, call.Name, call.Arguments)
	if err != nil {
		status = "error"
		span.RecordError(err)
		c.log.Warn("AGENT", "Tool call failed", map[string]interface{}{
			"tool":  call.Name,
			"error": err.Error(),
		})
		return fmt.Sprintf("Error: %v", err), nil
	}
	return result, nil
}

func assignCallIDs(calls []models.ToolCall) {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = uuid.New().String()
		}
	}
}

func toolNames(calls []models.ToolCall) []string {
	names := make([]string, len(calls))
	for i, call := range calls {
		names[i] = call.Name
	}
	return names
}
