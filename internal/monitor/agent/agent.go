// Package agent implements the query agent: a bounded loop in which the
// reasoning model either answers the user or requests exactly one tool
// invocation per turn. The agent reads through its tools only; it never
// writes readings and never re-enters the deterministic branch.
package agent

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/meterwatch-core/server/internal/monitor/model"
	"github.com/meterwatch-core/server/internal/monitor/tools"
	logx "github.com/meterwatch-core/server/pkg/logger"
	"github.com/meterwatch-core/server/pkg/retry"
)

const DefaultMaxTurns = 8

const (
	// fallbackExhausted is produced deterministically when the turn cap is hit.
	fallbackExhausted = "I wasn't able to complete your request within my limits. Please try a simpler question."
	// fallbackModelDown is produced when the reasoning model stays unreachable.
	fallbackModelDown = "I'm having trouble reaching my reasoning service right now. Please try again in a moment."
	// fallbackEmpty covers a model reply with neither content nor a tool call.
	fallbackEmpty = "I couldn't come up with an answer to that. Could you rephrase your question?"
)

var systemPrompt = fmt.Sprintf(`You are an energy consumption assistant. Help users understand their electricity usage and costs.

Rules:
1. DIRECTLY execute tools when a question needs data. Do NOT ask for permission first.
2. Use %s to fetch the user's historical readings whenever they ask about consumption or specific periods.
3. Use %s for current electricity pricing.
4. Use %s to create a chart when a visualization helps; include the returned URL in your answer.
5. Request at most one tool per turn.

Always give clear, actionable answers grounded in the data the tools return.`,
	tools.ToolQueryReadings, tools.ToolGetReferencePrices, tools.ToolGeneratePlot)

// stepKind tags the outcome of one reasoning turn.
type stepKind int

const (
	stepFinalAnswer stepKind = iota
	stepToolCall
	stepExhausted
)

// Config bounds the loop and shapes retries around model and tool calls.
type Config struct {
	MaxTurns int
	Retry    retry.Config
}

func (c Config) normalize() Config {
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	return c
}

// QueryAgent answers free-form questions using a tool-calling chat model
// and a fixed registry of named tools.
type QueryAgent struct {
	cm        einomodel.ToolCallingChatModel
	registry  map[string]tool.InvokableTool
	cfg       Config
	callIDSeq int
}

// New binds the tool registry to the model and prepares the dispatch table.
func New(ctx context.Context, cm einomodel.ToolCallingChatModel, ts []tool.BaseTool, cfg Config) (*QueryAgent, error) {
	infos, err := tools.GetToolInfos(ctx, ts)
	if err != nil {
		return nil, err
	}

	bound, err := cm.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("bind tools to agent model: %w", err)
	}

	registry := make(map[string]tool.InvokableTool, len(ts))
	for i, t := range ts {
		inv, ok := t.(tool.InvokableTool)
		if !ok {
			return nil, fmt.Errorf("tool %q is not invokable", infos[i].Name)
		}
		registry[infos[i].Name] = inv
	}

	return &QueryAgent{
		cm:       bound,
		registry: registry,
		cfg:      cfg.normalize(),
	}, nil
}

// Answer runs the loop until the model produces a final answer or the turn
// cap is hit. It never returns an empty answer and never returns an error;
// failures degrade to fallback text so the run always completes with a reply.
func (a *QueryAgent) Answer(ctx context.Context, question string) (string, []model.ToolCallRecord) {
	transcript := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(question),
	}
	trace := make([]model.ToolCallRecord, 0, 4)

	outcome := stepExhausted
	answer := ""

	for turn := 0; turn < a.cfg.MaxTurns; turn++ {
		out, err := retry.Do(ctx, a.cfg.Retry, "agent-reasoning", func(ctx context.Context) (*schema.Message, error) {
			msg, gerr := a.cm.Generate(ctx, transcript)
			if gerr != nil {
				return nil, retry.Transient(gerr)
			}
			return msg, nil
		})
		if err != nil {
			logx.Error().Err(err).Int("turn", turn).Msg("Reasoning model unavailable")
			return fallbackModelDown, trace
		}

		if len(out.ToolCalls) == 0 {
			answer = strings.TrimSpace(out.Content)
			outcome = stepFinalAnswer
			break
		}

		outcome = stepToolCall
		a.ensureCallIDs(out)
		transcript = append(transcript, out)

		// One tool per turn: extras are a protocol violation, not dispatched.
		if len(out.ToolCalls) > 1 {
			logx.Warn().Int("tool_calls", len(out.ToolCalls)).Msg("Model requested parallel tools, dispatching first only")
		}
		call := out.ToolCalls[0]
		result := a.dispatch(ctx, call)

		trace = append(trace, model.ToolCallRecord{
			Tool:   call.Function.Name,
			Input:  call.Function.Arguments,
			Output: result,
		})
		transcript = append(transcript, &schema.Message{
			Role:       schema.Tool,
			Content:    result,
			ToolCallID: call.ID,
		})
	}

	switch outcome {
	case stepFinalAnswer:
		if answer == "" {
			answer = fallbackEmpty
		}
	default:
		logx.Warn().Int("max_turns", a.cfg.MaxTurns).Msg("Agent turn cap exceeded, using fallback answer")
		answer = fallbackExhausted
	}
	return answer, trace
}

// dispatch looks up and invokes one tool call, containing every failure as
// a structured result the model can react to on its next turn.
func (a *QueryAgent) dispatch(ctx context.Context, call schema.ToolCall) string {
	name := call.Function.Name
	t, ok := a.registry[name]
	if !ok {
		logx.Warn().Str("tool", name).Msg("Unknown tool requested, returning synthetic error")
		return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"this tool does not exist, use one of your declared tools\"}", name)
	}

	logx.Debug().Str("tool", name).Str("arguments", call.Function.Arguments).Msg("Dispatching tool")
	out, err := t.InvokableRun(ctx, call.Function.Arguments)
	if err != nil {
		logx.Error().Err(err).Str("tool", name).Msg("Tool invocation failed")
		return fmt.Sprintf("{\"error\":\"tool_failed\",\"name\":%q,\"detail\":%q}", name, err.Error())
	}
	return out
}

// ensureCallIDs synthesizes tool-call IDs when the provider omits them,
// which Gemini does on occasion.
func (a *QueryAgent) ensureCallIDs(out *schema.Message) {
	for i := range out.ToolCalls {
		if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
			a.callIDSeq++
			out.ToolCalls[i].ID = fmt.Sprintf("call_%d", a.callIDSeq)
		}
	}
}
