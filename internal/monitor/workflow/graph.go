// Package workflow wires the processing graph for inbound messages: parse,
// then either the deterministic image path (classify, extract, persist) or
// the query agent, always terminating at the responder.
package workflow

import (
	"context"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	"github.com/meterwatch-core/server/internal/monitor/agent"
	"github.com/meterwatch-core/server/internal/monitor/model"
	"github.com/meterwatch-core/server/internal/monitor/tools"
	"github.com/meterwatch-core/server/internal/monitor/vision"
	logx "github.com/meterwatch-core/server/pkg/logger"
	"github.com/meterwatch-core/server/pkg/retry"
)

// Runner is the boundary the service exposes upward: one call per inbound
// message, one reply out, always.
type Runner interface {
	HandleMessage(ctx context.Context, msg model.InboundMessage) string
}

// Config holds everything needed to compose the full workflow end-to-end.
// This is a convenience layer over GraphConfig that also constructs the
// chat models and vision service.
type Config struct {
	APIKey      string
	BaseURL     string
	VisionModel model.VisionModelConfig
	AgentModel  model.AgentModelConfig
	Agent       model.AgentConfig
	Retry       model.RetryConfig
	Store       model.ReadingStore
	Gateway     model.Gateway
	Prices      *tools.PriceFeed
	Renderer    model.PlotRenderer
}

// GraphConfig holds the assembled collaborators the graph is built from.
type GraphConfig struct {
	Vision     vision.Service
	AgentModel einomodel.ToolCallingChatModel
	Store      model.ReadingStore
	Gateway    model.Gateway
	Prices     *tools.PriceFeed
	Renderer   model.PlotRenderer
	MaxTurns   int
	Retry      retry.Config
}

// GraphBuilder handles the construction of the workflow graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[*model.WorkflowState, *model.WorkflowState]
}

type workflowRunner struct {
	runnable compose.Runnable[*model.WorkflowState, *model.WorkflowState]
	gateway  model.Gateway
}

// HandleMessage runs one message through the graph. It is the outermost
// failure boundary: whatever goes wrong inside, the sender gets a reply and
// the caller gets a non-empty response string, never a stack trace.
func (r *workflowRunner) HandleMessage(ctx context.Context, msg model.InboundMessage) (response string) {
	defer func() {
		if rec := recover(); rec != nil {
			logx.Error().
				Str("message_id", msg.MessageID).
				Interface("panic", rec).
				Msg("Run panicked, replying with generic failure")
			response = msgGenericFailure
			r.sendFallback(ctx, msg.SenderID)
		}
	}()

	out, err := r.runnable.Invoke(ctx, model.NewWorkflowState(msg))
	if err != nil {
		logx.Error().Err(err).Str("message_id", msg.MessageID).Msg("Workflow run failed before the responder")
		r.sendFallback(ctx, msg.SenderID)
		return msgGenericFailure
	}
	return out.Response
}

// sendFallback delivers the generic failure message when the responder
// never got to run.
func (r *workflowRunner) sendFallback(ctx context.Context, senderID string) {
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := r.gateway.Send(sctx, senderID, msgGenericFailure); err != nil {
		logx.Error().Err(err).Str("sender_id", senderID).Msg("Failed to deliver fallback reply")
	}
}

// BuildWorkflow composes chat models, the vision service and the graph, and
// returns a Runner.
func BuildWorkflow(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("reading store is nil")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is nil")
	}

	cms, err := NewChatModels(ctx, ChatModelConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		VisionCfg: &cfg.VisionModel,
		AgentCfg:  &cfg.AgentModel,
	})
	if err != nil {
		return nil, err
	}

	return BuildGraph(ctx, &GraphConfig{
		Vision:     vision.NewGeminiService(cms.Vision),
		AgentModel: cms.Agent,
		Store:      cfg.Store,
		Gateway:    cfg.Gateway,
		Prices:     cfg.Prices,
		Renderer:   cfg.Renderer,
		MaxTurns:   cfg.Agent.MaxTurns,
		Retry: retry.Config{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
			Jitter:      true,
		},
	})
}

// BuildGraph constructs and compiles the workflow graph from assembled
// collaborators and wraps it in a Runner.
func BuildGraph(ctx context.Context, config *GraphConfig) (Runner, error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Vision == nil {
		return nil, fmt.Errorf("vision service is nil")
	}
	if config.AgentModel == nil {
		return nil, fmt.Errorf("agent model is nil")
	}
	if config.Store == nil || config.Gateway == nil {
		return nil, fmt.Errorf("store/gateway are not properly initialized")
	}

	builder := &GraphBuilder{
		config: config,
		graph:  compose.NewGraph[*model.WorkflowState, *model.WorkflowState](),
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	runnable, err := builder.compile(ctx)
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Workflow graph built successfully")
	return &workflowRunner{
		runnable: runnable,
		gateway:  config.Gateway,
	}, nil
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() {
	c := b.config

	b.graph.AddLambdaNode(NodeParser, NewParserNode())
	b.graph.AddLambdaNode(NodeClassifier, NewClassifierNode(c.Vision, c.Retry))
	b.graph.AddLambdaNode(NodeExtractor, NewExtractorNode(c.Vision, c.Retry))
	b.graph.AddLambdaNode(NodeWriter, NewWriterNode(c.Store, c.Retry))
	b.graph.AddLambdaNode(NodeQueryAgent, NewQueryAgentNode(
		c.AgentModel, c.Store, c.Prices, c.Renderer,
		agent.Config{MaxTurns: c.MaxTurns, Retry: c.Retry},
	))
	b.graph.AddLambdaNode(NodeResponder, NewResponderNode(c.Gateway, c.Retry))
}

// addEdges creates the unconditional flow connections between nodes.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, NodeParser},
		{NodeExtractor, NodeWriter},
		{NodeWriter, NodeResponder},
		{NodeQueryAgent, NodeResponder},
		{NodeResponder, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates the two conditional routing points.
func (b *GraphBuilder) addBranches() error {
	parseBranch := compose.NewGraphBranch(
		NewParseRoute(),
		map[string]bool{
			NodeClassifier: true,
			NodeQueryAgent: true,
			NodeResponder:  true,
		},
	)
	if err := b.graph.AddBranch(NodeParser, parseBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding parse branch")
		return fmt.Errorf("error adding parse branch: %w", err)
	}

	classifyBranch := compose.NewGraphBranch(
		NewClassifyRoute(),
		map[string]bool{
			NodeExtractor: true,
			NodeResponder: true,
		},
	)
	if err := b.graph.AddBranch(NodeClassifier, classifyBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding classify branch")
		return fmt.Errorf("error adding classify branch: %w", err)
	}

	return nil
}

// compile finalizes the graph. The longest path is five nodes; the step cap
// only exists to catch wiring mistakes.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.WorkflowState, *model.WorkflowState], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(10))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling workflow graph")
		return nil, fmt.Errorf("error compiling workflow graph: %w", err)
	}
	return runnable, nil
}
