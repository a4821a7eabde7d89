package workflow

import (
	"context"

	"github.com/meterwatch-core/server/internal/monitor/model"
	logx "github.com/meterwatch-core/server/pkg/logger"
)

// Node names used by the graph and its branches.
const (
	NodeParser     = "parser"
	NodeClassifier = "classifier"
	NodeExtractor  = "extractor"
	NodeWriter     = "writer"
	NodeQueryAgent = "query_agent"
	NodeResponder  = "responder"
)

// NewParseRoute returns the condition evaluated after the parser: images go
// to classification, text goes to the query agent, empty messages
// short-circuit straight to the responder.
func NewParseRoute() func(context.Context, *model.WorkflowState) (string, error) {
	return func(ctx context.Context, s *model.WorkflowState) (string, error) {
		switch s.Kind {
		case model.KindImage:
			logx.Debug().Str("message_id", s.MessageID).Msg("Routing to classifier")
			return NodeClassifier, nil
		case model.KindText:
			logx.Debug().Str("message_id", s.MessageID).Msg("Routing to query agent")
			return NodeQueryAgent, nil
		default:
			logx.Debug().Str("message_id", s.MessageID).Msg("Empty message, routing to responder")
			return NodeResponder, nil
		}
	}
}

// NewClassifyRoute returns the condition evaluated after the classifier:
// only a recognized meter image continues to extraction.
func NewClassifyRoute() func(context.Context, *model.WorkflowState) (string, error) {
	return func(ctx context.Context, s *model.WorkflowState) (string, error) {
		if s.IsMeterImage {
			logx.Debug().Str("message_id", s.MessageID).Msg("Meter image, routing to extractor")
			return NodeExtractor, nil
		}
		logx.Debug().Str("message_id", s.MessageID).Msg("Not a meter image, routing to responder")
		return NodeResponder, nil
	}
}
