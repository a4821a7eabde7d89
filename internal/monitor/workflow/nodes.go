package workflow

import (
	"context"
	"math"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/meterwatch-core/server/internal/monitor/agent"
	"github.com/meterwatch-core/server/internal/monitor/model"
	"github.com/meterwatch-core/server/internal/monitor/tools"
	"github.com/meterwatch-core/server/internal/monitor/vision"
	logx "github.com/meterwatch-core/server/pkg/logger"
	"github.com/meterwatch-core/server/pkg/retry"
)

// NewParserNode derives the message kind from the raw inbound payload.
// Attached media wins over any accompanying text.
func NewParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.WorkflowState) (*model.WorkflowState, error) {
		if s.MessageID == "" {
			s.MessageID = uuid.NewString()
		}

		s.HasImage = len(s.MediaURLs) > 0
		switch {
		case s.HasImage:
			s.Kind = model.KindImage
		case strings.TrimSpace(s.Body) != "":
			s.Kind = model.KindText
		default:
			s.Kind = model.KindEmpty
		}

		logx.Debug().
			Str("message_id", s.MessageID).
			Str("sender_id", s.SenderID).
			Str("kind", string(s.Kind)).
			Int("media_count", len(s.MediaURLs)).
			Msg("Parsed inbound message")
		return s, nil
	})
}

// NewClassifierNode asks the vision service whether the first attached
// image is a meter display. Exhausted retries are non-fatal: the run
// continues with IsMeterImage=false and a diagnostic for the responder.
func NewClassifierNode(svc vision.Service, retryCfg retry.Config) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.WorkflowState) (*model.WorkflowState, error) {
		imageURL := s.MediaURLs[0]

		isMeter, err := retry.Do(ctx, retryCfg, "classify-image", func(ctx context.Context) (bool, error) {
			return svc.Classify(ctx, imageURL)
		})
		if err != nil {
			logx.Error().Err(err).Str("message_id", s.MessageID).Msg("Image classification failed")
			s.IsMeterImage = false
			s.ClassifierErr = err.Error()
			return s, nil
		}

		s.IsMeterImage = isMeter
		logx.Debug().Str("message_id", s.MessageID).Bool("is_meter", isMeter).Msg("Image classified")
		return s, nil
	})
}

// NewExtractorNode extracts a reading from the classified meter image. A
// result is accepted only when both measurement and date end up present and
// the measurement is a valid non-negative number; otherwise the state keeps
// no partial reading and the writer becomes a no-op.
func NewExtractorNode(svc vision.Service, retryCfg retry.Config) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.WorkflowState) (*model.WorkflowState, error) {
		imageURL := s.MediaURLs[0]

		ext, err := retry.Do(ctx, retryCfg, "extract-reading", func(ctx context.Context) (vision.Extraction, error) {
			return svc.Extract(ctx, imageURL)
		})
		if err != nil {
			logx.Error().Err(err).Str("message_id", s.MessageID).Msg("Reading extraction failed, continuing without a reading")
			return s, nil
		}

		if ext.Measurement != nil && ext.Date == nil {
			// The display rarely shows a date; the submission day stands in.
			today := time.Now().UTC().Truncate(24 * time.Hour)
			ext.Date = &today
		}

		if ext.Measurement == nil || ext.Date == nil {
			logx.Warn().Str("message_id", s.MessageID).Msg("Extraction incomplete, nothing to persist")
			return s, nil
		}
		m := *ext.Measurement
		if m < 0 || math.IsNaN(m) || math.IsInf(m, 0) {
			logx.Warn().Float64("measurement", m).Str("message_id", s.MessageID).Msg("Rejecting invalid measurement")
			return s, nil
		}

		s.Measurement = ext.Measurement
		s.ReadingDate = ext.Date
		s.Confidence = ext.Confidence
		logx.Debug().
			Str("message_id", s.MessageID).
			Float64("measurement", m).
			Str("date", ext.Date.Format(time.DateOnly)).
			Msg("Reading extracted")
		return s, nil
	})
}

// NewWriterNode upserts the extracted reading keyed by (sender, date).
// "Nothing to write" is a no-op, distinct from a failed write.
func NewWriterNode(store model.ReadingStore, retryCfg retry.Config) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.WorkflowState) (*model.WorkflowState, error) {
		if !s.HasReading() {
			s.WriteSucceeded = false
			logx.Debug().Str("message_id", s.MessageID).Msg("No reading extracted, skipping write")
			return s, nil
		}

		_, err := retry.Do(ctx, retryCfg, "upsert-reading", func(ctx context.Context) (struct{}, error) {
			uerr := store.Upsert(ctx, s.SenderID, *s.ReadingDate, *s.Measurement)
			if uerr != nil {
				// Storage failures are overwhelmingly connectivity; the
				// upsert is idempotent, so repeating it is safe.
				return struct{}{}, retry.Transient(uerr)
			}
			return struct{}{}, nil
		})
		if err != nil {
			logx.Error().Err(err).Str("message_id", s.MessageID).Msg("Reading upsert failed")
			s.WriteSucceeded = false
			s.WriteErr = err.Error()
			return s, nil
		}

		s.WriteSucceeded = true
		return s, nil
	})
}

// NewQueryAgentNode hands text messages to the query agent. Agent failures
// never escape the node; the state always gains a final answer.
func NewQueryAgentNode(
	cm einomodel.ToolCallingChatModel,
	store model.ReadingStore,
	prices *tools.PriceFeed,
	renderer model.PlotRenderer,
	agentCfg agent.Config,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.WorkflowState) (*model.WorkflowState, error) {
		// The registry is rebuilt per run so tools only see this sender.
		qa, err := agent.New(ctx, cm, tools.QueryTools(tools.Deps{
			Store:    store,
			Prices:   prices,
			Renderer: renderer,
			SenderID: s.SenderID,
		}), agentCfg)
		if err != nil {
			logx.Error().Err(err).Str("message_id", s.MessageID).Msg("Failed to assemble query agent")
			s.FinalAnswer = msgGenericFailure
			return s, nil
		}

		s.FinalAnswer, s.ToolTrace = qa.Answer(ctx, s.Body)
		logx.Debug().
			Str("message_id", s.MessageID).
			Int("tool_calls", len(s.ToolTrace)).
			Msg("Query agent answered")
		return s, nil
	})
}

// NewResponderNode selects exactly one user-facing message from the
// accumulated state and dispatches it through the gateway. Send failures
// are logged, never propagated; the run still terminates with a reply.
func NewResponderNode(gw model.Gateway, retryCfg retry.Config) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.WorkflowState) (*model.WorkflowState, error) {
		s.Response = selectResponse(s)

		_, err := retry.Do(ctx, retryCfg, "send-reply", func(ctx context.Context) (struct{}, error) {
			serr := gw.Send(ctx, s.SenderID, s.Response)
			if serr != nil {
				return struct{}{}, retry.Transient(serr)
			}
			return struct{}{}, nil
		})
		if err != nil {
			logx.Error().Err(err).Str("message_id", s.MessageID).Msg("Failed to dispatch reply")
		}
		return s, nil
	})
}

// selectResponse is the single place workflow state turns into user-visible
// text.
func selectResponse(s *model.WorkflowState) string {
	switch s.Kind {
	case model.KindEmpty:
		return msgPromptForInput

	case model.KindText:
		if strings.TrimSpace(s.FinalAnswer) == "" {
			return msgGenericFailure
		}
		return s.FinalAnswer

	case model.KindImage:
		if s.ClassifierErr != "" {
			return msgGenericFailure
		}
		if !s.IsMeterImage {
			return msgNotRecognized
		}
		if s.WriteSucceeded && s.HasReading() {
			return formatConfirmation(*s.Measurement, *s.ReadingDate, len(s.MediaURLs) > 1)
		}
		return msgWriteFailed
	}
	return msgGenericFailure
}
