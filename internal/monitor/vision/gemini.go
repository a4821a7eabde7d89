package vision

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	logx "github.com/meterwatch-core/server/pkg/logger"
	"github.com/meterwatch-core/server/pkg/retry"
)

const classifyPrompt = "Is this an image of an energy/electricity meter or counter display? Answer yes or no."

const extractPrompt = `Extract the current reading from this energy meter display.
Respond with a single JSON object and nothing else:
{"measurement": <number>, "date": "<YYYY-MM-DD>", "confidence": <number between 0 and 1>}
Use the date printed on the display if visible, otherwise today's date.
Use null for any value you cannot determine.`

// GeminiService implements Service on top of a multimodal chat model.
type GeminiService struct {
	cm ChatModel
}

func NewGeminiService(cm ChatModel) *GeminiService {
	return &GeminiService{cm: cm}
}

func imageMessage(prompt, imageURL string) *schema.Message {
	return &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{
				Type: schema.ChatMessagePartTypeText,
				Text: prompt,
			},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL: imageURL,
				},
			},
		},
	}
}

func (s *GeminiService) Classify(ctx context.Context, imageURL string) (bool, error) {
	out, err := s.cm.Generate(ctx, []*schema.Message{imageMessage(classifyPrompt, imageURL)})
	if err != nil {
		// Model/transport failures are worth another attempt.
		return false, retry.Transient(fmt.Errorf("classify image: %w", err))
	}
	answer := strings.ToLower(strings.TrimSpace(out.Content))
	logx.Debug().Str("answer", answer).Msg("Classification response")
	return strings.Contains(answer, "yes"), nil
}

func (s *GeminiService) Extract(ctx context.Context, imageURL string) (Extraction, error) {
	out, err := s.cm.Generate(ctx, []*schema.Message{imageMessage(extractPrompt, imageURL)})
	if err != nil {
		return Extraction{}, retry.Transient(fmt.Errorf("extract reading: %w", err))
	}

	ext, perr := parseExtraction(out.Content)
	if perr != nil {
		// Malformed model output is "no data", not a failure of the run.
		logx.Warn().Err(perr).Msg("Unusable extraction response")
		return Extraction{}, nil
	}
	return ext, nil
}

var _ Service = (*GeminiService)(nil)
