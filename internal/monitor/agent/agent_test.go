package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meterwatch-core/server/internal/monitor/model"
	"github.com/meterwatch-core/server/internal/monitor/tools"
	"github.com/meterwatch-core/server/pkg/retry"
)

// fakeToolModel replays a scripted sequence of assistant messages.
type fakeToolModel struct {
	script []*schema.Message
	err    error
	calls  int
}

func (m *fakeToolModel) Generate(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	idx := m.calls
	m.calls++
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	return m.script[idx], nil
}

func (m *fakeToolModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *fakeToolModel) WithTools(infos []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return m, nil
}

// fakeStore serves a fixed set of readings.
type fakeStore struct {
	readings []model.Reading
}

func (s *fakeStore) Upsert(ctx context.Context, senderID string, date time.Time, measurement float64) error {
	return nil
}

func (s *fakeStore) Latest(ctx context.Context, senderID string, limit int) ([]model.Reading, error) {
	if limit > 0 && len(s.readings) > limit {
		return s.readings[:limit], nil
	}
	return s.readings, nil
}

func (s *fakeStore) Count(ctx context.Context, senderID string) (int, error) {
	return len(s.readings), nil
}

type fakeRenderer struct{}

func (fakeRenderer) RenderUsage(ctx context.Context, senderID string, readings []model.Reading) (string, error) {
	return "https://plots.example.com/p/123.png", nil
}

func toolCallMsg(name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call_a",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

func testDeps() tools.Deps {
	day := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	return tools.Deps{
		Store: &fakeStore{readings: []model.Reading{
			{SenderID: "user-1", Date: day, Measurement: 1234.5},
			{SenderID: "user-1", Date: day.AddDate(0, -1, 0), Measurement: 1100.0},
		}},
		Prices:   tools.NewPriceFeed(model.PriceFeedConfig{FallbackPerKWh: 0.20}, nil, fastRetry()),
		Renderer: fakeRenderer{},
		SenderID: "user-1",
	}
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond}
}

func newAgent(t *testing.T, cm einomodel.ToolCallingChatModel, maxTurns int) *QueryAgent {
	t.Helper()
	a, err := New(context.Background(), cm, tools.QueryTools(testDeps()), Config{MaxTurns: maxTurns, Retry: fastRetry()})
	require.NoError(t, err)
	return a
}

func TestAnswer_DirectFinalAnswer(t *testing.T) {
	cm := &fakeToolModel{script: []*schema.Message{
		schema.AssistantMessage("You used 134.5 kWh more than last month.", nil),
	}}
	a := newAgent(t, cm, 5)

	answer, trace := a.Answer(context.Background(), "how does this month compare to last?")

	assert.Equal(t, "You used 134.5 kWh more than last month.", answer)
	assert.Empty(t, trace)
}

func TestAnswer_ToolCallThenFinalAnswer(t *testing.T) {
	cm := &fakeToolModel{script: []*schema.Message{
		toolCallMsg(tools.ToolQueryReadings, `{"num_readings": 2}`),
		schema.AssistantMessage("Your latest reading is 1234.50 kWh.", nil),
	}}
	a := newAgent(t, cm, 5)

	answer, trace := a.Answer(context.Background(), "how does this month compare to last?")

	assert.Equal(t, "Your latest reading is 1234.50 kWh.", answer)
	require.Len(t, trace, 1)
	assert.Equal(t, tools.ToolQueryReadings, trace[0].Tool)
	assert.Contains(t, trace[0].Output, "1234.50 kWh")
}

func TestAnswer_UnknownToolSelfCorrects(t *testing.T) {
	cm := &fakeToolModel{script: []*schema.Message{
		toolCallMsg("delete-all-readings", `{}`),
		schema.AssistantMessage("Sorry, I can only read your data.", nil),
	}}
	a := newAgent(t, cm, 5)

	answer, trace := a.Answer(context.Background(), "wipe my history")

	assert.Equal(t, "Sorry, I can only read your data.", answer)
	require.Len(t, trace, 1)
	assert.Equal(t, "delete-all-readings", trace[0].Tool)
	assert.Contains(t, trace[0].Output, "unknown_tool")
}

func TestAnswer_TurnCapYieldsFallback(t *testing.T) {
	cm := &fakeToolModel{script: []*schema.Message{
		toolCallMsg(tools.ToolQueryReadings, `{}`),
	}}
	a := newAgent(t, cm, 3)

	answer, trace := a.Answer(context.Background(), "loop forever")

	assert.Equal(t, fallbackExhausted, answer)
	assert.Len(t, trace, 3)
	assert.Equal(t, 3, cm.calls)
}

func TestAnswer_ModelDownYieldsFallback(t *testing.T) {
	cm := &fakeToolModel{err: errors.New("rpc unavailable")}
	a := newAgent(t, cm, 5)

	answer, trace := a.Answer(context.Background(), "anything")

	assert.Equal(t, fallbackModelDown, answer)
	assert.Empty(t, trace)
}

func TestAnswer_ParallelToolCallsDispatchFirstOnly(t *testing.T) {
	parallel := schema.AssistantMessage("", []schema.ToolCall{
		{ID: "call_a", Function: schema.FunctionCall{Name: tools.ToolQueryReadings, Arguments: `{}`}},
		{ID: "call_b", Function: schema.FunctionCall{Name: tools.ToolGetReferencePrices, Arguments: `{}`}},
	})
	cm := &fakeToolModel{script: []*schema.Message{
		parallel,
		schema.AssistantMessage("done", nil),
	}}
	a := newAgent(t, cm, 5)

	answer, trace := a.Answer(context.Background(), "readings and prices")

	assert.Equal(t, "done", answer)
	require.Len(t, trace, 1)
	assert.Equal(t, tools.ToolQueryReadings, trace[0].Tool)
}

func TestAnswer_EmptyFinalContentFallsBack(t *testing.T) {
	cm := &fakeToolModel{script: []*schema.Message{
		schema.AssistantMessage("", nil),
	}}
	a := newAgent(t, cm, 5)

	answer, _ := a.Answer(context.Background(), "hm")
	assert.Equal(t, fallbackEmpty, answer)
}
