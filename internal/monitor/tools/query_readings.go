package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/meterwatch-core/server/internal/monitor/model"
)

type QueryReadingsInput struct {
	NumReadings int `json:"num_readings,omitempty"`
}

type QueryReadingsOutput struct {
	Summary string `json:"summary"`
}

func newQueryReadingsTool(store model.ReadingStore, senderID string) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolQueryReadings,
			Desc: "Retrieve the user's latest meter readings, most recent first. Use this whenever the user asks about their consumption, reading history, or wants data compared across periods.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"num_readings": {
					Type: "number",
					Desc: "Number of readings to retrieve (default 10, max 100)",
				},
			}),
		},
		func(ctx context.Context, in *QueryReadingsInput) (*QueryReadingsOutput, error) {
			n := in.NumReadings
			if n < 1 {
				n = 10
			} else if n > 100 {
				n = 100
			}

			readings, err := store.Latest(ctx, senderID, n)
			if err != nil {
				return nil, fmt.Errorf("load readings: %w", err)
			}
			if len(readings) == 0 {
				return &QueryReadingsOutput{
					Summary: "No readings found. You haven't submitted any meter readings yet.",
				}, nil
			}

			var b strings.Builder
			plural := "s"
			if len(readings) == 1 {
				plural = ""
			}
			fmt.Fprintf(&b, "Latest %d meter reading%s:\n", len(readings), plural)
			for _, r := range readings {
				fmt.Fprintf(&b, "%s: %.2f kWh\n", r.Date.Format(time.DateOnly), r.Measurement)
			}
			return &QueryReadingsOutput{Summary: strings.TrimRight(b.String(), "\n")}, nil
		},
	)
}
