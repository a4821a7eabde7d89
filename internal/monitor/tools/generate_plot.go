package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/meterwatch-core/server/internal/monitor/model"
)

type GeneratePlotInput struct {
	NumReadings int `json:"num_readings,omitempty"`
}

type GeneratePlotOutput struct {
	PlotURL string `json:"plot_url"`
	Points  int    `json:"points"`
}

func newGeneratePlotTool(store model.ReadingStore, renderer model.PlotRenderer, senderID string) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGeneratePlot,
			Desc: "Render a chart of the user's recent meter readings and return a URL to the image. Use this when a visualization would help answer the question. Include the returned URL in your answer.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"num_readings": {
					Type: "number",
					Desc: "Number of recent readings to plot (default 30, max 100)",
				},
			}),
		},
		func(ctx context.Context, in *GeneratePlotInput) (*GeneratePlotOutput, error) {
			n := in.NumReadings
			if n < 1 {
				n = 30
			} else if n > 100 {
				n = 100
			}

			readings, err := store.Latest(ctx, senderID, n)
			if err != nil {
				return nil, fmt.Errorf("load readings: %w", err)
			}
			if len(readings) == 0 {
				return nil, fmt.Errorf("no readings to plot")
			}

			url, err := renderer.RenderUsage(ctx, senderID, readings)
			if err != nil {
				return nil, fmt.Errorf("render plot: %w", err)
			}
			return &GeneratePlotOutput{PlotURL: url, Points: len(readings)}, nil
		},
	)
}
