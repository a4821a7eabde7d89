// Package tools holds the query agent's tool registry. Tools are the only
// way the agent touches storage or external feeds; it never writes
// readings itself.
package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/meterwatch-core/server/internal/monitor/model"
)

const (
	ToolQueryReadings      = "query-readings"
	ToolGetReferencePrices = "get-reference-prices"
	ToolGeneratePlot       = "generate-plot"
)

// Deps carries the collaborators the tools close over.
type Deps struct {
	Store    model.ReadingStore
	Prices   *PriceFeed
	Renderer model.PlotRenderer
	SenderID string
}

// QueryTools assembles the fixed registry for one agent run. The sender is
// baked in so the model cannot query another user's readings.
func QueryTools(deps Deps) []tool.BaseTool {
	return []tool.BaseTool{
		newQueryReadingsTool(deps.Store, deps.SenderID),
		newReferencePricesTool(deps.Prices),
		newGeneratePlotTool(deps.Store, deps.Renderer, deps.SenderID),
	}
}

// GetToolInfos resolves the ToolInfo of every registered tool.
func GetToolInfos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("get tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
