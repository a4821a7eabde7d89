// Package plot provides a placeholder model.PlotRenderer. Actual chart
// rendering is a separate service; this implementation only mints the URL
// under which that service would publish the image.
package plot

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meterwatch-core/server/internal/monitor/model"
	logx "github.com/meterwatch-core/server/pkg/logger"
)

// StaticRenderer fabricates plot URLs below a configured base URL.
type StaticRenderer struct {
	BaseURL string
}

func NewStaticRenderer(baseURL string) *StaticRenderer {
	return &StaticRenderer{BaseURL: baseURL}
}

func (r *StaticRenderer) RenderUsage(ctx context.Context, senderID string, readings []model.Reading) (string, error) {
	if len(readings) == 0 {
		return "", fmt.Errorf("no readings to render")
	}
	url := fmt.Sprintf("%s/plots/%s.png", r.BaseURL, uuid.NewString())
	logx.Debug().Str("url", url).Int("points", len(readings)).Msg("Plot URL minted")
	return url, nil
}

var _ model.PlotRenderer = (*StaticRenderer)(nil)
