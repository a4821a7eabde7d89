package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meterwatch-core/server/internal/monitor/model"
)

func TestFormatConfirmation(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)

	msg := formatConfirmation(1234.5, date, false)
	assert.Contains(t, msg, "1234.5")
	assert.Contains(t, msg, "2025-11-15")
	assert.NotContains(t, msg, msgFirstImageOnly)

	msg = formatConfirmation(1234.5, date, true)
	assert.Contains(t, msg, msgFirstImageOnly)
}

func TestSelectResponse(t *testing.T) {
	t.Parallel()

	measurement := 1234.5
	date := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		state *model.WorkflowState
		want  string
	}{
		{
			name:  "empty input prompts for input",
			state: &model.WorkflowState{Kind: model.KindEmpty},
			want:  msgPromptForInput,
		},
		{
			name:  "agent answer verbatim",
			state: &model.WorkflowState{Kind: model.KindText, FinalAnswer: "You used 120 kWh."},
			want:  "You used 120 kWh.",
		},
		{
			name:  "text with no answer degrades to generic failure",
			state: &model.WorkflowState{Kind: model.KindText},
			want:  msgGenericFailure,
		},
		{
			name:  "classifier failure is a generic failure",
			state: &model.WorkflowState{Kind: model.KindImage, ClassifierErr: "timeout"},
			want:  msgGenericFailure,
		},
		{
			name:  "non-meter image",
			state: &model.WorkflowState{Kind: model.KindImage, IsMeterImage: false},
			want:  msgNotRecognized,
		},
		{
			name: "successful write confirms with values",
			state: &model.WorkflowState{
				Kind: model.KindImage, IsMeterImage: true,
				Measurement: &measurement, ReadingDate: &date,
				WriteSucceeded: true,
				MediaURLs:      []string{"a"},
			},
			want: formatConfirmation(measurement, date, false),
		},
		{
			name: "failed write apologizes without internal detail",
			state: &model.WorkflowState{
				Kind: model.KindImage, IsMeterImage: true,
				Measurement: &measurement, ReadingDate: &date,
				WriteSucceeded: false, WriteErr: "redis: connection refused",
			},
			want: msgWriteFailed,
		},
		{
			name:  "meter image with nothing extracted apologizes",
			state: &model.WorkflowState{Kind: model.KindImage, IsMeterImage: true},
			want:  msgWriteFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := selectResponse(tt.state)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got)
			assert.NotContains(t, got, "redis:")
		})
	}
}
