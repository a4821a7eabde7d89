package workflow

import (
	"fmt"
	"strconv"
	"time"
)

// User-facing reply templates. Internal error detail never leaks into
// these; the responder picks exactly one per run.
const (
	msgPromptForInput = "Please send a photo of your meter, or ask a question about your energy usage."
	msgNotRecognized  = "Sorry, that doesn't look like a meter display I can read. Please send a clear photo of your energy meter."
	msgWriteFailed    = "❌ Failed to register your reading. Please try again."
	msgGenericFailure = "Something went wrong while processing your message. Please try again."

	// Only the first attached image is processed; extras are acknowledged,
	// not silently dropped.
	msgFirstImageOnly = "Note: only the first image was processed."
)

func formatConfirmation(measurement float64, date time.Time, extraImages bool) string {
	msg := fmt.Sprintf("✅ Energy reading registered: %s kWh on %s",
		strconv.FormatFloat(measurement, 'f', -1, 64),
		date.Format(time.DateOnly),
	)
	if extraImages {
		msg += "\n" + msgFirstImageOnly
	}
	return msg
}
