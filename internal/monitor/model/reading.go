package model

import (
	"context"
	"time"
)

// Reading is one persisted meter reading. Readings are keyed by
// (sender, date); a resubmission for the same day overwrites.
type Reading struct {
	SenderID    string    `json:"sender_id"`
	Date        time.Time `json:"date"`
	Measurement float64   `json:"measurement"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// ReadingStore is the structured storage collaborator. Upsert must be
// atomic per (sender, date) key: it completes fully or not at all.
type ReadingStore interface {
	// Upsert inserts or overwrites the reading for (senderID, date).
	Upsert(ctx context.Context, senderID string, date time.Time, measurement float64) error

	// Latest returns up to limit readings for the sender, most recent date first.
	Latest(ctx context.Context, senderID string, limit int) ([]Reading, error)

	// Count returns the number of stored readings for the sender.
	Count(ctx context.Context, senderID string) (int, error)
}

// Gateway is the messaging-channel collaborator: deliver text to a sender.
type Gateway interface {
	Send(ctx context.Context, senderID string, text string) error
}

// PlotRenderer turns a series of readings into a fetchable chart URL.
// Rendering itself lives outside this service.
type PlotRenderer interface {
	RenderUsage(ctx context.Context, senderID string, readings []Reading) (string, error)
}
