package repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingsKeyIsPerSender(t *testing.T) {
	t.Parallel()

	r := NewRedisReadingRepository(nil)
	assert.Equal(t, "readings:whatsapp:+3360000001", r.readingsKey("whatsapp:+3360000001"))
}

func TestDateFieldRoundTrip(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	field := dateField(date)
	assert.Equal(t, "2025-11-15", field)

	parsed, err := parseDateField(field)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(date))
}

func TestParseDateFieldRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := parseDateField("not-a-date")
	assert.Error(t, err)

	_, err = parseDateField("15/11/2025")
	assert.Error(t, err)
}
