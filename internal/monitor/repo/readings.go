package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/meterwatch-core/server/internal/core/error"
	"github.com/meterwatch-core/server/internal/monitor/model"
	logx "github.com/meterwatch-core/server/pkg/logger"
)

// RedisReadingRepository stores one hash per sender, one field per reading
// date. HSET overwrites an existing field, which gives the (sender, date)
// upsert its idempotence for free.
type RedisReadingRepository struct {
	rdb redis.Cmdable
}

func NewRedisReadingRepository(rdb redis.Cmdable) *RedisReadingRepository {
	return &RedisReadingRepository{rdb: rdb}
}

// readingRecord is the stored hash-field payload.
type readingRecord struct {
	Measurement float64   `json:"measurement"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func (r *RedisReadingRepository) readingsKey(senderID string) string {
	return fmt.Sprintf("readings:%s", senderID)
}

func dateField(date time.Time) string {
	return date.Format(time.DateOnly)
}

func parseDateField(field string) (time.Time, error) {
	return time.Parse(time.DateOnly, field)
}

func (r *RedisReadingRepository) Upsert(ctx context.Context, senderID string, date time.Time, measurement float64) error {
	b, err := json.Marshal(readingRecord{
		Measurement: measurement,
		RecordedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	key := r.readingsKey(senderID)
	field := dateField(date)
	if err := r.rdb.HSet(ctx, key, field, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Str("date", field).Msg("failed to upsert reading")
		return errx.WrapRedis(err)
	}

	logx.Debug().Str("key", key).Str("date", field).Float64("measurement", measurement).Msg("Reading upserted")
	return nil
}

func (r *RedisReadingRepository) Latest(ctx context.Context, senderID string, limit int) ([]model.Reading, error) {
	key := r.readingsKey(senderID)

	rows, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return []model.Reading{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load readings")
		return nil, errx.WrapRedis(err)
	}

	readings := make([]model.Reading, 0, len(rows))
	for field, raw := range rows {
		date, derr := parseDateField(field)
		if derr != nil {
			logx.Warn().Str("key", key).Str("field", field).Msg("skipping reading with malformed date field")
			continue
		}
		var rec readingRecord
		if uerr := json.Unmarshal([]byte(raw), &rec); uerr != nil {
			logx.Warn().Err(uerr).Str("key", key).Str("field", field).Msg("skipping undecodable reading record")
			continue
		}
		readings = append(readings, model.Reading{
			SenderID:    senderID,
			Date:        date,
			Measurement: rec.Measurement,
			RecordedAt:  rec.RecordedAt,
		})
	}

	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Date.After(readings[j].Date)
	})
	if limit > 0 && len(readings) > limit {
		readings = readings[:limit]
	}
	return readings, nil
}

func (r *RedisReadingRepository) Count(ctx context.Context, senderID string) (int, error) {
	key := r.readingsKey(senderID)
	n, err := r.rdb.HLen(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to count readings")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

var _ model.ReadingStore = (*RedisReadingRepository)(nil)
