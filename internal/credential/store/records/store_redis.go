package records

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/redis/go-redis/v9"

	"gradverify/internal/credential/models"
	"gradverify/internal/sentinel"
)

const (
	redisRecordsKeyPrefix = "records:university:"
	redisPageSize         = 100
)

// RedisStore appends records to one list per university with RPUSH, which
// preserves insertion order and never overwrites.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed record store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisRecord struct {
	ID                 string          `json:"id"`
	Year               string          `json:"year"`
	Data               json.RawMessage `json:"data"`
	AuthorityReference []byte          `json:"authority_reference"`
	Signature          []byte          `json:"signature"`
	CreatedAt          time.Time       `json:"created_at"`
}

func (s *RedisStore) Append(ctx context.Context, record models.GraduateRecord) (models.RecordID, error) {
	record = prepareForAppend(record)
	data, err := json.Marshal(record.Data)
	if err != nil {
		return "", fmt.Errorf("encode graduate data: %w", err)
	}
	payload, err := json.Marshal(redisRecord{
		ID:                 record.ID.String(),
		Year:               record.Year,
		Data:               data,
		AuthorityReference: record.AuthorityReference,
		Signature:          record.Signature,
		CreatedAt:          record.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("encode graduate record: %w", err)
	}
	if err := s.client.RPush(ctx, recordsKey(record.University), payload).Err(); err != nil {
		return "", fmt.Errorf("append graduate record: %w", err)
	}
	return record.ID, nil
}

func (s *RedisStore) FindByNameAndYear(ctx context.Context, university, name, year string) (models.GraduateRecord, error) {
	key := models.NormalizeName(name)
	for record, err := range s.ListByUniversity(ctx, university) {
		if err != nil {
			return models.GraduateRecord{}, err
		}
		if record.Year == year && record.NameKey() == key {
			return record, nil
		}
	}
	return models.GraduateRecord{}, sentinel.ErrNotFound
}

// ListByUniversity pages through the list with LRANGE so large universities
// are never loaded in one round trip.
func (s *RedisStore) ListByUniversity(ctx context.Context, university string) iter.Seq2[models.GraduateRecord, error] {
	return func(yield func(models.GraduateRecord, error) bool) {
		key := recordsKey(university)
		for start := int64(0); ; start += redisPageSize {
			page, err := s.client.LRange(ctx, key, start, start+redisPageSize-1).Result()
			if err != nil {
				yield(models.GraduateRecord{}, fmt.Errorf("list graduate records: %w", err))
				return
			}
			for _, raw := range page {
				record, err := decodeRedisRecord(university, []byte(raw))
				if err != nil {
					yield(models.GraduateRecord{}, err)
					return
				}
				if !yield(record, nil) {
					return
				}
			}
			if len(page) < redisPageSize {
				return
			}
		}
	}
}

func decodeRedisRecord(university string, raw []byte) (models.GraduateRecord, error) {
	var stored redisRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return models.GraduateRecord{}, fmt.Errorf("decode graduate record: %w: %w", sentinel.ErrCorrupt, err)
	}
	data, err := decodeData(stored.Data)
	if err != nil {
		return models.GraduateRecord{}, fmt.Errorf("%w: %w", sentinel.ErrCorrupt, err)
	}
	return models.GraduateRecord{
		ID:                 models.RecordID(stored.ID),
		University:         university,
		Year:               stored.Year,
		Data:               data,
		AuthorityReference: models.AuthorityReference(stored.AuthorityReference),
		Signature:          stored.Signature,
		CreatedAt:          stored.CreatedAt,
	}, nil
}

func recordsKey(university string) string {
	return redisRecordsKeyPrefix + university
}
