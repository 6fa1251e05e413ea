package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"gradverify/internal/credential/models"
	"gradverify/internal/sentinel"
)

const redisUniversityKeyPrefix = "registry:university:"

// RedisStore keeps one hash per university with a field per year. A record
// is always replaced whole by a single HSET of its field.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed registry store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisKeyRecord struct {
	AuthorityReference []byte    `json:"authority_reference"`
	PublicKey          []byte    `json:"public_key,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Get loads the record for (university, year).
//
// Errors: sentinel.ErrNotFound on a missing field, sentinel.ErrCorrupt when
// the stored value does not decode; Redis errors are wrapped.
func (s *RedisStore) Get(ctx context.Context, university, year string) (models.UniversityKeyRecord, error) {
	data, err := s.client.HGet(ctx, universityKey(university), year).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.UniversityKeyRecord{}, sentinel.ErrNotFound
		}
		return models.UniversityKeyRecord{}, fmt.Errorf("find university key: %w", err)
	}
	return decodeKeyRecord(university, year, data)
}

// CompareAndSwap watches the university hash, checks the current field
// against expected and replaces it inside MULTI/EXEC. A write to the hash
// between the check and EXEC aborts the transaction.
//
// Errors: sentinel.ErrConflict on a version mismatch or an aborted
// transaction; Redis errors are wrapped.
func (s *RedisStore) CompareAndSwap(ctx context.Context, expected *models.UniversityKeyRecord, next models.UniversityKeyRecord) error {
	payload, err := json.Marshal(redisKeyRecord{
		AuthorityReference: next.AuthorityReference,
		PublicKey:          next.PublicKeyPEM,
		UpdatedAt:          next.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode university key: %w", err)
	}
	hash := universityKey(next.University)

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGet(ctx, hash, next.Year).Bytes()
		exists := true
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				return fmt.Errorf("find university key: %w", err)
			}
			exists = false
		}
		switch {
		case expected == nil && exists:
			return sentinel.ErrConflict
		case expected != nil && !exists:
			return sentinel.ErrConflict
		case expected != nil:
			current, err := decodeKeyRecord(next.University, next.Year, data)
			if err != nil {
				return err
			}
			if !current.SameVersion(*expected) {
				return sentinel.ErrConflict
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, hash, next.Year, payload)
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txf, hash)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, sentinel.ErrConflict):
		return sentinel.ErrConflict
	case errors.Is(err, sentinel.ErrCorrupt):
		return err
	default:
		return fmt.Errorf("save university key: %w", err)
	}
}

func (s *RedisStore) ListByUniversity(ctx context.Context, university string) ([]models.UniversityKeyRecord, error) {
	fields, err := s.client.HGetAll(ctx, universityKey(university)).Result()
	if err != nil {
		return nil, fmt.Errorf("list university keys: %w", err)
	}
	out := make([]models.UniversityKeyRecord, 0, len(fields))
	for year, data := range fields {
		record, err := decodeKeyRecord(university, year, []byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

func decodeKeyRecord(university, year string, data []byte) (models.UniversityKeyRecord, error) {
	var stored redisKeyRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return models.UniversityKeyRecord{}, fmt.Errorf("decode university key %s/%s: %w: %w", university, year, sentinel.ErrCorrupt, err)
	}
	return models.UniversityKeyRecord{
		University:         university,
		Year:               year,
		AuthorityReference: models.AuthorityReference(stored.AuthorityReference),
		PublicKeyPEM:       stored.PublicKey,
		UpdatedAt:          stored.UpdatedAt,
	}, nil
}

func universityKey(university string) string {
	return redisUniversityKeyPrefix + university
}
