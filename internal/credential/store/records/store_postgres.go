package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5/pgconn"

	"gradverify/internal/credential/models"
	"gradverify/internal/sentinel"
)

const pgUniqueViolation = "23505"

// PostgresStore persists graduate records in PostgreSQL. Insertion order is
// the BIGSERIAL seq column.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record models.GraduateRecord) (models.RecordID, error) {
	record = prepareForAppend(record)
	data, err := json.Marshal(record.Data)
	if err != nil {
		return "", fmt.Errorf("encode graduate data: %w", err)
	}
	query := `
		INSERT INTO graduate_records (id, university, year, name_key, data, authority_reference, signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID.String(),
		record.University,
		record.Year,
		record.NameKey(),
		data,
		[]byte(record.AuthorityReference),
		record.Signature,
		record.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return "", sentinel.ErrAlreadyExists
		}
		return "", fmt.Errorf("append graduate record: %w", err)
	}
	return record.ID, nil
}

func (s *PostgresStore) FindByNameAndYear(ctx context.Context, university, name, year string) (models.GraduateRecord, error) {
	query := `
		SELECT id, university, year, data, authority_reference, signature, created_at
		FROM graduate_records
		WHERE university = $1 AND year = $2 AND name_key = $3
		ORDER BY seq
		LIMIT 1
	`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, university, year, models.NormalizeName(name)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.GraduateRecord{}, sentinel.ErrNotFound
		}
		return models.GraduateRecord{}, fmt.Errorf("find graduate record: %w", err)
	}
	return record, nil
}

// ListByUniversity streams rows as the caller ranges. The query runs anew on
// every range, and stopping early closes the cursor.
func (s *PostgresStore) ListByUniversity(ctx context.Context, university string) iter.Seq2[models.GraduateRecord, error] {
	return func(yield func(models.GraduateRecord, error) bool) {
		query := `
			SELECT id, university, year, data, authority_reference, signature, created_at
			FROM graduate_records
			WHERE university = $1
			ORDER BY seq
		`
		rows, err := s.db.QueryContext(ctx, query, university)
		if err != nil {
			yield(models.GraduateRecord{}, fmt.Errorf("list graduate records: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRecord(rows)
			if err != nil {
				yield(models.GraduateRecord{}, fmt.Errorf("scan graduate record: %w", err))
				return
			}
			if !yield(record, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.GraduateRecord{}, fmt.Errorf("iterate graduate records: %w", err))
		}
	}
}

type recordRow interface {
	Scan(dest ...any) error
}

func scanRecord(row recordRow) (models.GraduateRecord, error) {
	var record models.GraduateRecord
	var id string
	var data, ref []byte
	if err := row.Scan(&id, &record.University, &record.Year, &data, &ref, &record.Signature, &record.CreatedAt); err != nil {
		return models.GraduateRecord{}, err
	}
	decoded, err := decodeData(data)
	if err != nil {
		return models.GraduateRecord{}, fmt.Errorf("%w: %w", sentinel.ErrCorrupt, err)
	}
	record.ID = models.RecordID(id)
	record.Data = decoded
	record.AuthorityReference = models.AuthorityReference(ref)
	return record, nil
}
