package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gradverify/internal/credential/models"
	"gradverify/internal/sentinel"
)

// PostgresStore persists university key records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, university, year string) (models.UniversityKeyRecord, error) {
	query := `
		SELECT university, year, authority_reference, public_key, updated_at
		FROM university_keys
		WHERE university = $1 AND year = $2
	`
	record, err := scanKeyRecord(s.db.QueryRowContext(ctx, query, university, year))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UniversityKeyRecord{}, sentinel.ErrNotFound
		}
		return models.UniversityKeyRecord{}, fmt.Errorf("find university key: %w", err)
	}
	return record, nil
}

// CompareAndSwap writes reference and key together in a single statement.
// A nil expected inserts only when the row is absent; otherwise the update
// applies only while the row still holds expected's reference and key.
//
// Errors: sentinel.ErrConflict when no row matched.
func (s *PostgresStore) CompareAndSwap(ctx context.Context, expected *models.UniversityKeyRecord, next models.UniversityKeyRecord) error {
	var (
		res sql.Result
		err error
	)
	if expected == nil {
		query := `
			INSERT INTO university_keys (university, year, authority_reference, public_key, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (university, year) DO NOTHING
		`
		res, err = s.db.ExecContext(ctx, query,
			next.University,
			next.Year,
			[]byte(next.AuthorityReference),
			nullableKey(next),
			next.UpdatedAt,
		)
	} else {
		query := `
			UPDATE university_keys
			SET authority_reference = $3, public_key = $4, updated_at = $5
			WHERE university = $1 AND year = $2
				AND authority_reference = $6
				AND public_key IS NOT DISTINCT FROM $7
		`
		res, err = s.db.ExecContext(ctx, query,
			next.University,
			next.Year,
			[]byte(next.AuthorityReference),
			nullableKey(next),
			next.UpdatedAt,
			[]byte(expected.AuthorityReference),
			nullableKey(*expected),
		)
	}
	if err != nil {
		return fmt.Errorf("save university key: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save university key: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) ListByUniversity(ctx context.Context, university string) ([]models.UniversityKeyRecord, error) {
	query := `
		SELECT university, year, authority_reference, public_key, updated_at
		FROM university_keys
		WHERE university = $1
		ORDER BY year
	`
	rows, err := s.db.QueryContext(ctx, query, university)
	if err != nil {
		return nil, fmt.Errorf("list university keys: %w", err)
	}
	defer rows.Close()

	var out []models.UniversityKeyRecord
	for rows.Next() {
		record, err := scanKeyRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan university key: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate university keys: %w", err)
	}
	return out, nil
}

// nullableKey stores an absent public key as NULL.
func nullableKey(record models.UniversityKeyRecord) []byte {
	if !record.HasPublicKey() {
		return nil
	}
	return record.PublicKeyPEM
}

type keyRow interface {
	Scan(dest ...any) error
}

func scanKeyRecord(row keyRow) (models.UniversityKeyRecord, error) {
	var record models.UniversityKeyRecord
	var ref, publicKey []byte
	if err := row.Scan(&record.University, &record.Year, &ref, &publicKey, &record.UpdatedAt); err != nil {
		return models.UniversityKeyRecord{}, err
	}
	record.AuthorityReference = models.AuthorityReference(ref)
	if len(publicKey) > 0 {
		record.PublicKeyPEM = publicKey
	}
	return record, nil
}
