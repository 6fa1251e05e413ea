package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"gradverify/internal/certificate/models"
	"gradverify/internal/sentinel"
)

const pgUniqueViolation = "23505"

// PostgresStore persists certificates in PostgreSQL. Upload order is the
// BIGSERIAL seq column.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, cert models.Certificate) error {
	query := `
		INSERT INTO certificates (id, university, name, name_key, national_id, filename, mime_type, content, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		cert.ID.String(),
		cert.University,
		cert.Name,
		cert.NameKey(),
		nullString(cert.NationalID),
		cert.Filename,
		cert.MimeType,
		cert.Content,
		cert.UploadedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("save certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindFirst(ctx context.Context, q models.Query) (models.Certificate, error) {
	query := `
		SELECT id, university, name, national_id, filename, mime_type, content, uploaded_at
		FROM certificates
		WHERE university = $1 AND name_key = $2 AND ($3 = '' OR national_id = $3)
		ORDER BY seq
		LIMIT 1
	`
	key := models.Certificate{Name: q.Name}.NameKey()
	cert, err := scanCertificate(s.db.QueryRowContext(ctx, query, q.University, key, q.NationalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Certificate{}, sentinel.ErrNotFound
		}
		return models.Certificate{}, fmt.Errorf("find certificate: %w", err)
	}
	return cert, nil
}

type certificateRow interface {
	Scan(dest ...any) error
}

func scanCertificate(row certificateRow) (models.Certificate, error) {
	var (
		cert       models.Certificate
		id         string
		nationalID sql.NullString
	)
	if err := row.Scan(&id, &cert.University, &cert.Name, &nationalID, &cert.Filename, &cert.MimeType, &cert.Content, &cert.UploadedAt); err != nil {
		return models.Certificate{}, err
	}
	cert.ID = models.CertificateID(id)
	cert.NationalID = nationalID.String
	return cert, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
