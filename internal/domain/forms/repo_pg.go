package forms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const subCols = `id, visit_id, form_type, status, submitted_by, submitted_at,
	approved_by, approved_at, rejection_reason, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, s *Submission) error {
	s.ID = uuid.New()
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO form_submissions (id, visit_id, form_type, status, submitted_by, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.VisitID, s.FormType, s.Status, s.SubmittedBy, s.SubmittedAt,
	)
	// The partial unique index on (visit_id, form_type) WHERE status <>
	// 'rejected' rejects the second concurrent writer here.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Conflict(fmt.Sprintf("a %s assessment already exists for this visit", s.FormType))
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Submission, error) {
	s, err := scanSubmission(r.conn(ctx).QueryRow(ctx,
		`SELECT `+subCols+` FROM form_submissions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("form submission")
	}
	return s, err
}

func (r *repoPG) GetActiveByVisitAndType(ctx context.Context, visitID uuid.UUID, formType FormType) (*Submission, error) {
	s, err := scanSubmission(r.conn(ctx).QueryRow(ctx,
		`SELECT `+subCols+` FROM form_submissions
		 WHERE visit_id = $1 AND form_type = $2 AND status <> $3`,
		visitID, formType, StatusRejected))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("form submission")
	}
	return s, err
}

func (r *repoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Submission, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+subCols+` FROM form_submissions WHERE visit_id = $1 ORDER BY submitted_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(
			&s.ID, &s.VisitID, &s.FormType, &s.Status, &s.SubmittedBy, &s.SubmittedAt,
			&s.ApprovedBy, &s.ApprovedAt, &s.RejectionReason, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		subs = append(subs, &s)
	}
	return subs, nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, approvedBy *string, rejectionReason *string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE form_submissions SET
			status = $3,
			approved_by = COALESCE($4, approved_by),
			approved_at = CASE WHEN $4 IS NOT NULL THEN NOW() ELSE approved_at END,
			rejection_reason = COALESCE($5, rejection_reason),
			updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, from, to, approvedBy, rejectionReason,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanSubmission(row pgx.Row) (*Submission, error) {
	var s Submission
	err := row.Scan(
		&s.ID, &s.VisitID, &s.FormType, &s.Status, &s.SubmittedBy, &s.SubmittedAt,
		&s.ApprovedBy, &s.ApprovedAt, &s.RejectionReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
