package repository

import (
	"context"
	"errors"
	"fmt"

	"plumbstore/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const plumberRequestColumns = `id, user_id, address, phone_number, problem_description, image, status,
	rating, comment, created_at, updated_at`

// plumberRequestRepository implements PlumberRequestRepository using PostgreSQL.
type plumberRequestRepository struct {
	pool   DBPool
	logger zerolog.Logger
}

// NewPlumberRequestRepository creates a new PostgreSQL-backed service request repository.
func NewPlumberRequestRepository(pool DBPool, logger zerolog.Logger) PlumberRequestRepository {
	return &plumberRequestRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "plumber_request").Logger(),
	}
}

func scanPlumberRequest(row pgx.Row, p *model.PlumberRequest) error {
	var status string
	err := row.Scan(&p.ID, &p.UserID, &p.Address, &p.PhoneNumber, &p.ProblemDescription, &p.Image, &status,
		&p.Rating, &p.Comment, &p.CreatedAt, &p.UpdatedAt)
	p.Status = model.Status(status)
	return err
}

// BeginTx starts a new database transaction.
func (r *plumberRequestRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Create inserts a new request.
func (r *plumberRequestRepository) Create(ctx context.Context, req *model.PlumberRequest) error {
	query := `
		INSERT INTO plumber_requests (id, user_id, address, phone_number, problem_description, image, status,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		req.ID, req.UserID, req.Address, req.PhoneNumber, req.ProblemDescription, req.Image,
		string(req.Status), req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", req.UserID).Msg("failed to create plumber request")
		return fmt.Errorf("failed to create plumber request: %w", err)
	}
	return nil
}

// GetByID retrieves a single request.
func (r *plumberRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PlumberRequest, error) {
	query := `SELECT ` + plumberRequestColumns + ` FROM plumber_requests WHERE id = $1`

	var req model.PlumberRequest
	if err := scanPlumberRequest(r.pool.QueryRow(ctx, query, id), &req); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("plumber request %s: %w", id, model.ErrNotFound)
		}
		r.logger.Error().Err(err).Str("request_id", id.String()).Msg("failed to query plumber request")
		return nil, fmt.Errorf("failed to query plumber request: %w", err)
	}
	return &req, nil
}

// ListByUser returns the user's requests, newest first.
func (r *plumberRequestRepository) ListByUser(ctx context.Context, userID int64) ([]model.PlumberRequest, error) {
	return r.list(ctx, `SELECT `+plumberRequestColumns+` FROM plumber_requests WHERE user_id = $1
		ORDER BY created_at DESC, id`, userID)
}

// ListAll returns every request, newest first.
func (r *plumberRequestRepository) ListAll(ctx context.Context) ([]model.PlumberRequest, error) {
	return r.list(ctx, `SELECT `+plumberRequestColumns+` FROM plumber_requests ORDER BY created_at DESC, id`)
}

func (r *plumberRequestRepository) list(ctx context.Context, query string, args ...any) ([]model.PlumberRequest, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query plumber requests")
		return nil, fmt.Errorf("failed to query plumber requests: %w", err)
	}
	defer rows.Close()

	requests := []model.PlumberRequest{}
	for rows.Next() {
		var req model.PlumberRequest
		if err := scanPlumberRequest(rows, &req); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan plumber request row")
			return nil, fmt.Errorf("failed to scan plumber request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plumber requests: %w", err)
	}
	return requests, nil
}

// GetStatusForUpdate locks the request row until tx ends.
func (r *plumberRequestRepository) GetStatusForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.Status, int64, error) {
	var status string
	var userID int64
	err := tx.QueryRow(ctx, `SELECT status, user_id FROM plumber_requests WHERE id = $1 FOR UPDATE`, id).Scan(&status, &userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, fmt.Errorf("plumber request %s: %w", id, model.ErrNotFound)
		}
		r.logger.Error().Err(err).Str("request_id", id.String()).Msg("failed to lock plumber request")
		return "", 0, fmt.Errorf("failed to lock plumber request: %w", err)
	}
	return model.Status(status), userID, nil
}

// UpdateStatus writes the new status within tx.
func (r *plumberRequestRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.Status) error {
	tag, err := tx.Exec(ctx, `UPDATE plumber_requests SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		r.logger.Error().Err(err).Str("request_id", id.String()).Msg("failed to update plumber request status")
		return fmt.Errorf("failed to update plumber request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("plumber request %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// UpdateRatingComment writes rating and comment independently; a nil argument keeps the stored value.
// The row must belong to userID and, when requireCompleted is set, be completed; otherwise nothing
// is written and ErrNotFound is returned.
func (r *plumberRequestRepository) UpdateRatingComment(ctx context.Context, id uuid.UUID, userID int64, requireCompleted bool, rating *int, comment *string) (*model.PlumberRequest, error) {
	query := `
		UPDATE plumber_requests
		SET rating = COALESCE($2, rating),
		    comment = COALESCE($3, comment),
		    updated_at = NOW()
		WHERE id = $1
		  AND user_id = $4
		  AND (NOT $5::boolean OR status = 'completed')
		RETURNING ` + plumberRequestColumns

	var req model.PlumberRequest
	if err := scanPlumberRequest(r.pool.QueryRow(ctx, query, id, rating, comment, userID, requireCompleted), &req); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("plumber request %s: %w", id, model.ErrNotFound)
		}
		r.logger.Error().Err(err).Str("request_id", id.String()).Msg("failed to update rating and comment")
		return nil, fmt.Errorf("failed to update rating and comment: %w", err)
	}
	return &req, nil
}
