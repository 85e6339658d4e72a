package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/emergency/models"
	"bloodlink/internal/matching"
	"bloodlink/internal/platform/database"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

const requestColumns = `id, requester_name, contact_phone, hospital, blood_group, city, area,
		latitude, longitude, units_required, urgency, status, rejection_reason, reviewed_by,
		created_at, updated_at, approved_at, rejected_at, completed_at`

const urgencyOrder = `CASE urgency WHEN 'critical' THEN 0 WHEN 'high' THEN 1 ELSE 2 END`

// PostgresStore persists emergency requests and their ranked matches.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	lat, lon := coordArgs(req.Coordinates)
	query := `
		INSERT INTO emergency_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(req.ID),
		req.RequesterName,
		req.ContactPhone,
		req.Hospital,
		string(req.BloodGroup),
		req.City,
		req.Area,
		lat,
		lon,
		req.UnitsRequired,
		string(req.Urgency),
		string(req.Status),
		req.RejectionReason,
		req.ReviewedBy,
		req.CreatedAt,
		req.UpdatedAt,
		req.ApprovedAt,
		req.RejectedAt,
		req.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("create emergency request: %w", err)
	}
	return nil
}

// Update saves status fields and replaces the stored matches in one transaction.
func (s *PostgresStore) Update(ctx context.Context, req *models.Request) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		lat, lon := coordArgs(req.Coordinates)
		res, err := tx.ExecContext(ctx, `
			UPDATE emergency_requests
			SET latitude = $2, longitude = $3, status = $4, rejection_reason = $5, reviewed_by = $6,
				updated_at = $7, approved_at = $8, rejected_at = $9, completed_at = $10
			WHERE id = $1
		`,
			uuid.UUID(req.ID),
			lat,
			lon,
			string(req.Status),
			req.RejectionReason,
			req.ReviewedBy,
			req.UpdatedAt,
			req.ApprovedAt,
			req.RejectedAt,
			req.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("update emergency request: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update emergency request rows: %w", err)
		}
		if rows == 0 {
			return sentinel.ErrNotFound
		}
		return replaceMatches(ctx, tx, req.ID, req.MatchedDonorIDs)
	})
}

func replaceMatches(ctx context.Context, exec database.Executor, requestID id.EmergencyRequestID, donors []id.DonorID) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM emergency_request_matches WHERE request_id = $1`, uuid.UUID(requestID)); err != nil {
		return fmt.Errorf("clear matches: %w", err)
	}
	for rank, donorID := range donors {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO emergency_request_matches (request_id, donor_id, rank) VALUES ($1, $2, $3)`,
			uuid.UUID(requestID), uuid.UUID(donorID), rank,
		); err != nil {
			return fmt.Errorf("insert match: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.EmergencyRequestID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM emergency_requests WHERE id = $1`
	req, err := scanRequest(s.db.QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find emergency request: %w", err)
	}
	if err := s.loadMatches(ctx, []*models.Request{req}); err != nil {
		return nil, err
	}
	return req, nil
}

// List orders by urgency (critical first), then creation time, then ID.
func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Request, error) {
	var args []any
	query := `SELECT ` + requestColumns + ` FROM emergency_requests`
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += ` ORDER BY ` + urgencyOrder + `, created_at, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list emergency requests: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emergency request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emergency requests: %w", err)
	}
	if err := s.loadMatches(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadMatches fills MatchedDonorIDs for approved or completed requests with one query.
func (s *PostgresStore) loadMatches(ctx context.Context, reqs []*models.Request) error {
	byID := make(map[uuid.UUID]*models.Request)
	var (
		placeholders []string
		args         []any
	)
	for _, r := range reqs {
		if r.Status != models.StatusApproved && r.Status != models.StatusCompleted {
			continue
		}
		key := uuid.UUID(r.ID)
		byID[key] = r
		args = append(args, key)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	if len(args) == 0 {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, donor_id FROM emergency_request_matches
		WHERE request_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY request_id, rank`, args...)
	if err != nil {
		return fmt.Errorf("load matches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var requestID, donorID uuid.UUID
		if err := rows.Scan(&requestID, &donorID); err != nil {
			return fmt.Errorf("scan match: %w", err)
		}
		if r, ok := byID[requestID]; ok {
			r.MatchedDonorIDs = append(r.MatchedDonorIDs, id.DonorID(donorID))
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate matches: %w", err)
	}
	return nil
}

// Statistics counts requests per status. Critical covers open requests only.
func (s *PostgresStore) Statistics(ctx context.Context, criticalUnits int) (*models.Statistics, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status IN ('pending', 'approved')
				AND (urgency = 'critical' OR units_required > $1))
		FROM emergency_requests
	`
	var stats models.Statistics
	if err := s.db.QueryRowContext(ctx, query, criticalUnits).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Approved,
		&stats.Rejected,
		&stats.Completed,
		&stats.Critical,
	); err != nil {
		return nil, fmt.Errorf("emergency request statistics: %w", err)
	}
	return &stats, nil
}

type requestRow interface {
	Scan(dest ...any) error
}

func scanRequest(row requestRow) (*models.Request, error) {
	var (
		r                                 models.Request
		requestID                         uuid.UUID
		group, urgency, status            string
		lat, lon                          sql.NullFloat64
		approvedAt, rejectedAt, completed sql.NullTime
	)
	if err := row.Scan(
		&requestID,
		&r.RequesterName,
		&r.ContactPhone,
		&r.Hospital,
		&group,
		&r.City,
		&r.Area,
		&lat,
		&lon,
		&r.UnitsRequired,
		&urgency,
		&status,
		&r.RejectionReason,
		&r.ReviewedBy,
		&r.CreatedAt,
		&r.UpdatedAt,
		&approvedAt,
		&rejectedAt,
		&completed,
	); err != nil {
		return nil, err
	}
	r.ID = id.EmergencyRequestID(requestID)
	r.BloodGroup = matching.BloodGroup(group)
	r.Urgency = matching.Urgency(urgency)
	r.Status = models.Status(status)
	if lat.Valid && lon.Valid {
		r.Coordinates = &matching.Coordinates{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	r.ApprovedAt = nullTime(approvedAt)
	r.RejectedAt = nullTime(rejectedAt)
	r.CompletedAt = nullTime(completed)
	return &r, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func coordArgs(c *matching.Coordinates) (lat, lon *float64) {
	if c == nil {
		return nil, nil
	}
	la, lo := c.Latitude, c.Longitude
	return &la, &lo
}
