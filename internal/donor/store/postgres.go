package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/matching"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

const donorColumns = `id, name, phone, email, blood_group, date_of_birth, address, city, area,
		latitude, longitude, last_donation_date, is_active, created_at, updated_at`

// PostgresStore persists donors in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed donor store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a donor. A duplicate phone number is reported as ErrAlreadyUsed.
func (s *PostgresStore) Create(ctx context.Context, donor *models.Donor) error {
	if donor == nil {
		return fmt.Errorf("donor is required")
	}
	lat, lon := coordArgs(donor.Coordinates)
	query := `
		INSERT INTO donors (` + donorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(donor.ID),
		donor.Name,
		donor.Phone,
		donor.Email,
		string(donor.BloodGroup),
		donor.DateOfBirth,
		donor.Address,
		donor.City,
		donor.Area,
		lat,
		lon,
		donor.LastDonationDate,
		donor.IsActive,
		donor.CreatedAt,
		donor.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("donor phone must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create donor: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of an existing donor.
func (s *PostgresStore) Update(ctx context.Context, donor *models.Donor) error {
	if donor == nil {
		return fmt.Errorf("donor is required")
	}
	lat, lon := coordArgs(donor.Coordinates)
	query := `
		UPDATE donors
		SET name = $2, phone = $3, email = $4, address = $5, city = $6, area = $7,
			latitude = $8, longitude = $9, last_donation_date = $10, is_active = $11, updated_at = $12
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(donor.ID),
		donor.Name,
		donor.Phone,
		donor.Email,
		donor.Address,
		donor.City,
		donor.Area,
		lat,
		lon,
		donor.LastDonationDate,
		donor.IsActive,
		donor.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("donor phone must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update donor: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update donor rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// FindByID retrieves a donor by its UUID.
func (s *PostgresStore) FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE id = $1`
	donor, err := scanDonor(s.db.QueryRowContext(ctx, query, uuid.UUID(donorID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donor by id: %w", err)
	}
	return donor, nil
}

// List returns donors matching filter ordered by creation time, then ID.
func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Donor, error) {
	var (
		where []string
		args  []any
	)
	if filter.BloodGroup != "" {
		args = append(args, string(filter.BloodGroup))
		where = append(where, fmt.Sprintf("blood_group = $%d", len(args)))
	}
	if filter.City != "" {
		args = append(args, strings.TrimSpace(filter.City))
		where = append(where, fmt.Sprintf("lower(city) = lower($%d)", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}

	query := `SELECT ` + donorColumns + ` FROM donors`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`
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
		return nil, fmt.Errorf("list donors: %w", err)
	}
	defer rows.Close()
	return scanDonors(rows)
}

// FindCandidates returns active donors whose group is in groups.
func (s *PostgresStore) FindCandidates(ctx context.Context, groups []matching.BloodGroup) ([]*models.Donor, error) {
	if len(groups) == 0 {
		return []*models.Donor{}, nil
	}
	placeholders := make([]string, len(groups))
	args := make([]any, len(groups))
	for i, g := range groups {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = string(g)
	}
	query := `SELECT ` + donorColumns + ` FROM donors
		WHERE is_active AND blood_group IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find candidate donors: %w", err)
	}
	defer rows.Close()
	return scanDonors(rows)
}

// CountByGroup returns the number of active donors per blood group.
func (s *PostgresStore) CountByGroup(ctx context.Context) (map[matching.BloodGroup]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT blood_group, COUNT(*) FROM donors WHERE is_active GROUP BY blood_group`)
	if err != nil {
		return nil, fmt.Errorf("count donors by group: %w", err)
	}
	defer rows.Close()

	counts := make(map[matching.BloodGroup]int)
	for rows.Next() {
		var (
			group string
			n     int
		)
		if err := rows.Scan(&group, &n); err != nil {
			return nil, fmt.Errorf("scan donor count: %w", err)
		}
		counts[matching.BloodGroup(group)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donor counts: %w", err)
	}
	return counts, nil
}

type donorRow interface {
	Scan(dest ...any) error
}

func scanDonor(row donorRow) (*models.Donor, error) {
	var (
		d          models.Donor
		donorID    uuid.UUID
		group      string
		dob        sql.NullTime
		lat, lon   sql.NullFloat64
		lastDonate sql.NullTime
	)
	if err := row.Scan(
		&donorID,
		&d.Name,
		&d.Phone,
		&d.Email,
		&group,
		&dob,
		&d.Address,
		&d.City,
		&d.Area,
		&lat,
		&lon,
		&lastDonate,
		&d.IsActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.ID = id.DonorID(donorID)
	d.BloodGroup = matching.BloodGroup(group)
	if dob.Valid {
		t := dob.Time
		d.DateOfBirth = &t
	}
	if lastDonate.Valid {
		t := lastDonate.Time
		d.LastDonationDate = &t
	}
	if lat.Valid && lon.Valid {
		d.Coordinates = &matching.Coordinates{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	return &d, nil
}

func scanDonors(rows *sql.Rows) ([]*models.Donor, error) {
	out := make([]*models.Donor, 0)
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donor: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donors: %w", err)
	}
	return out, nil
}

func coordArgs(c *matching.Coordinates) (lat, lon *float64) {
	if c == nil {
		return nil, nil
	}
	la, lo := c.Latitude, c.Longitude
	return &la, &lo
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
