package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/logger"
	"parkspace-backend/internal/repository"
)

const lotColumns = `id, owner_id, name, location, description, latitude, longitude, total_spaces, available_spaces,
	price_per_hour, features, is_24_hours, opening_time, closing_time, is_active, created_at, updated_at`

type lotRepository struct {
	db *sql.DB
}

func NewLotRepository(db *sql.DB) repository.LotRepository {
	return &lotRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner) (*domain.ParkingLot, error) {
	l := &domain.ParkingLot{}
	var lat, lon sql.NullFloat64
	var opening, closing sql.NullString
	var features pq.StringArray
	err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Location, &l.Description, &lat, &lon, &l.TotalSpaces, &l.AvailableSpaces,
		&l.PricePerHour, &features, &l.Is24Hours, &opening, &closing, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lon.Valid {
		l.Latitude = &lat.Float64
		l.Longitude = &lon.Float64
	}
	if opening.Valid {
		l.OpeningTime = &opening.String
	}
	if closing.Valid {
		l.ClosingTime = &closing.String
	}
	l.Features = []string(features)
	if l.Features == nil {
		l.Features = []string{}
	}
	return l, nil
}

func (r *lotRepository) Create(ctx context.Context, l *domain.ParkingLot) error {
	query := `INSERT INTO parking_lots (owner_id, name, location, description, latitude, longitude, total_spaces, available_spaces,
	          price_per_hour, features, is_24_hours, opening_time, closing_time, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, l.OwnerID, l.Name, l.Location, l.Description, l.Latitude, l.Longitude,
		l.TotalSpaces, l.AvailableSpaces, l.PricePerHour, pq.Array(l.Features), l.Is24Hours, l.OpeningTime, l.ClosingTime,
		l.IsActive).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	return wrap("LotRepository.Create", err)
}

func (r *lotRepository) GetByID(ctx context.Context, id int64) (*domain.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE id = $1`
	l, err := scanLot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrap("LotRepository.GetByID", err)
	}
	return l, nil
}

func (r *lotRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, wrap("LotRepository.ListByOwner", err)
	}
	defer rows.Close()
	return collectLots(rows, "LotRepository.ListByOwner")
}

func collectLots(rows *sql.Rows, op string) ([]domain.ParkingLot, error) {
	lots := []domain.ParkingLot{}
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		lots = append(lots, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return lots, nil
}

// likeEscaper makes a search term match literally inside ILIKE.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildLotFilter renders the WHERE clause shared by the count and page queries.
func buildLotFilter(f domain.LotFilter) (string, []any) {
	where := []string{"is_active = TRUE"}
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		p := next("%" + likeEscaper.Replace(q) + "%")
		where = append(where, fmt.Sprintf(`(name ILIKE %s ESCAPE '\' OR location ILIKE %s ESCAPE '\')`, p, p))
	}
	if f.MinPrice != nil {
		where = append(where, "price_per_hour >= "+next(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "price_per_hour <= "+next(*f.MaxPrice))
	}
	if len(f.Features) > 0 {
		where = append(where, "features @> "+next(pq.Array(f.Features)))
	}
	if f.AvailableOnly {
		where = append(where, "available_spaces > 0")
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func lotOrder(sort domain.LotSort) string {
	if sort == domain.LotSortPrice {
		return " ORDER BY price_per_hour ASC, id ASC"
	}
	return " ORDER BY available_spaces DESC, id ASC"
}

func (r *lotRepository) ListActive(ctx context.Context, f domain.LotFilter) ([]domain.ParkingLot, int, error) {
	where, args := buildLotFilter(f)

	var total int
	countQuery := `SELECT count(*) FROM parking_lots` + where
	logger.DatabaseCall("count_active_lots", countQuery)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, wrap("LotRepository.ListActive", err)
	}

	query := `SELECT ` + lotColumns + ` FROM parking_lots` + where + lotOrder(f.Sort)
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, wrap("LotRepository.ListActive", err)
	}
	defer rows.Close()

	lots, err := collectLots(rows, "LotRepository.ListActive")
	if err != nil {
		return nil, 0, err
	}
	return lots, total, nil
}

// Update applies the capacity delta in the same statement as the other
// fields, guarded so reserved units always fit.
func (r *lotRepository) Update(ctx context.Context, l *domain.ParkingLot) error {
	query := `UPDATE parking_lots SET name=$1, location=$2, description=$3, latitude=$4, longitude=$5, price_per_hour=$6,
	          features=$7, is_24_hours=$8, opening_time=$9, closing_time=$10,
	          available_spaces = available_spaces + ($12 - total_spaces), total_spaces=$12, updated_at=NOW()
	          WHERE id=$11 AND total_spaces - available_spaces <= $12 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, l.Name, l.Location, l.Description, l.Latitude, l.Longitude, l.PricePerHour,
		pq.Array(l.Features), l.Is24Hours, l.OpeningTime, l.ClosingTime, l.ID, l.TotalSpaces).Scan(&l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := r.GetByID(ctx, l.ID); err != nil {
			return err
		}
		return domain.Validationf("total spaces %d is below the number of reserved spaces", l.TotalSpaces)
	}
	return wrap("LotRepository.Update", err)
}

func (r *lotRepository) Deactivate(ctx context.Context, id int64) error {
	return r.execOne(ctx, "LotRepository.Deactivate",
		`UPDATE parking_lots SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
}

func (r *lotRepository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, "LotRepository.Delete", `DELETE FROM parking_lots WHERE id = $1`, id)
}

func (r *lotRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}
