package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/taipei-day-trip/internal/model"
)

// AttractionPageSize is the number of attractions returned per page.
const AttractionPageSize = 12

// ErrAttractionNotFound is returned when an attraction id does not exist.
var ErrAttractionNotFound = errors.New("attraction not found")

// AttractionRepo reads the attraction catalogue and loads it from the
// import command (cmd/import).  Request handlers only ever read.
type AttractionRepo struct {
	db *sql.DB
}

// NewAttractionRepo returns a new AttractionRepo bound to the given database.
func NewAttractionRepo(db *sql.DB) *AttractionRepo { return &AttractionRepo{db: db} }

const attractionColumns = `a.id, a.name, a.category, a.description, a.address, a.transport,
	a.mrt, a.lat, a.lng, GROUP_CONCAT(ai.image_url ORDER BY ai.id) AS images`

const attractionGroupBy = ` GROUP BY a.id, a.name, a.category, a.description, a.address, a.transport, a.mrt, a.lat, a.lng`

// AttractionPage is one page of a listing.  NextPage is nil on the last page.
type AttractionPage struct {
	NextPage *int               `json:"nextPage"`
	Data     []model.Attraction `json:"data"`
}

// List returns page (zero based) of attractions.  A non-empty keyword
// matches a substring of the name or the exact MRT station.
func (r *AttractionRepo) List(ctx context.Context, page int, keyword string) (AttractionPage, error) {
	if page < 0 {
		page = 0
	}
	cond := "1=1"
	args := []any{}
	if kw := strings.TrimSpace(keyword); kw != "" {
		cond = "a.name LIKE ? OR a.mrt = ?"
		args = append(args, "%"+kw+"%", kw)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attractions a WHERE `+cond, args...).Scan(&total); err != nil {
		return AttractionPage{}, err
	}

	q := `SELECT ` + attractionColumns + `
		FROM attractions a
		LEFT JOIN attraction_images ai ON ai.attraction_id = a.id
		WHERE ` + cond + attractionGroupBy + `
		ORDER BY a.id
		LIMIT ? OFFSET ?`
	dataArgs := append(append([]any{}, args...), AttractionPageSize, page*AttractionPageSize)
	rows, err := r.db.QueryContext(ctx, q, dataArgs...)
	if err != nil {
		return AttractionPage{}, err
	}
	defer rows.Close()

	out := AttractionPage{Data: make([]model.Attraction, 0, AttractionPageSize)}
	for rows.Next() {
		a, err := scanAttraction(rows)
		if err != nil {
			return AttractionPage{}, err
		}
		out.Data = append(out.Data, a)
	}
	if err := rows.Err(); err != nil {
		return AttractionPage{}, err
	}
	if (page+1)*AttractionPageSize < total {
		next := page + 1
		out.NextPage = &next
	}
	return out, nil
}

// GetByID returns one attraction with all of its images.
func (r *AttractionRepo) GetByID(ctx context.Context, id uint64) (model.Attraction, error) {
	q := `SELECT ` + attractionColumns + `
		FROM attractions a
		LEFT JOIN attraction_images ai ON ai.attraction_id = a.id
		WHERE a.id = ?` + attractionGroupBy
	a, err := scanAttraction(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Attraction{}, ErrAttractionNotFound
	}
	return a, err
}

// Exists reports whether an attraction with the given id exists.
func (r *AttractionRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM attractions WHERE id = ? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MRTs returns station names ordered by how many attractions they serve.
func (r *AttractionRepo) MRTs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT mrt FROM attractions
		WHERE mrt IS NOT NULL AND mrt <> ''
		GROUP BY mrt
		ORDER BY COUNT(*) DESC, mrt`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttraction(s rowScanner) (model.Attraction, error) {
	var (
		a      model.Attraction
		mrt    sql.NullString
		images sql.NullString
	)
	if err := s.Scan(&a.ID, &a.Name, &a.Category, &a.Description, &a.Address, &a.Transport,
		&mrt, &a.Lat, &a.Lng, &images); err != nil {
		return model.Attraction{}, err
	}
	if mrt.Valid {
		m := mrt.String
		a.MRT = &m
	}
	a.Images = []string{}
	if images.Valid && images.String != "" {
		a.Images = strings.Split(images.String, ",")
	}
	return a, nil
}

// firstImageSQL selects the first image of attraction alias a, or ''.
const firstImageSQL = `COALESCE((SELECT ai.image_url FROM attraction_images ai
	WHERE ai.attraction_id = a.id ORDER BY ai.id LIMIT 1), '')`

// ReplaceAll writes the whole catalogue in one transaction.  Attractions are
// upserted by id rather than deleted, so bookings and orders referencing
// them stay valid; each attraction's images are replaced.  Nothing is kept
// if any statement fails.
func (r *AttractionRepo) ReplaceAll(ctx context.Context, list []model.Attraction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for i := range list {
		if err := r.InsertTx(ctx, tx, &list[i]); err != nil {
			return fmt.Errorf("attraction %d (%s): %w", list[i].ID, list[i].Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// InsertTx upserts a and replaces its images inside the caller's
// transaction.  A zero ID lets MySQL assign one, which is written back.
func (r *AttractionRepo) InsertTx(ctx context.Context, tx *sql.Tx, a *model.Attraction) error {
	const q = `INSERT INTO attractions (id, name, category, description, address, transport, mrt, lat, lng)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			category = VALUES(category),
			description = VALUES(description),
			address = VALUES(address),
			transport = VALUES(transport),
			mrt = VALUES(mrt),
			lat = VALUES(lat),
			lng = VALUES(lng)`
	var id any
	if a.ID != 0 {
		id = a.ID
	}
	var mrt sql.NullString
	if a.MRT != nil && *a.MRT != "" {
		mrt = sql.NullString{String: *a.MRT, Valid: true}
	}
	res, err := tx.ExecContext(ctx, q, id, a.Name, a.Category, a.Description, a.Address, a.Transport, mrt, a.Lat, a.Lng)
	if err != nil {
		return err
	}
	if a.ID == 0 {
		n, err := res.LastInsertId()
		if err != nil {
			return err
		}
		a.ID = uint64(n)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM attraction_images WHERE attraction_id = ?`, a.ID); err != nil {
		return err
	}
	for _, url := range a.Images {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attraction_images (attraction_id, image_url) VALUES (?, ?)`, a.ID, url); err != nil {
			return err
		}
	}
	return nil
}
