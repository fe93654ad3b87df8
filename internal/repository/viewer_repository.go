package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/webseries-catalog/internal/model"
)

const viewerColumns = `id, email, first_name, last_name, password_hash, role, billing_street, billing_city,
       billing_zipcode, monthly_fee, series_id, country_id, created_at`

func scanViewer(row rowScanner) (model.Viewer, error) {
	var (
		v                  model.Viewer
		last, street, city sql.NullString
		zip, seriesID      sql.NullInt64
	)
	err := row.Scan(&v.ID, &v.Email, &v.FirstName, &last, &v.PasswordHash, &v.Role, &street, &city,
		&zip, &v.MonthlyFee, &seriesID, &v.CountryID, &v.CreatedAt)
	if err != nil {
		return model.Viewer{}, noRows(err)
	}
	v.LastName, v.BillingStreet, v.BillingCity = last.String, street.String, city.String
	if zip.Valid {
		z := uint32(zip.Int64)
		v.BillingZipcode = &z
	}
	if seriesID.Valid {
		id := uint64(seriesID.Int64)
		v.SeriesID = &id
	}
	return v, nil
}

// ViewerByEmail fetches a viewer by normalized email, including the hash.
func (q *Queries) ViewerByEmail(ctx context.Context, email string) (model.Viewer, error) {
	return scanViewer(q.db.QueryRowContext(ctx,
		"SELECT "+viewerColumns+" FROM viewers WHERE email = ? LIMIT 1", email))
}

// ViewerByID fetches a viewer by id.
func (q *Queries) ViewerByID(ctx context.Context, id uint64) (model.Viewer, error) {
	return scanViewer(q.db.QueryRowContext(ctx,
		"SELECT "+viewerColumns+" FROM viewers WHERE id = ? LIMIT 1", id))
}

// ViewerRole reads only the current role; the role gate calls it on every
// gated request.
func (q *Queries) ViewerRole(ctx context.Context, id uint64) (model.Role, error) {
	var r model.Role
	err := q.db.QueryRowContext(ctx, "SELECT role FROM viewers WHERE id = ?", id).Scan(&r)
	return r, noRows(err)
}

func (q *Queries) EmailTaken(ctx context.Context, email string) (bool, error) {
	return q.exists(ctx, "SELECT 1 FROM viewers WHERE email = ? LIMIT 1", email)
}

// InsertViewer stores a new account and returns its id. A duplicate email
// surfaces as ErrConflict.
func (q *Queries) InsertViewer(ctx context.Context, v model.Viewer) (uint64, error) {
	var zip any
	if v.BillingZipcode != nil {
		zip = *v.BillingZipcode
	}
	var series any
	if v.SeriesID != nil {
		series = *v.SeriesID
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO viewers (email, first_name, last_name, password_hash, role, billing_street, billing_city,
                      billing_zipcode, monthly_fee, series_id, country_id, created_at)
         VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		v.Email, v.FirstName, nullString(v.LastName), v.PasswordHash, v.Role,
		nullString(v.BillingStreet), nullString(v.BillingCity), zip, v.MonthlyFee, series, v.CountryID, v.CreatedAt)
	if err != nil {
		return 0, translate(err)
	}
	return insertID(res)
}

// UpdateViewer applies a profile patch. Nil fields keep their column value.
func (q *Queries) UpdateViewer(ctx context.Context, id uint64, p model.ViewerPatch) error {
	var zip any
	if p.BillingZipcode != nil {
		zip = *p.BillingZipcode
	}
	return q.execOne(ctx,
		`UPDATE viewers SET
            first_name      = COALESCE(?, first_name),
            last_name       = COALESCE(?, last_name),
            billing_street  = COALESCE(?, billing_street),
            billing_city    = COALESCE(?, billing_city),
            billing_zipcode = COALESCE(?, billing_zipcode)
         WHERE id = ?`,
		strArg(p.FirstName), strArg(p.LastName), strArg(p.BillingStreet), strArg(p.BillingCity), zip, id)
}

func (q *Queries) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return q.execOne(ctx, "UPDATE viewers SET password_hash = ? WHERE id = ?", hash, id)
}

// DeleteViewer removes the account row. Callers remove dependent feedback
// and history first in the same transaction.
func (q *Queries) DeleteViewer(ctx context.Context, id uint64) error {
	return q.execOne(ctx, "DELETE FROM viewers WHERE id = ?", id)
}

func (q *Queries) CountryExists(ctx context.Context, id uint64) (bool, error) {
	return q.exists(ctx, "SELECT 1 FROM countries WHERE id = ? LIMIT 1", id)
}

// ListCountries returns all countries ordered by name.
func (q *Queries) ListCountries(ctx context.Context) ([]model.Country, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT id, name FROM countries ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Country{}
	for rows.Next() {
		var c model.Country
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
