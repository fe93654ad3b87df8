package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/webseries-catalog/internal/model"
)

// tagSeparator joins genre names in GROUP_CONCAT. Genre input rejects it.
const tagSeparator = "|"

const seriesSelect = `SELECT s.id, s.name, s.description, s.release_date, s.country_of_release,
       s.poster_url, s.banner_url, s.number_of_episodes,
       COALESCE(GROUP_CONCAT(DISTINCT g.name ORDER BY g.name SEPARATOR '|'), '')`

const seriesFrom = `
FROM web_series s
LEFT JOIN series_genres g ON g.series_id = s.id`

// tagSQL holds the fixed statements for one tag table.
type tagSQL struct {
	list, clear, insert string
}

var tagTables = map[model.TagKind]tagSQL{
	model.TagGenre: {
		list:   "SELECT name FROM series_genres WHERE series_id = ? ORDER BY name",
		clear:  "DELETE FROM series_genres WHERE series_id = ?",
		insert: "INSERT INTO series_genres (series_id, name) VALUES (?, ?)",
	},
	model.TagDubbing: {
		list:   "SELECT language FROM series_dubbing WHERE series_id = ? ORDER BY language",
		clear:  "DELETE FROM series_dubbing WHERE series_id = ?",
		insert: "INSERT INTO series_dubbing (series_id, language) VALUES (?, ?)",
	},
	model.TagSubtitle: {
		list:   "SELECT language FROM series_subtitles WHERE series_id = ? ORDER BY language",
		clear:  "DELETE FROM series_subtitles WHERE series_id = ?",
		insert: "INSERT INTO series_subtitles (series_id, language) VALUES (?, ?)",
	},
}

func tagsFor(kind model.TagKind) (tagSQL, error) {
	t, ok := tagTables[kind]
	if !ok {
		return tagSQL{}, fmt.Errorf("repository: unknown tag kind %d", kind)
	}
	return t, nil
}

type rowScanner interface{ Scan(...any) error }

// scanSeries reads the columns of seriesSelect plus any extra destinations.
func scanSeries(row rowScanner, extra ...any) (model.Series, error) {
	var (
		s                          model.Series
		desc, poster, banner, tags sql.NullString
		release                    sql.NullTime
	)
	dest := []any{&s.ID, &s.Name, &desc, &release, &s.CountryOfRelease, &poster, &banner, &s.NumberOfEpisodes, &tags}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Series{}, noRows(err)
	}
	s.Description, s.PosterURL, s.BannerURL = desc.String, poster.String, banner.String
	s.ReleaseDate = datePtr(release)
	s.Genres = splitTags(tags.String)
	return s, nil
}

func splitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, tagSeparator)
}

func (q *Queries) listSeries(ctx context.Context, query string, args ...any) ([]model.Series, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Series{}
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Queries) SeriesExists(ctx context.Context, id uint64) (bool, error) {
	return q.exists(ctx, "SELECT 1 FROM web_series WHERE id = ? LIMIT 1", id)
}

// LockSeries takes a row lock on the series for the rest of the transaction
// and returns its name. Episode writes lock the parent first so concurrent
// writers for the same series queue behind each other.
func (q *Queries) LockSeries(ctx context.Context, id uint64) (string, error) {
	var name string
	err := q.db.QueryRowContext(ctx, "SELECT name FROM web_series WHERE id = ? FOR UPDATE", id).Scan(&name)
	return name, noRows(err)
}

// SeriesByID returns one series with its genres.
func (q *Queries) SeriesByID(ctx context.Context, id uint64) (model.Series, error) {
	return scanSeries(q.db.QueryRowContext(ctx, seriesSelect+seriesFrom+`
WHERE s.id = ?
GROUP BY s.id`, id))
}

// ListSeries returns the whole catalog, newest release first.
func (q *Queries) ListSeries(ctx context.Context) ([]model.Series, error) {
	return q.listSeries(ctx, seriesSelect+seriesFrom+`
GROUP BY s.id
ORDER BY s.release_date DESC, s.id DESC`)
}

// FeaturedSeries ranks series by the summed viewer counters of their
// episodes. The sum is taken in a subquery so the genre join cannot
// multiply it.
func (q *Queries) FeaturedSeries(ctx context.Context, limit int) ([]model.Series, error) {
	rows, err := q.db.QueryContext(ctx, seriesSelect+`,
       COALESCE((SELECT SUM(e.viewers) FROM episodes e WHERE e.series_id = s.id), 0) AS total_views`+seriesFrom+`
GROUP BY s.id
ORDER BY total_views DESC, s.id ASC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Series{}
	for rows.Next() {
		var views int64
		s, err := scanSeries(rows, &views)
		if err != nil {
			return nil, err
		}
		s.TotalViews = &views
		out = append(out, s)
	}
	return out, rows.Err()
}

// SearchSeries matches term as a substring of the name or description.
// LIKE wildcards in term are matched literally.
func (q *Queries) SearchSeries(ctx context.Context, term string) ([]model.Series, error) {
	pattern := "%" + escapeLike(term) + "%"
	return q.listSeries(ctx, seriesSelect+seriesFrom+`
WHERE s.name LIKE ? OR s.description LIKE ?
GROUP BY s.id
ORDER BY s.release_date DESC, s.id DESC`, pattern, pattern)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// SeriesByGenre returns series carrying the genre, with all their genres.
func (q *Queries) SeriesByGenre(ctx context.Context, genre string) ([]model.Series, error) {
	return q.listSeries(ctx, seriesSelect+seriesFrom+`
WHERE s.id IN (SELECT series_id FROM series_genres WHERE name = ?)
GROUP BY s.id
ORDER BY s.release_date DESC, s.id DESC`, genre)
}

// SeriesTags lists one tag table for a series.
func (q *Queries) SeriesTags(ctx context.Context, seriesID uint64, kind model.TagKind) ([]string, error) {
	t, err := tagsFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, t.list, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}

// SeriesRating returns the average rating and review count. A series with
// no reviews reports 0, 0.
func (q *Queries) SeriesRating(ctx context.Context, seriesID uint64) (float64, int, error) {
	var (
		avg   float64
		total int
	)
	err := q.db.QueryRowContext(ctx,
		"SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM feedback WHERE series_id = ?", seriesID).Scan(&avg, &total)
	return avg, total, err
}

// ListGenres counts series per genre name.
func (q *Queries) ListGenres(ctx context.Context) ([]model.GenreCount, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT name, COUNT(*) FROM series_genres GROUP BY name ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.GenreCount{}
	for rows.Next() {
		var g model.GenreCount
		if err := rows.Scan(&g.Name, &g.Count); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// InsertSeries stores the series row only; tags are written separately.
// The episode count starts at zero.
func (q *Queries) InsertSeries(ctx context.Context, s model.NewSeries) (uint64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO web_series (name, description, release_date, country_of_release, poster_url, banner_url, number_of_episodes)
         VALUES (?,?,?,?,?,?,0)`,
		s.Name, nullString(s.Description), dateArg(s.ReleaseDate), s.CountryOfRelease,
		nullString(s.PosterURL), nullString(s.BannerURL))
	if err != nil {
		return 0, translate(err)
	}
	return insertID(res)
}

// UpdateSeries applies the column part of a patch.
func (q *Queries) UpdateSeries(ctx context.Context, id uint64, p model.SeriesPatch) error {
	return q.execOne(ctx,
		`UPDATE web_series SET
            name               = COALESCE(?, name),
            description        = COALESCE(?, description),
            release_date       = COALESCE(?, release_date),
            country_of_release = COALESCE(?, country_of_release),
            poster_url         = COALESCE(?, poster_url),
            banner_url         = COALESCE(?, banner_url)
         WHERE id = ?`,
		strArg(p.Name), strArg(p.Description), dateArg(p.ReleaseDate), strArg(p.CountryOfRelease),
		strArg(p.PosterURL), strArg(p.BannerURL), id)
}

// ReplaceTags deletes every tag of the kind and inserts tags. tags must
// already be de-duplicated.
func (q *Queries) ReplaceTags(ctx context.Context, seriesID uint64, kind model.TagKind, tags []string) error {
	t, err := tagsFor(kind)
	if err != nil {
		return err
	}
	if _, err := q.db.ExecContext(ctx, t.clear, seriesID); err != nil {
		return err
	}
	for _, tag := range tags {
		if _, err := q.db.ExecContext(ctx, t.insert, seriesID, tag); err != nil {
			return translate(err)
		}
	}
	return nil
}

// DeleteSeries removes the series. Episodes, feedback, tags and watch
// history go with it through ON DELETE CASCADE.
func (q *Queries) DeleteSeries(ctx context.Context, id uint64) error {
	return q.execOne(ctx, "DELETE FROM web_series WHERE id = ?", id)
}

// RecountEpisodes stores the live episode count on the series and returns it.
func (q *Queries) RecountEpisodes(ctx context.Context, seriesID uint64) (int, error) {
	if err := q.execOne(ctx,
		`UPDATE web_series
         SET number_of_episodes = (SELECT COUNT(*) FROM episodes WHERE series_id = ?)
         WHERE id = ?`, seriesID, seriesID); err != nil {
		return 0, err
	}
	var n int
	err := q.db.QueryRowContext(ctx, "SELECT number_of_episodes FROM web_series WHERE id = ?", seriesID).Scan(&n)
	return n, noRows(err)
}
