package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/webseries-catalog/internal/model"
)

const episodeColumns = `e.id, e.series_id, e.episode_no, e.title, e.duration_min, e.viewers,
       e.video_url, e.thumbnail_url, e.tech_interruption`

func scanEpisode(row rowScanner, extra ...any) (model.Episode, error) {
	var (
		e            model.Episode
		video, thumb sql.NullString
	)
	dest := []any{&e.ID, &e.SeriesID, &e.EpisodeNo, &e.Title, &e.DurationMin, &e.Viewers, &video, &thumb, &e.TechInterruption}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Episode{}, noRows(err)
	}
	e.VideoURL, e.ThumbnailURL = video.String, thumb.String
	return e, nil
}

// EpisodeByID returns the episode joined with its series name.
func (q *Queries) EpisodeByID(ctx context.Context, id uint64) (model.Episode, error) {
	var seriesName string
	e, err := scanEpisode(q.db.QueryRowContext(ctx,
		"SELECT "+episodeColumns+`, s.name
         FROM episodes e JOIN web_series s ON s.id = e.series_id
         WHERE e.id = ?`, id), &seriesName)
	if err != nil {
		return model.Episode{}, err
	}
	e.SeriesName = seriesName
	return e, nil
}

// EpisodesBySeries lists a series' episodes by number.
func (q *Queries) EpisodesBySeries(ctx context.Context, seriesID uint64) ([]model.Episode, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+episodeColumns+" FROM episodes e WHERE e.series_id = ? ORDER BY e.episode_no", seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Episode{}
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EpisodeNoTaken reports whether another episode of the series already
// uses the number. Pass excludeID 0 on create.
func (q *Queries) EpisodeNoTaken(ctx context.Context, seriesID uint64, episodeNo int, excludeID uint64) (bool, error) {
	return q.exists(ctx,
		"SELECT 1 FROM episodes WHERE series_id = ? AND episode_no = ? AND id <> ? LIMIT 1",
		seriesID, episodeNo, excludeID)
}

func (q *Queries) EpisodeInSeries(ctx context.Context, episodeID, seriesID uint64) (bool, error) {
	return q.exists(ctx, "SELECT 1 FROM episodes WHERE id = ? AND series_id = ? LIMIT 1", episodeID, seriesID)
}

// InsertEpisode stores a new episode with a zero viewer counter.
func (q *Queries) InsertEpisode(ctx context.Context, e model.Episode) (uint64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO episodes (series_id, episode_no, title, duration_min, viewers, video_url, thumbnail_url, tech_interruption)
         VALUES (?,?,?,?,0,?,?,?)`,
		e.SeriesID, e.EpisodeNo, e.Title, e.DurationMin, nullString(e.VideoURL), nullString(e.ThumbnailURL), e.TechInterruption)
	if err != nil {
		return 0, translate(err)
	}
	return insertID(res)
}

// UpdateEpisode applies a patch. Nil fields keep their column value.
func (q *Queries) UpdateEpisode(ctx context.Context, id uint64, p model.EpisodePatch) error {
	return q.execOne(ctx,
		`UPDATE episodes SET
            episode_no        = COALESCE(?, episode_no),
            title             = COALESCE(?, title),
            duration_min      = COALESCE(?, duration_min),
            video_url         = COALESCE(?, video_url),
            thumbnail_url     = COALESCE(?, thumbnail_url),
            tech_interruption = COALESCE(?, tech_interruption)
         WHERE id = ?`,
		intArg(p.EpisodeNo), strArg(p.Title), intArg(p.DurationMin), strArg(p.VideoURL),
		strArg(p.ThumbnailURL), boolArg(p.TechInterruption), id)
}

func (q *Queries) DeleteEpisode(ctx context.Context, id uint64) error {
	return q.execOne(ctx, "DELETE FROM episodes WHERE id = ?", id)
}

// IncrementEpisodeViewers bumps the counter once.
func (q *Queries) IncrementEpisodeViewers(ctx context.Context, episodeID, seriesID uint64) error {
	return q.execOne(ctx, "UPDATE episodes SET viewers = viewers + 1 WHERE id = ? AND series_id = ?", episodeID, seriesID)
}
