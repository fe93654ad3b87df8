package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/webseries-catalog/internal/model"
)

// WatchEntry returns the history row for key, or ErrNotFound.
func (q *Queries) WatchEntry(ctx context.Context, key model.WatchKey) (model.WatchHistory, error) {
	var w model.WatchHistory
	err := q.db.QueryRowContext(ctx,
		`SELECT id, viewer_id, series_id, episode_id, progress, last_watched
         FROM watch_history
         WHERE viewer_id = ? AND series_id = ? AND episode_id = ?`,
		key.ViewerID, key.SeriesID, key.EpisodeID,
	).Scan(&w.ID, &w.ViewerID, &w.SeriesID, &w.EpisodeID, &w.Progress, &w.LastWatched)
	return w, noRows(err)
}

func (q *Queries) InsertWatchProgress(ctx context.Context, key model.WatchKey, progress int, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO watch_history (viewer_id, series_id, episode_id, progress, last_watched)
         VALUES (?,?,?,?,?)`,
		key.ViewerID, key.SeriesID, key.EpisodeID, progress, at)
	return translate(err)
}

func (q *Queries) UpdateWatchProgress(ctx context.Context, key model.WatchKey, progress int, at time.Time) error {
	return q.execOne(ctx,
		`UPDATE watch_history SET progress = ?, last_watched = ?
         WHERE viewer_id = ? AND series_id = ? AND episode_id = ?`,
		progress, at, key.ViewerID, key.SeriesID, key.EpisodeID)
}

// ContinueWatching lists unfinished episodes (progress below threshold),
// most recently watched first.
func (q *Queries) ContinueWatching(ctx context.Context, viewerID uint64, threshold, limit int) ([]model.ContinueWatching, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT wh.id, wh.viewer_id, wh.series_id, wh.episode_id, wh.progress, wh.last_watched,
                e.episode_no, e.title, e.duration_min, e.thumbnail_url, s.name
         FROM watch_history wh
         JOIN episodes e ON e.id = wh.episode_id AND e.series_id = wh.series_id
         JOIN web_series s ON s.id = wh.series_id
         WHERE wh.viewer_id = ? AND wh.progress < ?
         ORDER BY wh.last_watched DESC, wh.id DESC
         LIMIT ?`, viewerID, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ContinueWatching{}
	for rows.Next() {
		var (
			c     model.ContinueWatching
			thumb sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.ViewerID, &c.SeriesID, &c.EpisodeID, &c.Progress, &c.LastWatched,
			&c.EpisodeNo, &c.EpisodeTitle, &c.DurationMin, &thumb, &c.SeriesName); err != nil {
			return nil, err
		}
		c.ThumbnailURL = thumb.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteWatchHistoryByViewer removes every history row of the viewer.
func (q *Queries) DeleteWatchHistoryByViewer(ctx context.Context, viewerID uint64) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM watch_history WHERE viewer_id = ?", viewerID)
	return err
}
