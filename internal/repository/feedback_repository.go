package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/webseries-catalog/internal/model"
)

// feedbackSelect joins reviewer and series names onto every feedback read.
const feedbackSelect = `SELECT f.id, f.viewer_id, f.series_id, f.rating, f.feedback_text, f.feedback_date,
       v.first_name, v.last_name, s.name
FROM feedback f
JOIN viewers v ON v.id = f.viewer_id
JOIN web_series s ON s.id = f.series_id`

func scanFeedback(row rowScanner) (model.Feedback, error) {
	var (
		f          model.Feedback
		text, last sql.NullString
	)
	if err := row.Scan(&f.ID, &f.ViewerID, &f.SeriesID, &f.Rating, &text, &f.Date.Time,
		&f.ViewerFirstName, &last, &f.SeriesName); err != nil {
		return model.Feedback{}, noRows(err)
	}
	f.Text, f.ViewerLastName = text.String, last.String
	return f, nil
}

func (q *Queries) listFeedback(ctx context.Context, query string, args ...any) ([]model.Feedback, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FeedbackIDFor returns the id of the viewer's review of the series, or
// ErrNotFound when there is none.
func (q *Queries) FeedbackIDFor(ctx context.Context, viewerID, seriesID uint64) (uint64, error) {
	var id uint64
	err := q.db.QueryRowContext(ctx,
		"SELECT id FROM feedback WHERE viewer_id = ? AND series_id = ? LIMIT 1", viewerID, seriesID).Scan(&id)
	return id, noRows(err)
}

// InsertFeedback stores a review. The unique (viewer_id, series_id) index
// turns a lost race into ErrConflict.
func (q *Queries) InsertFeedback(ctx context.Context, f model.Feedback) (uint64, error) {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO feedback (viewer_id, series_id, rating, feedback_text, feedback_date) VALUES (?,?,?,?,?)",
		f.ViewerID, f.SeriesID, f.Rating, nullString(f.Text), f.Date.Time)
	if err != nil {
		return 0, translate(err)
	}
	return insertID(res)
}

func (q *Queries) FeedbackByID(ctx context.Context, id uint64) (model.Feedback, error) {
	return scanFeedback(q.db.QueryRowContext(ctx, feedbackSelect+" WHERE f.id = ?", id))
}

// FeedbackBySeries lists a series' reviews, newest first.
func (q *Queries) FeedbackBySeries(ctx context.Context, seriesID uint64) ([]model.Feedback, error) {
	return q.listFeedback(ctx, feedbackSelect+" WHERE f.series_id = ? ORDER BY f.feedback_date DESC, f.id DESC", seriesID)
}

// FeedbackByViewer lists a viewer's own reviews, newest first.
func (q *Queries) FeedbackByViewer(ctx context.Context, viewerID uint64) ([]model.Feedback, error) {
	return q.listFeedback(ctx, feedbackSelect+" WHERE f.viewer_id = ? ORDER BY f.feedback_date DESC, f.id DESC", viewerID)
}

// ListFeedback pages through every review, newest first.
func (q *Queries) ListFeedback(ctx context.Context, limit, offset int) ([]model.Feedback, error) {
	return q.listFeedback(ctx, feedbackSelect+" ORDER BY f.feedback_date DESC, f.id DESC LIMIT ? OFFSET ?", limit, offset)
}

func (q *Queries) CountFeedback(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&n)
	return n, err
}

// UpdateFeedback applies a patch and always moves the review date to date.
func (q *Queries) UpdateFeedback(ctx context.Context, id uint64, p model.FeedbackPatch, date model.Date) error {
	return q.execOne(ctx,
		`UPDATE feedback SET
            rating        = COALESCE(?, rating),
            feedback_text = COALESCE(?, feedback_text),
            feedback_date = ?
         WHERE id = ?`,
		intArg(p.Rating), strArg(p.Text), date.Time, id)
}

func (q *Queries) DeleteFeedback(ctx context.Context, id uint64) error {
	return q.execOne(ctx, "DELETE FROM feedback WHERE id = ?", id)
}

// DeleteFeedbackByViewer removes every review the viewer wrote. No rows is
// not an error.
func (q *Queries) DeleteFeedbackByViewer(ctx context.Context, viewerID uint64) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM feedback WHERE viewer_id = ?", viewerID)
	return err
}
