package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/webseries-catalog/internal/model"
)

// ViewerQueries covers the credential store and country reference data.
type ViewerQueries interface {
	ViewerByEmail(ctx context.Context, email string) (model.Viewer, error)
	ViewerByID(ctx context.Context, id uint64) (model.Viewer, error)
	ViewerRole(ctx context.Context, id uint64) (model.Role, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	InsertViewer(ctx context.Context, v model.Viewer) (uint64, error)
	UpdateViewer(ctx context.Context, id uint64, p model.ViewerPatch) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	DeleteViewer(ctx context.Context, id uint64) error
	CountryExists(ctx context.Context, id uint64) (bool, error)
	ListCountries(ctx context.Context) ([]model.Country, error)
}

// CatalogQueries covers series, their tag tables and episodes.
type CatalogQueries interface {
	SeriesExists(ctx context.Context, id uint64) (bool, error)
	LockSeries(ctx context.Context, id uint64) (string, error)
	SeriesByID(ctx context.Context, id uint64) (model.Series, error)
	ListSeries(ctx context.Context) ([]model.Series, error)
	FeaturedSeries(ctx context.Context, limit int) ([]model.Series, error)
	SearchSeries(ctx context.Context, term string) ([]model.Series, error)
	SeriesByGenre(ctx context.Context, genre string) ([]model.Series, error)
	SeriesTags(ctx context.Context, seriesID uint64, kind model.TagKind) ([]string, error)
	SeriesRating(ctx context.Context, seriesID uint64) (float64, int, error)
	ListGenres(ctx context.Context) ([]model.GenreCount, error)
	InsertSeries(ctx context.Context, s model.NewSeries) (uint64, error)
	UpdateSeries(ctx context.Context, id uint64, p model.SeriesPatch) error
	ReplaceTags(ctx context.Context, seriesID uint64, kind model.TagKind, tags []string) error
	DeleteSeries(ctx context.Context, id uint64) error
	RecountEpisodes(ctx context.Context, seriesID uint64) (int, error)

	EpisodeByID(ctx context.Context, id uint64) (model.Episode, error)
	EpisodesBySeries(ctx context.Context, seriesID uint64) ([]model.Episode, error)
	EpisodeNoTaken(ctx context.Context, seriesID uint64, episodeNo int, excludeID uint64) (bool, error)
	EpisodeInSeries(ctx context.Context, episodeID, seriesID uint64) (bool, error)
	InsertEpisode(ctx context.Context, e model.Episode) (uint64, error)
	UpdateEpisode(ctx context.Context, id uint64, p model.EpisodePatch) error
	DeleteEpisode(ctx context.Context, id uint64) error
	IncrementEpisodeViewers(ctx context.Context, episodeID, seriesID uint64) error
}

// EngagementQueries covers feedback and watch history.
type EngagementQueries interface {
	FeedbackIDFor(ctx context.Context, viewerID, seriesID uint64) (uint64, error)
	InsertFeedback(ctx context.Context, f model.Feedback) (uint64, error)
	FeedbackByID(ctx context.Context, id uint64) (model.Feedback, error)
	FeedbackBySeries(ctx context.Context, seriesID uint64) ([]model.Feedback, error)
	FeedbackByViewer(ctx context.Context, viewerID uint64) ([]model.Feedback, error)
	ListFeedback(ctx context.Context, limit, offset int) ([]model.Feedback, error)
	CountFeedback(ctx context.Context) (int, error)
	UpdateFeedback(ctx context.Context, id uint64, p model.FeedbackPatch, date model.Date) error
	DeleteFeedback(ctx context.Context, id uint64) error
	DeleteFeedbackByViewer(ctx context.Context, viewerID uint64) error

	WatchEntry(ctx context.Context, key model.WatchKey) (model.WatchHistory, error)
	InsertWatchProgress(ctx context.Context, key model.WatchKey, progress int, at time.Time) error
	UpdateWatchProgress(ctx context.Context, key model.WatchKey, progress int, at time.Time) error
	ContinueWatching(ctx context.Context, viewerID uint64, threshold, limit int) ([]model.ContinueWatching, error)
	DeleteWatchHistoryByViewer(ctx context.Context, viewerID uint64) error
}

// Querier is every query the services run, inside or outside a transaction.
type Querier interface {
	ViewerQueries
	CatalogQueries
	EngagementQueries
}

// Store is a Querier that can also run a function inside one transaction.
// fn's queries all commit together or not at all.
type Store interface {
	Querier
	WithTx(ctx context.Context, fn func(q Querier) error) error
}

// dbtx is the subset of *sql.DB and *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries implements Querier against MySQL, either on the pool or bound to
// a transaction.
type Queries struct{ db dbtx }

// SQLStore is the MySQL-backed Store.
type SQLStore struct {
	*Queries
	db *sql.DB
}

// NewSQLStore wraps an open pool.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{Queries: &Queries{db: db}, db: db}
}

// DB exposes the pool for health checks.
func (s *SQLStore) DB() *sql.DB { return s.db }

// WithTx begins a transaction, runs fn with queries bound to it and commits
// when fn returns nil. Any error, or a panic, rolls the transaction back.
func (s *SQLStore) WithTx(ctx context.Context, fn func(q Querier) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(&Queries{db: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("repository: commit: %w", err)
	}
	return nil
}

// exists runs a SELECT 1 … LIMIT 1 style query.
func (q *Queries) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// execOne runs an UPDATE/DELETE addressed by primary key. Zero affected
// rows mean the row is gone.
func (q *Queries) execOne(ctx context.Context, query string, args ...any) error {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func insertID(res sql.Result) (uint64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func noRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// nullString maps "" to NULL for optional text columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func datePtr(nt sql.NullTime) *model.Date {
	if !nt.Valid {
		return nil
	}
	d := model.DateOf(nt.Time)
	return &d
}

func dateArg(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.Time
}

// strArg and friends turn patch pointers into COALESCE arguments.
func strArg(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func intArg(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolArg(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
