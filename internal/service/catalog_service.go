package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/queue"
	"github.com/iliyamo/webseries-catalog/internal/repository"
)

// FeaturedLimit is the size of the featured listing.
const FeaturedLimit = 6

// MaxSearchLen caps the search term, in characters.
const MaxSearchLen = 100

const (
	msgSeriesNotFound  = "series not found"
	msgEpisodeNotFound = "episode not found"
	msgEpisodeNoTaken  = "episode number already exists for this series"
)

// DeletedSeries identifies a series that was just removed.
type DeletedSeries struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// CatalogService reads and writes series, their tags and episodes. Every
// write runs in one transaction and keeps number_of_episodes equal to
// the live episode count.
type CatalogService struct {
	store  repository.Store
	log    logrus.FieldLogger
	events emitter
}

func NewCatalogService(store repository.Store, pub Publisher, log logrus.FieldLogger) *CatalogService {
	return &CatalogService{store: store, log: log, events: emitter{pub: pub, log: log, now: time.Now}}
}

// cleanTags trims, drops empties and removes duplicates, keeping the first
// spelling of each tag.
func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (s *CatalogService) ListSeries(ctx context.Context) ([]model.Series, error) {
	out, err := s.store.ListSeries(ctx)
	return out, storeErr("service.CatalogService.ListSeries", err, "")
}

// Featured returns the most watched series by total episode views.
func (s *CatalogService) Featured(ctx context.Context) ([]model.Series, error) {
	out, err := s.store.FeaturedSeries(ctx, FeaturedLimit)
	return out, storeErr("service.CatalogService.Featured", err, "")
}

// Search matches term against name and description. A blank term matches
// nothing; terms longer than MaxSearchLen are rejected.
func (s *CatalogService) Search(ctx context.Context, term string) ([]model.Series, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []model.Series{}, nil
	}
	if utf8.RuneCountInString(term) > MaxSearchLen {
		return nil, apperr.Validation(fmt.Sprintf("search term must be at most %d characters", MaxSearchLen))
	}
	out, err := s.store.SearchSeries(ctx, term)
	return out, storeErr("service.CatalogService.Search", err, "")
}

func (s *CatalogService) ByGenre(ctx context.Context, genre string) ([]model.Series, error) {
	out, err := s.store.SeriesByGenre(ctx, strings.TrimSpace(genre))
	return out, storeErr("service.CatalogService.ByGenre", err, "")
}

func (s *CatalogService) Genres(ctx context.Context) ([]model.GenreCount, error) {
	out, err := s.store.ListGenres(ctx)
	return out, storeErr("service.CatalogService.Genres", err, "")
}

func (s *CatalogService) Countries(ctx context.Context) ([]model.Country, error) {
	out, err := s.store.ListCountries(ctx)
	return out, storeErr("service.CatalogService.Countries", err, "")
}

// Detail loads a series with its tags, episodes and rating summary.
func (s *CatalogService) Detail(ctx context.Context, id uint64) (model.SeriesDetail, error) {
	const op = "service.CatalogService.Detail"

	series, err := s.store.SeriesByID(ctx, id)
	if err != nil {
		return model.SeriesDetail{}, storeErr(op, err, msgSeriesNotFound)
	}
	d := model.SeriesDetail{Series: series}
	if d.Dubbing, err = s.store.SeriesTags(ctx, id, model.TagDubbing); err != nil {
		return model.SeriesDetail{}, apperr.Internal(op, err)
	}
	if d.Subtitles, err = s.store.SeriesTags(ctx, id, model.TagSubtitle); err != nil {
		return model.SeriesDetail{}, apperr.Internal(op, err)
	}
	if d.Episodes, err = s.store.EpisodesBySeries(ctx, id); err != nil {
		return model.SeriesDetail{}, apperr.Internal(op, err)
	}
	if d.AvgRating, d.TotalReviews, err = s.store.SeriesRating(ctx, id); err != nil {
		return model.SeriesDetail{}, apperr.Internal(op, err)
	}
	return d, nil
}

func replaceTagSet(ctx context.Context, q repository.Querier, id uint64, kind model.TagKind, tags *[]string) error {
	if tags == nil {
		return nil
	}
	return q.ReplaceTags(ctx, id, kind, cleanTags(*tags))
}

// CreateSeries stores a series and its tag sets.
func (s *CatalogService) CreateSeries(ctx context.Context, in model.NewSeries) (model.Series, error) {
	const op = "service.CatalogService.CreateSeries"

	in.Name = strings.TrimSpace(in.Name)
	var out model.Series
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		id, err := q.InsertSeries(ctx, in)
		if err != nil {
			return err
		}
		for _, set := range []struct {
			kind model.TagKind
			tags []string
		}{
			{model.TagGenre, in.Genres},
			{model.TagDubbing, in.Dubbing},
			{model.TagSubtitle, in.Subtitles},
		} {
			if err := q.ReplaceTags(ctx, id, set.kind, cleanTags(set.tags)); err != nil {
				return err
			}
		}
		out, err = q.SeriesByID(ctx, id)
		return err
	})
	if err != nil {
		return model.Series{}, storeErr(op, err, "")
	}
	s.log.WithFields(logrus.Fields{"op": op, "series_id": out.ID}).Info("series created")
	s.events.emit(ctx, queue.ActivityEvent{Type: queue.EventSeriesCreated, SeriesID: out.ID})
	return out, nil
}

// UpdateSeries applies a partial update. Any tag set present in the patch
// replaces the stored set.
func (s *CatalogService) UpdateSeries(ctx context.Context, id uint64, p model.SeriesPatch) (model.Series, error) {
	const op = "service.CatalogService.UpdateSeries"
	if p.Empty() {
		return model.Series{}, apperr.Validation("no fields to update")
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}

	var out model.Series
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		if _, err := q.LockSeries(ctx, id); err != nil {
			return err
		}
		if p.HasColumns() {
			if err := q.UpdateSeries(ctx, id, p); err != nil {
				return err
			}
		}
		if err := replaceTagSet(ctx, q, id, model.TagGenre, p.Genres); err != nil {
			return err
		}
		if err := replaceTagSet(ctx, q, id, model.TagDubbing, p.Dubbing); err != nil {
			return err
		}
		if err := replaceTagSet(ctx, q, id, model.TagSubtitle, p.Subtitles); err != nil {
			return err
		}
		var err error
		out, err = q.SeriesByID(ctx, id)
		return err
	})
	if err != nil {
		return model.Series{}, storeErr(op, err, msgSeriesNotFound)
	}
	s.events.emit(ctx, queue.ActivityEvent{Type: queue.EventSeriesUpdated, SeriesID: id})
	return out, nil
}

// DeleteSeries removes a series. Episodes, feedback, tags and watch
// history are removed by the schema's cascades.
func (s *CatalogService) DeleteSeries(ctx context.Context, id uint64) (DeletedSeries, error) {
	const op = "service.CatalogService.DeleteSeries"

	var name string
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		var err error
		if name, err = q.LockSeries(ctx, id); err != nil {
			return err
		}
		return q.DeleteSeries(ctx, id)
	})
	if err != nil {
		return DeletedSeries{}, storeErr(op, err, msgSeriesNotFound)
	}
	s.log.WithFields(logrus.Fields{"op": op, "series_id": id}).Info("series deleted")
	s.events.emit(ctx, queue.ActivityEvent{Type: queue.EventSeriesDeleted, SeriesID: id})
	return DeletedSeries{ID: id, Name: name}, nil
}

// EpisodesBySeries lists a series' episodes by number. An unknown series
// yields an empty list.
func (s *CatalogService) EpisodesBySeries(ctx context.Context, seriesID uint64) ([]model.Episode, error) {
	out, err := s.store.EpisodesBySeries(ctx, seriesID)
	return out, storeErr("service.CatalogService.EpisodesBySeries", err, "")
}

func (s *CatalogService) Episode(ctx context.Context, id uint64) (model.Episode, error) {
	e, err := s.store.EpisodeByID(ctx, id)
	if err != nil {
		return model.Episode{}, storeErr("service.CatalogService.Episode", err, msgEpisodeNotFound)
	}
	return e, nil
}

// CreateEpisode adds an episode and recounts the parent series. The series
// row stays locked for the whole transaction, which serialises concurrent
// creates for the same series.
func (s *CatalogService) CreateEpisode(ctx context.Context, in model.Episode) (model.Episode, error) {
	const op = "service.CatalogService.CreateEpisode"

	var out model.Episode
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		if _, err := q.LockSeries(ctx, in.SeriesID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound(msgSeriesNotFound)
			}
			return err
		}
		taken, err := q.EpisodeNoTaken(ctx, in.SeriesID, in.EpisodeNo, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict(msgEpisodeNoTaken)
		}
		id, err := q.InsertEpisode(ctx, in)
		if errors.Is(err, repository.ErrConflict) {
			return apperr.Conflict(msgEpisodeNoTaken)
		}
		if err != nil {
			return err
		}
		if _, err := q.RecountEpisodes(ctx, in.SeriesID); err != nil {
			return err
		}
		out, err = q.EpisodeByID(ctx, id)
		return err
	})
	if err != nil {
		return model.Episode{}, storeErr(op, err, "")
	}
	s.log.WithFields(logrus.Fields{"op": op, "episode_id": out.ID, "series_id": out.SeriesID}).Info("episode created")
	s.events.emit(ctx, queue.ActivityEvent{Type: queue.EventEpisodeCreated, SeriesID: out.SeriesID, EpisodeID: out.ID})
	return out, nil
}

// UpdateEpisode applies a partial update. A new episode number must not be
// used by another episode of the same series.
func (s *CatalogService) UpdateEpisode(ctx context.Context, id uint64, p model.EpisodePatch) (model.Episode, error) {
	const op = "service.CatalogService.UpdateEpisode"
	if p.Empty() {
		return model.Episode{}, apperr.Validation("no fields to update")
	}

	var out model.Episode
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		cur, err := q.EpisodeByID(ctx, id)
		if err != nil {
			return err
		}
		if p.EpisodeNo != nil && *p.EpisodeNo != cur.EpisodeNo {
			if _, err := q.LockSeries(ctx, cur.SeriesID); err != nil {
				return err
			}
			taken, err := q.EpisodeNoTaken(ctx, cur.SeriesID, *p.EpisodeNo, id)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict(msgEpisodeNoTaken)
			}
		}
		err = q.UpdateEpisode(ctx, id, p)
		if errors.Is(err, repository.ErrConflict) {
			return apperr.Conflict(msgEpisodeNoTaken)
		}
		if err != nil {
			return err
		}
		out, err = q.EpisodeByID(ctx, id)
		return err
	})
	if err != nil {
		return model.Episode{}, storeErr(op, err, msgEpisodeNotFound)
	}
	s.events.emit(ctx, queue.ActivityEvent{Type: queue.EventEpisodeUpdated, SeriesID: out.SeriesID, EpisodeID: id})
	return out, nil
}

// DeleteEpisode removes an episode and recounts its series.
func (s *CatalogService) DeleteEpisode(ctx context.Context, id uint64) (model.Episode, error) {
	const op = "service.CatalogService.DeleteEpisode"

	var gone model.Episode
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		var err error
		if gone, err = q.EpisodeByID(ctx, id); err != nil {
			return err
		}
		if _, err := q.LockSeries(ctx, gone.SeriesID); err != nil {
			return err
		}
		if err := q.DeleteEpisode(ctx, id); err != nil {
			return err
		}
		_, err = q.RecountEpisodes(ctx, gone.SeriesID)
		return err
	})
	if err != nil {
		return model.Episode{}, storeErr(op, err, msgEpisodeNotFound)
	}
	s.log.WithFields(logrus.Fields{"op": op, "episode_id": id, "series_id": gone.SeriesID}).Info("episode deleted")
	s.events.emit(ctx, queue.ActivityEvent{Type: queue.EventEpisodeDeleted, SeriesID: gone.SeriesID, EpisodeID: id})
	return gone, nil
}
