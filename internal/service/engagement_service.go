package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/queue"
	"github.com/iliyamo/webseries-catalog/internal/repository"
)

// Admin feedback listing bounds.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

const (
	msgFeedbackNotFound = "feedback not found"
	msgAlreadyReviewed  = "you have already reviewed this series, update your existing review instead"
)

// NewFeedback is the input of AddFeedback.
type NewFeedback struct {
	SeriesID uint64
	Rating   int
	Text     string
}

// EngagementService manages reviews and watch progress.
type EngagementService struct {
	store  repository.Store
	gate   *Gate
	log    logrus.FieldLogger
	events emitter
	now    func() time.Time
}

func NewEngagementService(store repository.Store, gate *Gate, pub Publisher, log logrus.FieldLogger) *EngagementService {
	s := &EngagementService{store: store, gate: gate, log: log, now: time.Now}
	s.events = emitter{pub: pub, log: log, now: func() time.Time { return s.now() }}
	return s
}

func (s *EngagementService) today() model.Date { return model.DateOf(s.now()) }

// AddFeedback stores the viewer's single review of a series.
func (s *EngagementService) AddFeedback(ctx context.Context, viewerID uint64, in NewFeedback) (model.Feedback, error) {
	const op = "service.EngagementService.AddFeedback"

	f := model.Feedback{
		ViewerID: viewerID,
		SeriesID: in.SeriesID,
		Rating:   in.Rating,
		Text:     strings.TrimSpace(in.Text),
		Date:     s.today(),
	}
	var out model.Feedback
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		ok, err := q.SeriesExists(ctx, in.SeriesID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(msgSeriesNotFound)
		}
		existing, err := q.FeedbackIDFor(ctx, viewerID, in.SeriesID)
		switch {
		case err == nil:
			return apperr.Conflict(msgAlreadyReviewed).With("existingFeedbackId", existing)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		id, err := q.InsertFeedback(ctx, f)
		if errors.Is(err, repository.ErrConflict) {
			return apperr.Conflict(msgAlreadyReviewed)
		}
		if err != nil {
			return err
		}
		out, err = q.FeedbackByID(ctx, id)
		return err
	})
	if err != nil {
		return model.Feedback{}, storeErr(op, err, "")
	}
	s.events.emit(ctx, queue.ActivityEvent{
		Type: queue.EventFeedbackCreated, ViewerID: viewerID, SeriesID: in.SeriesID, FeedbackID: out.ID,
	})
	return out, nil
}

func (s *EngagementService) Feedback(ctx context.Context, id uint64) (model.Feedback, error) {
	f, err := s.store.FeedbackByID(ctx, id)
	if err != nil {
		return model.Feedback{}, storeErr("service.EngagementService.Feedback", err, msgFeedbackNotFound)
	}
	return f, nil
}

// SeriesFeedback lists a series' reviews, newest first.
func (s *EngagementService) SeriesFeedback(ctx context.Context, seriesID uint64) ([]model.Feedback, error) {
	out, err := s.store.FeedbackBySeries(ctx, seriesID)
	return out, storeErr("service.EngagementService.SeriesFeedback", err, "")
}

// MyFeedback lists the caller's own reviews.
func (s *EngagementService) MyFeedback(ctx context.Context, viewerID uint64) ([]model.Feedback, error) {
	out, err := s.store.FeedbackByViewer(ctx, viewerID)
	return out, storeErr("service.EngagementService.MyFeedback", err, "")
}

// ListFeedback returns one page of every review. page starts at 1; limit
// defaults to DefaultPageLimit and is capped at MaxPageLimit.
func (s *EngagementService) ListFeedback(ctx context.Context, page, limit int) (model.FeedbackPage, error) {
	const op = "service.EngagementService.ListFeedback"
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	items, err := s.store.ListFeedback(ctx, limit, (page-1)*limit)
	if err != nil {
		return model.FeedbackPage{}, apperr.Internal(op, err)
	}
	total, err := s.store.CountFeedback(ctx)
	if err != nil {
		return model.FeedbackPage{}, apperr.Internal(op, err)
	}
	return model.FeedbackPage{Items: items, Page: page, Limit: limit, Total: total}, nil
}

// ownedFeedback loads a review through q and checks the caller may change
// it. It runs inside the transaction that performs the change.
func (s *EngagementService) ownedFeedback(ctx context.Context, q repository.Querier, viewerID, id uint64) (model.Feedback, error) {
	f, err := q.FeedbackByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Feedback{}, apperr.NotFound(msgFeedbackNotFound)
	}
	if err != nil {
		return model.Feedback{}, err
	}
	if err := s.gate.Within(q).AuthorizeOwnerOrRole(ctx, viewerID, f.ViewerID, model.AdminRoles); err != nil {
		return model.Feedback{}, err
	}
	return f, nil
}

// UpdateFeedback changes rating and/or text. The review date moves to
// today on every update.
func (s *EngagementService) UpdateFeedback(ctx context.Context, viewerID, id uint64, p model.FeedbackPatch) (model.Feedback, error) {
	const op = "service.EngagementService.UpdateFeedback"
	if p.Empty() {
		return model.Feedback{}, apperr.Validation("no fields to update")
	}
	if p.Text != nil {
		text := strings.TrimSpace(*p.Text)
		p.Text = &text
	}
	var f, out model.Feedback
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		var err error
		if f, err = s.ownedFeedback(ctx, q, viewerID, id); err != nil {
			return err
		}
		if err := q.UpdateFeedback(ctx, id, p, s.today()); err != nil {
			return err
		}
		out, err = q.FeedbackByID(ctx, id)
		return err
	})
	if err != nil {
		return model.Feedback{}, storeErr(op, err, msgFeedbackNotFound)
	}
	s.events.emit(ctx, queue.ActivityEvent{
		Type: queue.EventFeedbackUpdated, ViewerID: viewerID, SeriesID: f.SeriesID, FeedbackID: id,
	})
	return out, nil
}

// DeleteFeedback removes a review owned by the caller, or any review when
// the caller is an admin.
func (s *EngagementService) DeleteFeedback(ctx context.Context, viewerID, id uint64) error {
	const op = "service.EngagementService.DeleteFeedback"
	var f model.Feedback
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		var err error
		if f, err = s.ownedFeedback(ctx, q, viewerID, id); err != nil {
			return err
		}
		return q.DeleteFeedback(ctx, id)
	})
	if err != nil {
		return storeErr(op, err, msgFeedbackNotFound)
	}
	s.log.WithFields(logrus.Fields{"op": op, "feedback_id": id, "viewer_id": viewerID}).Info("feedback deleted")
	s.events.emit(ctx, queue.ActivityEvent{
		Type: queue.EventFeedbackDeleted, ViewerID: viewerID, SeriesID: f.SeriesID, FeedbackID: id,
	})
	return nil
}

// RecordProgress upserts the caller's progress on an episode and counts
// one more view for it.
func (s *EngagementService) RecordProgress(ctx context.Context, viewerID, episodeID, seriesID uint64, progress int) (model.WatchHistory, error) {
	const op = "service.EngagementService.RecordProgress"
	if progress < 0 || progress > 100 {
		return model.WatchHistory{}, apperr.Validation("progress must be between 0 and 100")
	}

	key := model.WatchKey{ViewerID: viewerID, SeriesID: seriesID, EpisodeID: episodeID}
	at := s.now().UTC().Truncate(time.Millisecond) // last_watched is DATETIME(3)
	var out model.WatchHistory
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		ok, err := q.EpisodeInSeries(ctx, episodeID, seriesID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(msgEpisodeNotFound)
		}
		_, err = q.WatchEntry(ctx, key)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			err = q.InsertWatchProgress(ctx, key, progress, at)
		case err == nil:
			err = q.UpdateWatchProgress(ctx, key, progress, at)
		}
		if err != nil {
			return err
		}
		if err := q.IncrementEpisodeViewers(ctx, episodeID, seriesID); err != nil {
			return err
		}
		out, err = q.WatchEntry(ctx, key)
		return err
	})
	if err != nil {
		return model.WatchHistory{}, storeErr(op, err, "")
	}
	s.events.emit(ctx, queue.ActivityEvent{
		Type: queue.EventWatchProgressed, ViewerID: viewerID, SeriesID: seriesID, EpisodeID: episodeID, Progress: &progress,
	})
	return out, nil
}

// ContinueWatching lists unfinished episodes, most recently watched first.
func (s *EngagementService) ContinueWatching(ctx context.Context, viewerID uint64) ([]model.ContinueWatching, error) {
	out, err := s.store.ContinueWatching(ctx, viewerID, model.ContinueWatchingThreshold, model.ContinueWatchingLimit)
	return out, storeErr("service.EngagementService.ContinueWatching", err, "")
}
