package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/queue"
)

func TestAddFeedbackTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	v := f.register(t, "ada@example.com", s.ID)

	first, err := f.engage.AddFeedback(f.ctx, v.Viewer.ID, NewFeedback{SeriesID: s.ID, Rating: 5, Text: " Great "})
	require.NoError(t, err)
	assert.Equal(t, "Great", first.Text)
	assert.Equal(t, "2024-03-01", first.Date.String())
	assert.Equal(t, "Ada", first.ViewerFirstName)
	assert.Equal(t, "Dark", first.SeriesName)

	_, err = f.engage.AddFeedback(f.ctx, v.Viewer.ID, NewFeedback{SeriesID: s.ID, Rating: 1})
	ae := requireKind(t, err, apperr.KindConflict)
	assert.Equal(t, first.ID, ae.Details["existingFeedbackId"])
	assert.Equal(t, 1, f.store.Counts().Feedback)
}

func TestAddFeedbackUnknownSeries(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	v := f.register(t, "ada@example.com", s.ID)

	_, err := f.engage.AddFeedback(f.ctx, v.Viewer.ID, NewFeedback{SeriesID: 999, Rating: 3})
	requireKind(t, err, apperr.KindNotFound)
}

func TestFeedbackUpdateOwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	owner := f.register(t, "ada@example.com", s.ID)
	other := f.register(t, "eve@example.com", s.ID)
	admin := f.register(t, "root@example.com", s.ID)
	f.store.SetRole(admin.Viewer.ID, model.RoleAdmin)

	fb, err := f.engage.AddFeedback(f.ctx, owner.Viewer.ID, NewFeedback{SeriesID: s.ID, Rating: 3})
	require.NoError(t, err)

	rating := 1
	_, err = f.engage.UpdateFeedback(f.ctx, other.Viewer.ID, fb.ID, model.FeedbackPatch{Rating: &rating})
	requireKind(t, err, apperr.KindForbidden)

	_, err = f.engage.UpdateFeedback(f.ctx, owner.Viewer.ID, fb.ID, model.FeedbackPatch{})
	requireKind(t, err, apperr.KindValidation)

	f.advance(48 * time.Hour)
	rating = 4
	updated, err := f.engage.UpdateFeedback(f.ctx, owner.Viewer.ID, fb.ID, model.FeedbackPatch{Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Rating)
	assert.Equal(t, "2024-03-03", updated.Date.String())

	text := "moderated"
	updated, err = f.engage.UpdateFeedback(f.ctx, admin.Viewer.ID, fb.ID, model.FeedbackPatch{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "moderated", updated.Text)
	assert.Equal(t, 4, updated.Rating)

	_, err = f.engage.UpdateFeedback(f.ctx, owner.Viewer.ID, 999, model.FeedbackPatch{Text: &text})
	requireKind(t, err, apperr.KindNotFound)
}

func TestFeedbackDeleteOwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	owner := f.register(t, "ada@example.com", s.ID)
	other := f.register(t, "eve@example.com", s.ID)
	admin := f.register(t, "root@example.com", s.ID)
	f.store.SetRole(admin.Viewer.ID, model.RoleAdmin)

	a, err := f.engage.AddFeedback(f.ctx, owner.Viewer.ID, NewFeedback{SeriesID: s.ID, Rating: 3})
	require.NoError(t, err)
	b, err := f.engage.AddFeedback(f.ctx, other.Viewer.ID, NewFeedback{SeriesID: s.ID, Rating: 3})
	require.NoError(t, err)

	requireKind(t, f.engage.DeleteFeedback(f.ctx, other.Viewer.ID, a.ID), apperr.KindForbidden)
	require.NoError(t, f.engage.DeleteFeedback(f.ctx, owner.Viewer.ID, a.ID))
	require.NoError(t, f.engage.DeleteFeedback(f.ctx, admin.Viewer.ID, b.ID))
	assert.Zero(t, f.store.Counts().Feedback)
	assert.Contains(t, f.events.types(), queue.EventFeedbackDeleted)
}

func TestFeedbackListings(t *testing.T) {
	f := newFixture(t)
	a := f.series(t, "Dark")
	b := f.series(t, "Ragnarok")
	v := f.register(t, "ada@example.com", a.ID)
	w := f.register(t, "eve@example.com", a.ID)

	for _, in := range []struct {
		viewer uint64
		series uint64
	}{{v.Viewer.ID, a.ID}, {v.Viewer.ID, b.ID}, {w.Viewer.ID, a.ID}} {
		_, err := f.engage.AddFeedback(f.ctx, in.viewer, NewFeedback{SeriesID: in.series, Rating: 4})
		require.NoError(t, err)
	}

	mine, err := f.engage.MyFeedback(f.ctx, v.Viewer.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	forSeries, err := f.engage.SeriesFeedback(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, forSeries, 2)

	page, err := f.engage.ListFeedback(f.ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 1)

	page, err = f.engage.ListFeedback(f.ctx, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, MaxPageLimit, page.Limit)

	page, err = f.engage.ListFeedback(f.ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageLimit, page.Limit)
}

func TestRecordProgressUpserts(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	e := f.episode(t, s.ID, 1)
	v := f.register(t, "ada@example.com", s.ID)

	first, err := f.engage.RecordProgress(f.ctx, v.Viewer.ID, e.ID, s.ID, 20)
	require.NoError(t, err)
	f.advance(time.Minute)
	second, err := f.engage.RecordProgress(f.ctx, v.Viewer.ID, e.ID, s.ID, 60)
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.Counts().WatchHistory)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 60, second.Progress)
	assert.True(t, second.LastWatched.After(first.LastWatched))

	ep, err := f.store.EpisodeByID(f.ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ep.Viewers)
}

func TestRecordProgressKeepsSubSecondOrder(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	a := f.episode(t, s.ID, 1)
	b := f.episode(t, s.ID, 2)
	v := f.register(t, "ada@example.com", s.ID)

	f.advance(100 * time.Millisecond)
	first, err := f.engage.RecordProgress(f.ctx, v.Viewer.ID, a.ID, s.ID, 10)
	require.NoError(t, err)
	f.advance(300 * time.Millisecond)
	_, err = f.engage.RecordProgress(f.ctx, v.Viewer.ID, b.ID, s.ID, 10)
	require.NoError(t, err)
	f.advance(300 * time.Millisecond)
	again, err := f.engage.RecordProgress(f.ctx, v.Viewer.ID, a.ID, s.ID, 30)
	require.NoError(t, err)

	assert.True(t, again.LastWatched.After(first.LastWatched))
	assert.Equal(t, 600*time.Millisecond, again.LastWatched.Sub(first.LastWatched))

	out, err := f.engage.ContinueWatching(f.ctx, v.Viewer.ID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, a.ID, out[0].EpisodeID)
	assert.Equal(t, b.ID, out[1].EpisodeID)
}

func TestRecordProgressEpisodeMustBelongToSeries(t *testing.T) {
	f := newFixture(t)
	a := f.series(t, "Dark")
	b := f.series(t, "Ragnarok")
	e := f.episode(t, a.ID, 1)
	v := f.register(t, "ada@example.com", a.ID)

	_, err := f.engage.RecordProgress(f.ctx, v.Viewer.ID, e.ID, b.ID, 10)
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.engage.RecordProgress(f.ctx, v.Viewer.ID, e.ID, a.ID, 101)
	requireKind(t, err, apperr.KindValidation)
	assert.Zero(t, f.store.Counts().WatchHistory)
}

func TestRecordProgressRollsBack(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	e := f.episode(t, s.ID, 1)
	v := f.register(t, "ada@example.com", s.ID)
	f.store.FailOn("IncrementEpisodeViewers", assert.AnError)

	_, err := f.engage.RecordProgress(f.ctx, v.Viewer.ID, e.ID, s.ID, 10)

	requireKind(t, err, apperr.KindInternal)
	assert.Zero(t, f.store.Counts().WatchHistory)
}

func TestContinueWatching(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	v := f.register(t, "ada@example.com", s.ID)

	var eps []model.Episode
	for no := 1; no <= 13; no++ {
		eps = append(eps, f.episode(t, s.ID, no))
	}
	for i, e := range eps {
		progress := 50
		if i == 12 {
			progress = 95
		}
		if i == 11 {
			progress = 90
		}
		f.advance(time.Minute)
		_, err := f.engage.RecordProgress(f.ctx, v.Viewer.ID, e.ID, s.ID, progress)
		require.NoError(t, err)
	}

	out, err := f.engage.ContinueWatching(f.ctx, v.Viewer.ID)
	require.NoError(t, err)
	require.Len(t, out, model.ContinueWatchingLimit)
	assert.Equal(t, eps[10].ID, out[0].EpisodeID, "newest unfinished first")
	for i, row := range out {
		assert.Less(t, row.Progress, model.ContinueWatchingThreshold)
		if i > 0 {
			assert.False(t, row.LastWatched.After(out[i-1].LastWatched))
		}
	}
	assert.Equal(t, "Dark", out[0].SeriesName)
}
