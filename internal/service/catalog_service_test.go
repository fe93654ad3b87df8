package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/queue"
	"github.com/iliyamo/webseries-catalog/internal/repository"
)

func episodeCount(t *testing.T, f *fixture, seriesID uint64) (stored, live int) {
	t.Helper()
	s, err := f.store.SeriesByID(f.ctx, seriesID)
	require.NoError(t, err)
	eps, err := f.store.EpisodesBySeries(f.ctx, seriesID)
	require.NoError(t, err)
	return s.NumberOfEpisodes, len(eps)
}

func TestEpisodeCountFollowsCreateAndDelete(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")

	var ids []uint64
	for no := 1; no <= 3; no++ {
		ids = append(ids, f.episode(t, s.ID, no).ID)
		stored, live := episodeCount(t, f, s.ID)
		assert.Equal(t, live, stored)
		assert.Equal(t, no, stored)
	}

	_, err := f.catalog.DeleteEpisode(f.ctx, ids[1])
	require.NoError(t, err)
	stored, live := episodeCount(t, f, s.ID)
	assert.Equal(t, 2, stored)
	assert.Equal(t, live, stored)
}

func TestEpisodeNumberReusableAfterDelete(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	first := f.episode(t, s.ID, 1)

	_, err := f.catalog.CreateEpisode(f.ctx, model.Episode{SeriesID: s.ID, EpisodeNo: 1, Title: "Again", DurationMin: 30})
	requireKind(t, err, apperr.KindConflict)

	_, err = f.catalog.DeleteEpisode(f.ctx, first.ID)
	require.NoError(t, err)

	again := f.episode(t, s.ID, 1)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestSameEpisodeNumberInOtherSeries(t *testing.T) {
	f := newFixture(t)
	a := f.series(t, "Dark")
	b := f.series(t, "Ragnarok")

	f.episode(t, a.ID, 1)
	f.episode(t, b.ID, 1)
}

func TestCreateEpisodeUnknownSeries(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateEpisode(f.ctx, model.Episode{SeriesID: 77, EpisodeNo: 1, Title: "Pilot", DurationMin: 30})
	requireKind(t, err, apperr.KindNotFound)
}

func TestCreateEpisodeRollsBackOnFailedRecount(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	f.store.FailOn("RecountEpisodes", assert.AnError)

	_, err := f.catalog.CreateEpisode(f.ctx, model.Episode{SeriesID: s.ID, EpisodeNo: 1, Title: "Pilot", DurationMin: 30})

	requireKind(t, err, apperr.KindInternal)
	assert.Zero(t, f.store.Counts().Episodes)
}

func TestUpdateEpisode(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	one := f.episode(t, s.ID, 1)
	f.episode(t, s.ID, 2)

	_, err := f.catalog.UpdateEpisode(f.ctx, one.ID, model.EpisodePatch{})
	requireKind(t, err, apperr.KindValidation)

	taken := 2
	_, err = f.catalog.UpdateEpisode(f.ctx, one.ID, model.EpisodePatch{EpisodeNo: &taken})
	requireKind(t, err, apperr.KindConflict)

	same := 1
	title := "Secrets"
	e, err := f.catalog.UpdateEpisode(f.ctx, one.ID, model.EpisodePatch{EpisodeNo: &same, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Secrets", e.Title)
	assert.Equal(t, 1, e.EpisodeNo)

	_, err = f.catalog.UpdateEpisode(f.ctx, 999, model.EpisodePatch{Title: &title})
	requireKind(t, err, apperr.KindNotFound)
}

func TestSeriesTagsAreCleanedAndReplaced(t *testing.T) {
	f := newFixture(t)

	s, err := f.catalog.CreateSeries(f.ctx, model.NewSeries{
		Name:             "  Dark ",
		CountryOfRelease: "Germany",
		Genres:           []string{" Drama", "drama", "Thriller", ""},
		Dubbing:          []string{"English"},
		Subtitles:        []string{"English", "German"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dark", s.Name)
	assert.ElementsMatch(t, []string{"Drama", "Thriller"}, s.Genres)
	assert.Zero(t, s.NumberOfEpisodes)

	genres := []string{"Sci-Fi"}
	updated, err := f.catalog.UpdateSeries(f.ctx, s.ID, model.SeriesPatch{Genres: &genres})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sci-Fi"}, updated.Genres)

	d, err := f.catalog.Detail(f.ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"English"}, d.Dubbing)
	assert.Equal(t, []string{"English", "German"}, d.Subtitles)

	counts, err := f.catalog.Genres(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.GenreCount{{Name: "Sci-Fi", Count: 1}}, counts)
}

func TestUpdateSeries(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark", "Drama")

	_, err := f.catalog.UpdateSeries(f.ctx, s.ID, model.SeriesPatch{})
	requireKind(t, err, apperr.KindValidation)

	desc := "Time travel in a small town"
	out, err := f.catalog.UpdateSeries(f.ctx, s.ID, model.SeriesPatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, desc, out.Description)
	assert.Equal(t, []string{"Drama"}, out.Genres)

	_, err = f.catalog.UpdateSeries(f.ctx, 999, model.SeriesPatch{Description: &desc})
	requireKind(t, err, apperr.KindNotFound)

	// A value the column cannot hold is the client's fault, not a 500.
	f.store.FailOn("ReplaceTags", repository.ErrTooLong)
	genres := []string{"Mystery"}
	_, err = f.catalog.UpdateSeries(f.ctx, s.ID, model.SeriesPatch{Genres: &genres})
	requireKind(t, err, apperr.KindValidation)
}

func TestSeriesDetail(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	f.episode(t, s.ID, 2)
	f.episode(t, s.ID, 1)
	a := f.register(t, "ada@example.com", s.ID)
	b := f.register(t, "eve@example.com", s.ID)
	_, err := f.engage.AddFeedback(f.ctx, a.Viewer.ID, NewFeedback{SeriesID: s.ID, Rating: 5})
	require.NoError(t, err)
	_, err = f.engage.AddFeedback(f.ctx, b.Viewer.ID, NewFeedback{SeriesID: s.ID, Rating: 2})
	require.NoError(t, err)

	d, err := f.catalog.Detail(f.ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, d.Episodes, 2)
	assert.Equal(t, 1, d.Episodes[0].EpisodeNo)
	assert.InDelta(t, 3.5, d.AvgRating, 0.001)
	assert.Equal(t, 2, d.TotalReviews)

	_, err = f.catalog.Detail(f.ctx, 999)
	requireKind(t, err, apperr.KindNotFound)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.series(t, "Dark")
	f.series(t, "Ragnarok")

	out, err := f.catalog.Search(f.ctx, "   ")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	out, err = f.catalog.Search(f.ctx, "rag")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Ragnarok", out[0].Name)

	_, err = f.catalog.Search(f.ctx, strings.Repeat("é", MaxSearchLen))
	require.NoError(t, err)
	_, err = f.catalog.Search(f.ctx, strings.Repeat("a", MaxSearchLen+1))
	requireKind(t, err, apperr.KindValidation)
}

func TestFeaturedOrdersByViews(t *testing.T) {
	f := newFixture(t)
	quiet := f.series(t, "Quiet")
	popular := f.series(t, "Popular")
	e := f.episode(t, popular.ID, 1)
	f.episode(t, quiet.ID, 1)
	v := f.register(t, "ada@example.com", popular.ID)
	_, err := f.engage.RecordProgress(f.ctx, v.Viewer.ID, e.ID, popular.ID, 10)
	require.NoError(t, err)

	out, err := f.catalog.Featured(f.ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, popular.ID, out[0].ID)
	require.NotNil(t, out[0].TotalViews)
	assert.Equal(t, int64(1), *out[0].TotalViews)
}

func TestDeleteSeriesCascades(t *testing.T) {
	f := newFixture(t)
	keep := f.series(t, "Keep")
	gone := f.series(t, "Gone", "Drama")
	e := f.episode(t, gone.ID, 1)
	f.episode(t, keep.ID, 1)
	v := f.register(t, "ada@example.com", gone.ID)
	_, err := f.engage.AddFeedback(f.ctx, v.Viewer.ID, NewFeedback{SeriesID: gone.ID, Rating: 3})
	require.NoError(t, err)
	_, err = f.engage.RecordProgress(f.ctx, v.Viewer.ID, e.ID, gone.ID, 50)
	require.NoError(t, err)

	deleted, err := f.catalog.DeleteSeries(f.ctx, gone.ID)
	require.NoError(t, err)
	assert.Equal(t, DeletedSeries{ID: gone.ID, Name: "Gone"}, deleted)

	c := f.store.Counts()
	assert.Equal(t, 1, c.Series)
	assert.Equal(t, 1, c.Episodes)
	assert.Zero(t, c.Feedback)
	assert.Zero(t, c.WatchHistory)
	assert.Zero(t, c.Genres)

	viewer, err := f.store.ViewerByID(f.ctx, v.Viewer.ID)
	require.NoError(t, err)
	assert.Nil(t, viewer.SeriesID)

	_, err = f.catalog.DeleteSeries(f.ctx, gone.ID)
	requireKind(t, err, apperr.KindNotFound)
	assert.Contains(t, f.events.types(), queue.EventSeriesDeleted)
}

func TestCleanTags(t *testing.T) {
	assert.Equal(t, []string{"Drama", "crime"}, cleanTags([]string{"Drama", " crime ", "DRAMA", "Crime"}))
	assert.Equal(t, []string{}, cleanTags(nil))
}
