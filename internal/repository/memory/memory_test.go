package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/repository"
)

func TestWithTxDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(q repository.Querier) error {
		if _, err := q.InsertSeries(ctx, model.NewSeries{Name: "Draft", CountryOfRelease: "UK"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Counts().Series)
}

func TestDeleteSeriesCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	country := s.SeedCountry("UK")
	seriesID, err := s.InsertSeries(ctx, model.NewSeries{Name: "Show", CountryOfRelease: "UK"})
	require.NoError(t, err)
	require.NoError(t, s.ReplaceTags(ctx, seriesID, model.TagGenre, []string{"Drama"}))
	viewerID, err := s.InsertViewer(ctx, model.Viewer{Email: "a@b.c", Role: model.RoleCustomer, CountryID: country, SeriesID: &seriesID})
	require.NoError(t, err)
	epID, err := s.InsertEpisode(ctx, model.Episode{SeriesID: seriesID, EpisodeNo: 1, Title: "Pilot"})
	require.NoError(t, err)
	_, err = s.InsertFeedback(ctx, model.Feedback{ViewerID: viewerID, SeriesID: seriesID, Rating: 4})
	require.NoError(t, err)
	require.NoError(t, s.InsertWatchProgress(ctx, model.WatchKey{ViewerID: viewerID, SeriesID: seriesID, EpisodeID: epID}, 10, time.Now()))

	require.NoError(t, s.DeleteSeries(ctx, seriesID))

	c := s.Counts()
	assert.Equal(t, Counts{Viewers: 1}, c)
	v, err := s.ViewerByID(ctx, viewerID)
	require.NoError(t, err)
	assert.Nil(t, v.SeriesID)
}

func TestUniqueKeys(t *testing.T) {
	ctx := context.Background()
	s := New()
	country := s.SeedCountry("UK")
	_, err := s.InsertViewer(ctx, model.Viewer{Email: "a@b.c", CountryID: country})
	require.NoError(t, err)
	_, err = s.InsertViewer(ctx, model.Viewer{Email: "a@b.c", CountryID: country})
	assert.ErrorIs(t, err, repository.ErrConflict)

	seriesID, err := s.InsertSeries(ctx, model.NewSeries{Name: "Show"})
	require.NoError(t, err)
	_, err = s.InsertEpisode(ctx, model.Episode{SeriesID: seriesID, EpisodeNo: 1})
	require.NoError(t, err)
	_, err = s.InsertEpisode(ctx, model.Episode{SeriesID: seriesID, EpisodeNo: 1})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestFailOn(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.FailOn("ListSeries", boom)
	_, err := s.ListSeries(context.Background())
	assert.ErrorIs(t, err, boom)
	s.FailOn("ListSeries", nil)
	_, err = s.ListSeries(context.Background())
	assert.NoError(t, err)
}
