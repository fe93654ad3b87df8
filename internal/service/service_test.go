package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/logging"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/queue"
	"github.com/iliyamo/webseries-catalog/internal/repository/memory"
)

const testSecret = "test-secret"

type recorder struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
}

func (r *recorder) Publish(_ context.Context, ev queue.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	gate    *Gate
	auth    *AuthService
	catalog *CatalogService
	engage  *EngagementService
	events  *recorder
	clock   time.Time
	country uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logging.Discard()
	f := &fixture{
		ctx:    context.Background(),
		store:  memory.New(),
		events: &recorder{},
		clock:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.country = f.store.SeedCountry("Norway")
	f.gate = NewGate(f.store)
	f.auth = NewAuthService(f.store, AuthOptions{Secret: testSecret, TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost}, f.events, log)
	f.auth.now = f.now
	f.catalog = NewCatalogService(f.store, f.events, log)
	f.engage = NewEngagementService(f.store, f.gate, f.events, log)
	f.engage.now = f.now
	return f
}

func (f *fixture) now() time.Time { return f.clock }

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *fixture) series(t *testing.T, name string, genres ...string) model.Series {
	t.Helper()
	s, err := f.catalog.CreateSeries(f.ctx, model.NewSeries{Name: name, CountryOfRelease: "Norway", Genres: genres})
	require.NoError(t, err)
	return s
}

func (f *fixture) episode(t *testing.T, seriesID uint64, no int) model.Episode {
	t.Helper()
	e, err := f.catalog.CreateEpisode(f.ctx, model.Episode{
		SeriesID: seriesID, EpisodeNo: no, Title: fmt.Sprintf("Episode %d", no), DurationMin: 40,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) register(t *testing.T, email string, seriesID uint64) Session {
	t.Helper()
	sess, err := f.auth.Register(f.ctx, model.Registration{
		FirstName: "Ada", LastName: "Lovelace", Email: email, Password: "Secret123",
		SeriesID: seriesID, CountryID: f.country,
	})
	require.NoError(t, err)
	return sess
}

func requireKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	ae, ok := err.(*apperr.Error)
	require.Truef(t, ok, "want *apperr.Error, got %T: %v", err, err)
	require.Equal(t, kind, ae.Kind, ae.Error())
	return ae
}
