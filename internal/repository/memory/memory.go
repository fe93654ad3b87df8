// Package memory is an in-memory repository.Store used by the service,
// middleware and router tests. It mirrors the MySQL schema's unique keys
// and ON DELETE rules, and WithTx applies a transaction's writes only
// when the callback succeeds.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/repository"
)

// errForeignKey mimics a failed FK check.
var errForeignKey = errors.New("memory: foreign key constraint fails")

type state struct {
	seq       uint64
	countries map[uint64]model.Country
	viewers   map[uint64]model.Viewer
	series    map[uint64]model.Series
	tags      map[model.TagKind]map[uint64][]string
	episodes  map[uint64]model.Episode
	feedback  map[uint64]model.Feedback
	watch     map[uint64]model.WatchHistory
}

func newState() *state {
	return &state{
		countries: map[uint64]model.Country{},
		viewers:   map[uint64]model.Viewer{},
		series:    map[uint64]model.Series{},
		tags: map[model.TagKind]map[uint64][]string{
			model.TagGenre:    {},
			model.TagDubbing:  {},
			model.TagSubtitle: {},
		},
		episodes: map[uint64]model.Episode{},
		feedback: map[uint64]model.Feedback{},
		watch:    map[uint64]model.WatchHistory{},
	}
}

func (st *state) clone() *state {
	c := newState()
	c.seq = st.seq
	for k, v := range st.countries {
		c.countries[k] = v
	}
	for k, v := range st.viewers {
		c.viewers[k] = v
	}
	for k, v := range st.series {
		c.series[k] = v
	}
	for kind, bySeries := range st.tags {
		for id, tags := range bySeries {
			c.tags[kind][id] = append([]string(nil), tags...)
		}
	}
	for k, v := range st.episodes {
		c.episodes[k] = v
	}
	for k, v := range st.feedback {
		c.feedback[k] = v
	}
	for k, v := range st.watch {
		c.watch[k] = v
	}
	return c
}

func (st *state) nextID() uint64 {
	st.seq++
	return st.seq
}

// Store is safe for concurrent use. Every call, and every transaction as a
// whole, runs under one mutex.
type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error
	view
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	s := &Store{st: newState(), failures: map[string]error{}}
	s.view = view{s: s}
	return s
}

// FailOn makes every later call of the named query return err. Pass a nil
// err to clear it.
func (s *Store) FailOn(query string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, query)
		return
	}
	s.failures[query] = err
}

// WithTx runs fn against a private copy of the data and publishes the copy
// only when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(q repository.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&view{s: s, tx: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Counts is a row count per table, for assertions.
type Counts struct {
	Viewers, Series, Episodes, Feedback, WatchHistory, Genres int
}

func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	genres := 0
	for _, tags := range s.st.tags[model.TagGenre] {
		genres += len(tags)
	}
	return Counts{
		Viewers:      len(s.st.viewers),
		Series:       len(s.st.series),
		Episodes:     len(s.st.episodes),
		Feedback:     len(s.st.feedback),
		WatchHistory: len(s.st.watch),
		Genres:       genres,
	}
}

// SeedCountry adds a country and returns its id.
func (s *Store) SeedCountry(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.st.nextID()
	s.st.countries[id] = model.Country{ID: id, Name: name}
	return id
}

// SetRole changes a viewer's role directly, as an operator would in SQL.
func (s *Store) SetRole(viewerID uint64, role model.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.st.viewers[viewerID]; ok {
		v.Role = role
		s.st.viewers[viewerID] = v
	}
}

// view runs queries either on the committed state (tx == nil, locking per
// call) or on a transaction's working copy (lock already held).
type view struct {
	s  *Store
	tx *state
}

func (v *view) do(query string, fn func(st *state) error) error {
	if v.tx != nil {
		if err := v.s.failures[query]; err != nil {
			return err
		}
		return fn(v.tx)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.failures[query]; err != nil {
		return err
	}
	return fn(v.s.st)
}

// ---- viewers ----

func (v *view) ViewerByEmail(_ context.Context, email string) (out model.Viewer, err error) {
	err = v.do("ViewerByEmail", func(st *state) error {
		for _, row := range st.viewers {
			if row.Email == email {
				out = row
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (v *view) ViewerByID(_ context.Context, id uint64) (out model.Viewer, err error) {
	err = v.do("ViewerByID", func(st *state) error {
		row, ok := st.viewers[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = row
		return nil
	})
	return out, err
}

func (v *view) ViewerRole(_ context.Context, id uint64) (out model.Role, err error) {
	err = v.do("ViewerRole", func(st *state) error {
		row, ok := st.viewers[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = row.Role
		return nil
	})
	return out, err
}

func (v *view) EmailTaken(_ context.Context, email string) (taken bool, err error) {
	err = v.do("EmailTaken", func(st *state) error {
		for _, row := range st.viewers {
			if row.Email == email {
				taken = true
			}
		}
		return nil
	})
	return taken, err
}

func (v *view) InsertViewer(_ context.Context, in model.Viewer) (id uint64, err error) {
	err = v.do("InsertViewer", func(st *state) error {
		for _, row := range st.viewers {
			if row.Email == in.Email {
				return repository.ErrConflict
			}
		}
		if _, ok := st.countries[in.CountryID]; !ok {
			return errForeignKey
		}
		if in.SeriesID != nil {
			if _, ok := st.series[*in.SeriesID]; !ok {
				return errForeignKey
			}
		}
		id = st.nextID()
		in.ID = id
		st.viewers[id] = in
		return nil
	})
	return id, err
}

func (v *view) UpdateViewer(_ context.Context, id uint64, p model.ViewerPatch) error {
	return v.do("UpdateViewer", func(st *state) error {
		row, ok := st.viewers[id]
		if !ok {
			return repository.ErrNotFound
		}
		setStr(&row.FirstName, p.FirstName)
		setStr(&row.LastName, p.LastName)
		setStr(&row.BillingStreet, p.BillingStreet)
		setStr(&row.BillingCity, p.BillingCity)
		if p.BillingZipcode != nil {
			z := *p.BillingZipcode
			row.BillingZipcode = &z
		}
		st.viewers[id] = row
		return nil
	})
}

func (v *view) UpdatePassword(_ context.Context, id uint64, hash string) error {
	return v.do("UpdatePassword", func(st *state) error {
		row, ok := st.viewers[id]
		if !ok {
			return repository.ErrNotFound
		}
		row.PasswordHash = hash
		st.viewers[id] = row
		return nil
	})
}

func (v *view) DeleteViewer(_ context.Context, id uint64) error {
	return v.do("DeleteViewer", func(st *state) error {
		if _, ok := st.viewers[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.viewers, id)
		for fid, f := range st.feedback {
			if f.ViewerID == id {
				delete(st.feedback, fid)
			}
		}
		for wid, w := range st.watch {
			if w.ViewerID == id {
				delete(st.watch, wid)
			}
		}
		return nil
	})
}

func (v *view) CountryExists(_ context.Context, id uint64) (ok bool, err error) {
	err = v.do("CountryExists", func(st *state) error {
		_, ok = st.countries[id]
		return nil
	})
	return ok, err
}

func (v *view) ListCountries(_ context.Context) (out []model.Country, err error) {
	err = v.do("ListCountries", func(st *state) error {
		out = make([]model.Country, 0, len(st.countries))
		for _, c := range st.countries {
			out = append(out, c)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

// ---- series ----

func (st *state) seriesWithGenres(id uint64) model.Series {
	s := st.series[id]
	s.Genres = append([]string{}, st.tags[model.TagGenre][id]...)
	sort.Strings(s.Genres)
	return s
}

func (st *state) totalViews(seriesID uint64) int64 {
	var n int64
	for _, e := range st.episodes {
		if e.SeriesID == seriesID {
			n += e.Viewers
		}
	}
	return n
}

// byRelease orders newest release first, undated last, then by id desc.
func byRelease(out []model.Series) {
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ReleaseDate, out[j].ReleaseDate
		switch {
		case a != nil && b != nil && !a.Equal(b.Time):
			return a.After(b.Time)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].ID > out[j].ID
	})
}

func (st *state) collect(keep func(model.Series) bool) []model.Series {
	out := []model.Series{}
	for id := range st.series {
		s := st.seriesWithGenres(id)
		if keep(s) {
			out = append(out, s)
		}
	}
	byRelease(out)
	return out
}

func (v *view) SeriesExists(_ context.Context, id uint64) (ok bool, err error) {
	err = v.do("SeriesExists", func(st *state) error {
		_, ok = st.series[id]
		return nil
	})
	return ok, err
}

func (v *view) LockSeries(_ context.Context, id uint64) (name string, err error) {
	err = v.do("LockSeries", func(st *state) error {
		s, ok := st.series[id]
		if !ok {
			return repository.ErrNotFound
		}
		name = s.Name
		return nil
	})
	return name, err
}

func (v *view) SeriesByID(_ context.Context, id uint64) (out model.Series, err error) {
	err = v.do("SeriesByID", func(st *state) error {
		if _, ok := st.series[id]; !ok {
			return repository.ErrNotFound
		}
		out = st.seriesWithGenres(id)
		return nil
	})
	return out, err
}

func (v *view) ListSeries(_ context.Context) (out []model.Series, err error) {
	err = v.do("ListSeries", func(st *state) error {
		out = st.collect(func(model.Series) bool { return true })
		return nil
	})
	return out, err
}

func (v *view) FeaturedSeries(_ context.Context, limit int) (out []model.Series, err error) {
	err = v.do("FeaturedSeries", func(st *state) error {
		out = st.collect(func(model.Series) bool { return true })
		for i := range out {
			n := st.totalViews(out[i].ID)
			out[i].TotalViews = &n
		}
		sort.SliceStable(out, func(i, j int) bool {
			if *out[i].TotalViews != *out[j].TotalViews {
				return *out[i].TotalViews > *out[j].TotalViews
			}
			return out[i].ID < out[j].ID
		})
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (v *view) SearchSeries(_ context.Context, term string) (out []model.Series, err error) {
	needle := strings.ToLower(term)
	err = v.do("SearchSeries", func(st *state) error {
		out = st.collect(func(s model.Series) bool {
			return strings.Contains(strings.ToLower(s.Name), needle) ||
				strings.Contains(strings.ToLower(s.Description), needle)
		})
		return nil
	})
	return out, err
}

func (v *view) SeriesByGenre(_ context.Context, genre string) (out []model.Series, err error) {
	err = v.do("SeriesByGenre", func(st *state) error {
		out = st.collect(func(s model.Series) bool {
			for _, g := range s.Genres {
				if strings.EqualFold(g, genre) {
					return true
				}
			}
			return false
		})
		return nil
	})
	return out, err
}

func (v *view) SeriesTags(_ context.Context, seriesID uint64, kind model.TagKind) (out []string, err error) {
	err = v.do("SeriesTags", func(st *state) error {
		bySeries, ok := st.tags[kind]
		if !ok {
			return fmt.Errorf("memory: unknown tag kind %d", kind)
		}
		out = append([]string{}, bySeries[seriesID]...)
		sort.Strings(out)
		return nil
	})
	return out, err
}

func (v *view) SeriesRating(_ context.Context, seriesID uint64) (avg float64, total int, err error) {
	err = v.do("SeriesRating", func(st *state) error {
		sum := 0
		for _, f := range st.feedback {
			if f.SeriesID == seriesID {
				sum += f.Rating
				total++
			}
		}
		if total > 0 {
			avg = float64(sum) / float64(total)
		}
		return nil
	})
	return avg, total, err
}

func (v *view) ListGenres(_ context.Context) (out []model.GenreCount, err error) {
	err = v.do("ListGenres", func(st *state) error {
		counts := map[string]int{}
		for _, tags := range st.tags[model.TagGenre] {
			for _, g := range tags {
				counts[g]++
			}
		}
		out = make([]model.GenreCount, 0, len(counts))
		for name, n := range counts {
			out = append(out, model.GenreCount{Name: name, Count: n})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func (v *view) InsertSeries(_ context.Context, in model.NewSeries) (id uint64, err error) {
	err = v.do("InsertSeries", func(st *state) error {
		id = st.nextID()
		st.series[id] = model.Series{
			ID:               id,
			Name:             in.Name,
			Description:      in.Description,
			ReleaseDate:      in.ReleaseDate,
			CountryOfRelease: in.CountryOfRelease,
			PosterURL:        in.PosterURL,
			BannerURL:        in.BannerURL,
		}
		return nil
	})
	return id, err
}

func (v *view) UpdateSeries(_ context.Context, id uint64, p model.SeriesPatch) error {
	return v.do("UpdateSeries", func(st *state) error {
		s, ok := st.series[id]
		if !ok {
			return repository.ErrNotFound
		}
		setStr(&s.Name, p.Name)
		setStr(&s.Description, p.Description)
		setStr(&s.CountryOfRelease, p.CountryOfRelease)
		setStr(&s.PosterURL, p.PosterURL)
		setStr(&s.BannerURL, p.BannerURL)
		if p.ReleaseDate != nil {
			d := *p.ReleaseDate
			s.ReleaseDate = &d
		}
		st.series[id] = s
		return nil
	})
}

func (v *view) ReplaceTags(_ context.Context, seriesID uint64, kind model.TagKind, tags []string) error {
	return v.do("ReplaceTags", func(st *state) error {
		bySeries, ok := st.tags[kind]
		if !ok {
			return fmt.Errorf("memory: unknown tag kind %d", kind)
		}
		if _, ok := st.series[seriesID]; !ok {
			return errForeignKey
		}
		seen := map[string]bool{}
		for _, t := range tags {
			if seen[t] {
				return repository.ErrConflict
			}
			seen[t] = true
		}
		if len(tags) == 0 {
			delete(bySeries, seriesID)
			return nil
		}
		bySeries[seriesID] = append([]string(nil), tags...)
		return nil
	})
}

func (v *view) DeleteSeries(_ context.Context, id uint64) error {
	return v.do("DeleteSeries", func(st *state) error {
		if _, ok := st.series[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.series, id)
		for _, bySeries := range st.tags {
			delete(bySeries, id)
		}
		for eid, e := range st.episodes {
			if e.SeriesID == id {
				delete(st.episodes, eid)
			}
		}
		for fid, f := range st.feedback {
			if f.SeriesID == id {
				delete(st.feedback, fid)
			}
		}
		for wid, w := range st.watch {
			if w.SeriesID == id {
				delete(st.watch, wid)
			}
		}
		for vid, row := range st.viewers {
			if row.SeriesID != nil && *row.SeriesID == id {
				row.SeriesID = nil
				st.viewers[vid] = row
			}
		}
		return nil
	})
}

func (v *view) RecountEpisodes(_ context.Context, seriesID uint64) (n int, err error) {
	err = v.do("RecountEpisodes", func(st *state) error {
		s, ok := st.series[seriesID]
		if !ok {
			return repository.ErrNotFound
		}
		for _, e := range st.episodes {
			if e.SeriesID == seriesID {
				n++
			}
		}
		s.NumberOfEpisodes = n
		st.series[seriesID] = s
		return nil
	})
	return n, err
}

// ---- episodes ----

func (st *state) numberTaken(seriesID uint64, no int, exclude uint64) bool {
	for _, e := range st.episodes {
		if e.SeriesID == seriesID && e.EpisodeNo == no && e.ID != exclude {
			return true
		}
	}
	return false
}

func (v *view) EpisodeByID(_ context.Context, id uint64) (out model.Episode, err error) {
	err = v.do("EpisodeByID", func(st *state) error {
		e, ok := st.episodes[id]
		if !ok {
			return repository.ErrNotFound
		}
		e.SeriesName = st.series[e.SeriesID].Name
		out = e
		return nil
	})
	return out, err
}

func (v *view) EpisodesBySeries(_ context.Context, seriesID uint64) (out []model.Episode, err error) {
	err = v.do("EpisodesBySeries", func(st *state) error {
		out = []model.Episode{}
		for _, e := range st.episodes {
			if e.SeriesID == seriesID {
				out = append(out, e)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].EpisodeNo < out[j].EpisodeNo })
		return nil
	})
	return out, err
}

func (v *view) EpisodeNoTaken(_ context.Context, seriesID uint64, episodeNo int, excludeID uint64) (taken bool, err error) {
	err = v.do("EpisodeNoTaken", func(st *state) error {
		taken = st.numberTaken(seriesID, episodeNo, excludeID)
		return nil
	})
	return taken, err
}

func (v *view) EpisodeInSeries(_ context.Context, episodeID, seriesID uint64) (ok bool, err error) {
	err = v.do("EpisodeInSeries", func(st *state) error {
		e, found := st.episodes[episodeID]
		ok = found && e.SeriesID == seriesID
		return nil
	})
	return ok, err
}

func (v *view) InsertEpisode(_ context.Context, in model.Episode) (id uint64, err error) {
	err = v.do("InsertEpisode", func(st *state) error {
		if _, ok := st.series[in.SeriesID]; !ok {
			return errForeignKey
		}
		if st.numberTaken(in.SeriesID, in.EpisodeNo, 0) {
			return repository.ErrConflict
		}
		id = st.nextID()
		in.ID, in.Viewers, in.SeriesName = id, 0, ""
		st.episodes[id] = in
		return nil
	})
	return id, err
}

func (v *view) UpdateEpisode(_ context.Context, id uint64, p model.EpisodePatch) error {
	return v.do("UpdateEpisode", func(st *state) error {
		e, ok := st.episodes[id]
		if !ok {
			return repository.ErrNotFound
		}
		if p.EpisodeNo != nil {
			if st.numberTaken(e.SeriesID, *p.EpisodeNo, id) {
				return repository.ErrConflict
			}
			e.EpisodeNo = *p.EpisodeNo
		}
		setStr(&e.Title, p.Title)
		if p.DurationMin != nil {
			e.DurationMin = *p.DurationMin
		}
		setStr(&e.VideoURL, p.VideoURL)
		setStr(&e.ThumbnailURL, p.ThumbnailURL)
		if p.TechInterruption != nil {
			e.TechInterruption = *p.TechInterruption
		}
		st.episodes[id] = e
		return nil
	})
}

func (v *view) DeleteEpisode(_ context.Context, id uint64) error {
	return v.do("DeleteEpisode", func(st *state) error {
		if _, ok := st.episodes[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.episodes, id)
		for wid, w := range st.watch {
			if w.EpisodeID == id {
				delete(st.watch, wid)
			}
		}
		return nil
	})
}

func (v *view) IncrementEpisodeViewers(_ context.Context, episodeID, seriesID uint64) error {
	return v.do("IncrementEpisodeViewers", func(st *state) error {
		e, ok := st.episodes[episodeID]
		if !ok || e.SeriesID != seriesID {
			return repository.ErrNotFound
		}
		e.Viewers++
		st.episodes[episodeID] = e
		return nil
	})
}

// ---- feedback ----

func (st *state) joinedFeedback(f model.Feedback) model.Feedback {
	viewer := st.viewers[f.ViewerID]
	f.ViewerFirstName, f.ViewerLastName = viewer.FirstName, viewer.LastName
	f.SeriesName = st.series[f.SeriesID].Name
	return f
}

func (st *state) feedbackWhere(keep func(model.Feedback) bool) []model.Feedback {
	out := []model.Feedback{}
	for _, f := range st.feedback {
		if keep(f) {
			out = append(out, st.joinedFeedback(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (v *view) FeedbackIDFor(_ context.Context, viewerID, seriesID uint64) (id uint64, err error) {
	err = v.do("FeedbackIDFor", func(st *state) error {
		for _, f := range st.feedback {
			if f.ViewerID == viewerID && f.SeriesID == seriesID {
				id = f.ID
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return id, err
}

func (v *view) InsertFeedback(_ context.Context, in model.Feedback) (id uint64, err error) {
	err = v.do("InsertFeedback", func(st *state) error {
		if _, ok := st.viewers[in.ViewerID]; !ok {
			return errForeignKey
		}
		if _, ok := st.series[in.SeriesID]; !ok {
			return errForeignKey
		}
		for _, f := range st.feedback {
			if f.ViewerID == in.ViewerID && f.SeriesID == in.SeriesID {
				return repository.ErrConflict
			}
		}
		id = st.nextID()
		in.ID = id
		in.ViewerFirstName, in.ViewerLastName, in.SeriesName = "", "", ""
		st.feedback[id] = in
		return nil
	})
	return id, err
}

func (v *view) FeedbackByID(_ context.Context, id uint64) (out model.Feedback, err error) {
	err = v.do("FeedbackByID", func(st *state) error {
		f, ok := st.feedback[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = st.joinedFeedback(f)
		return nil
	})
	return out, err
}

func (v *view) FeedbackBySeries(_ context.Context, seriesID uint64) (out []model.Feedback, err error) {
	err = v.do("FeedbackBySeries", func(st *state) error {
		out = st.feedbackWhere(func(f model.Feedback) bool { return f.SeriesID == seriesID })
		return nil
	})
	return out, err
}

func (v *view) FeedbackByViewer(_ context.Context, viewerID uint64) (out []model.Feedback, err error) {
	err = v.do("FeedbackByViewer", func(st *state) error {
		out = st.feedbackWhere(func(f model.Feedback) bool { return f.ViewerID == viewerID })
		return nil
	})
	return out, err
}

func (v *view) ListFeedback(_ context.Context, limit, offset int) (out []model.Feedback, err error) {
	err = v.do("ListFeedback", func(st *state) error {
		all := st.feedbackWhere(func(model.Feedback) bool { return true })
		if offset >= len(all) {
			out = []model.Feedback{}
			return nil
		}
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		out = all[offset:end]
		return nil
	})
	return out, err
}

func (v *view) CountFeedback(_ context.Context) (n int, err error) {
	err = v.do("CountFeedback", func(st *state) error {
		n = len(st.feedback)
		return nil
	})
	return n, err
}

func (v *view) UpdateFeedback(_ context.Context, id uint64, p model.FeedbackPatch, date model.Date) error {
	return v.do("UpdateFeedback", func(st *state) error {
		f, ok := st.feedback[id]
		if !ok {
			return repository.ErrNotFound
		}
		if p.Rating != nil {
			f.Rating = *p.Rating
		}
		setStr(&f.Text, p.Text)
		f.Date = date
		st.feedback[id] = f
		return nil
	})
}

func (v *view) DeleteFeedback(_ context.Context, id uint64) error {
	return v.do("DeleteFeedback", func(st *state) error {
		if _, ok := st.feedback[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.feedback, id)
		return nil
	})
}

func (v *view) DeleteFeedbackByViewer(_ context.Context, viewerID uint64) error {
	return v.do("DeleteFeedbackByViewer", func(st *state) error {
		for id, f := range st.feedback {
			if f.ViewerID == viewerID {
				delete(st.feedback, id)
			}
		}
		return nil
	})
}

// ---- watch history ----

func (st *state) findWatch(key model.WatchKey) (uint64, bool) {
	for id, w := range st.watch {
		if w.ViewerID == key.ViewerID && w.SeriesID == key.SeriesID && w.EpisodeID == key.EpisodeID {
			return id, true
		}
	}
	return 0, false
}

func (v *view) WatchEntry(_ context.Context, key model.WatchKey) (out model.WatchHistory, err error) {
	err = v.do("WatchEntry", func(st *state) error {
		id, ok := st.findWatch(key)
		if !ok {
			return repository.ErrNotFound
		}
		out = st.watch[id]
		return nil
	})
	return out, err
}

func (v *view) InsertWatchProgress(_ context.Context, key model.WatchKey, progress int, at time.Time) error {
	return v.do("InsertWatchProgress", func(st *state) error {
		if _, ok := st.findWatch(key); ok {
			return repository.ErrConflict
		}
		if _, ok := st.viewers[key.ViewerID]; !ok {
			return errForeignKey
		}
		if e, ok := st.episodes[key.EpisodeID]; !ok || e.SeriesID != key.SeriesID {
			return errForeignKey
		}
		id := st.nextID()
		st.watch[id] = model.WatchHistory{
			ID: id, ViewerID: key.ViewerID, SeriesID: key.SeriesID, EpisodeID: key.EpisodeID,
			Progress: progress, LastWatched: at,
		}
		return nil
	})
}

func (v *view) UpdateWatchProgress(_ context.Context, key model.WatchKey, progress int, at time.Time) error {
	return v.do("UpdateWatchProgress", func(st *state) error {
		id, ok := st.findWatch(key)
		if !ok {
			return repository.ErrNotFound
		}
		w := st.watch[id]
		w.Progress, w.LastWatched = progress, at
		st.watch[id] = w
		return nil
	})
}

func (v *view) ContinueWatching(_ context.Context, viewerID uint64, threshold, limit int) (out []model.ContinueWatching, err error) {
	err = v.do("ContinueWatching", func(st *state) error {
		out = []model.ContinueWatching{}
		for _, w := range st.watch {
			if w.ViewerID != viewerID || w.Progress >= threshold {
				continue
			}
			e, ok := st.episodes[w.EpisodeID]
			if !ok || e.SeriesID != w.SeriesID {
				continue
			}
			out = append(out, model.ContinueWatching{
				WatchHistory: w,
				EpisodeNo:    e.EpisodeNo,
				EpisodeTitle: e.Title,
				DurationMin:  e.DurationMin,
				ThumbnailURL: e.ThumbnailURL,
				SeriesName:   st.series[w.SeriesID].Name,
			})
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].LastWatched.Equal(out[j].LastWatched) {
				return out[i].LastWatched.After(out[j].LastWatched)
			}
			return out[i].ID > out[j].ID
		})
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (v *view) DeleteWatchHistoryByViewer(_ context.Context, viewerID uint64) error {
	return v.do("DeleteWatchHistoryByViewer", func(st *state) error {
		for id, w := range st.watch {
			if w.ViewerID == viewerID {
				delete(st.watch, id)
			}
		}
		return nil
	})
}

func setStr(dst *string, p *string) {
	if p != nil {
		*dst = *p
	}
}
