package model

// Series mirrors a row of `web_series` together with its genre tags.
//
// NumberOfEpisodes is derived: it is recomputed from the episodes table each
// time an episode is added or removed and is never taken from input.
// TotalViews is only filled by the featured listing.
type Series struct {
	ID               uint64   `json:"seriesId"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	ReleaseDate      *Date    `json:"releaseDate,omitempty"`
	CountryOfRelease string   `json:"countryOfRelease"`
	PosterURL        string   `json:"posterUrl,omitempty"`
	BannerURL        string   `json:"bannerUrl,omitempty"`
	NumberOfEpisodes int      `json:"numberOfEpisodes"`
	Genres           []string `json:"genres"`
	TotalViews       *int64   `json:"totalViews,omitempty"`
}

// SeriesDetail is the single-series view: tags, episodes and rating summary.
type SeriesDetail struct {
	Series
	Dubbing      []string  `json:"dubbing"`
	Subtitles    []string  `json:"subtitles"`
	Episodes     []Episode `json:"episodes"`
	AvgRating    float64   `json:"avgRating"`
	TotalReviews int       `json:"totalReviews"`
}

// NewSeries is the validated input for creating a series.
type NewSeries struct {
	Name             string
	Description      string
	ReleaseDate      *Date
	CountryOfRelease string
	PosterURL        string
	BannerURL        string
	Genres           []string
	Dubbing          []string
	Subtitles        []string
}

// SeriesPatch is a partial series update. A non-nil tag slice pointer
// replaces the whole tag set, including with an empty set.
type SeriesPatch struct {
	Name             *string
	Description      *string
	ReleaseDate      *Date
	CountryOfRelease *string
	PosterURL        *string
	BannerURL        *string
	Genres           *[]string
	Dubbing          *[]string
	Subtitles        *[]string
}

// HasColumns reports whether any `web_series` column changes.
func (p SeriesPatch) HasColumns() bool {
	return p.Name != nil || p.Description != nil || p.ReleaseDate != nil ||
		p.CountryOfRelease != nil || p.PosterURL != nil || p.BannerURL != nil
}

// Empty reports whether the patch changes nothing at all.
func (p SeriesPatch) Empty() bool {
	return !p.HasColumns() && p.Genres == nil && p.Dubbing == nil && p.Subtitles == nil
}

// TagKind selects one of the per-series tag tables.
type TagKind uint8

const (
	TagGenre TagKind = iota
	TagDubbing
	TagSubtitle
)

// GenreCount is one row of the genre listing.
type GenreCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
