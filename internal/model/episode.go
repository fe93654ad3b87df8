package model

// Episode mirrors the `episodes` table. (SeriesID, EpisodeNo) is unique.
// SeriesName is only populated by single-episode lookups.
type Episode struct {
	ID               uint64 `json:"episodeId"`              // episodes.id
	SeriesID         uint64 `json:"seriesId"`               // episodes.series_id
	EpisodeNo        int    `json:"episodeNo"`              // episodes.episode_no
	Title            string `json:"title"`                  // episodes.title
	DurationMin      int    `json:"durationMin"`            // episodes.duration_min
	Viewers          int64  `json:"viewers"`                // episodes.viewers
	VideoURL         string `json:"videoUrl,omitempty"`     // episodes.video_url
	ThumbnailURL     string `json:"thumbnailUrl,omitempty"` // episodes.thumbnail_url
	TechInterruption bool   `json:"techInterruption"`       // episodes.tech_interruption
	SeriesName       string `json:"seriesName,omitempty"`
}

// EpisodePatch is a partial episode update. The viewer counter is not
// patchable; it only moves through watch-progress writes.
type EpisodePatch struct {
	EpisodeNo        *int
	Title            *string
	DurationMin      *int
	VideoURL         *string
	ThumbnailURL     *string
	TechInterruption *bool
}

// Empty reports whether the patch changes nothing.
func (p EpisodePatch) Empty() bool {
	return p.EpisodeNo == nil && p.Title == nil && p.DurationMin == nil &&
		p.VideoURL == nil && p.ThumbnailURL == nil && p.TechInterruption == nil
}
