package model

import "time"

// Feedback is a viewer's review of a series. At most one exists per
// (ViewerID, SeriesID). The name fields are filled by joined reads only.
type Feedback struct {
	ID              uint64 `json:"feedbackId"`
	ViewerID        uint64 `json:"viewerId"`
	SeriesID        uint64 `json:"seriesId"`
	Rating          int    `json:"rating"`
	Text            string `json:"text,omitempty"`
	Date            Date   `json:"date"`
	ViewerFirstName string `json:"firstName,omitempty"`
	ViewerLastName  string `json:"lastName,omitempty"`
	SeriesName      string `json:"seriesName,omitempty"`
}

// FeedbackPatch is a partial review update.
type FeedbackPatch struct {
	Rating *int
	Text   *string
}

// Empty reports whether the patch changes nothing.
func (p FeedbackPatch) Empty() bool { return p.Rating == nil && p.Text == nil }

// FeedbackPage is one page of the admin feedback listing.
type FeedbackPage struct {
	Items []Feedback `json:"feedback"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Total int        `json:"total"`
}

// WatchKey identifies a watch-history row.
type WatchKey struct {
	ViewerID  uint64
	SeriesID  uint64
	EpisodeID uint64
}

// WatchHistory is the playback progress of one viewer on one episode.
type WatchHistory struct {
	ID          uint64    `json:"historyId"`
	ViewerID    uint64    `json:"viewerId"`
	SeriesID    uint64    `json:"seriesId"`
	EpisodeID   uint64    `json:"episodeId"`
	Progress    int       `json:"progress"`
	LastWatched time.Time `json:"lastWatched"`
}

// ContinueWatching is a watch-history row joined with what a client needs
// to resume playback.
type ContinueWatching struct {
	WatchHistory
	EpisodeNo    int    `json:"episodeNo"`
	EpisodeTitle string `json:"episodeTitle"`
	DurationMin  int    `json:"durationMin"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	SeriesName   string `json:"seriesName"`
}

// Continue-watching window.
const (
	ContinueWatchingThreshold = 90
	ContinueWatchingLimit     = 10
)
