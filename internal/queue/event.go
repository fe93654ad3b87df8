// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// DefaultQueue is the durable queue activity events are published to.
const DefaultQueue = "catalog.activity"

// Activity event types.
const (
	EventViewerRegistered = "viewer.registered"
	EventViewerDeleted    = "viewer.deleted"
	EventSeriesCreated    = "series.created"
	EventSeriesUpdated    = "series.updated"
	EventSeriesDeleted    = "series.deleted"
	EventEpisodeCreated   = "episode.created"
	EventEpisodeUpdated   = "episode.updated"
	EventEpisodeDeleted   = "episode.deleted"
	EventFeedbackCreated  = "feedback.created"
	EventFeedbackUpdated  = "feedback.updated"
	EventFeedbackDeleted  = "feedback.deleted"
	EventWatchProgressed  = "watch.progressed"
)

// ActivityEvent is published after a catalog or engagement write commits.
// It carries ids only, enough for downstream consumers to log, notify, or
// trigger analytics without querying the primary database. Zero ids are
// omitted.
type ActivityEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ViewerID   uint64    `json:"viewer_id,omitempty"`
	SeriesID   uint64    `json:"series_id,omitempty"`
	EpisodeID  uint64    `json:"episode_id,omitempty"`
	FeedbackID uint64    `json:"feedback_id,omitempty"`
	Progress   *int      `json:"progress,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
