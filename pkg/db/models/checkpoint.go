package models

import "time"

// TrackingCheckpoint records ingestion progress for one campaign
type TrackingCheckpoint struct {
	CampaignID   string    `gorm:"primaryKey;column:campaign_id" json:"campaign_id"`
	LastTweetID  string    `gorm:"column:last_tweet_id" json:"last_tweet_id"`
	TotalTracked int       `gorm:"column:total_tracked;not null;default:0" json:"total_tracked"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (TrackingCheckpoint) TableName() string {
	return "tracking_checkpoints"
}

// SourceEndpoint is the last persisted health snapshot of one mirror
type SourceEndpoint struct {
	Address             string    `gorm:"primaryKey;column:address" json:"address"`
	Healthy             bool      `gorm:"column:healthy;not null" json:"healthy"`
	LatencyMS           int64     `gorm:"column:latency_ms;not null;default:0" json:"latency_ms"`
	ConsecutiveFailures int       `gorm:"column:consecutive_failures;not null;default:0" json:"consecutive_failures"`
	LastError           string    `gorm:"column:last_error" json:"last_error,omitempty"`
	LastChecked         time.Time `gorm:"column:last_checked" json:"last_checked"`
}

func (SourceEndpoint) TableName() string {
	return "source_endpoints"
}

// All lists every model for auto-migration
func All() []interface{} {
	return []interface{}{&ScoredPost{}, &Participant{}, &TrackingCheckpoint{}, &SourceEndpoint{}}
}
