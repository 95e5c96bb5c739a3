package models

import (
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/scoring"
)

// ScoredPost is a qualifying post that has been scored for a campaign.
// TweetID is the stable identifier and the deduplication key.
type ScoredPost struct {
	TweetID    string `gorm:"primaryKey;column:tweet_id" json:"tweet_id"`
	CampaignID string `gorm:"column:campaign_id;not null;index:idx_scored_posts_campaign" json:"campaign_id"`
	UserID     string `gorm:"column:user_id;not null;index:idx_scored_posts_user" json:"user_id"`

	// Author Information
	AuthorHandle string `gorm:"column:author_handle;not null" json:"author_handle"`
	AuthorName   string `gorm:"column:author_name" json:"author_name,omitempty"`
	Text         string `gorm:"column:text;not null" json:"text"`

	// Engagement counters as last observed
	Likes    int  `gorm:"column:likes;not null;default:0" json:"likes"`
	Retweets int  `gorm:"column:retweets;not null;default:0" json:"retweets"`
	Replies  int  `gorm:"column:replies;not null;default:0" json:"replies"`
	Quotes   int  `gorm:"column:quotes;not null;default:0" json:"quotes"`
	Views    *int `gorm:"column:views" json:"views,omitempty"`

	// Scoring
	MSP            int                 `gorm:"column:msp;not null;default:0" json:"msp"`
	BonusMSP       int                 `gorm:"column:bonus_msp;not null;default:0" json:"bonus_msp"`
	ContentType    scoring.ContentType `gorm:"column:content_type;not null;default:post" json:"content_type"`
	EarlyAmplifier bool                `gorm:"column:early_amplifier;not null;default:false" json:"early_amplifier"`

	PostedAt        time.Time  `gorm:"column:posted_at;not null" json:"posted_at"`
	TrackedAt       time.Time  `gorm:"column:tracked_at;not null" json:"tracked_at"`
	LastRefreshedAt *time.Time `gorm:"column:last_refreshed_at" json:"last_refreshed_at,omitempty"`
}

// TableName specifies the table name for the ScoredPost model
func (ScoredPost) TableName() string {
	return "scored_posts"
}

// Engagement returns the stored counters in scoring form
func (p ScoredPost) Engagement() scoring.Engagement {
	return scoring.Engagement{
		Likes:    p.Likes,
		Retweets: p.Retweets,
		Replies:  p.Replies,
		Quotes:   p.Quotes,
	}
}
