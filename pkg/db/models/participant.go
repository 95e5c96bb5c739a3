package models

import "time"

// Participant is a user's membership in one campaign together with running totals
type Participant struct {
	CampaignID string `gorm:"primaryKey;column:campaign_id" json:"campaign_id"`
	UserID     string `gorm:"primaryKey;column:user_id" json:"user_id"`

	// Profile
	Handle        string `gorm:"column:handle;not null" json:"handle"`
	DisplayName   string `gorm:"column:display_name" json:"display_name,omitempty"`
	AvatarURL     string `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	FollowerCount int    `gorm:"column:follower_count;not null;default:0" json:"follower_count"`
	Tier          int    `gorm:"column:tier;not null;default:1" json:"tier"`

	// Totals
	MSP       int `gorm:"column:msp;not null;default:0" json:"msp"`
	PostCount int `gorm:"column:post_count;not null;default:0" json:"post_count"`
	Rank      int `gorm:"column:rank;not null;default:0" json:"rank"`

	JoinedAt  time.Time `gorm:"column:joined_at;not null" json:"joined_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for the Participant model
func (Participant) TableName() string {
	return "participants"
}

// ProfileColumns are the columns a re-join or auto-enrollment may overwrite.
// Totals and rank are only changed through their dedicated operations.
var ProfileColumns = []string{"handle", "display_name", "avatar_url", "follower_count", "tier", "updated_at"}
