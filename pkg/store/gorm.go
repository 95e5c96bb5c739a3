package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/db/models"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/scoring"
)

// GormStore implements Store on a GORM connection
type GormStore struct {
	logger *logrus.Logger
	db     *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore wraps db
func NewGormStore(logger *logrus.Logger, db *gorm.DB) *GormStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &GormStore{logger: logger, db: db}
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *GormStore) FindScoredPost(ctx context.Context, tweetID string) (*models.ScoredPost, error) {
	var post models.ScoredPost
	err := s.conn(ctx).Where("tweet_id = ?", tweetID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find scored post %s: %w", tweetID, err)
	}
	return &post, nil
}

// InsertScoredPost relies on the primary key as the authoritative duplicate guard
func (s *GormStore) InsertScoredPost(ctx context.Context, post *models.ScoredPost) error {
	result := s.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tweet_id"}},
			DoNothing: true,
		}).
		Create(post)
	if result.Error != nil {
		return fmt.Errorf("failed to insert scored post %s: %w", post.TweetID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDuplicate
	}

	s.logger.WithFields(logrus.Fields{
		"campaign_id": post.CampaignID,
		"tweet_id":    post.TweetID,
		"user_id":     post.UserID,
		"msp":         post.MSP,
	}).Debug("Inserted scored post")
	return nil
}

func (s *GormStore) UpdateEngagement(ctx context.Context, tweetID string, prev, curr scoring.Engagement, bonus int, at time.Time) error {
	result := s.conn(ctx).
		Model(&models.ScoredPost{}).
		Where("tweet_id = ? AND likes = ? AND retweets = ? AND replies = ? AND quotes = ?",
			tweetID, prev.Likes, prev.Retweets, prev.Replies, prev.Quotes).
		Updates(map[string]interface{}{
			"likes":             curr.Likes,
			"retweets":          curr.Retweets,
			"replies":           curr.Replies,
			"quotes":            curr.Quotes,
			"msp":               gorm.Expr("msp + ?", bonus),
			"bonus_msp":         gorm.Expr("bonus_msp + ?", bonus),
			"last_refreshed_at": at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update engagement of %s: %w", tweetID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *GormStore) ListScoredPosts(ctx context.Context, campaignID string) ([]models.ScoredPost, error) {
	var posts []models.ScoredPost
	err := s.conn(ctx).
		Where("campaign_id = ?", campaignID).
		Order("posted_at DESC").
		Order("tweet_id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scored posts: %w", err)
	}
	return posts, nil
}

func (s *GormStore) FindParticipant(ctx context.Context, campaignID, userID string) (*models.Participant, error) {
	var p models.Participant
	err := s.conn(ctx).Where("campaign_id = ? AND user_id = ?", campaignID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return &p, nil
}

func (s *GormStore) UpsertParticipant(ctx context.Context, p *models.Participant) error {
	now := time.Now().UTC()
	if p.JoinedAt.IsZero() {
		p.JoinedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	if p.Tier == 0 {
		p.Tier = int(scoring.TierBronze)
	}

	err := s.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "campaign_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(models.ProfileColumns),
		}).
		Create(p).Error
	if err != nil {
		return fmt.Errorf("failed to upsert participant %s: %w", p.UserID, err)
	}
	return nil
}

func (s *GormStore) IncrementParticipantTotals(ctx context.Context, campaignID, userID string, points, posts int) error {
	result := s.conn(ctx).
		Model(&models.Participant{}).
		Where("campaign_id = ? AND user_id = ?", campaignID, userID).
		Updates(map[string]interface{}{
			"msp":        gorm.Expr("msp + ?", points),
			"post_count": gorm.Expr("post_count + ?", posts),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to increment participant totals: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteParticipant(ctx context.Context, campaignID, userID string) error {
	result := s.conn(ctx).
		Where("campaign_id = ? AND user_id = ?", campaignID, userID).
		Delete(&models.Participant{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete participant: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListParticipants(ctx context.Context, campaignID string) ([]models.Participant, error) {
	var ps []models.Participant
	err := s.conn(ctx).
		Where("campaign_id = ?", campaignID).
		Order("msp DESC").
		Order("user_id ASC").
		Find(&ps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return ps, nil
}

func (s *GormStore) RecomputeRanks(ctx context.Context, campaignID string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var ps []models.Participant
		if err := tx.Where("campaign_id = ?", campaignID).
			Order("msp DESC").
			Order("user_id ASC").
			Find(&ps).Error; err != nil {
			return fmt.Errorf("failed to load participants for ranking: %w", err)
		}

		for i, p := range ps {
			rank := i + 1
			if p.Rank == rank {
				continue
			}
			if err := tx.Model(&models.Participant{}).
				Where("campaign_id = ? AND user_id = ?", campaignID, p.UserID).
				Update("rank", rank).Error; err != nil {
				return fmt.Errorf("failed to update rank of %s: %w", p.UserID, err)
			}
		}

		s.logger.WithFields(logrus.Fields{
			"campaign_id":  campaignID,
			"participants": len(ps),
		}).Debug("Recomputed participant ranks")
		return nil
	})
}

func (s *GormStore) LoadCheckpoint(ctx context.Context, campaignID string) (*models.TrackingCheckpoint, error) {
	var cp models.TrackingCheckpoint
	err := s.conn(ctx).Where("campaign_id = ?", campaignID).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return &cp, nil
}

func (s *GormStore) SaveCheckpoint(ctx context.Context, campaignID, lastTweetID string, totalTracked int, at time.Time) error {
	cp := models.TrackingCheckpoint{
		CampaignID:   campaignID,
		LastTweetID:  lastTweetID,
		TotalTracked: totalTracked,
		UpdatedAt:    at,
	}
	err := s.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "campaign_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_tweet_id", "total_tracked", "updated_at"}),
		}).
		Create(&cp).Error
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *GormStore) SaveEndpointHealth(ctx context.Context, endpoints []models.SourceEndpoint) error {
	if len(endpoints) == 0 {
		return nil
	}
	err := s.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			UpdateAll: true,
		}).
		Create(&endpoints).Error
	if err != nil {
		return fmt.Errorf("failed to save endpoint health: %w", err)
	}
	return nil
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{logger: s.logger, db: tx})
	})
}
