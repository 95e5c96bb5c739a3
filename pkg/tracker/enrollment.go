package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/db/models"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/scoring"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/store"
)

// Profile is what a participant supplies when joining a campaign
type Profile struct {
	Handle        string `json:"handle"`
	DisplayName   string `json:"display_name"`
	AvatarURL     string `json:"avatar_url"`
	FollowerCount int    `json:"follower_count"`
	Tier          int    `json:"tier"`
}

// ErrInvalidProfile is wrapped by Join when the supplied profile cannot be stored
var ErrInvalidProfile = errors.New("invalid profile")

// Join enrolls handle in a campaign or refreshes its profile. Totals and rank of an
// existing participant are kept, and so are its stored tier, follower count, display
// name and avatar wherever p leaves them zero.
func (t *Tracker) Join(ctx context.Context, campaignID string, p Profile) (*models.Participant, error) {
	userID := UserID(p.Handle)
	if userID == "" {
		return nil, fmt.Errorf("%w: handle is required", ErrInvalidProfile)
	}
	if p.Tier != 0 && (p.Tier < int(scoring.TierBronze) || p.Tier > int(scoring.TierDiamond)) {
		return nil, fmt.Errorf("%w: tier must be between %d and %d, got %d", ErrInvalidProfile, scoring.TierBronze, scoring.TierDiamond, p.Tier)
	}
	if p.FollowerCount < 0 {
		return nil, fmt.Errorf("%w: follower count cannot be negative", ErrInvalidProfile)
	}

	participant := &models.Participant{
		CampaignID: campaignID,
		UserID:     userID,
		Tier:       int(scoring.TierBronze),
	}
	existing, err := t.store.FindParticipant(ctx, campaignID, userID)
	switch {
	case err == nil:
		participant = existing
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("loading participant %s: %w", userID, err)
	}

	participant.Handle = p.Handle
	if p.DisplayName != "" {
		participant.DisplayName = p.DisplayName
	}
	if p.AvatarURL != "" {
		participant.AvatarURL = p.AvatarURL
	}
	if p.FollowerCount != 0 {
		participant.FollowerCount = p.FollowerCount
	}
	if p.Tier != 0 {
		participant.Tier = p.Tier
	}
	participant.UpdatedAt = t.now()
	if err := t.store.UpsertParticipant(ctx, participant); err != nil {
		return nil, err
	}

	t.logger.WithFields(logrus.Fields{
		"campaign_id": campaignID,
		"user_id":     userID,
		"tier":        participant.Tier,
	}).Info("Participant joined campaign")
	return t.store.FindParticipant(ctx, campaignID, userID)
}

// Leave removes a participant from a campaign. Its scored posts remain and keep
// blocking re-scoring of the same identifiers.
func (t *Tracker) Leave(ctx context.Context, campaignID, handle string) error {
	userID := UserID(handle)
	if err := t.store.DeleteParticipant(ctx, campaignID, userID); err != nil {
		return err
	}
	if err := t.store.RecomputeRanks(ctx, campaignID); err != nil {
		return fmt.Errorf("recomputing ranks: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"campaign_id": campaignID,
		"user_id":     userID,
	}).Info("Participant left campaign")
	return nil
}
