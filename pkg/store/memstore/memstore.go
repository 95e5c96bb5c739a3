// Package memstore is an in-process implementation of store.Store used for dry
// runs and tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/db/models"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/scoring"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/store"
)

type Store struct {
	// txMu serializes transactions; mu guards the maps
	txMu sync.Mutex
	mu   sync.RWMutex

	posts        map[string]models.ScoredPost
	participants map[string]models.Participant
	checkpoints  map[string]models.TrackingCheckpoint
	endpoints    map[string]models.SourceEndpoint

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		posts:        map[string]models.ScoredPost{},
		participants: map[string]models.Participant{},
		checkpoints:  map[string]models.TrackingCheckpoint{},
		endpoints:    map[string]models.SourceEndpoint{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func participantKey(campaignID, userID string) string {
	return strings.TrimSpace(campaignID) + ":" + strings.TrimSpace(userID)
}

func (s *Store) FindScoredPost(_ context.Context, tweetID string) (*models.ScoredPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.posts[tweetID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &row, nil
}

func (s *Store) InsertScoredPost(_ context.Context, post *models.ScoredPost) error {
	return s.insertScoredPost(nil, post)
}

func (s *Store) insertScoredPost(j *journal, post *models.ScoredPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[post.TweetID]; ok {
		return store.ErrDuplicate
	}
	remember(j, s.posts, post.TweetID)
	s.posts[post.TweetID] = *post
	return nil
}

func (s *Store) UpdateEngagement(_ context.Context, tweetID string, prev, curr scoring.Engagement, bonus int, at time.Time) error {
	return s.updateEngagement(nil, tweetID, prev, curr, bonus, at)
}

func (s *Store) updateEngagement(j *journal, tweetID string, prev, curr scoring.Engagement, bonus int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.posts[tweetID]
	if !ok || row.Engagement() != prev {
		return store.ErrConflict
	}
	remember(j, s.posts, tweetID)
	row.Likes, row.Retweets, row.Replies, row.Quotes = curr.Likes, curr.Retweets, curr.Replies, curr.Quotes
	row.MSP += bonus
	row.BonusMSP += bonus
	refreshed := at
	row.LastRefreshedAt = &refreshed
	s.posts[tweetID] = row
	return nil
}

func (s *Store) ListScoredPosts(_ context.Context, campaignID string) ([]models.ScoredPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ScoredPost, 0)
	for _, row := range s.posts {
		if row.CampaignID == campaignID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PostedAt.Equal(out[j].PostedAt) {
			return out[i].PostedAt.After(out[j].PostedAt)
		}
		return out[i].TweetID < out[j].TweetID
	})
	return out, nil
}

func (s *Store) FindParticipant(_ context.Context, campaignID, userID string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.participants[participantKey(campaignID, userID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &row, nil
}

func (s *Store) UpsertParticipant(_ context.Context, p *models.Participant) error {
	return s.upsertParticipant(nil, p)
}

func (s *Store) upsertParticipant(j *journal, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	if p.Tier == 0 {
		p.Tier = int(scoring.TierBronze)
	}

	key := participantKey(p.CampaignID, p.UserID)
	remember(j, s.participants, key)
	row, ok := s.participants[key]
	if !ok {
		if p.JoinedAt.IsZero() {
			p.JoinedAt = now
		}
		s.participants[key] = *p
		return nil
	}
	row.Handle = p.Handle
	row.DisplayName = p.DisplayName
	row.AvatarURL = p.AvatarURL
	row.FollowerCount = p.FollowerCount
	row.Tier = p.Tier
	row.UpdatedAt = p.UpdatedAt
	s.participants[key] = row
	return nil
}

func (s *Store) IncrementParticipantTotals(_ context.Context, campaignID, userID string, points, posts int) error {
	return s.incrementParticipantTotals(nil, campaignID, userID, points, posts)
}

func (s *Store) incrementParticipantTotals(j *journal, campaignID, userID string, points, posts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey(campaignID, userID)
	row, ok := s.participants[key]
	if !ok {
		return store.ErrNotFound
	}
	remember(j, s.participants, key)
	row.MSP += points
	row.PostCount += posts
	row.UpdatedAt = s.now()
	s.participants[key] = row
	return nil
}

func (s *Store) DeleteParticipant(_ context.Context, campaignID, userID string) error {
	return s.deleteParticipant(nil, campaignID, userID)
}

func (s *Store) deleteParticipant(j *journal, campaignID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey(campaignID, userID)
	if _, ok := s.participants[key]; !ok {
		return store.ErrNotFound
	}
	remember(j, s.participants, key)
	delete(s.participants, key)
	return nil
}

func (s *Store) ListParticipants(_ context.Context, campaignID string) ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedParticipants(campaignID), nil
}

func (s *Store) sortedParticipants(campaignID string) []models.Participant {
	out := make([]models.Participant, 0)
	for _, row := range s.participants {
		if row.CampaignID == campaignID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MSP != out[j].MSP {
			return out[i].MSP > out[j].MSP
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (s *Store) RecomputeRanks(_ context.Context, campaignID string) error {
	return s.recomputeRanks(nil, campaignID)
}

func (s *Store) recomputeRanks(j *journal, campaignID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.sortedParticipants(campaignID) {
		key := participantKey(row.CampaignID, row.UserID)
		remember(j, s.participants, key)
		row.Rank = i + 1
		s.participants[key] = row
	}
	return nil
}

func (s *Store) LoadCheckpoint(_ context.Context, campaignID string) (*models.TrackingCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.checkpoints[campaignID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &row, nil
}

func (s *Store) SaveCheckpoint(_ context.Context, campaignID, lastTweetID string, totalTracked int, at time.Time) error {
	return s.saveCheckpoint(nil, campaignID, lastTweetID, totalTracked, at)
}

func (s *Store) saveCheckpoint(j *journal, campaignID, lastTweetID string, totalTracked int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	remember(j, s.checkpoints, campaignID)
	s.checkpoints[campaignID] = models.TrackingCheckpoint{
		CampaignID:   campaignID,
		LastTweetID:  lastTweetID,
		TotalTracked: totalTracked,
		UpdatedAt:    at,
	}
	return nil
}

func (s *Store) SaveEndpointHealth(_ context.Context, endpoints []models.SourceEndpoint) error {
	return s.saveEndpointHealth(nil, endpoints)
}

func (s *Store) saveEndpointHealth(j *journal, endpoints []models.SourceEndpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range endpoints {
		remember(j, s.endpoints, e.Address)
		s.endpoints[e.Address] = e
	}
	return nil
}

// Endpoints returns the persisted endpoint health rows by address
func (s *Store) Endpoints() []models.SourceEndpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SourceEndpoint, 0, len(s.endpoints))
	for _, e := range s.endpoints {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// WithinTx serializes fn against other transactions. Every key fn writes is
// journaled first, and a failing fn has those keys put back in reverse order.
// Writes made outside the transaction to other keys are left alone.
func (s *Store) WithinTx(_ context.Context, fn func(tx store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &journal{}
	if err := fn(txStore{Store: s, j: j}); err != nil {
		s.mu.Lock()
		j.rollback()
		s.mu.Unlock()
		return err
	}
	return nil
}

// journal holds undo steps; both recording and replay happen under mu
type journal struct {
	undo []func()
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// remember records how to restore m[key] to its current value
func remember[K comparable, V any](j *journal, m map[K]V, key K) {
	if j == nil {
		return
	}
	old, existed := m[key]
	j.undo = append(j.undo, func() {
		if existed {
			m[key] = old
		} else {
			delete(m, key)
		}
	})
}

// txStore journals writes and runs nested transactions inline
type txStore struct {
	*Store
	j *journal
}

func (t txStore) WithinTx(_ context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

func (t txStore) InsertScoredPost(_ context.Context, post *models.ScoredPost) error {
	return t.insertScoredPost(t.j, post)
}

func (t txStore) UpdateEngagement(_ context.Context, tweetID string, prev, curr scoring.Engagement, bonus int, at time.Time) error {
	return t.updateEngagement(t.j, tweetID, prev, curr, bonus, at)
}

func (t txStore) UpsertParticipant(_ context.Context, p *models.Participant) error {
	return t.upsertParticipant(t.j, p)
}

func (t txStore) IncrementParticipantTotals(_ context.Context, campaignID, userID string, points, posts int) error {
	return t.incrementParticipantTotals(t.j, campaignID, userID, points, posts)
}

func (t txStore) DeleteParticipant(_ context.Context, campaignID, userID string) error {
	return t.deleteParticipant(t.j, campaignID, userID)
}

func (t txStore) RecomputeRanks(_ context.Context, campaignID string) error {
	return t.recomputeRanks(t.j, campaignID)
}

func (t txStore) SaveCheckpoint(_ context.Context, campaignID, lastTweetID string, totalTracked int, at time.Time) error {
	return t.saveCheckpoint(t.j, campaignID, lastTweetID, totalTracked, at)
}

func (t txStore) SaveEndpointHealth(_ context.Context, endpoints []models.SourceEndpoint) error {
	return t.saveEndpointHealth(t.j, endpoints)
}
