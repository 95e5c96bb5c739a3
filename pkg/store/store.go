// Package store is the persistence boundary of the tracker. Store is the port the
// tracker, API and CLI depend on; GormStore and memstore.Store implement it.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/db/models"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/scoring"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an insert hits an existing stable identifier
	ErrDuplicate = errors.New("store: duplicate stable identifier")
	// ErrConflict is returned when a compare-and-swap update finds the row changed
	ErrConflict = errors.New("store: row changed concurrently")
)

// Store is the datastore contract of the ingestion pipeline
type Store interface {
	// FindScoredPost returns ErrNotFound when the identifier is not tracked
	FindScoredPost(ctx context.Context, tweetID string) (*models.ScoredPost, error)
	// InsertScoredPost inserts post if its identifier is absent, else returns ErrDuplicate
	InsertScoredPost(ctx context.Context, post *models.ScoredPost) error
	// UpdateEngagement replaces the counters of a tracked post and adds bonus to its
	// points, but only while the stored counters still equal prev. Otherwise it
	// returns ErrConflict. Callers pass curr as a per-counter maximum over prev so
	// the baseline never moves down.
	UpdateEngagement(ctx context.Context, tweetID string, prev, curr scoring.Engagement, bonus int, at time.Time) error
	// ListScoredPosts returns a campaign's posts, newest first
	ListScoredPosts(ctx context.Context, campaignID string) ([]models.ScoredPost, error)

	FindParticipant(ctx context.Context, campaignID, userID string) (*models.Participant, error)
	// UpsertParticipant creates the participant or overwrites its profile columns.
	// Totals and rank of an existing participant are left untouched.
	UpsertParticipant(ctx context.Context, p *models.Participant) error
	IncrementParticipantTotals(ctx context.Context, campaignID, userID string, points, posts int) error
	DeleteParticipant(ctx context.Context, campaignID, userID string) error
	// ListParticipants returns a campaign's participants by descending points
	ListParticipants(ctx context.Context, campaignID string) ([]models.Participant, error)
	// RecomputeRanks re-sorts a campaign's participants by points, descending with
	// user id as the tie-breaker, and assigns 1-based ranks
	RecomputeRanks(ctx context.Context, campaignID string) error

	LoadCheckpoint(ctx context.Context, campaignID string) (*models.TrackingCheckpoint, error)
	SaveCheckpoint(ctx context.Context, campaignID, lastTweetID string, totalTracked int, at time.Time) error

	SaveEndpointHealth(ctx context.Context, endpoints []models.SourceEndpoint) error

	// WithinTx runs fn against a Store whose writes commit or roll back together
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
