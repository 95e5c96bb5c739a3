// Package tracker turns mirror candidates into durable campaign state: it
// deduplicates posts by stable identifier, scores new ones, enrolls their authors,
// awards re-engagement bonuses and advances the campaign checkpoint.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/campaign"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/db/models"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/lock"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/metrics"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/scoring"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/sources"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/store"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/validity"
)

// Source produces hashtag-valid candidates for a campaign tag
type Source interface {
	FetchCandidates(ctx context.Context, campaignTag string) (*sources.FetchResult, error)
}

// Deps are the collaborators of a Tracker. Store and Source are required.
type Deps struct {
	Store   store.Store
	Source  Source
	Locker  lock.Locker
	Metrics *metrics.Metrics
	Logger  *logrus.Logger
	Config  *Config
	// Now is the scoring clock; defaults to time.Now in UTC
	Now func() time.Time
}

type Tracker struct {
	store   store.Store
	source  Source
	locker  lock.Locker
	metrics *metrics.Metrics
	logger  *logrus.Logger
	config  *Config
	filter  validity.Filter
	now     func() time.Time

	mu     sync.RWMutex
	status BatchStatus
}

// New creates a Tracker
func New(deps Deps) (*Tracker, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if deps.Config == nil {
		deps.Config = DefaultConfig()
	}
	if err := deps.Config.Validate(); err != nil {
		return nil, err
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Tracker{
		store:   deps.Store,
		source:  deps.Source,
		locker:  deps.Locker,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		config:  deps.Config,
		filter:  validity.NewFilter(deps.Config.PrimaryTag),
		now:     deps.Now,
	}, nil
}

// Store returns the datastore the tracker writes to
func (t *Tracker) Store() store.Store {
	return t.store
}

// TrackCampaign runs one ingestion pass for c. It never returns nil.
func (t *Tracker) TrackCampaign(ctx context.Context, c campaign.Campaign) *RunReport {
	report := &RunReport{
		RunID:      uuid.NewString(),
		CampaignID: c.ID,
		StartedAt:  t.now(),
		Errors:     []string{},
	}
	log := t.logger.WithFields(logrus.Fields{
		"campaign_id": c.ID,
		"run_id":      report.RunID,
	})
	defer func() {
		report.FinishedAt = t.now()
		t.metrics.Run(c.ID, report.Outcome())
		log.WithFields(logrus.Fields{
			"new":        report.New,
			"duplicates": report.Duplicates,
			"refreshed":  report.Refreshed,
			"failed":     report.Failed,
			"points":     report.PointsAwarded,
			"bonus":      report.BonusPoints,
			"errors":     len(report.Errors),
		}).Info("Campaign run finished")
	}()

	release, err := t.locker.Acquire(ctx, c.ID, t.config.LockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			report.addError("campaign %s is already being tracked", c.ID)
		} else {
			report.addError("acquiring run lock: %v", err)
		}
		report.outcome = metrics.RunLocked
		return report
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to release run lock")
		}
	}()

	var lastID string
	var total int
	cp, err := t.store.LoadCheckpoint(ctx, c.ID)
	switch {
	case err == nil:
		lastID, total = cp.LastTweetID, cp.TotalTracked
	case errors.Is(err, store.ErrNotFound):
	default:
		report.addError("loading checkpoint: %v", err)
		return report
	}

	result, err := t.source.FetchCandidates(ctx, c.Tag)
	if err != nil {
		log.WithError(err).Warn("No source could serve the campaign")
		report.addError("sources unavailable: %v", err)
		report.outcome = metrics.RunUnavailable
		return report
	}
	report.Endpoint = result.Endpoint
	report.Fetched = len(result.Posts)

	now := t.now()
	changed := false
	for _, cand := range result.Posts {
		if err := ctx.Err(); err != nil {
			report.addError("run interrupted: %v", err)
			return report
		}
		if t.trackOne(ctx, c, cand, now, report, log) {
			changed = true
		}
	}

	if changed {
		if err := t.store.RecomputeRanks(ctx, c.ID); err != nil {
			log.WithError(err).Error("Failed to recompute ranks")
			report.addError("recomputing ranks: %v", err)
		}
	}

	if len(result.Posts) > 0 {
		lastID = StableID(result.Posts[0])
	}
	if err := t.store.SaveCheckpoint(ctx, c.ID, lastID, total+report.New, now); err != nil {
		log.WithError(err).Error("Failed to save checkpoint")
		report.addError("saving checkpoint: %v", err)
		return report
	}
	report.CheckpointSaved = true
	return report
}

// trackOne processes a single candidate and reports whether any points moved
func (t *Tracker) trackOne(ctx context.Context, c campaign.Campaign, cand sources.CandidatePost, now time.Time, report *RunReport, log *logrus.Entry) bool {
	if !t.filter.Accepts(cand.Text, c.Tag) {
		report.Rejected++
		return false
	}

	id := StableID(cand)
	userID := UserID(cand.AuthorHandle)
	plog := log.WithFields(logrus.Fields{
		"tweet_id": id,
		"user_id":  userID,
	})

	existing, err := t.store.FindScoredPost(ctx, id)
	switch {
	case err == nil:
		if existing.UserID != userID {
			report.Collisions++
			report.addError("identifier %s already belongs to %s, skipped post by %s", id, existing.UserID, userID)
			t.metrics.Post(c.ID, metrics.OutcomeCollision)
			plog.WithField("stored_user_id", existing.UserID).Warn("Stable identifier collision")
			return false
		}
		if existing.CampaignID != c.ID {
			// scored by the campaign that saw it first; growth accrues there only
			report.Duplicates++
			t.metrics.Post(c.ID, metrics.OutcomeDuplicate)
			plog.WithField("owner_campaign_id", existing.CampaignID).Debug("Post belongs to another campaign, skipping")
			return false
		}
		return t.refresh(ctx, c, existing, cand, now, report, plog)
	case !errors.Is(err, store.ErrNotFound):
		t.fail(c, report, plog, fmt.Errorf("looking up %s: %w", id, err))
		return false
	}

	participant, err := t.participant(ctx, c.ID, userID, cand.AuthorHandle)
	if err != nil {
		t.fail(c, report, plog, fmt.Errorf("loading participant %s: %w", userID, err))
		return false
	}

	postedAt := cand.CreatedAt
	if postedAt.IsZero() {
		postedAt = now
	}
	breakdown := scoring.Calculate(scoring.Input{
		Engagement:    cand.Engagement(),
		FollowerCount: participant.FollowerCount,
		ProjectTag:    c.Tag,
		Text:          cand.Text,
		PostedAt:      postedAt,
		CampaignStart: c.StartAt,
		Tier:          scoring.Tier(participant.Tier),
		Now:           now,
	})

	engagement := cand.Engagement().Clamp()
	post := &models.ScoredPost{
		TweetID:        id,
		CampaignID:     c.ID,
		UserID:         userID,
		AuthorHandle:   cand.AuthorHandle,
		AuthorName:     cand.AuthorName,
		Text:           cand.Text,
		Likes:          engagement.Likes,
		Retweets:       engagement.Retweets,
		Replies:        engagement.Replies,
		Quotes:         engagement.Quotes,
		Views:          cand.Views,
		MSP:            breakdown.Points,
		ContentType:    breakdown.ContentType,
		EarlyAmplifier: breakdown.EarlyAmplifier,
		PostedAt:       postedAt,
		TrackedAt:      now,
	}

	profile := *participant
	profile.Handle = cand.AuthorHandle
	if cand.AuthorName != "" {
		profile.DisplayName = cand.AuthorName
	}
	if cand.AvatarURL != "" {
		profile.AvatarURL = cand.AvatarURL
	}
	profile.UpdatedAt = now
	if profile.JoinedAt.IsZero() {
		profile.JoinedAt = now
	}

	err = t.store.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.UpsertParticipant(ctx, &profile); err != nil {
			return err
		}
		if err := tx.InsertScoredPost(ctx, post); err != nil {
			return err
		}
		return tx.IncrementParticipantTotals(ctx, c.ID, userID, breakdown.Points, 1)
	})
	if errors.Is(err, store.ErrDuplicate) {
		report.Duplicates++
		t.metrics.Post(c.ID, metrics.OutcomeDuplicate)
		plog.Debug("Post recorded concurrently, skipping")
		return false
	}
	if err != nil {
		t.fail(c, report, plog, fmt.Errorf("recording %s: %w", id, err))
		return false
	}

	report.New++
	report.PointsAwarded += breakdown.Points
	t.metrics.Post(c.ID, metrics.OutcomeNew)
	t.metrics.Points(c.ID, breakdown.Points, 0)
	plog.WithFields(logrus.Fields{
		"msp":          breakdown.Points,
		"content_type": breakdown.ContentType,
		"early":        breakdown.EarlyAmplifier,
	}).Info("Tracked new post")
	return true
}

// refresh awards the re-engagement bonus for a post observed again
func (t *Tracker) refresh(ctx context.Context, c campaign.Campaign, existing *models.ScoredPost, cand sources.CandidatePost, now time.Time, report *RunReport, log *logrus.Entry) bool {
	prev := existing.Engagement()
	// a stale mirror may lag on some counters; never lower the baseline
	curr := prev.Max(cand.Engagement())

	participant, err := t.store.FindParticipant(ctx, c.ID, existing.UserID)
	if errors.Is(err, store.ErrNotFound) {
		// left the campaign; the post stays but earns nothing more
		report.Duplicates++
		t.metrics.Post(c.ID, metrics.OutcomeDuplicate)
		return false
	}
	if err != nil {
		t.fail(c, report, log, fmt.Errorf("loading participant %s: %w", existing.UserID, err))
		return false
	}

	bonus := scoring.EngagementBonus(scoring.Input{
		FollowerCount: participant.FollowerCount,
		ProjectTag:    c.Tag,
		Text:          existing.Text,
		PostedAt:      existing.PostedAt,
		CampaignStart: c.StartAt,
		Tier:          scoring.Tier(participant.Tier),
		Now:           now,
	}, prev, curr)
	if bonus == 0 {
		report.Duplicates++
		t.metrics.Post(c.ID, metrics.OutcomeDuplicate)
		return false
	}

	err = t.store.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.UpdateEngagement(ctx, existing.TweetID, prev, curr, bonus, now); err != nil {
			return err
		}
		return tx.IncrementParticipantTotals(ctx, c.ID, existing.UserID, bonus, 0)
	})
	if errors.Is(err, store.ErrConflict) {
		report.Duplicates++
		t.metrics.Post(c.ID, metrics.OutcomeDuplicate)
		log.Debug("Engagement refreshed concurrently, skipping")
		return false
	}
	if err != nil {
		t.fail(c, report, log, fmt.Errorf("refreshing %s: %w", existing.TweetID, err))
		return false
	}

	report.Refreshed++
	report.BonusPoints += bonus
	t.metrics.Post(c.ID, metrics.OutcomeRefreshed)
	t.metrics.Points(c.ID, 0, bonus)
	log.WithField("bonus", bonus).Info("Awarded engagement bonus")
	return true
}

func (t *Tracker) participant(ctx context.Context, campaignID, userID, handle string) (*models.Participant, error) {
	p, err := t.store.FindParticipant(ctx, campaignID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &models.Participant{
			CampaignID: campaignID,
			UserID:     userID,
			Handle:     handle,
			Tier:       int(scoring.TierBronze),
		}, nil
	}
	return p, err
}

func (t *Tracker) fail(c campaign.Campaign, report *RunReport, log *logrus.Entry, err error) {
	report.Failed++
	report.addError("%v", err)
	t.metrics.Post(c.ID, metrics.OutcomeFailed)
	log.WithError(err).Error("Failed to process post")
}

// TrackAll runs every campaign with at most Config.Workers runs in flight and
// returns their reports in campaign order
func (t *Tracker) TrackAll(ctx context.Context, campaigns []campaign.Campaign) *BatchReport {
	batch := &BatchReport{
		StartedAt: t.now(),
		Runs:      make([]*RunReport, len(campaigns)),
	}

	t.mu.Lock()
	t.status = BatchStatus{Total: len(campaigns), StartTime: time.Now()}
	t.mu.Unlock()

	stop := make(chan struct{})
	go t.reportStatus(t.config.StatusInterval, stop)
	defer close(stop)

	g := new(errgroup.Group)
	g.SetLimit(t.config.Workers)
	for i, c := range campaigns {
		i, c := i, c
		g.Go(func() error {
			report := t.TrackCampaign(ctx, c)
			batch.Runs[i] = report

			t.mu.Lock()
			if report.OK() {
				t.status.Completed++
			} else {
				t.status.Failed++
			}
			t.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	batch.FinishedAt = t.now()
	newPosts, points := batch.Totals()
	t.logger.WithFields(logrus.Fields{
		"campaigns": len(campaigns),
		"new":       newPosts,
		"points":    points,
		"duration":  batch.FinishedAt.Sub(batch.StartedAt).String(),
	}).Info("Batch finished")
	return batch
}

// reportStatus logs batch progress until stop is closed
func (t *Tracker) reportStatus(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status := t.Status()
			t.logger.WithFields(logrus.Fields{
				"total":     status.Total,
				"completed": status.Completed,
				"failed":    status.Failed,
				"duration":  time.Since(status.StartTime).String(),
			}).Info("Tracker status update")
		case <-stop:
			return
		}
	}
}

// Status returns a copy of the current batch progress
func (t *Tracker) Status() BatchStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
