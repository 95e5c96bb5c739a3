// Package api exposes tracker runs and campaign reports over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/campaign"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/leaderboard"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/metrics"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/sources"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/store"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/tracker"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/velocity"
)

const (
	DefaultTopLimit = 10
	MaxTopLimit     = 100
)

// HealthSource reports cached mirror health
type HealthSource interface {
	Snapshot() []sources.EndpointHealth
}

type Deps struct {
	Tracker   *tracker.Tracker
	Campaigns []campaign.Campaign
	Health    HealthSource
	Metrics   *metrics.Metrics
	Logger    *logrus.Logger
	Now       func() time.Time
}

// Handler serves the report API
type Handler struct {
	tracker   *tracker.Tracker
	store     store.Store
	campaigns []campaign.Campaign
	health    HealthSource
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	now       func() time.Time
}

func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Handler{
		tracker:   deps.Tracker,
		store:     deps.Tracker.Store(),
		campaigns: deps.Campaigns,
		health:    deps.Health,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       deps.Now,
	}
}

// Router builds the gin engine with every route registered
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/healthz", h.Healthz)
	r.GET("/sources/health", h.SourcesHealth)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	campaigns := r.Group("/campaigns")
	{
		campaigns.GET("", h.ListCampaigns)
		campaigns.POST("/:id/track", h.Track)
		campaigns.GET("/:id/velocity", h.Velocity)
		campaigns.GET("/:id/top", h.TopPosts)
		campaigns.GET("/:id/leaderboard", h.Leaderboard)
		campaigns.GET("/:id/participants", h.ListParticipants)
		campaigns.PUT("/:id/participants/:user", h.Join)
		campaigns.DELETE("/:id/participants/:user", h.Leave)
	}
	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Handled request")
	}
}

// Healthz handles GET /healthz
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SourcesHealth handles GET /sources/health
func (h *Handler) SourcesHealth(c *gin.Context) {
	endpoints := []sources.EndpointHealth{}
	if h.health != nil {
		endpoints = h.health.Snapshot()
	}
	c.JSON(http.StatusOK, gin.H{"endpoints": endpoints})
}

// ListCampaigns handles GET /campaigns
func (h *Handler) ListCampaigns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"campaigns": h.campaigns})
}

// campaign resolves :id or writes a 404
func (h *Handler) campaign(c *gin.Context) (campaign.Campaign, bool) {
	found, ok := campaign.Find(h.campaigns, c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
	}
	return found, ok
}

// Track handles POST /campaigns/:id/track
func (h *Handler) Track(c *gin.Context) {
	camp, ok := h.campaign(c)
	if !ok {
		return
	}

	report := h.tracker.TrackCampaign(c.Request.Context(), camp)
	status := http.StatusOK
	switch report.Outcome() {
	case metrics.RunLocked:
		status = http.StatusConflict
	case metrics.RunUnavailable:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// Velocity handles GET /campaigns/:id/velocity
func (h *Handler) Velocity(c *gin.Context) {
	camp, ok := h.campaign(c)
	if !ok {
		return
	}
	posts, err := h.store.ListScoredPosts(c.Request.Context(), camp.ID)
	if err != nil {
		h.internalError(c, "Failed to list scored posts", err)
		return
	}
	c.JSON(http.StatusOK, velocity.Build(posts))
}

// TopPosts handles GET /campaigns/:id/top
func (h *Handler) TopPosts(c *gin.Context) {
	camp, ok := h.campaign(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultTopLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}

	posts, err := h.store.ListScoredPosts(c.Request.Context(), camp.ID)
	if err != nil {
		h.internalError(c, "Failed to list scored posts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": velocity.TopPosts(posts, limit)})
}

// Leaderboard handles GET /campaigns/:id/leaderboard
func (h *Handler) Leaderboard(c *gin.Context) {
	camp, ok := h.campaign(c)
	if !ok {
		return
	}
	period, err := leaderboard.ParsePeriod(c.Query("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	posts, err := h.store.ListScoredPosts(c.Request.Context(), camp.ID)
	if err != nil {
		h.internalError(c, "Failed to list scored posts", err)
		return
	}
	entries, err := leaderboard.Build(posts, h.now(), period)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period, "entries": entries})
}

// ListParticipants handles GET /campaigns/:id/participants
func (h *Handler) ListParticipants(c *gin.Context) {
	camp, ok := h.campaign(c)
	if !ok {
		return
	}
	participants, err := h.store.ListParticipants(c.Request.Context(), camp.ID)
	if err != nil {
		h.internalError(c, "Failed to list participants", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// Join handles PUT /campaigns/:id/participants/:user. Fields missing from the body
// keep their stored values.
func (h *Handler) Join(c *gin.Context) {
	camp, ok := h.campaign(c)
	if !ok {
		return
	}

	var profile tracker.Profile
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&profile); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid profile", "details": err.Error()})
			return
		}
	}
	profile.Handle = c.Param("user")

	participant, err := h.tracker.Join(c.Request.Context(), camp.ID, profile)
	if errors.Is(err, tracker.ErrInvalidProfile) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to enroll participant", err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

// Leave handles DELETE /campaigns/:id/participants/:user
func (h *Handler) Leave(c *gin.Context) {
	camp, ok := h.campaign(c)
	if !ok {
		return
	}
	err := h.tracker.Leave(c.Request.Context(), camp.ID, c.Param("user"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to remove participant", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.logger.WithError(err).WithField("path", c.FullPath()).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}
