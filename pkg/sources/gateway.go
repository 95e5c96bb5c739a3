package sources

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/validity"
	"github.com/sirupsen/logrus"
)

// SearchPath is the mirror route that serves tweet search results
const SearchPath = "/search"

// Gateway produces hashtag-valid candidate posts for a campaign tag from the
// healthiest reachable mirror.
type Gateway struct {
	fetcher      Fetcher
	registry     *HealthRegistry
	parser       Parser
	filter       validity.Filter
	endpoints    []string
	fetchTimeout time.Duration
	maxPosts     int
	logger       *logrus.Logger
}

// GatewayOptions are the collaborators and limits of a Gateway
type GatewayOptions struct {
	Endpoints    []string
	FetchTimeout time.Duration
	MaxPosts     int
	Filter       validity.Filter
	// Parser defaults to NitterParser
	Parser Parser
}

// NewGateway creates a Gateway over fetcher, routing with registry
func NewGateway(fetcher Fetcher, registry *HealthRegistry, opts GatewayOptions, logger *logrus.Logger) *Gateway {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.MaxPosts <= 0 {
		opts.MaxPosts = DefaultMaxPosts
	}
	if opts.Parser == nil {
		opts.Parser = NitterParser{}
	}
	if opts.Filter.PrimaryTag == "" {
		opts.Filter = validity.NewFilter("")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Gateway{
		fetcher:      fetcher,
		registry:     registry,
		parser:       opts.Parser,
		filter:       opts.Filter,
		endpoints:    opts.Endpoints,
		fetchTimeout: opts.FetchTimeout,
		maxPosts:     opts.MaxPosts,
		logger:       logger,
	}
}

// NewGatewayFromConfig wires a Client, HTTPProber and HealthRegistry from config
func NewGatewayFromConfig(config *Config, filter validity.Filter) (*Gateway, *HealthRegistry) {
	client := NewClient(config)
	registry := NewHealthRegistry(HTTPProber{Fetcher: client}, HealthOptions{
		Interval:         config.HealthInterval,
		ProbeTimeout:     config.ProbeTimeout,
		FailureThreshold: config.FailureThreshold,
	}, config.Logger)
	gw := NewGateway(client, registry, GatewayOptions{
		Endpoints:    config.Endpoints,
		FetchTimeout: config.FetchTimeout,
		MaxPosts:     config.MaxPosts,
		Filter:       filter,
	}, config.Logger)
	return gw, registry
}

// Registry returns the health registry the gateway routes with
func (g *Gateway) Registry() *HealthRegistry {
	return g.registry
}

// FetchCandidates returns posts carrying both the primary tag and campaignTag from
// the first endpoint, in health order, that answers with a parseable page. When
// every endpoint fails it returns an empty result and an *UnavailableError.
func (g *Gateway) FetchCandidates(ctx context.Context, campaignTag string) (*FetchResult, error) {
	order := g.endpoints
	if g.registry != nil {
		order = g.registry.Ordered(ctx, g.endpoints)
	}

	log := g.logger.WithFields(logrus.Fields{
		"campaign_tag": campaignTag,
		"endpoints":    order,
	})
	log.Debug("Fetching candidate posts")

	result, err := Failover{Endpoints: order}.Run(ctx, func(ctx context.Context, endpoint string) ([]CandidatePost, error) {
		return g.fetchFrom(ctx, endpoint, campaignTag)
	})
	if err != nil {
		log.WithError(err).Warn("All mirrors failed")
		return result, err
	}

	log.WithFields(logrus.Fields{
		"endpoint": result.Endpoint,
		"posts":    len(result.Posts),
		"attempts": result.Attempts,
	}).Info("Fetched candidate posts")
	return result, nil
}

func (g *Gateway) fetchFrom(ctx context.Context, endpoint, campaignTag string) ([]CandidatePost, error) {
	ctx, cancel := context.WithTimeout(ctx, g.fetchTimeout)
	defer cancel()

	body, status, err := g.fetcher.Fetch(ctx, SearchURL(endpoint, g.filter.PrimaryTag, campaignTag))
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		se := NewSourceError(ErrCodeHTTPStatus, endpoint, http.StatusText(status), nil)
		se.StatusCode = status
		return nil, se
	}

	parsed, err := ParsePage(bytes.NewReader(body), g.parser, 0)
	if err != nil {
		return nil, NewSourceError(ErrCodeParse, endpoint, "unparseable response", err)
	}

	posts := make([]CandidatePost, 0, len(parsed))
	for _, p := range parsed {
		if !g.filter.Accepts(p.Text, campaignTag) {
			continue
		}
		p.Endpoint = endpoint
		posts = append(posts, p)
		if len(posts) >= g.maxPosts {
			break
		}
	}
	return posts, nil
}

// SearchURL builds the mirror search URL for posts carrying both tags
func SearchURL(endpoint, primaryTag, campaignTag string) string {
	q := url.Values{}
	q.Set("f", "tweets")
	q.Set("q", validity.NormalizeTag(primaryTag)+" "+validity.NormalizeTag(campaignTag))
	return strings.TrimRight(endpoint, "/") + SearchPath + "?" + q.Encode()
}
