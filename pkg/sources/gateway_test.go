package sources_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/sources"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/validity"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func slowServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
}

func pageServer(body string, status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

var _ = Describe("Gateway", func() {
	var (
		client  *sources.Client
		servers []*httptest.Server
		ctx     context.Context
	)

	newGateway := func(maxPosts int, endpoints ...string) *sources.Gateway {
		return sources.NewGateway(client, nil, sources.GatewayOptions{
			Endpoints:    endpoints,
			FetchTimeout: 100 * time.Millisecond,
			MaxPosts:     maxPosts,
			Filter:       validity.NewFilter(""),
		}, quietLogger())
	}

	serve := func(s *httptest.Server) string {
		servers = append(servers, s)
		return s.URL
	}

	BeforeEach(func() {
		ctx = context.Background()
		servers = nil
		client = sources.NewClient(&sources.Config{Logger: quietLogger()})
	})

	AfterEach(func() {
		for _, s := range servers {
			s.Close()
		}
	})

	It("fails over past endpoints that time out", func() {
		first := serve(slowServer())
		second := serve(slowServer())
		third := serve(pageServer("<html><body></body></html>", http.StatusOK))

		result, err := newGateway(50, first, second, third).FetchCandidates(ctx, "#acme")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Endpoint).To(Equal(third))
		Expect(result.Posts).To(BeEmpty())
		Expect(result.Attempts).To(Equal(3))
		Expect(result.Failures).To(HaveLen(2))
		for _, f := range result.Failures {
			Expect(sources.IsSourceError(f, sources.ErrCodeTimeout)).To(BeTrue(), f.Error())
		}
	})

	It("treats non-2xx responses as failures", func() {
		broken := serve(pageServer("oops", http.StatusBadGateway))
		ok := serve(pageServer("<html></html>", http.StatusOK))

		result, err := newGateway(50, broken, ok).FetchCandidates(ctx, "acme")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Endpoint).To(Equal(ok))
		Expect(sources.IsSourceError(result.Failures[0], sources.ErrCodeHTTPStatus)).To(BeTrue())
	})

	It("returns an UnavailableError when every endpoint fails", func() {
		a := serve(pageServer("down", http.StatusServiceUnavailable))
		b := serve(slowServer())

		result, err := newGateway(50, a, b).FetchCandidates(ctx, "acme")
		Expect(err).To(HaveOccurred())

		var unavailable *sources.UnavailableError
		Expect(errors.As(err, &unavailable)).To(BeTrue())
		Expect(unavailable.Attempts).To(HaveLen(2))
		Expect(result.Posts).To(BeEmpty())
		Expect(result.Endpoint).To(BeEmpty())
		Expect(sources.IsSourceError(err, sources.ErrCodeHTTPStatus)).To(BeTrue())
		Expect(sources.IsSourceError(err, sources.ErrCodeTimeout)).To(BeTrue())
	})

	It("reports a missing endpoint list as unavailable", func() {
		_, err := newGateway(50).FetchCandidates(ctx, "acme")
		Expect(sources.IsSourceError(err, sources.ErrCodeNoEndpoints)).To(BeTrue())
	})

	Context("with a populated timeline", func() {
		var endpoint string

		BeforeEach(func() {
			page, err := os.ReadFile("testdata/timeline.html")
			Expect(err).NotTo(HaveOccurred())
			endpoint = serve(pageServer(string(page), http.StatusOK))
		})

		It("keeps only posts carrying both tags", func() {
			result, err := newGateway(50, endpoint).FetchCandidates(ctx, "ACME")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Posts).To(HaveLen(2))
			Expect(result.Posts[0].AuthorHandle).To(Equal("alice"))
			Expect(result.Posts[1].AuthorHandle).To(Equal("carol"))
			for _, p := range result.Posts {
				Expect(p.Endpoint).To(Equal(endpoint))
			}
		})

		It("caps the number of posts", func() {
			result, err := newGateway(1, endpoint).FetchCandidates(ctx, "acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Posts).To(HaveLen(1))
		})

		It("routes through the health registry", func() {
			down := serve(pageServer("", http.StatusOK))
			registry := sources.NewHealthRegistry(&fakeProber{failing: map[string]bool{}}, sources.HealthOptions{Interval: time.Hour}, quietLogger())
			registry.Set(sources.EndpointHealth{Address: down, LastChecked: time.Now(), Healthy: false})
			registry.Set(sources.EndpointHealth{Address: endpoint, LastChecked: time.Now(), Healthy: true})

			gw := sources.NewGateway(client, registry, sources.GatewayOptions{
				Endpoints: []string{down, endpoint},
			}, quietLogger())
			result, err := gw.FetchCandidates(ctx, "acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Endpoint).To(Equal(endpoint))
			Expect(result.Attempts).To(Equal(1))
		})
	})

	It("builds search URLs for both tags", func() {
		Expect(sources.SearchURL("https://mirror.example/", "#MindShare", "acme")).
			To(Equal("https://mirror.example/search?f=tweets&q=%23mindshare+%23acme"))
	})
})

var _ = Describe("Failover", func() {
	It("stops at the first success without merging", func() {
		var tried []string
		result, err := sources.Failover{Endpoints: []string{"a", "b", "c"}}.Run(context.Background(),
			func(_ context.Context, endpoint string) ([]sources.CandidatePost, error) {
				tried = append(tried, endpoint)
				if endpoint == "a" {
					return nil, sources.NewSourceError(sources.ErrCodeTransport, endpoint, "refused", nil)
				}
				return []sources.CandidatePost{{ID: endpoint}}, nil
			})
		Expect(err).NotTo(HaveOccurred())
		Expect(tried).To(Equal([]string{"a", "b"}))
		Expect(result.Endpoint).To(Equal("b"))
		Expect(result.Posts).To(HaveLen(1))
	})

	It("stops trying once the context is canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := sources.Failover{Endpoints: []string{"a", "b"}}.Run(ctx,
			func(_ context.Context, endpoint string) ([]sources.CandidatePost, error) {
				calls++
				cancel()
				return nil, sources.NewSourceError(sources.ErrCodeCanceled, endpoint, "canceled", context.Canceled)
			})
		Expect(err).To(HaveOccurred())
		Expect(calls).To(Equal(1))
	})
})

var _ = Describe("Config", func() {
	valid := func() *sources.Config {
		return &sources.Config{
			Endpoints:        []string{"https://mirror.example"},
			FetchTimeout:     time.Second,
			ProbeTimeout:     time.Second,
			HealthInterval:   time.Minute,
			FailureThreshold: 3,
			MaxPosts:         50,
			Logger:           quietLogger(),
		}
	}

	It("accepts a complete config", func() {
		Expect(valid().Validate()).To(Succeed())
	})

	DescribeTable("rejects invalid settings",
		func(mutate func(*sources.Config)) {
			c := valid()
			mutate(c)
			Expect(c.Validate()).NotTo(Succeed())
		},
		Entry("no endpoints", func(c *sources.Config) { c.Endpoints = nil }),
		Entry("zero fetch timeout", func(c *sources.Config) { c.FetchTimeout = 0 }),
		Entry("zero health interval", func(c *sources.Config) { c.HealthInterval = 0 }),
		Entry("zero threshold", func(c *sources.Config) { c.FailureThreshold = 0 }),
		Entry("zero max posts", func(c *sources.Config) { c.MaxPosts = 0 }),
		Entry("negative budget", func(c *sources.Config) { c.RequestsPerMinute = -1 }),
		Entry("no logger", func(c *sources.Config) { c.Logger = nil }),
	)

	It("reads mirrors from the environment", func() {
		GinkgoT().Setenv("MIRROR_ENDPOINTS", " https://a.example/, ,https://b.example ")
		GinkgoT().Setenv("MIRROR_FAILURE_THRESHOLD", "5")
		GinkgoT().Setenv("MIRROR_FETCH_TIMEOUT", "bogus")

		c, err := sources.NewConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Endpoints).To(Equal([]string{"https://a.example", "https://b.example"}))
		Expect(c.FailureThreshold).To(Equal(5))
		Expect(c.FetchTimeout).To(Equal(sources.DefaultFetchTimeout))
	})
})
