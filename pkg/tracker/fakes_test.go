package tracker_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/db/models"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/sources"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/store"
)

type fakeSource struct {
	mu    sync.Mutex
	posts map[string][]sources.CandidatePost
	err   error
	calls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{posts: map[string][]sources.CandidatePost{}}
}

func (f *fakeSource) set(tag string, posts ...sources.CandidatePost) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[tag] = posts
}

func (f *fakeSource) FetchCandidates(_ context.Context, tag string) (*sources.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return &sources.FetchResult{}, f.err
	}
	posts := append([]sources.CandidatePost(nil), f.posts[tag]...)
	return &sources.FetchResult{Endpoint: "https://mirror.test", Posts: posts, Attempts: 1}, nil
}

var errFlaky = errors.New("connection reset by peer")

// flakyStore fails inserts of one identifier
type flakyStore struct {
	store.Store
	failID string
}

func (f *flakyStore) InsertScoredPost(ctx context.Context, post *models.ScoredPost) error {
	if post.TweetID == f.failID {
		return errFlaky
	}
	return f.Store.InsertScoredPost(ctx, post)
}

func (f *flakyStore) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.WithinTx(ctx, func(tx store.Store) error {
		return fn(&flakyStore{Store: tx, failID: f.failID})
	})
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
