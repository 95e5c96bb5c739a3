package sources

import (
	"context"
	"errors"
)

// Attempt fetches candidate posts from a single endpoint
type Attempt func(ctx context.Context, endpoint string) ([]CandidatePost, error)

// Failover tries endpoints strictly in order and stops at the first attempt that
// returns without error. Results are never merged across endpoints.
type Failover struct {
	Endpoints []string
}

// Run executes attempt against each endpoint until one succeeds. If all fail, the
// returned error is an *UnavailableError carrying every attempt's error.
func (f Failover) Run(ctx context.Context, attempt Attempt) (*FetchResult, error) {
	if len(f.Endpoints) == 0 {
		return &FetchResult{}, &UnavailableError{Attempts: []error{
			NewSourceError(ErrCodeNoEndpoints, "", "no mirror endpoints configured", nil),
		}}
	}

	result := &FetchResult{}
	for _, endpoint := range f.Endpoints {
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, NewSourceError(ErrCodeCanceled, endpoint, "fetch canceled", err))
			break
		}

		result.Attempts++
		posts, err := attempt(ctx, endpoint)
		if err != nil {
			result.Failures = append(result.Failures, err)
			if errors.Is(err, context.Canceled) {
				break
			}
			continue
		}

		result.Endpoint = endpoint
		result.Posts = posts
		return result, nil
	}

	return &FetchResult{Attempts: result.Attempts, Failures: result.Failures}, &UnavailableError{Attempts: result.Failures}
}
