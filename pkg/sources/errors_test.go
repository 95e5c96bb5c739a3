package sources_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/sources"
)

var _ = Describe("IsSourceError", func() {
	status := sources.NewSourceError(sources.ErrCodeHTTPStatus, "https://a.test", "Service Unavailable", nil)
	timeout := sources.NewSourceError(sources.ErrCodeTimeout, "https://b.test", "request timed out", context.DeadlineExceeded)

	It("matches a direct or wrapped error", func() {
		Expect(sources.IsSourceError(status, sources.ErrCodeHTTPStatus)).To(BeTrue())
		Expect(sources.IsSourceError(fmt.Errorf("fetching: %w", timeout), sources.ErrCodeTimeout)).To(BeTrue())
		Expect(sources.IsSourceError(timeout, sources.ErrCodeHTTPStatus)).To(BeFalse())
		Expect(sources.IsSourceError(errors.New("plain"), sources.ErrCodeTimeout)).To(BeFalse())
		Expect(sources.IsSourceError(nil, sources.ErrCodeTimeout)).To(BeFalse())
	})

	It("matches any attempt of an unavailable error, whatever its position", func() {
		err := error(&sources.UnavailableError{Attempts: []error{status, timeout}})

		Expect(sources.IsSourceError(err, sources.ErrCodeHTTPStatus)).To(BeTrue())
		Expect(sources.IsSourceError(err, sources.ErrCodeTimeout)).To(BeTrue())
		Expect(sources.IsSourceError(err, sources.ErrCodeParse)).To(BeFalse())
		Expect(sources.IsSourceError(fmt.Errorf("run: %w", err), sources.ErrCodeTimeout)).To(BeTrue())
	})
})
