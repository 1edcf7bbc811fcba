package stages

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/podcast-agent/internal/llm"
	"github.com/jonathan/podcast-agent/internal/logging"
	"github.com/jonathan/podcast-agent/internal/types"
)

var quiet = logging.Discard()

func jsonResp(t *testing.T, raw string) *llm.Response {
	t.Helper()
	resp, err := llm.DecodeResponse([]byte(raw))
	require.NoError(t, err)
	return resp
}

type result struct {
	resp *llm.Response
	err  error
}

// script returns queued results in order and repeats the last one when exhausted
type script struct {
	mu      sync.Mutex
	results []result
	calls   int
}

func (s *script) next() (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i].resp, s.results[i].err
}

type fakeImage struct {
	script
	requests []llm.ImageRequest
	block    bool
}

func (f *fakeImage) GenerateImages(ctx context.Context, req llm.ImageRequest) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.next()
}

type fakeText struct {
	script
	requests []llm.TextRequest
}

func (f *fakeText) GenerateText(_ context.Context, req llm.TextRequest) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	return f.next()
}

// fakeClock advances only when Sleep is called
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

type fakeVideo struct {
	clock *fakeClock

	submit     script
	operations script
	requests   []llm.VideoRequest
	queries    []time.Time
	downloads  []string
	onQuery    func()
	// hang blocks status queries until their context ends
	hang bool

	downloadData []byte
	downloadMIME string
	downloadErr  error
}

func (f *fakeVideo) SubmitVideo(_ context.Context, req llm.VideoRequest) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	return f.submit.next()
}

func (f *fakeVideo) GetOperation(ctx context.Context, handle string) (*llm.Response, error) {
	f.queries = append(f.queries, f.clock.Now())
	if f.onQuery != nil {
		f.onQuery()
	}
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.operations.next()
}

func (f *fakeVideo) Download(_ context.Context, uri string) ([]byte, string, error) {
	f.downloads = append(f.downloads, uri)
	return f.downloadData, f.downloadMIME, f.downloadErr
}

func transientErr() error {
	return &types.Error{Kind: types.KindTransient, Message: "connection reset"}
}
