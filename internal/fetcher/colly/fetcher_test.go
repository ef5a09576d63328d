package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/adfiller/internal/fetcher"
)

type stubShaper struct {
	base string
	ua   string
}

func (s stubShaper) URL(id int64) string { return fmt.Sprintf("%s/autos/carros/%d.html", s.base, id) }
func (s stubShaper) UserAgent() string  { return s.ua }

type countingLimiter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (l *countingLimiter) Wait(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.err
}

func TestFetchReturnsBodyAndSendsUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("<html>ad</html>"))
	}))
	defer srv.Close()

	limiter := &countingLimiter{}
	f, err := New(Config{Timeout: time.Second}, stubShaper{base: srv.URL, ua: "Opera/9.80"}, limiter, nil)
	require.NoError(t, err)

	body, err := f.Fetch(context.Background(), 41925759)
	require.NoError(t, err)
	require.Equal(t, "<html>ad</html>", string(body))
	require.Equal(t, "Opera/9.80", gotUA)
	require.Equal(t, "/autos/carros/41925759.html", gotPath)
	require.Equal(t, 1, limiter.calls)
}

func TestFetchAllowsRevisits(t *testing.T) {
	t.Parallel()

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f, err := New(Config{}, stubShaper{base: srv.URL, ua: "ua"}, nil, nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), 7)
		require.NoError(t, err)
	}
	require.Equal(t, 3, hits)
}

func TestFetchNonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f, err := New(Config{}, stubShaper{base: srv.URL, ua: "ua"}, nil, nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), 1)
	require.ErrorIs(t, err, fetcher.ErrStatus)
	var statusErr *fetcher.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
}

func TestFetchLimiterError(t *testing.T) {
	t.Parallel()

	limiter := &countingLimiter{err: errors.New("paced out")}
	f, err := New(Config{}, stubShaper{base: "http://127.0.0.1:1", ua: "ua"}, limiter, nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), 1)
	require.EqualError(t, err, "paced out")
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()
	defer close(release)

	f, err := New(Config{Timeout: 5 * time.Second}, stubShaper{base: srv.URL, ua: "ua"}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRequiresShaper(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil, nil, nil)
	require.Error(t, err)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f, err := New(Config{}, stubShaper{base: "http://example.test", ua: "ua"}, nil, nil)
	require.NoError(t, err)

	var body []byte
	var fetchErr error
	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, &body, &fetchErr)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	hooks.onResponse(&colly.Response{StatusCode: http.StatusOK, Body: []byte("body")})
	require.Equal(t, "body", string(body))
	require.NoError(t, fetchErr)

	hooks.onError(&colly.Response{StatusCode: http.StatusNotFound}, errors.New("Not Found"))
	require.ErrorIs(t, fetchErr, fetcher.ErrStatus)

	hooks.onError(nil, errors.New("boom"))
	require.EqualError(t, fetchErr, "boom")
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
