// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package cachedclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/saasctl/internal/apiclient"
	"github.com/staranto/saasctl/internal/strategy"
	"github.com/staranto/saasctl/internal/tier"
	"github.com/staranto/saasctl/internal/ttlstore"
)

var errBoom = errors.New("boom")

// fakeClient counts calls per "METHOD url" and answers with a payload that
// embeds the call number, so a refetch is distinguishable from a cache hit.
type fakeClient struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error

	// gate, when set, blocks every call until it is closed.
	gate chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		calls: map[string]int{},
		fail:  map[string]error{},
	}
}

func (c *fakeClient) failNext(method, url string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[method+" "+url] = err
}

func (c *fakeClient) count(method, url string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method+" "+url]
}

func (c *fakeClient) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *fakeClient) record(method, url string) (json.RawMessage, error) {
	c.mu.Lock()
	id := method + " " + url
	c.calls[id]++
	n := c.calls[id]
	err, failing := c.fail[id]
	delete(c.fail, id)
	gate := c.gate
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if failing {
		return nil, err
	}
	return json.RawMessage(fmt.Sprintf(`{"url":%q,"n":%d}`, url, n)), nil
}

func (c *fakeClient) Get(_ context.Context, url string, _ *apiclient.RequestConfig) (json.RawMessage, error) {
	return c.record("GET", url)
}

func (c *fakeClient) Post(_ context.Context, url string, _ any, _ *apiclient.RequestConfig) (json.RawMessage, error) {
	return c.record("POST", url)
}

func (c *fakeClient) Put(_ context.Context, url string, _ any, _ *apiclient.RequestConfig) (json.RawMessage, error) {
	return c.record("PUT", url)
}

func (c *fakeClient) Patch(_ context.Context, url string, _ any, _ *apiclient.RequestConfig) (json.RawMessage, error) {
	return c.record("PATCH", url)
}

func (c *fakeClient) Delete(_ context.Context, url string, _ *apiclient.RequestConfig) (json.RawMessage, error) {
	return c.record("DELETE", url)
}

func (c *fakeClient) Upload(_ context.Context, url string, _ *apiclient.FormData, _ *apiclient.RequestConfig) (json.RawMessage, error) {
	return c.record("UPLOAD", url)
}

func newTestFacade(t *testing.T, opts ...Option) (*Facade, *fakeClient, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	reg, err := tier.NewRegistry(tier.WithStoreOptions(ttlstore.WithClock(mock)))
	require.NoError(t, err)

	fc := newFakeClient()
	f := New(fc, reg, opts...)
	t.Cleanup(f.Close)

	return f, fc, mock
}

const (
	companiesURL = "/api/super-admin/companies"
	settingsURL  = "/api/super-admin/settings"
	plansURL     = "/api/super-admin/subscription-plans"
	dashboardURL = "/api/super-admin/dashboard/stats"
)

func TestGet_ReadThroughIsIdempotent(t *testing.T) {
	f, fc, _ := newTestFacade(t)
	ctx := context.Background()

	first, err := f.Get(ctx, companiesURL, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := f.Get(ctx, companiesURL, nil)
		require.NoError(t, err)
		assert.JSONEq(t, string(first), string(again))
	}
	assert.Equal(t, 1, fc.count("GET", companiesURL))
	assert.Equal(t, 1, f.GetCacheStats()[tier.Medium].Total)
}

func TestGet_CallerCannotCorruptCache(t *testing.T) {
	f, fc, _ := newTestFacade(t)
	ctx := context.Background()

	miss, err := f.Get(ctx, companiesURL, nil)
	require.NoError(t, err)
	want := string(miss)
	miss[2] = 'X'

	hit, err := f.Get(ctx, companiesURL, nil)
	require.NoError(t, err)
	assert.Equal(t, want, string(hit))
	hit[2] = 'Y'

	again, err := f.Get(ctx, companiesURL, nil)
	require.NoError(t, err)
	assert.Equal(t, want, string(again))
	assert.Equal(t, 1, fc.count("GET", companiesURL))
}

func TestGet_UnmatchedURLIsNeverCached(t *testing.T) {
	f, fc, _ := newTestFacade(t)
	ctx := context.Background()

	for _, url := range []string{"/api/super-admin/audit-log", "/api/auth/me", "/api/super-admin/notifications"} {
		for i := 0; i < 3; i++ {
			_, err := f.Get(ctx, url, nil)
			require.NoError(t, err)
		}
		assert.Equal(t, 3, fc.count("GET", url), url)
	}
	assert.Equal(t, 9, fc.total())

	for n, st := range f.GetCacheStats() {
		assert.Equal(t, 0, st.Total, string(n))
	}
}

func TestGet_FailedReadIsNotCached(t *testing.T) {
	f, fc, _ := newTestFacade(t)
	ctx := context.Background()

	fc.failNext("GET", settingsURL, errBoom)
	got, err := f.Get(ctx, settingsURL, nil)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, f.GetCacheStats()[tier.Long].Total)

	_, err = f.Get(ctx, settingsURL, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.count("GET", settingsURL))
}

func TestGet_ErrorsPassThroughUnchanged(t *testing.T) {
	f, fc, _ := newTestFacade(t)

	httpErr := &apiclient.HTTPError{Method: "GET", URL: companiesURL, StatusCode: 503}
	fc.failNext("GET", companiesURL, httpErr)

	_, err := f.Get(context.Background(), companiesURL, nil)
	assert.Same(t, httpErr, err)
}

// A /plans read resolves to LONG with a 15 minute override. It is served from
// cache through minute 15 and refetched afterwards.
func TestGet_PlansFifteenMinuteScenario(t *testing.T) {
	f, fc, mock := newTestFacade(t)
	ctx := context.Background()

	s := f.Resolver().Resolve("/plans")
	require.Equal(t, tier.Long, s.Tier)
	require.Equal(t, 15*time.Minute, s.TTL)

	_, err := f.Get(ctx, "/plans", nil)
	require.NoError(t, err)

	mock.Add(14 * time.Minute)
	got, err := f.Get(ctx, "/plans", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"/plans","n":1}`, string(got))
	assert.Equal(t, 1, fc.count("GET", "/plans"))

	mock.Add(2 * time.Minute)
	got, err = f.Get(ctx, "/plans", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"/plans","n":2}`, string(got))
	assert.Equal(t, 2, fc.count("GET", "/plans"))
}

func TestGet_TierDefaultTTL(t *testing.T) {
	f, fc, mock := newTestFacade(t)
	ctx := context.Background()

	_, err := f.Get(ctx, dashboardURL, nil)
	require.NoError(t, err)

	mock.Add(30 * time.Second)
	_, err = f.Get(ctx, dashboardURL, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fc.count("GET", dashboardURL))

	mock.Add(time.Second)
	_, err = f.Get(ctx, dashboardURL, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.count("GET", dashboardURL))
}

// Invalidation only drops the aggregate list key. Detail keys and unrelated
// resources stay cached.
func TestMutation_InvalidationIsCoarse(t *testing.T) {
	f, fc, _ := newTestFacade(t)
	ctx := context.Background()

	detailURL := companiesURL + "/42"
	for _, url := range []string{companiesURL, detailURL, settingsURL} {
		_, err := f.Get(ctx, url, nil)
		require.NoError(t, err)
	}

	_, err := f.Post(ctx, companiesURL, map[string]string{"name": "Acme"}, nil)
	require.NoError(t, err)

	for _, url := range []string{companiesURL, detailURL, settingsURL} {
		_, err := f.Get(ctx, url, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, fc.count("GET", companiesURL))
	assert.Equal(t, 1, fc.count("GET", detailURL))
	assert.Equal(t, 1, fc.count("GET", settingsURL))
}

func TestMutation_EveryVerbInvalidates(t *testing.T) {
	tests := []struct {
		name    string
		listURL string
		mutate  func(ctx context.Context, f *Facade) error
	}{
		{"put", companiesURL, func(ctx context.Context, f *Facade) error {
			_, err := f.Put(ctx, companiesURL+"/1", map[string]int{"seats": 5}, nil)
			return err
		}},
		{"patch", settingsURL, func(ctx context.Context, f *Facade) error {
			_, err := f.Patch(ctx, settingsURL, map[string]bool{"maintenance": true}, nil)
			return err
		}},
		{"delete", "/api/super-admin/employees", func(ctx context.Context, f *Facade) error {
			_, err := f.Delete(ctx, "/api/super-admin/employees/7", nil)
			return err
		}},
		{"upload", plansURL, func(ctx context.Context, f *Facade) error {
			_, err := f.Upload(ctx, plansURL+"/import", &apiclient.FormData{}, nil)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, fc, _ := newTestFacade(t)
			ctx := context.Background()

			_, err := f.Get(ctx, tt.listURL, nil)
			require.NoError(t, err)
			require.NoError(t, tt.mutate(ctx, f))
			_, err = f.Get(ctx, tt.listURL, nil)
			require.NoError(t, err)

			assert.Equal(t, 2, fc.count("GET", tt.listURL))
		})
	}
}

func TestMutation_AllMatchingRulesFire(t *testing.T) {
	f, fc, _ := newTestFacade(t)
	ctx := context.Background()

	usersURL := "/api/super-admin/users"
	for _, url := range []string{companiesURL, usersURL} {
		_, err := f.Get(ctx, url, nil)
		require.NoError(t, err)
	}

	_, err := f.Post(ctx, companiesURL+"/3/users", map[string]string{"email": "a@b.c"}, nil)
	require.NoError(t, err)

	for _, url := range []string{companiesURL, usersURL} {
		_, err := f.Get(ctx, url, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, fc.count("GET", url), url)
	}
}

func TestInvalidate_CountsRemovedKeys(t *testing.T) {
	f, _, _ := newTestFacade(t)
	ctx := context.Background()

	for _, url := range []string{companiesURL, "/api/super-admin/users", dashboardURL} {
		_, err := f.Get(ctx, url, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, f.invalidate(companiesURL+"/3/users"))
	assert.Equal(t, 0, f.invalidate(companiesURL+"/3/users"))
	assert.Equal(t, 1, f.invalidate("/api/super-admin/dashboard/widgets"))
	assert.Equal(t, 0, f.invalidate("/api/super-admin/audit-log"))
}

func TestMutation_FailureSkipsInvalidation(t *testing.T) {
	f, fc, _ := newTestFacade(t)
	ctx := context.Background()

	_, err := f.Get(ctx, companiesURL, nil)
	require.NoError(t, err)

	fc.failNext("POST", companiesURL, errBoom)
	got, err := f.Post(ctx, companiesURL, map[string]string{"name": "Acme"}, nil)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, errBoom)

	_, err = f.Get(ctx, companiesURL, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fc.count("GET", companiesURL))
}

func TestMutation_ResultIsNotCached(t *testing.T) {
	f, fc, _ := newTestFacade(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.Post(ctx, settingsURL, map[string]string{"k": "v"}, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fc.count("POST", settingsURL))
	assert.Equal(t, 0, f.GetCacheStats()[tier.Long].Total)
}

// InvalidateCache removes nothing. Callers relying on it get stale reads
// until the TTL runs out.
func TestInvalidateCache_IsANoOp(t *testing.T) {
	f, fc, _ := newTestFacade(t)
	ctx := context.Background()

	_, err := f.Get(ctx, companiesURL, nil)
	require.NoError(t, err)

	for _, pattern := range []string{"companies", companiesURL, "*", ""} {
		f.InvalidateCache(pattern)
	}

	_, err = f.Get(ctx, companiesURL, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fc.count("GET", companiesURL))
	assert.Equal(t, 1, f.GetCacheStats()[tier.Medium].Total)
}

func TestClearAllCaches(t *testing.T) {
	f, fc, _ := newTestFacade(t)
	ctx := context.Background()

	urls := map[tier.Name]string{
		tier.Short:  dashboardURL,
		tier.Medium: companiesURL,
		tier.Long:   settingsURL,
		tier.Static: "/api/meta/countries",
	}
	for _, url := range urls {
		_, err := f.Get(ctx, url, nil)
		require.NoError(t, err)
	}

	stats := f.GetCacheStats()
	for _, n := range tier.Names() {
		assert.Equal(t, 1, stats[n].Total, string(n))
	}

	f.ClearAllCaches()

	stats = f.GetCacheStats()
	for _, n := range tier.Names() {
		assert.Equal(t, ttlstore.Stats{MaxSize: stats[n].MaxSize}, stats[n], string(n))
	}

	for _, url := range urls {
		_, err := f.Get(ctx, url, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, fc.count("GET", url), url)
	}
}

func TestPreloadData_WarmsLongTier(t *testing.T) {
	f, fc, _ := newTestFacade(t)
	ctx := context.Background()

	f.PreloadData(ctx)
	assert.Equal(t, 2, f.GetCacheStats()[tier.Long].Total)

	_, err := f.Get(ctx, plansURL, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fc.count("GET", plansURL))
}

func TestPreloadData_SwallowsErrors(t *testing.T) {
	f, fc, _ := newTestFacade(t)

	fc.failNext("GET", plansURL, errBoom)
	assert.NotPanics(t, func() { f.PreloadData(context.Background()) })

	assert.Equal(t, 1, fc.count("GET", plansURL))
	assert.Equal(t, 1, fc.count("GET", settingsURL))
	assert.Equal(t, 1, f.GetCacheStats()[tier.Long].Total)
}

func TestCacheDisabled(t *testing.T) {
	f, fc, _ := newTestFacade(t, WithCacheDisabled(true))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.Get(ctx, companiesURL, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fc.count("GET", companiesURL))
}

func TestWithTable(t *testing.T) {
	f, fc, _ := newTestFacade(t, WithTable([]strategy.Policy{
		{URLSubstring: "/audit-log", Tier: tier.Short},
	}))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.Get(ctx, "/api/super-admin/audit-log", nil)
		require.NoError(t, err)
		_, err = f.Get(ctx, companiesURL, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fc.count("GET", "/api/super-admin/audit-log"))
	assert.Equal(t, 2, fc.count("GET", companiesURL))
}

// Without single-flight, readers that miss at the same time each go to the
// network.
func TestGet_ConcurrentColdReadsAreNotDeduplicated(t *testing.T) {
	f, fc, _ := newTestFacade(t)
	fc.gate = make(chan struct{})

	const readers = 4
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Get(context.Background(), companiesURL, nil)
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool {
		return fc.count("GET", companiesURL) == readers
	}, time.Second, 5*time.Millisecond)
	close(fc.gate)
	wg.Wait()

	assert.Equal(t, readers, fc.count("GET", companiesURL))
	assert.Equal(t, 1, f.GetCacheStats()[tier.Medium].Total)
}

func TestGet_SingleFlightDeduplicates(t *testing.T) {
	f, fc, _ := newTestFacade(t, WithSingleFlight())
	fc.gate = make(chan struct{})

	const readers = 4
	var wg sync.WaitGroup
	results := make([]json.RawMessage, readers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		data, err := f.Get(context.Background(), companiesURL, nil)
		assert.NoError(t, err)
		results[0] = data
	}()
	require.Eventually(t, func() bool {
		return fc.count("GET", companiesURL) == 1
	}, time.Second, 5*time.Millisecond)

	for i := 1; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := f.Get(context.Background(), companiesURL, nil)
			assert.NoError(t, err)
			results[i] = data
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(fc.gate)
	wg.Wait()

	assert.Equal(t, 1, fc.count("GET", companiesURL))
	for _, r := range results {
		assert.JSONEq(t, string(results[0]), string(r))
	}
}

type company struct {
	URL string `json:"url"`
	N   int    `json:"n"`
}

func TestTypedHelpers(t *testing.T) {
	f, _, _ := newTestFacade(t)
	ctx := context.Background()

	c, err := GetAs[company](ctx, f, companiesURL, nil)
	require.NoError(t, err)
	assert.Equal(t, company{URL: companiesURL, N: 1}, c)

	c, err = PatchAs[company](ctx, f, companiesURL+"/1", map[string]string{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.N)

	_, err = GetAs[[]company](ctx, f, settingsURL, nil)
	assert.ErrorContains(t, err, "failed to decode")
}

func TestTypedHelpers_PropagateErrors(t *testing.T) {
	f, fc, _ := newTestFacade(t)

	fc.failNext("DELETE", companiesURL+"/1", errBoom)
	_, err := DeleteAs[company](context.Background(), f, companiesURL+"/1", nil)
	assert.ErrorIs(t, err, errBoom)
}

func TestDecode_EmptyPayload(t *testing.T) {
	got, err := decode[company](nil, nil)
	require.NoError(t, err)
	assert.Equal(t, company{}, got)
}
