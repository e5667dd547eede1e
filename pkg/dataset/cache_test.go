package dataset_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/fieldbot/internal/testutils"
	"github.com/aretw0/fieldbot/pkg/adapters/memory"
	"github.com/aretw0/fieldbot/pkg/dataset"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_LazyLoadOnce(t *testing.T) {
	src := memory.NewSource(testutils.Workbook(t, []string{"Site", "IP"}, []string{"HN01", "10.0.0.1"}))
	cache := dataset.NewCache(src)
	ctx := context.Background()

	assert.Nil(t, cache.Current(), "cache starts empty")
	assert.Equal(t, 0, src.Calls(), "no fetch before first use")

	snap, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Site", "IP"}, snap.Columns)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "memory://memory", snap.Source)

	again, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, snap, again, "held snapshot is served without refetching")
	assert.Equal(t, 1, src.Calls())
}

func TestCache_FailureLeavesCacheEmpty(t *testing.T) {
	src := memory.NewSource(nil)
	src.Fail(errors.New("network down"))
	cache := dataset.NewCache(src)

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Nil(t, cache.Current())

	// Next call retries because nothing is cached.
	src.Set(testutils.Workbook(t, []string{"Site"}, []string{"A"}))
	snap, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
}

func TestCache_ReloadFailureKeepsPrevious(t *testing.T) {
	src := memory.NewSource(testutils.Workbook(t, []string{"Site"}, []string{"A"}))
	cache := dataset.NewCache(src)
	ctx := context.Background()

	first, err := cache.Get(ctx)
	require.NoError(t, err)

	src.Set([]byte("not a workbook"))
	_, err = cache.Reload(ctx)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Same(t, first, cache.Current())

	src.Set(testutils.Workbook(t, []string{"Site"}, []string{"A"}, []string{"B"}))
	second, err := cache.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Len())
	assert.Same(t, second, cache.Current())
}

// blockingSource counts fetches and waits on a gate so concurrent callers overlap.
type blockingSource struct {
	data  []byte
	gate  chan struct{}
	calls atomic.Int32
}

func (b *blockingSource) Fetch(ctx context.Context) ([]byte, error) {
	b.calls.Add(1)
	<-b.gate
	return b.data, nil
}

func (b *blockingSource) Location() string { return "blocking" }

func TestCache_ConcurrentLoadsCoalesce(t *testing.T) {
	src := &blockingSource{
		data: testutils.Workbook(t, []string{"Site"}, []string{"A"}),
		gate: make(chan struct{}),
	}
	cache := dataset.NewCache(src)

	var wg sync.WaitGroup
	snaps := make([]*domain.Snapshot, 10)
	for i := range snaps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := cache.Get(context.Background())
			assert.NoError(t, err)
			snaps[i] = s
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, s := range snaps {
		assert.Same(t, snaps[0], s)
	}
}

func TestCache_ReloadDuringSearches(t *testing.T) {
	small := testutils.Workbook(t, testutils.SiteHeader, testutils.SiteRows("AAA", 3)...)
	large := testutils.Workbook(t, testutils.SiteHeader, testutils.SiteRows("BBB", 5)...)
	src := memory.NewSource(small)
	cache := dataset.NewCache(src)
	ctx := context.Background()
	_, err := cache.Get(ctx)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		stop atomic.Bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stop.Store(true)
		for i := 0; i < 50; i++ {
			if i%2 == 0 {
				src.Set(large)
			} else {
				src.Set(small)
			}
			_, err := cache.Reload(ctx)
			assert.NoError(t, err)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				snap, err := cache.Get(ctx)
				if !assert.NoError(t, err) {
					return
				}
				aaa, bbb := len(search.Search(snap, "aaa")), len(search.Search(snap, "bbb"))
				switch snap.Len() {
				case 3:
					assert.Equal(t, [2]int{3, 0}, [2]int{aaa, bbb})
				case 5:
					assert.Equal(t, [2]int{0, 5}, [2]int{aaa, bbb})
				default:
					t.Errorf("snapshot with %d records", snap.Len())
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestCache_HookReportsLoads(t *testing.T) {
	src := memory.NewSource(testutils.Workbook(t, []string{"Site"}, []string{"A"}, []string{"B"}))

	var events []*domain.DatasetLoadEvent
	cache := dataset.NewCache(src, dataset.WithLifecycleHooks(domain.LifecycleHooks{
		OnDatasetLoad: func(ctx context.Context, e *domain.DatasetLoadEvent) {
			events = append(events, e)
		},
	}))

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Records)
	assert.NoError(t, events[0].Err)
	assert.Equal(t, "memory://memory", events[0].Source)
}

func TestHTTPSource(t *testing.T) {
	payload := testutils.Workbook(t, []string{"Site"}, []string{"A"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, dataset.XLSXContentType, r.Header.Get("Accept"))
		w.Write(payload)
	}))
	defer srv.Close()

	ok := dataset.NewHTTPSource(srv.URL+"/GPON.xlsx", time.Second)
	data, err := ok.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	missing := dataset.NewHTTPSource(srv.URL+"/missing", time.Second)
	_, err = missing.Fetch(context.Background())
	assert.Error(t, err)

	small := dataset.NewHTTPSource(srv.URL+"/GPON.xlsx", time.Second)
	small.MaxBytes = 10
	_, err = small.Fetch(context.Background())
	assert.Error(t, err)
}
