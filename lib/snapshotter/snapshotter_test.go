package snapshotter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fiffu/listingwatch/lib"
	"github.com/fiffu/listingwatch/lib/models"
	"github.com/fiffu/listingwatch/lib/store"
	"github.com/fiffu/listingwatch/senders"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const targetURL = "https://www.af1racingaustin.com/search/inventory/type/Sport%20Bike"

type memObject struct {
	body     []byte
	modified time.Time
}

type memStore struct {
	objects  map[string]memObject
	clock    time.Time
	putErr   error
	failKeys string // PutObject fails for keys with this suffix
	listErr  error
	putCalls int
}

func newMemStore() *memStore {
	return &memStore{
		objects: map[string]memObject{},
		clock:   time.Date(2024, 10, 8, 18, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) PutObject(_ context.Context, bucket, key string, body []byte, _ string) error {
	m.putCalls++
	if m.putErr != nil {
		return m.putErr
	}
	if m.failKeys != "" && strings.HasSuffix(key, m.failKeys) {
		return errors.New("put denied")
	}
	m.clock = m.clock.Add(time.Second)
	m.objects[bucket+"/"+key] = memObject{append([]byte(nil), body...), m.clock}
	return nil
}

func (m *memStore) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, store.ErrObjectNotFound
	}
	return obj.body, nil
}

func (m *memStore) ListByPrefix(_ context.Context, bucket, prefix string) (models.ObjectInfos, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out models.ObjectInfos
	for k, obj := range m.objects {
		key := strings.TrimPrefix(k, bucket+"/")
		if key != k && strings.HasPrefix(key, prefix) {
			out = append(out, models.ObjectInfo{Key: key, LastModified: obj.modified})
		}
	}
	return out, nil
}

func (m *memStore) keys(prefix string) []string {
	infos, _ := m.ListByPrefix(context.Background(), "bucket", prefix)
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	return keys
}

type stubPublisher struct {
	subjects []string
	messages []string
}

func (p *stubPublisher) Publish(_ context.Context, subject, message string) (string, error) {
	p.subjects = append(p.subjects, subject)
	p.messages = append(p.messages, message)
	return "msg-1", nil
}

type stubSender struct {
	bodies []string
	err    error
}

func (s *stubSender) Send(_ context.Context, _, body string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.bodies = append(s.bodies, body)
	return "sent", nil
}

type fixture struct {
	snap      *Snapshotter
	store     *memStore
	publisher *stubPublisher
	sender    *stubSender
	transport *httpmock.MockTransport
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     newMemStore(),
		publisher: &stubPublisher{},
		sender:    &stubSender{},
		transport: httpmock.NewMockTransport(),
	}
	tick := time.Date(2024, 10, 8, 18, 0, 0, 0, time.UTC)
	f.snap = &Snapshotter{
		log:          zap.NewNop(),
		store:        f.store,
		transport:    f.transport,
		publisher:    f.publisher,
		senders:      senders.Registry{"discord": f.sender},
		targetURL:    targetURL,
		bucket:       "bucket",
		fetchTimeout: 5 * time.Second,
		now: func() time.Time {
			tick = tick.Add(time.Minute)
			return tick
		},
	}
	return f
}

func (f *fixture) serve(t *testing.T, name string) {
	t.Helper()
	page, err := os.ReadFile(filepath.Join("..", "testdata", name))
	require.NoError(t, err)
	f.transport.RegisterResponder("GET", targetURL, httpmock.NewBytesResponder(200, page))
}

func TestCheckForUpdates_FirstRun(t *testing.T) {
	f := setup(t)
	f.serve(t, "search_older.html")

	res := f.snap.CheckForUpdates(context.Background(), zap.NewNop())
	assert.Equal(t, Result{200, BodyFirstSeen}, res)

	hashes := f.store.keys("page_hashes/")
	require.Len(t, hashes, 1)
	assert.True(t, strings.HasPrefix(hashes[0], "page_hashes/www.af1racingaustin.com/search_inventory_type_Sport Bike_"))

	archives := f.store.keys("archive/")
	require.Len(t, archives, 1)
	assert.True(t, strings.HasSuffix(archives[0], ".html"))
	assert.Empty(t, f.publisher.messages)
}

func TestCheckForUpdates_Unchanged(t *testing.T) {
	f := setup(t)
	f.serve(t, "search_older.html")
	ctx := context.Background()

	f.snap.CheckForUpdates(ctx, zap.NewNop())
	res := f.snap.CheckForUpdates(ctx, zap.NewNop())

	assert.Equal(t, Result{200, BodyUnchanged}, res)
	assert.Len(t, f.store.keys("page_hashes/"), 1)
	assert.Empty(t, f.publisher.messages)
}

func TestCheckForUpdates_Changed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.serve(t, "search_older.html")
	f.snap.CheckForUpdates(ctx, zap.NewNop())

	f.serve(t, "search_newer.html")
	res := f.snap.CheckForUpdates(ctx, zap.NewNop())

	assert.Equal(t, Result{200, BodyChanged}, res)
	assert.Len(t, f.store.keys("page_hashes/"), 2)
	assert.Len(t, f.store.keys("archive/"), 2)
	assert.Equal(t, []string{"Site Update"}, f.publisher.subjects)
	assert.Equal(t, []string{"New site update detected!"}, f.publisher.messages)
}

func TestCheckForUpdates_FetchError(t *testing.T) {
	f := setup(t)
	f.transport.RegisterResponder("GET", targetURL, httpmock.NewStringResponder(503, "unavailable"))

	res := f.snap.CheckForUpdates(context.Background(), zap.NewNop())
	assert.Equal(t, Result{500, BodyFetchFailed}, res)
	assert.Zero(t, f.store.putCalls)
}

func TestCheckForUpdates_StoreReadFailureTreatedAsFirstRun(t *testing.T) {
	f := setup(t)
	f.serve(t, "search_older.html")
	f.store.listErr = errors.New("list denied")

	res := f.snap.CheckForUpdates(context.Background(), zap.NewNop())
	assert.Equal(t, Result{200, BodyFirstSeen}, res)
}

func TestCheckForUpdates_StoreWriteFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.serve(t, "search_older.html")
	f.snap.CheckForUpdates(ctx, zap.NewNop())

	f.serve(t, "search_newer.html")
	f.store.putErr = &lib.StorageError{Op: "put", Key: "k", Err: errors.New("quota")}
	res := f.snap.CheckForUpdates(ctx, zap.NewNop())

	assert.Equal(t, Result{500, BodyStoreFailed}, res)
	assert.Empty(t, f.publisher.messages)
}

func TestCheckForUpdates_ArchiveFailureKeepsChangePending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.serve(t, "search_older.html")
	assert.Equal(t, Result{200, BodyFirstSeen}, f.snap.CheckForUpdates(ctx, zap.NewNop()))

	f.serve(t, "search_newer.html")
	f.store.failKeys = ".html"
	assert.Equal(t, Result{500, BodyStoreFailed}, f.snap.CheckForUpdates(ctx, zap.NewNop()))
	assert.Len(t, f.store.keys("page_hashes/"), 1)

	f.store.failKeys = ""
	assert.Equal(t, Result{200, BodyChanged}, f.snap.CheckForUpdates(ctx, zap.NewNop()))
	assert.Len(t, f.store.keys("archive/"), 2)
	assert.Len(t, f.store.keys("page_hashes/"), 2)
	assert.Equal(t, []string{"New site update detected!"}, f.publisher.messages)
}

func TestFetchPage_ReturnsFetchError(t *testing.T) {
	f := setup(t)
	f.transport.RegisterResponder("GET", targetURL, httpmock.NewErrorResponder(errors.New("connection reset")))

	_, err := f.snap.FetchPage(context.Background())
	var fetchErr *lib.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, targetURL, fetchErr.URL)
}

func TestReportChanges_NotEnoughSnapshots(t *testing.T) {
	f := setup(t)
	f.serve(t, "search_older.html")
	ctx := context.Background()

	res := f.snap.ReportChanges(ctx, zap.NewNop())
	assert.Equal(t, Result{200, BodyNotEnoughSnapshots}, res)

	f.snap.CheckForUpdates(ctx, zap.NewNop())
	res = f.snap.ReportChanges(ctx, zap.NewNop())
	assert.Equal(t, Result{200, BodyNotEnoughSnapshots}, res)
	assert.Empty(t, f.sender.bodies)
}

func TestReportChanges_BikeAdded(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.serve(t, "search_older.html")
	f.snap.CheckForUpdates(ctx, zap.NewNop())
	f.serve(t, "search_newer.html")
	f.snap.CheckForUpdates(ctx, zap.NewNop())

	res := f.snap.ReportChanges(ctx, zap.NewNop())
	assert.Equal(t, Result{200, "Sent 1 notifications"}, res)

	expected := "Added: **2020 MT-10 - Yamaha**\nPrice: 8999.0 Milage: 18,000\n" +
		"[Link](https://www.af1racingaustin.com/inventory/2020-yamaha-mt-10-austin-tx-78753-12716611i)"
	assert.Equal(t, []string{expected}, f.sender.bodies)
}

func TestReportChanges_BikeRemoved(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.serve(t, "search_newer.html")
	f.snap.CheckForUpdates(ctx, zap.NewNop())
	f.serve(t, "search_older.html")
	f.snap.CheckForUpdates(ctx, zap.NewNop())

	res := f.snap.ReportChanges(ctx, zap.NewNop())
	assert.Equal(t, Result{200, "Sent 1 notifications"}, res)
	require.Len(t, f.sender.bodies, 1)
	assert.True(t, strings.HasPrefix(f.sender.bodies[0], "Removed: **2020 MT-10 - Yamaha**"))
}

func TestReportChanges_SenderFailureIsNotFatal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.serve(t, "search_older.html")
	f.snap.CheckForUpdates(ctx, zap.NewNop())
	f.serve(t, "search_newer.html")
	f.snap.CheckForUpdates(ctx, zap.NewNop())

	f.sender.err = errors.New("rate limited")
	res := f.snap.ReportChanges(ctx, zap.NewNop())
	assert.Equal(t, Result{200, "Sent 0 notifications"}, res)
}

func TestReportChanges_LoadFailure(t *testing.T) {
	f := setup(t)
	f.store.listErr = errors.New("list denied")

	res := f.snap.ReportChanges(context.Background(), zap.NewNop())
	assert.Equal(t, Result{500, BodyLoadFailed}, res)
}

func TestChangeMessages_RemovedFirst(t *testing.T) {
	diff := models.DiffResult{
		Added:   []string{`{"item":"New"}`},
		Removed: []string{"no json here"},
	}
	msgs := ChangeMessages(diff, zap.NewNop())
	assert.Equal(t, []string{
		"Removed: No valid item data to format.",
		"Added: **New**\nPrice: Price not available\n[Link](https:)",
	}, msgs)
}

func TestAlarmClock_TicksImmediately(t *testing.T) {
	clock := NewAlarmClock(time.Hour)
	c := clock.Start(context.Background())
	defer clock.Stop()

	select {
	case evt := <-c:
		_, ok := evt.(checkWakeupEvent)
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate tick")
	}
}

func TestSnapshotters_DoNotShareLock(t *testing.T) {
	busy := setup(t)
	busy.snap.mu.Lock()
	defer busy.snap.mu.Unlock()

	free := setup(t)
	free.serve(t, "search_older.html")

	done := make(chan Result, 1)
	go func() { done <- free.snap.CheckForUpdates(context.Background(), zap.NewNop()) }()

	select {
	case res := <-done:
		assert.Equal(t, Result{200, BodyFirstSeen}, res)
	case <-time.After(5 * time.Second):
		t.Fatal("check blocked on another snapshotter's lock")
	}
}
