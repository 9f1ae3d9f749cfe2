package batcher

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igloogo/internal/graphql"
	"igloogo/internal/transport"
)

type queryCall struct {
	query string
	path  []string
}

// fakeQuerier answers every query with the next scripted result
type fakeQuerier struct {
	mu      sync.Mutex
	calls   []queryCall
	results []json.RawMessage
	errs    []error
}

func (q *fakeQuerier) Query(ctx context.Context, query string, path []string) (json.RawMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.calls = append(q.calls, queryCall{query: query, path: path})
	i := len(q.calls) - 1

	var err error
	if i < len(q.errs) {
		err = q.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(q.results) {
		return q.results[i], nil
	}
	return q.results[len(q.results)-1], nil
}

func (q *fakeQuerier) Calls() []queryCall {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queryCall(nil), q.calls...)
}

// manualScheduler holds scheduled flushes until Tick
type manualScheduler struct {
	mu  sync.Mutex
	fns []func()
}

func (s *manualScheduler) Schedule(fn func()) {
	s.mu.Lock()
	s.fns = append(s.fns, fn)
	s.mu.Unlock()
}

func (s *manualScheduler) Tick() {
	s.mu.Lock()
	fns := s.fns
	s.fns = nil
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func newTestCoordinator(q transport.Querier, s Scheduler) *Coordinator {
	return NewCoordinator(Config{
		Entity:    "floatValue",
		ID:        "v1",
		Scheduler: s,
		Logger:    zerolog.Nop(),
	}, q)
}

func await(t *testing.T, f *Future) (json.RawMessage, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return f.Await(ctx)
}

// selections returns the sorted field selections of a fetch query
func selections(query string) []string {
	start := strings.Index(query, "){ ")
	end := strings.LastIndex(query, "} }")
	fields := strings.Fields(query[start+3 : end])
	sort.Strings(fields)
	return fields
}

// openKeys returns the number of unique keys in the open window
func openKeys(c *Coordinator) int {
	c.mu.Lock()
	w := c.current
	c.mu.Unlock()

	if w == nil {
		return 0
	}
	return w.Len()
}

func TestCoordinator_OneCallPerWindow(t *testing.T) {
	q := &fakeQuerier{results: []json.RawMessage{
		json.RawMessage(`{"name":"Temp","visibility":"VISIBLE","cardSize":"SMALL"}`),
	}}
	s := &manualScheduler{}
	c := newTestCoordinator(q, s)

	futures := []*Future{
		c.Request("name"),
		c.Request("visibility"),
		c.Request("cardSize"),
		c.Request("name"),
	}
	assert.Equal(t, 3, openKeys(c))
	assert.Empty(t, q.Calls(), "no call before the window ends")

	s.Tick()

	calls := q.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"floatValue"}, calls[0].path)
	assert.Equal(t, []string{"cardSize", "name", "visibility"}, selections(calls[0].query))
	assert.Equal(t, `{ floatValue(id:"v1"){ name visibility cardSize } }`, calls[0].query)

	want := []string{`"Temp"`, `"VISIBLE"`, `"SMALL"`, `"Temp"`}
	for i, f := range futures {
		value, err := await(t, f)
		require.NoError(t, err)
		assert.JSONEq(t, want[i], string(value))
	}
	assert.Equal(t, 0, openKeys(c))
}

func TestCoordinator_DuplicateKeysShareValue(t *testing.T) {
	q := &fakeQuerier{results: []json.RawMessage{json.RawMessage(`{"index":7}`)}}
	s := &manualScheduler{}
	c := newTestCoordinator(q, s)

	a := c.Request("index")
	b := c.Request("index")
	assert.NotSame(t, a, b)
	s.Tick()

	va, err := await(t, a)
	require.NoError(t, err)
	vb, err := await(t, b)
	require.NoError(t, err)
	assert.Equal(t, string(va), string(vb))
	assert.Equal(t, []string{"index"}, selections(q.Calls()[0].query))
}

func TestCoordinator_SequentialWindowsIssueSeparateCalls(t *testing.T) {
	q := &fakeQuerier{results: []json.RawMessage{
		json.RawMessage(`{"name":"first"}`),
		json.RawMessage(`{"name":"second"}`),
	}}
	s := &manualScheduler{}
	c := newTestCoordinator(q, s)

	first := c.Request("name")
	s.Tick()
	v, err := await(t, first)
	require.NoError(t, err)
	assert.JSONEq(t, `"first"`, string(v))

	second := c.Request("name")
	s.Tick()
	v, err = await(t, second)
	require.NoError(t, err)
	assert.JSONEq(t, `"second"`, string(v))

	assert.Len(t, q.Calls(), 2)
}

func TestCoordinator_CompositeKeyGrouping(t *testing.T) {
	q := &fakeQuerier{results: []json.RawMessage{
		json.RawMessage(`{"name":"Temp","device":{"id":"d1"}}`),
	}}
	s := &manualScheduler{}
	c := newTestCoordinator(q, s)

	device := c.Request("device{id}")
	name := c.Request("name")
	s.Tick()

	require.Len(t, q.Calls(), 1)
	assert.Equal(t, []string{"device{id}", "name"}, selections(q.Calls()[0].query))

	v, err := await(t, device)
	require.NoError(t, err)
	var ref struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(v, &ref))
	assert.Equal(t, "d1", ref.ID)

	v, err = await(t, name)
	require.NoError(t, err)
	assert.JSONEq(t, `"Temp"`, string(v))
}

func TestCoordinator_FailureRejectsWholeWindow(t *testing.T) {
	cause := &transport.TransportError{Op: "http", Err: errors.New("connection refused")}
	q := &fakeQuerier{
		errs:    []error{cause, nil},
		results: []json.RawMessage{nil, json.RawMessage(`{"name":"ok"}`)},
	}
	s := &manualScheduler{}
	c := newTestCoordinator(q, s)

	a := c.Request("name")
	b := c.Request("index")
	s.Tick()

	_, errA := await(t, a)
	_, errB := await(t, b)
	require.Error(t, errA)
	require.Error(t, errB)
	assert.Same(t, errA, errB)

	var flushErr *BatchFlushError
	require.True(t, errors.As(errA, &flushErr))
	assert.Equal(t, "floatValue", flushErr.Entity)
	assert.ElementsMatch(t, []graphql.FieldKey{"name", "index"}, flushErr.Fields)
	assert.True(t, transport.IsTransportError(errA))
	assert.ErrorIs(t, errA, cause)

	retry := c.Request("name")
	s.Tick()
	v, err := await(t, retry)
	require.NoError(t, err)
	assert.JSONEq(t, `"ok"`, string(v))
}

func TestCoordinator_RemoteErrorPropagates(t *testing.T) {
	q := &fakeQuerier{errs: []error{transport.NewRemoteError([]graphql.Error{{Message: "not found"}})}}
	s := &manualScheduler{}
	c := newTestCoordinator(q, s)

	f := c.Request("name")
	s.Tick()

	_, err := await(t, f)
	require.Error(t, err)
	var remote *transport.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, []string{"not found"}, remote.Messages())
}

func TestCoordinator_MissingFieldAndNullEntity(t *testing.T) {
	q := &fakeQuerier{results: []json.RawMessage{
		json.RawMessage(`{"name":"x"}`),
		json.RawMessage(`null`),
	}}
	s := &manualScheduler{}
	c := newTestCoordinator(q, s)

	name := c.Request("name")
	index := c.Request("index")
	s.Tick()

	_, err := await(t, name)
	require.NoError(t, err)
	_, err = await(t, index)
	assert.ErrorIs(t, err, ErrFieldMissing)

	f := c.Request("name")
	s.Tick()
	_, err = await(t, f)
	var flushErr *BatchFlushError
	assert.True(t, errors.As(err, &flushErr))
}

func TestCoordinator_InvalidKeyNeverJoinsWindow(t *testing.T) {
	q := &fakeQuerier{results: []json.RawMessage{json.RawMessage(`{}`)}}
	s := &manualScheduler{}
	c := newTestCoordinator(q, s)

	f := c.Request("device{id")
	_, err := await(t, f)
	assert.ErrorIs(t, err, graphql.ErrInvalidFieldKey)
	assert.Equal(t, 0, openKeys(c))

	s.Tick()
	assert.Empty(t, q.Calls())
}

func TestCoordinator_MaxFieldsFlushesEarly(t *testing.T) {
	q := &fakeQuerier{results: []json.RawMessage{json.RawMessage(`{"a":1,"b":2,"c":3}`)}}
	s := &manualScheduler{}
	c := NewCoordinator(Config{
		Entity:    "floatValue",
		ID:        "v1",
		Scheduler: s,
		MaxFields: 2,
		Logger:    zerolog.Nop(),
	}, q)

	a := c.Request("a")
	b := c.Request("b")

	_, err := await(t, a)
	require.NoError(t, err)
	_, err = await(t, b)
	require.NoError(t, err)
	require.Len(t, q.Calls(), 1)

	cf := c.Request("c")
	s.Tick()
	_, err = await(t, cf)
	require.NoError(t, err)
	assert.Len(t, q.Calls(), 2, "the early-flushed window's timer is a no-op")
}

func TestCoordinator_CloseFlushesOpenWindow(t *testing.T) {
	q := &fakeQuerier{results: []json.RawMessage{json.RawMessage(`{"name":"x"}`)}}
	s := &manualScheduler{}
	c := newTestCoordinator(q, s)

	f := c.Request("name")
	c.Close()

	v, err := await(t, f)
	require.NoError(t, err)
	assert.JSONEq(t, `"x"`, string(v))

	s.Tick()
	assert.Len(t, q.Calls(), 1)

	_, err = await(t, c.Request("name"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCoordinator_ConcurrentGoroutinesWithTimer(t *testing.T) {
	q := &fakeQuerier{results: []json.RawMessage{json.RawMessage(`{"name":"n","index":1,"cardSize":"LARGE"}`)}}
	c := newTestCoordinator(q, TimerScheduler{Wait: 200 * time.Millisecond})

	keys := []graphql.FieldKey{"name", "index", "cardSize", "name", "index"}
	futures := make([]*Future, len(keys))
	var wg sync.WaitGroup
	for i, k := range keys {
		wg.Add(1)
		go func(i int, k graphql.FieldKey) {
			defer wg.Done()
			futures[i] = c.Request(k)
		}(i, k)
	}
	wg.Wait()

	for _, f := range futures {
		_, err := await(t, f)
		require.NoError(t, err)
	}

	calls := q.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"cardSize", "index", "name"}, selections(calls[0].query))
}

func TestWindow_StateMachine(t *testing.T) {
	w := NewWindow()
	assert.Equal(t, WindowEmpty, w.State())

	f, n := w.Add("name")
	require.NotNil(t, f)
	assert.Equal(t, 1, n)
	assert.Equal(t, WindowAccumulating, w.State())

	keys, pending := w.Take()
	assert.Equal(t, []graphql.FieldKey{"name"}, keys)
	assert.Len(t, pending, 1)
	assert.Equal(t, WindowFlushing, w.State())

	f, _ = w.Add("index")
	assert.Nil(t, f, "a flushing window accepts no requests")

	keys, _ = w.Take()
	assert.Nil(t, keys, "a window is flushed once")

	w.Close()
	assert.Equal(t, WindowClosed, w.State())
}

func TestFuture_AwaitContext(t *testing.T) {
	f := newFuture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// blockingQuerier holds every query until release is closed
type blockingQuerier struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (q *blockingQuerier) Query(ctx context.Context, query string, path []string) (json.RawMessage, error) {
	q.started <- struct{}{}
	<-q.release
	q.ctxErr <- ctx.Err()
	return json.RawMessage(`{"name":"late"}`), nil
}

func TestCoordinator_CloseWaitsForFlushInFlight(t *testing.T) {
	q := &blockingQuerier{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
	s := &manualScheduler{}
	c := newTestCoordinator(q, s)

	f := c.Request("name")
	go s.Tick()
	<-q.started

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a flush was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(q.release)
	assert.NoError(t, <-q.ctxErr, "the in-flight query is not cancelled")

	v, err := await(t, f)
	require.NoError(t, err)
	assert.JSONEq(t, `"late"`, string(v))

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the flush completed")
	}

	_, err = await(t, c.Request("name"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCoordinator_FlushKeepsAcceptingReads(t *testing.T) {
	q := &fakeQuerier{results: []json.RawMessage{
		json.RawMessage(`{"name":"a"}`),
		json.RawMessage(`{"name":"b"}`),
	}}
	s := &manualScheduler{}
	c := newTestCoordinator(q, s)

	first := c.Request("name")
	c.Flush()
	v, err := await(t, first)
	require.NoError(t, err)
	assert.JSONEq(t, `"a"`, string(v))

	c.Flush()
	assert.Len(t, q.Calls(), 1, "flushing without an open window sends nothing")

	second := c.Request("name")
	s.Tick()
	v, err = await(t, second)
	require.NoError(t, err)
	assert.JSONEq(t, `"b"`, string(v))
	assert.Len(t, q.Calls(), 2)
}
