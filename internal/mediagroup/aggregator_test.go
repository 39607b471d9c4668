package mediagroup

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTimer struct {
	mu      sync.Mutex
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *manualTimer) fire() {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if !stopped {
		t.f()
	}
}

type timers struct {
	mu  sync.Mutex
	all []*manualTimer
}

func (ts *timers) AfterFunc(_ time.Duration, f func()) Timer {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := &manualTimer{f: f}
	ts.all = append(ts.all, t)
	return t
}

func (ts *timers) fireAll() {
	ts.mu.Lock()
	all := append([]*manualTimer(nil), ts.all...)
	ts.mu.Unlock()
	for _, t := range all {
		t.fire()
	}
}

func TestAlbumFlushesOnceInMessageOrder(t *testing.T) {
	var got []Group
	ts := &timers{}
	a := New(Options{
		AfterFunc: ts.AfterFunc,
		OnFlush:   func(g Group) { got = append(got, g) },
	})

	a.Add(Item{ChatID: 1, UserID: 2, MediaGroupID: "g", MessageID: 11, FileID: "second"})
	a.Add(Item{ChatID: 1, UserID: 2, MediaGroupID: "g", MessageID: 10, FileID: "first", Caption: "portrait + product"})
	assert.Equal(t, 1, a.Pending())

	ts.fireAll()

	require.Len(t, got, 1)
	assert.Equal(t, []string{"first", "second"}, got[0].FileIDs)
	assert.Equal(t, "portrait + product", got[0].Caption)
	assert.Zero(t, a.Pending())
}

func TestItemsWithoutGroupAreIgnored(t *testing.T) {
	ts := &timers{}
	a := New(Options{AfterFunc: ts.AfterFunc})
	a.Add(Item{ChatID: 1, FileID: "x"})
	a.Add(Item{ChatID: 1, MediaGroupID: "g"})
	assert.Zero(t, a.Pending())
}

func TestStopDropsPending(t *testing.T) {
	flushed := false
	ts := &timers{}
	a := New(Options{AfterFunc: ts.AfterFunc, OnFlush: func(Group) { flushed = true }})
	a.Add(Item{ChatID: 1, MediaGroupID: "g", FileID: "x"})

	a.Stop()
	ts.fireAll()

	assert.False(t, flushed)
	assert.Zero(t, a.Pending())
}
