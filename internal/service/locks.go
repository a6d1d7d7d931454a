package service

import (
	"context"
	"sort"
	"sync"
)

// ticketLocks serializes read-modify-write sequences per ticket id. Unrelated
// tickets never contend; the version check in the repository covers other replicas.
type ticketLocks struct {
	mu    sync.Mutex
	slots map[int64]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newTicketLocks() *ticketLocks {
	return &ticketLocks{slots: make(map[int64]*lockSlot)}
}

// acquire blocks until the ticket is free or ctx is done.
func (l *ticketLocks) acquire(ctx context.Context, id int64) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[id]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[id] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		return func() {
			<-slot.ch
			l.release(id, slot)
		}, nil
	case <-ctx.Done():
		l.release(id, slot)
		return nil, ctx.Err()
	}
}

func (l *ticketLocks) release(id int64, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, id)
	}
}

// acquireAll locks ids in ascending order so two multi-ticket operations cannot deadlock.
func (l *ticketLocks) acquireAll(ctx context.Context, ids ...int64) (func(), error) {
	ordered := append([]int64{}, ids...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var releases []func()
	unlockAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	var last int64
	for i, id := range ordered {
		if i > 0 && id == last {
			continue
		}
		last = id
		unlock, err := l.acquire(ctx, id)
		if err != nil {
			unlockAll()
			return nil, err
		}
		releases = append(releases, unlock)
	}
	return unlockAll, nil
}
