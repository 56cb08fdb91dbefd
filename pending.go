// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package tieba

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Pending is a request awaiting its reply frame.
type Pending struct {
	id      uint32
	created time.Time
	done    chan struct{}
	data    []byte
}

func (p *Pending) String() string {
	return fmt.Sprintf("[Pending %d]", p.id)
}

// ID returns the request id the reply frame must carry.
func (p *Pending) ID() uint32 { return p.id }

// Created returns the time the Pending was registered.
func (p *Pending) Created() time.Time { return p.created }

// PendingTable correlates reply frames with waiting requests by request id.
// An entry is removed exactly once, either by Complete or by Await giving up.
type PendingTable struct {
	mu      sync.Mutex
	entries map[uint32]*Pending
	lastID  uint32
}

// NewPendingTable returns an empty table whose ids start at the current
// Unix time.
func NewPendingTable() *PendingTable {
	return &PendingTable{
		entries: make(map[uint32]*Pending),
		lastID:  uint32(time.Now().Unix() - 1),
	}
}

// Register allocates a request id and adds a Pending for it.
func (pt *PendingTable) Register() *Pending {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.lastID++
	p := &Pending{
		id:      pt.lastID,
		created: time.Now(),
		done:    make(chan struct{}),
	}
	pt.entries[p.id] = p
	return p
}

// Complete hands data to the Pending with the given id and removes it.
// Returns false if no such Pending exists, in which case data is dropped.
func (pt *PendingTable) Complete(id uint32, data []byte) bool {
	pt.mu.Lock()
	p, ok := pt.entries[id]
	if ok {
		delete(pt.entries, id)
		p.data = data
		close(p.done)
	}
	pt.mu.Unlock()
	return ok
}

// Await waits for p to be completed. If timeout elapses first, p is
// removed and a timeout error returned; a later Complete for it is ignored.
func (pt *PendingTable) Await(p *Pending, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		return p.data, nil
	case <-timer.C:
	}
	if !pt.remove(p) {
		// completed while the timer fired
		<-p.done
		return p.data, nil
	}
	return nil, errors.Wrapf(timeoutError{}, "request %d", p.id)
}

// Remove drops p without completing it.
func (pt *PendingTable) Remove(p *Pending) {
	pt.remove(p)
}

func (pt *PendingTable) remove(p *Pending) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if pt.entries[p.id] == p {
		delete(pt.entries, p.id)
		return true
	}
	return false
}

// Len returns the number of outstanding Pendings.
func (pt *PendingTable) Len() int {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return len(pt.entries)
}
