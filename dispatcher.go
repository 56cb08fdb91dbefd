// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package tieba

import (
	"sync"

	"gopkg.in/op/go-logging.v1"
)

// dispatcher reads frames off one socket and completes the matching
// Pendings. Exactly one runs per wsConn.
type dispatcher struct {
	conn      *wsConn
	pending   *PendingTable
	log       *logging.Logger
	mu        sync.Mutex
	haltCh    chan struct{} // closed by halt
	exitCh    chan struct{} // closed when the worker returns
	waitGroup sync.WaitGroup
}

func startDispatcher(conn *wsConn, pending *PendingTable, log *logging.Logger) *dispatcher {
	d := &dispatcher{
		conn:    conn,
		pending: pending,
		log:     log,
		haltCh:  make(chan struct{}),
		exitCh:  make(chan struct{}),
	}
	d.waitGroup.Add(1)
	go d.worker()
	return d
}

func (d *dispatcher) worker() {
	defer d.waitGroup.Done()
	defer close(d.exitCh)
	for {
		_, frame, err := d.conn.ws.ReadMessage()
		if err != nil {
			if d.isHalted() {
				d.log.Debugf("%v: terminating gracefully", d.conn)
			} else {
				d.log.Warningf("%v: read failed: %v", d.conn, err)
			}
			return
		}
		framesReceived.Inc()
		payload, cmd, requestID, err := d.conn.decode(frame)
		if err != nil {
			framesBad.Inc()
			d.log.Warningf("%v: dropping frame: %v", d.conn, err)
			continue
		}
		if !d.pending.Complete(requestID, payload) {
			framesUnmatched.Inc()
			d.log.Debugf("%v: no request waiting for %v %d", d.conn, cmd, requestID)
		}
	}
}

func (d *dispatcher) isHalted() bool {
	select {
	case <-d.haltCh:
		return true
	default:
		return false
	}
}

// alive returns true while the worker is reading.
func (d *dispatcher) alive() bool {
	select {
	case <-d.exitCh:
		return false
	default:
		return !d.isHalted()
	}
}

// halt closes the socket and waits for the worker to return.
// It may be called more than once.
func (d *dispatcher) halt() {
	d.mu.Lock()
	if !d.isHalted() {
		close(d.haltCh)
	}
	d.mu.Unlock()
	d.conn.ws.Close()
	d.waitGroup.Wait()
}
