package main

import (
	"log"
	"sync"
	"time"
)

// Event types for round tracking
const (
	EvtRoundStart  = "round_start"
	EvtElimination = "elimination"
	EvtRoundEnd    = "round_end"
)

// RoundEvent represents a single trackable event
type RoundEvent struct {
	Type      string
	Code      string // participant code, "" for round-level events
	Round     int64
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes, so the
// frame loop never waits on the database.
type Analytics struct {
	db     *DB
	events chan RoundEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan RoundEvent, 1024),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, code string, round int64) {
	select {
	case a.events <- RoundEvent{
		Type:      evtType,
		Code:      code,
		Round:     round,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Channel full — drop the event rather than blocking the frame loop
	}
}

// Stop flushes pending events and shuts down the writer
func (a *Analytics) Stop() {
	close(a.stop)
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes events
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]RoundEvent, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= 50 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			// Drain whatever is queued before exiting
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					if len(batch) > 0 {
						a.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (a *Analytics) flush(batch []RoundEvent) {
	if a.db == nil {
		return
	}
	if err := a.db.InsertEvents(batch); err != nil {
		log.Printf("analytics flush: %v", err)
	}
}
