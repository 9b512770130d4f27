package record

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventUpserted EventType = "upserted"
	EventDeleted  EventType = "deleted"
)

// Event is a change of one record. Deleted events only carry the word.
type Event struct {
	Type   EventType        `json:"type"`
	Record GenerationRecord `json:"record"`
	At     time.Time        `json:"at"`
}

// Observed notifies subscribers after every successful write of the
// wrapped repository.
type Observed struct {
	Repository

	buffer int

	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

// NewObserved wraps repo. Each subscriber gets a channel of buffer events;
// when a subscriber falls behind, its oldest pending event is dropped.
func NewObserved(repo Repository, buffer int) *Observed {
	if buffer < 1 {
		buffer = 1
	}
	return &Observed{
		Repository:  repo,
		buffer:      buffer,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel of events that is closed when ctx is done.
func (o *Observed) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, o.buffer)

	o.mu.Lock()
	o.subscribers[ch] = struct{}{}
	o.mu.Unlock()

	context.AfterFunc(ctx, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subscribers, ch)
		close(ch)
	})
	return ch
}

func (o *Observed) Upsert(ctx context.Context, rec *GenerationRecord) error {
	if err := o.Repository.Upsert(ctx, rec); err != nil {
		return err
	}
	o.publish(Event{Type: EventUpserted, Record: *rec, At: rec.UpdatedAt})
	return nil
}

func (o *Observed) Delete(ctx context.Context, simplified string) (bool, error) {
	deleted, err := o.Repository.Delete(ctx, simplified)
	if err != nil || !deleted {
		return deleted, err
	}
	rec := GenerationRecord{}
	rec.Word.Simplified = simplified
	o.publish(Event{Type: EventDeleted, Record: rec, At: time.Now()})
	return true, nil
}

func (o *Observed) publish(event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for ch := range o.subscribers {
		select {
		case ch <- event:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- event:
		default:
		}
	}
}
