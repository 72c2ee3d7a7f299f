// Package events carries change notifications from the planner to whoever
// renders the shopping list or the meal plan.
package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Topic names a kind of change.
type Topic string

const (
	ShoppingListChanged Topic = "shopping_list.changed"
	MealPlanChanged     Topic = "meal_plan.changed"
)

// Event is a single change notification.
type Event struct {
	Topic     Topic     `json:"topic"`
	Operation string    `json:"operation"`
	Count     int       `json:"count"`
	At        time.Time `json:"at"`
}

// Publisher delivers events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Handler receives events from a Bus.
type Handler func(Event)

// Bus is an in-process publisher. Handlers run synchronously on the
// publishing goroutine, in subscription order, so subscribers observe events
// in the order they were published.
type Bus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
	order    []int
}

var _ Publisher = (*Bus)(nil)

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.handlers[id] = h
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers ev to every current subscriber.
func (b *Bus) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

// Fanout publishes to several publishers, continuing past failures.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
