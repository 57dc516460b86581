// Package storectx holds the "current store" a back-office user is operating
// against, and notifies subscribers when it changes.
package storectx

import (
	"errors"
	"sync"

	"kasirinaja/backoffice/internal/domain"
)

var ErrUnknownStore = errors.New("store does not belong to user")

type Context struct {
	mu      sync.RWMutex
	current *domain.StoreID
	stores  []domain.Store
	nextSub int
	subs    map[int]func(*domain.StoreID)
}

// New seeds the context. A current id outside stores is dropped.
func New(current *domain.StoreID, stores []domain.Store) *Context {
	c := &Context{
		stores: append([]domain.Store(nil), stores...),
		subs:   make(map[int]func(*domain.StoreID)),
	}
	if current != nil && c.belongs(*current) {
		id := *current
		c.current = &id
	}
	return c
}

func (c *Context) Current() *domain.StoreID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil
	}
	id := *c.current
	return &id
}

func (c *Context) Stores() []domain.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Store(nil), c.stores...)
}

// Subscribe registers fn for every later change of the current store. The
// returned func removes the subscription.
func (c *Context) Subscribe(fn func(*domain.StoreID)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Switch changes the current store. Switching to the store already current
// notifies nobody.
func (c *Context) Switch(id domain.StoreID) error {
	c.mu.Lock()
	if !c.belongs(id) {
		c.mu.Unlock()
		return ErrUnknownStore
	}
	if c.current != nil && *c.current == id {
		c.mu.Unlock()
		return nil
	}
	next := id
	c.current = &next
	subs := c.snapshotLocked()
	c.mu.Unlock()

	for _, fn := range subs {
		v := id
		fn(&v)
	}
	return nil
}

// Clear drops the current store, e.g. on logout.
func (c *Context) Clear() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	c.current = nil
	subs := c.snapshotLocked()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(nil)
	}
}

func (c *Context) belongs(id domain.StoreID) bool {
	for _, s := range c.stores {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (c *Context) snapshotLocked() []func(*domain.StoreID) {
	out := make([]func(*domain.StoreID), 0, len(c.subs))
	for _, fn := range c.subs {
		out = append(out, fn)
	}
	return out
}
