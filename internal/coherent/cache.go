// Package coherent holds the in-memory view of what each key currently holds.
//
// Every key is in one of three states: Unknown (never resolved against the
// backend), Present (a value was read or written) or Absent (the backend was
// checked, or the key was deleted). Absent is a real entry, not a missing one:
// without it every read of a missing key would go to the backend.
//
// Each entry carries a generation that moves on every mutation, and Reset moves
// a cache-wide epoch. A reader that has to go to the backend keeps the Token
// returned by its Lookup and fills the result back only if neither moved since,
// so a slow backend read can never overwrite a write that landed after the
// reader looked.
package coherent

import "sync"

type State uint8

const (
	Unknown State = iota
	Present
	Absent
)

func (s State) String() string {
	switch s {
	case Present:
		return "present"
	case Absent:
		return "absent"
	default:
		return "unknown"
	}
}

// Token is the (epoch, generation) of a key observed by Lookup.
type Token struct {
	epoch uint64
	gen   uint64
}

type entry struct {
	state State
	value any
	gen   uint64
}

// Cache is safe for concurrent use. Lookups share a read lock; every mutation
// takes the write lock.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	epoch   uint64
}

func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Lookup returns the state of key, the cached value for Present, and the Token
// a backend read of key must fill against. All three come from one locked
// observation.
func (c *Cache) Lookup(key string) (State, any, Token) {
	c.mu.RLock()
	e, ok := c.entries[key]
	tok := Token{epoch: c.epoch, gen: e.gen}
	c.mu.RUnlock()
	if !ok {
		return Unknown, nil, tok
	}
	return e.state, e.value, tok
}

func (c *Cache) RecordPresent(key string, v any) {
	c.mu.Lock()
	c.set(key, Present, v)
	c.mu.Unlock()
}

func (c *Cache) RecordAbsent(key string) {
	c.mu.Lock()
	c.set(key, Absent, nil)
	c.mu.Unlock()
}

// Invalidate returns key to Unknown iff nothing mutated it since tok, and
// returns the Token a backend read must then fill against. It reports false,
// leaving the entry alone, when tok is stale.
func (c *Cache) Invalidate(key string, tok Token) (Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(key, tok) {
		return Token{}, false
	}
	if _, ok := c.entries[key]; ok {
		c.set(key, Unknown, nil)
	}
	return Token{epoch: c.epoch, gen: c.entries[key].gen}, true
}

// FillPresent stores v iff key was not mutated since tok was taken.
func (c *Cache) FillPresent(key string, tok Token, v any) bool {
	return c.fill(key, tok, Present, v)
}

// FillAbsent records a backend miss iff key was not mutated since tok was taken.
func (c *Cache) FillAbsent(key string, tok Token) bool {
	return c.fill(key, tok, Absent, nil)
}

// Reset drops all entries. Fills started before Reset are rejected.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.epoch++
	c.mu.Unlock()
}

// Len reports the number of resolved (Present or Absent) keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if e.state != Unknown {
			n++
		}
	}
	return n
}

func (c *Cache) fill(key string, tok Token, s State, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(key, tok) {
		return false
	}
	c.set(key, s, v)
	return true
}

// callers hold c.mu
func (c *Cache) current(key string, tok Token) bool {
	return tok.epoch == c.epoch && tok.gen == c.entries[key].gen
}

// callers hold c.mu
func (c *Cache) set(key string, s State, v any) {
	e := c.entries[key]
	e.state = s
	e.value = v
	e.gen++
	c.entries[key] = e
}
