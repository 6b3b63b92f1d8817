package collector

import (
  "slices"
  "sync"
  "time"

  "github.com/robertof/go-hibouair-exporter/device"
  "golang.org/x/exp/maps"
)

// Sink receives every reading decoded from a scan hit.
type Sink interface {
  Upsert(r device.Reading)
}

// Registry keeps the most recent reading per board identity. Entries are never removed.
// It has a single writer (the session) and can be read from any goroutine.
type Registry struct {
  mu sync.RWMutex

  readings map[uint32]device.Reading
  observations map[uint32]device.Observation
  updated time.Time

  now func() time.Time
}

func NewRegistry() *Registry {
  return &Registry{
    readings: make(map[uint32]device.Reading),
    observations: make(map[uint32]device.Observation),
    now: time.Now,
  }
}

// Upsert replaces the entry for the reading's identity. Later readings win, no fields
// are merged.
func (r *Registry) Upsert(reading device.Reading) {
  r.mu.Lock()
  defer r.mu.Unlock()

  now := r.now()

  // copy on write: maps handed out by Snapshot() and Observations() are never mutated.
  readings := make(map[uint32]device.Reading, len(r.readings)+1)
  observations := make(map[uint32]device.Observation, len(r.observations)+1)

  for id, existing := range r.readings {
    readings[id] = existing
  }

  for id, existing := range r.observations {
    observations[id] = existing
  }

  readings[reading.ID()] = reading
  observations[reading.ID()] = device.Observation{Reading: reading, ReceivedAt: now}

  r.readings = readings
  r.observations = observations
  r.updated = now
}

// Snapshot returns the current readings and the time of the last update. The returned
// map must not be modified.
func (r *Registry) Snapshot() (map[uint32]device.Reading, time.Time) {
  r.mu.RLock()
  defer r.mu.RUnlock()

  return r.readings, r.updated
}

// Observations returns the current readings with the time each one was received. The
// returned map must not be modified.
func (r *Registry) Observations() map[uint32]device.Observation {
  r.mu.RLock()
  defer r.mu.RUnlock()

  return r.observations
}

func (r *Registry) Get(id uint32) (device.Reading, bool) {
  readings, _ := r.Snapshot()

  reading, ok := readings[id]
  return reading, ok
}

func (r *Registry) Len() int {
  readings, _ := r.Snapshot()

  return len(readings)
}

// IDs returns the known identities in ascending order.
func (r *Registry) IDs() []uint32 {
  readings, _ := r.Snapshot()

  ids := maps.Keys(readings)
  slices.Sort(ids)

  return ids
}
