package collector

import "time"

// SetClock replaces the time source of the registry.
func (r *Registry) SetClock(now func() time.Time) {
  r.now = now
}
