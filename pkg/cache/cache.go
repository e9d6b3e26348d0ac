// Package cache provides a TTL key/value cache used to absorb repeated quote lookups.
package cache

import "time"

// Cache stores short-lived values keyed by string.
type Cache interface {
	// Get returns (value, true) on a hit and (nil, false) otherwise.
	Get(key string) (interface{}, bool)

	// Set stores value for ttl. It reports whether the value was admitted.
	Set(key string, value interface{}, ttl time.Duration) bool

	Delete(key string)

	Clear()

	Close()
}
