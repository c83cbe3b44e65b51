// Package refresh implements the data refresh protocol: remote first with a
// write-through cache, and the cache as fallback.
package refresh
