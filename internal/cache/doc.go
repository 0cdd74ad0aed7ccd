// Package cache persists captured HTTP responses keyed by cachekey.Key. A
// Store exposes exists/read/write primitives with all-or-nothing visibility:
// the filesystem backend writes to a temp file and renames it into place, the
// sqlite backend commits a single transaction, and the memory backend swaps a
// copied value under its lock. Entries are encoded with the binary codec in
// codec.go so every backend shares one portable payload. KeyedMutex provides
// the per-key guard callers use to serialize writers of the same key.
package cache
