// Package cache stores validated task sets keyed by content fingerprint.
//
// GenerationCache owns the entry format and the expiry policy; a Backend
// only maps keys to bytes. Three backends are provided: an in-process LRU,
// a file-per-entry store on an afero filesystem, and Redis. Entries expire
// logically: an entry older than the TTL is reported as a miss even while
// its bytes still exist in the backend.
//
// Every backend failure is wrapped with ErrCacheIO. Callers treat the cache
// as an optimization and log such errors instead of failing a request.
package cache
