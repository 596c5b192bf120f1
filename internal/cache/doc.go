// Package cache implements a single-process, in-memory key–value cache with
// per-entry TTL and a bounded entry count.
//
// Goals for this package:
//   - Make the core data structures explicit (map + doubly-linked list)
//   - Provide O(1) Set/Get/Delete via map index + insertion-order pointers
//   - Evict strictly in insertion/refresh order (FIFO), never by access recency
//   - Be concurrency-safe (RWMutex) with correctness as the primary goal
//   - Support per-entry TTL with lazy expiration and optional active sweeping
//   - Own and cleanly stop long-lived goroutines (no leaks on shutdown)
//
// Counting semantics: Len, Items, Keys and All reflect physical storage.
// An entry that has expired but was never touched or swept still counts,
// and MaxEntries is enforced against that physical count.
package cache
