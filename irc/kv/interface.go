// Copyright (c) 2026 boardirc contributors
// released under the MIT license

// Package kv defines the key/value store that backs message boards, so the
// registry doesn't depend on a particular embedded database.
package kv

import (
	"errors"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("key not found")
)

// Tx is a read or read-write transaction. Keys are iterated in ascending
// byte order.
type Tx interface {
	AscendGreaterOrEqual(pivot string, iterator func(key, value string) bool) error
	Get(key string) (val string, err error)
	Set(key string, value string) (previousValue string, replaced bool, err error)
}

// Store is a transactional key/value store. Update transactions are
// serialized; View transactions may run concurrently with each other.
type Store interface {
	Close() error
	Update(fn func(tx Tx) error) error
	View(fn func(tx Tx) error) error
}
