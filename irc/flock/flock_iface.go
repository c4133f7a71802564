// Copyright (c) 2026 boardirc contributors
// released under the MIT license

// Package flock guards an on-disk datastore against a second server process.
package flock

// Flocker is a held lock. gofrs/flock's Flock satisfies it; it is not a
// sync.Locker because Unlock returns an error.
type Flocker interface {
	Unlock() error
}

type noopFlocker struct{}

func (n *noopFlocker) Unlock() error {
	return nil
}
