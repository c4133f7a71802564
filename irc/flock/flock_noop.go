//go:build plan9 || solaris

// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package flock

func TryAcquireFlock(path string) (fl Flocker, err error) {
	return &noopFlocker{}, nil
}
