// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package utils

import (
	"sync/atomic"
)

/*
ConfigStore holds the current config:

1. Load and munge a config (this can be arbitrarily expensive)
2. Use Set() to install the config
3. Use Get() to access the config

As long as an installed config is never modified afterwards, readers
need no locking.
*/
type ConfigStore[T any] struct {
	ptr atomic.Pointer[T]
}

func (c *ConfigStore[T]) Get() *T {
	return c.ptr.Load()
}

func (c *ConfigStore[T]) Set(ptr *T) {
	c.ptr.Store(ptr)
}
