/*
MIT License

Copyright (c) 2025 Advanced Micro Devices, Inc.

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package modelcache

import (
	"context"
	"time"

	"github.com/go-logr/logr"
)

// Sweeper periodically evicts cache entries older than MaxAge, giving
// Store.EvictOlderThan a caller. Nothing in Store itself schedules eviction;
// a deployment that wants an eviction policy runs a Sweeper as a background
// task alongside the Store.
type Sweeper struct {
	Store    *Store
	Interval time.Duration
	MaxAge   time.Duration
	Logger   logr.Logger
}

// NewSweeper builds a Sweeper bound to store.
func NewSweeper(store *Store, interval, maxAge time.Duration, logger logr.Logger) *Sweeper {
	return &Sweeper{Store: store, Interval: interval, MaxAge: maxAge, Logger: logger}
}

// Run ticks every Interval until ctx is cancelled, evicting stale entries on
// each tick. It never returns an error; a failed sweep is logged and retried
// on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Store.EvictOlderThan(s.MaxAge); err != nil {
				s.Logger.Error(err, "cache sweep failed")
			}
		}
	}
}
