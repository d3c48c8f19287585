// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"sync"
	"sync/atomic"
)

// throttle runs funcs in goroutines, at most Max at a time, and
// remembers the first error any of them returns.
type throttle struct {
	Max       int
	wg        sync.WaitGroup
	ch        chan bool
	err       atomic.Value
	setupOnce sync.Once
	errorOnce sync.Once
}

func (t *throttle) Go(f func() error) {
	t.setupOnce.Do(func() {
		max := t.Max
		if max < 1 {
			max = 1
		}
		t.ch = make(chan bool, max)
	})
	t.wg.Add(1)
	t.ch <- true
	go func() {
		defer func() {
			<-t.ch
			t.wg.Done()
		}()
		if err := f(); err != nil {
			t.errorOnce.Do(func() { t.err.Store(err) })
		}
	}()
}

func (t *throttle) Err() error {
	err, _ := t.err.Load().(error)
	return err
}

func (t *throttle) Wait() error {
	t.wg.Wait()
	return t.Err()
}
