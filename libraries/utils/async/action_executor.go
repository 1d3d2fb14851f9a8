// Copyright 2026 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package async

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// Action is the function called by an ActionExecutor on each queued value.
type Action[T any] func(ctx context.Context, val T) error

// ActionExecutor runs an action over queued values with bounded
// concurrency. Unlike a channel fed to long-running goroutines, workers
// exit when the queue drains and are respawned on demand, the queue grows
// with demand, and an optional max buffer blocks producers instead of
// requiring a size to be fixed up front.
type ActionExecutor[T any] struct {
	action      Action[T]
	ctx         context.Context
	concurrency uint32
	err         error
	pending     uint64
	queue       *list.List
	running     uint32
	maxBuffer   uint64
	syncCond    *sync.Cond
	doneCond    *sync.Cond
}

// NewActionExecutor returns an ActionExecutor running action on each
// queued value with up to concurrency goroutines. A concurrency of 0 is
// treated as 1. A maxBuffer of 0 means the queue is unbounded. Panics on
// a nil action.
func NewActionExecutor[T any](ctx context.Context, action Action[T], concurrency uint32, maxBuffer uint64) *ActionExecutor[T] {
	if action == nil {
		panic("action cannot be nil")
	}
	if concurrency == 0 {
		concurrency = 1
	}
	mu := &sync.Mutex{}
	return &ActionExecutor[T]{
		action:      action,
		ctx:         ctx,
		concurrency: concurrency,
		queue:       list.New(),
		maxBuffer:   maxBuffer,
		syncCond:    sync.NewCond(mu),
		doneCond:    sync.NewCond(mu),
	}
}

// Execute adds the value to the end of the queue. If any action has
// already errored, the value is dropped and Execute returns immediately.
// When a max buffer is set and full, Execute blocks until space frees up.
func (aq *ActionExecutor[T]) Execute(val T) {
	aq.syncCond.L.Lock()
	defer aq.syncCond.L.Unlock()

	if aq.err != nil {
		return
	}

	for aq.maxBuffer != 0 && uint64(aq.queue.Len()) >= aq.maxBuffer {
		aq.syncCond.Wait()
	}
	aq.pending++
	aq.queue.PushBack(val)

	if aq.running < aq.concurrency {
		aq.running++
		go aq.work()
	}
}

// WaitForEmpty blocks until every queued value has been processed, then
// returns the first error any action encountered.
func (aq *ActionExecutor[T]) WaitForEmpty() error {
	aq.syncCond.L.Lock()
	defer aq.syncCond.L.Unlock()
	for aq.pending > 0 {
		aq.doneCond.Wait()
	}
	return aq.err
}

// work runs until the queue is empty. After the first error no further
// actions run, but the queue is still drained.
func (aq *ActionExecutor[T]) work() {
	for {
		aq.syncCond.L.Lock()

		element := aq.queue.Front()
		if element == nil {
			aq.running--
			aq.syncCond.L.Unlock()
			return
		}
		aq.queue.Remove(element)
		encounteredError := aq.err != nil

		aq.syncCond.Signal()
		aq.syncCond.L.Unlock()

		if !encounteredError {
			var err error
			func() {
				// Surface an action panic as an error rather than
				// killing the worker.
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic in ActionExecutor:\n%v", r)
					}
				}()
				err = aq.action(aq.ctx, element.Value.(T))
			}()

			if err != nil {
				aq.syncCond.L.Lock()
				if aq.err == nil {
					aq.err = err
				}
				aq.syncCond.L.Unlock()
			}
		}

		aq.syncCond.L.Lock()
		aq.pending--
		if aq.pending == 0 {
			aq.doneCond.Broadcast()
		}
		aq.syncCond.L.Unlock()
	}
}
