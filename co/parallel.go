// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"runtime"
	"sync"
)

// Parallel executes the functions fed to queue with bounded
// concurrency, and returns a channel closed once all have finished.
// The callback must close over the queue only for the duration of the
// call; the queue is drained concurrently.
func Parallel(cb func(queue chan<- func())) <-chan struct{} {
	queue := make(chan func(), 32)
	done := make(chan struct{})

	var wg sync.WaitGroup
	for range runtime.NumCPU() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range queue {
				f()
			}
		}()
	}
	go func() {
		cb(queue)
		close(queue)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}
