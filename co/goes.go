// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package co provides tiny helpers to track and bound goroutines.
package co

import "sync"

// Goes tracks spawned goroutines. The zero value is ready to use.
type Goes struct {
	wg sync.WaitGroup
}

// Go spawns f in a tracked goroutine.
func (g *Goes) Go(f func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f()
	}()
}

// Wait blocks until all tracked goroutines have returned.
func (g *Goes) Wait() {
	g.wg.Wait()
}

// Done returns a channel closed when all tracked goroutines have
// returned.
func (g *Goes) Done() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	return done
}
