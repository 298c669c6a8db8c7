package main

import (
	"sync"
)

// Cell is the occupant of a claimed grid cell. Once stored it is never
// modified or removed.
type Cell struct {
	Color    string `json:"color"`
	Username string `json:"username"`
}

// Grid holds the shared board state in memory. Cells are keyed by opaque
// "x,y" strings and are first-come-first-served: the only mutation path is
// TryClaim, and there is no update or delete.
type Grid struct {
	mu    sync.RWMutex
	cells map[string]Cell
}

func newGrid() *Grid {
	return &Grid{
		cells: make(map[string]Cell),
	}
}

// TryClaim inserts cell under key if the key is unclaimed, returning whether
// the claim was accepted. The check and insert happen under a single lock,
// so two concurrent claims on the same key yield exactly one acceptance.
func (g *Grid) TryClaim(key string, cell Cell) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, taken := g.cells[key]; taken {
		return false
	}
	g.cells[key] = cell

	return true
}

// Snapshot returns a copy of the full board, reflecting every claim accepted
// before the call returns.
func (g *Grid) Snapshot() map[string]Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cells := make(map[string]Cell, len(g.cells))
	for key, cell := range g.cells {
		cells[key] = cell
	}

	return cells
}

// Len returns the number of claimed cells.
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.cells)
}
