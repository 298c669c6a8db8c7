package main

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGridFirstWriteWins(t *testing.T) {
	req := require.New(t)
	grid := newGrid()

	req.True(grid.TryClaim("0,0", Cell{Color: "red", Username: "alice"}))
	req.False(grid.TryClaim("0,0", Cell{Color: "blue", Username: "bob"}))
	req.False(grid.TryClaim("0,0", Cell{Color: "green", Username: "carol"}))

	snapshot := grid.Snapshot()
	req.Len(snapshot, 1)
	req.Equal(Cell{Color: "red", Username: "alice"}, snapshot["0,0"])
}

func TestGridDistinctKeysAreIndependent(t *testing.T) {
	req := require.New(t)
	grid := newGrid()

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("%d,%d", i, i)
		req.True(grid.TryClaim(key, Cell{Color: "red", Username: "alice"}))
	}

	req.Equal(10, grid.Len())
}

func TestGridConcurrentClaimsSameKey(t *testing.T) {
	req := require.New(t)
	grid := newGrid()

	const claimants = 32

	var wg sync.WaitGroup
	accepted := make(chan Cell, claimants)

	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cell := Cell{
				Color:    fmt.Sprintf("#%06x", i),
				Username: fmt.Sprintf("user%d", i),
			}
			if grid.TryClaim("5,5", cell) {
				accepted <- cell
			}
		}(i)
	}

	wg.Wait()
	close(accepted)

	var winners []Cell
	for cell := range accepted {
		winners = append(winners, cell)
	}

	req.Len(winners, 1, "exactly one concurrent claim must be accepted")
	req.Equal(winners[0], grid.Snapshot()["5,5"])
}

func TestGridSnapshotIsCopy(t *testing.T) {
	req := require.New(t)
	grid := newGrid()

	req.True(grid.TryClaim("1,2", Cell{Color: "red", Username: "alice"}))

	snapshot := grid.Snapshot()
	snapshot["1,2"] = Cell{Color: "blue", Username: "mallory"}
	snapshot["9,9"] = Cell{Color: "green", Username: "mallory"}

	req.Equal(Cell{Color: "red", Username: "alice"}, grid.Snapshot()["1,2"])
	req.Equal(1, grid.Len())
}

func TestGridSnapshotCompleteness(t *testing.T) {
	req := require.New(t)
	grid := newGrid()

	const claims = 50
	for i := 0; i < claims; i++ {
		key := fmt.Sprintf("%d,0", i)
		req.True(grid.TryClaim(key, Cell{Color: "red", Username: "alice"}))
	}

	snapshot := grid.Snapshot()
	req.Len(snapshot, claims)
	for i := 0; i < claims; i++ {
		key := fmt.Sprintf("%d,0", i)
		req.Equal(Cell{Color: "red", Username: "alice"}, snapshot[key])
	}
}
