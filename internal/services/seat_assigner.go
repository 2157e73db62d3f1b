package services

import (
	"cmp"
	"slices"

	"nozze/internal/core"
)

// SeatAssignment places one guest at one table.
type SeatAssignment struct {
	GuestID int64
	TableID int64
}

// Assignment is the outcome of one assignment pass. Every input guest appears
// either in Assignments or in UnassignedIDs.
type Assignment struct {
	Assignments   []SeatAssignment
	Unassigned    int
	UnassignedIDs []int64
	// Occupancy is the final occupancy per table id, including guests that
	// were already seated before the pass.
	Occupancy map[int64]int
}

// AssignSeats greedily fills tables in display order with guests in the
// order chosen by orderer. A guest goes to the first table with a free seat;
// a guest that fits nowhere stays unassigned. The inputs are not modified
// and nothing is persisted.
//
// Callers pass confirmed, unseated guests only.
func AssignSeats(tables []core.Table, guests []core.Guest, orderer GuestOrderer) Assignment {
	ordered := slices.Clone(tables)
	slices.SortStableFunc(ordered, func(a, b core.Table) int {
		return cmp.Compare(a.Order, b.Order)
	})

	occupancy := make([]int, len(ordered))
	for i, t := range ordered {
		occupancy[i] = t.Occupancy
	}

	res := Assignment{Occupancy: make(map[int64]int, len(ordered))}
	for _, g := range orderer.Order(guests) {
		placed := false
		for i, t := range ordered {
			if occupancy[i] < t.Capacity {
				occupancy[i]++
				res.Assignments = append(res.Assignments, SeatAssignment{GuestID: g.ID, TableID: t.ID})
				placed = true
				break
			}
		}
		if !placed {
			res.Unassigned++
			res.UnassignedIDs = append(res.UnassignedIDs, g.ID)
		}
	}

	for i, t := range ordered {
		res.Occupancy[t.ID] = occupancy[i]
	}
	return res
}
