// Package group partitions events into connected components by shared
// candidate-station sets. Connectivity is computed with a graph rather
// than hand-rolled pairwise-union-find: one vertex per candidate
// station, one synthetic edge chain per event tying its stations
// together, then connected components via BFS.
package group

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/lvlath/graph"

	"stationelectrify/internal/model"
)

// Group is a maximal set of events whose candidate stations form a
// connected component, plus the union of those stations.
type Group struct {
	Events   []model.Event
	Stations model.StationSet
}

// Result is the outcome of one grouping pass.
type Result struct {
	Groups     []Group
	Impossible []model.Event // events with no viable candidate station
}

// Group partitions events into independent subproblems. notPossible is
// subtracted from every event's candidate set before connectivity is
// computed, so electrified and forbidden stations never bridge two
// otherwise-independent groups. Groups are returned smallest-station-set
// first, for faster pruning by the search driver.
func Group(events []model.Event, notPossible model.StationSet) (Result, error) {
	filtered := make([]model.StationSet, len(events))
	g := graph.NewGraph(false, false)

	for i, e := range events {
		stations := e.Stations.Subtract(notPossible)
		filtered[i] = stations
		names := stations.Sorted()
		for _, name := range names {
			if !g.HasVertex(name) {
				g.AddVertex(&graph.Vertex{ID: name})
			}
		}
		for j := 1; j < len(names); j++ {
			g.AddEdge(names[j-1], names[j], 1)
		}
	}

	componentOf := make(map[string]int)
	var components []model.StationSet
	for _, v := range g.Vertices() {
		if _, seen := componentOf[v.ID]; seen {
			continue
		}
		res, err := g.BFS(v.ID, nil)
		if err != nil {
			return Result{}, fmt.Errorf("group: bfs from %q: %w", v.ID, err)
		}
		idx := len(components)
		comp := model.NewStationSet()
		for _, visited := range res.Order {
			comp.Add(visited.ID)
			componentOf[visited.ID] = idx
		}
		components = append(components, comp)
	}

	buckets := make([][]model.Event, len(components))
	var impossible []model.Event
	for i, e := range events {
		names := filtered[i].Sorted()
		if len(names) == 0 {
			impossible = append(impossible, e)
			continue
		}
		idx, ok := componentOf[names[0]]
		if !ok {
			impossible = append(impossible, e)
			continue
		}
		buckets[idx] = append(buckets[idx], e)
	}

	groups := make([]Group, 0, len(components))
	for i, comp := range components {
		if len(buckets[i]) == 0 {
			continue
		}
		groups = append(groups, Group{Events: buckets[i], Stations: comp})
	}
	sort.Slice(groups, func(i, j int) bool {
		return len(groups[i].Stations) < len(groups[j].Stations)
	})
	return Result{Groups: groups, Impossible: impossible}, nil
}
