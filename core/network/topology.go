// Package network holds the node and route topology of the distribution
// network and answers reachability, transit time and storage-state questions
// for the planner.
package network

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/kilianp07/freshplan/core/model"
)

var (
	// ErrUnknownNode is returned when a route or query references a node that
	// is not part of the topology.
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidTopology is returned for inconsistent capability declarations.
	ErrInvalidTopology = errors.New("invalid topology")
)

// Topology is an immutable directed graph of nodes and routes.
type Topology struct {
	nodes  map[string]model.Node
	order  []string
	routes []model.Route
	out    map[string][]model.Route
	in     map[string][]model.Route
	thawed map[string]bool
	// g weighs each route by its whole-day transit.
	g   *simple.WeightedDirectedGraph
	ids map[string]int64
}

// New validates nodes and routes and builds a Topology.
func New(nodes []model.Node, routes []model.Route) (*Topology, error) {
	t := &Topology{
		nodes:  make(map[string]model.Node, len(nodes)),
		out:    make(map[string][]model.Route),
		in:     make(map[string][]model.Route),
		thawed: make(map[string]bool),
		g:      simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		ids:    make(map[string]int64, len(nodes)),
	}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node without id", ErrInvalidTopology)
		}
		if _, ok := t.nodes[n.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate node %s", ErrInvalidTopology, n.ID)
		}
		if _, err := model.States(n.Storage); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		if n.CanManufacture() && !n.CanStore(model.Ambient) {
			return nil, fmt.Errorf("%w: manufacturing node %s has no ambient storage", ErrInvalidTopology, n.ID)
		}
		if n.HasDemand && !n.CanStore(model.Ambient) {
			return nil, fmt.Errorf("%w: demand node %s has no ambient storage", ErrInvalidTopology, n.ID)
		}
		t.nodes[n.ID] = n
		t.order = append(t.order, n.ID)
		t.ids[n.ID] = int64(len(t.ids))
		t.g.AddNode(simple.Node(t.ids[n.ID]))
	}
	sort.Strings(t.order)

	seen := make(map[string]bool)
	for _, r := range routes {
		if _, ok := t.nodes[r.Origin]; !ok {
			return nil, fmt.Errorf("route %s: %w %s", r.Key(), ErrUnknownNode, r.Origin)
		}
		dst, ok := t.nodes[r.Destination]
		if !ok {
			return nil, fmt.Errorf("route %s: %w %s", r.Key(), ErrUnknownNode, r.Destination)
		}
		if r.Origin == r.Destination {
			return nil, fmt.Errorf("%w: route %s loops on itself", ErrInvalidTopology, r.Key())
		}
		if r.TransitDays < 0 {
			return nil, fmt.Errorf("%w: route %s has negative transit", ErrInvalidTopology, r.Key())
		}
		if seen[r.Key()] {
			return nil, fmt.Errorf("%w: duplicate route %s", ErrInvalidTopology, r.Key())
		}
		seen[r.Key()] = true
		switch r.Mode {
		case model.AmbientTransport:
			if !dst.CanStore(model.Ambient) {
				return nil, fmt.Errorf("%w: ambient route %s ends at node without ambient storage", ErrInvalidTopology, r.Key())
			}
		case model.FrozenTransport:
			if !dst.CanStore(model.Frozen) && !dst.CanStore(model.Ambient) {
				return nil, fmt.Errorf("%w: frozen route %s has nowhere to unload", ErrInvalidTopology, r.Key())
			}
			if !dst.CanStore(model.Frozen) {
				t.thawed[r.Destination] = true
			}
		default:
			return nil, fmt.Errorf("%w: route %s has unknown mode %d", ErrInvalidTopology, r.Key(), r.Mode)
		}
		t.routes = append(t.routes, r)
		t.out[r.Origin] = append(t.out[r.Origin], r)
		t.in[r.Destination] = append(t.in[r.Destination], r)
		from, to := simple.Node(t.ids[r.Origin]), simple.Node(t.ids[r.Destination])
		t.g.SetWeightedEdge(t.g.NewWeightedEdge(from, to, float64(r.TransitWholeDays())))
	}
	for id, n := range t.nodes {
		if _, ok := n.Storage.(model.DualStorage); ok {
			t.thawed[id] = true
		}
	}
	// thawed stock travels on ambient routes, so downstream nodes hold it too
	queue := make([]string, 0, len(t.thawed))
	for id := range t.thawed {
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, r := range t.out[cur] {
			if r.Mode == model.AmbientTransport && !t.thawed[r.Destination] {
				t.thawed[r.Destination] = true
				queue = append(queue, r.Destination)
			}
		}
	}
	byKey := func(rs []model.Route) {
		sort.Slice(rs, func(i, j int) bool { return rs[i].Key() < rs[j].Key() })
	}
	byKey(t.routes)
	for _, rs := range t.out {
		byKey(rs)
	}
	for _, rs := range t.in {
		byKey(rs)
	}
	return t, nil
}

// Node returns the node with the given id.
func (t *Topology) Node(id string) (model.Node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return model.Node{}, fmt.Errorf("%w %s", ErrUnknownNode, id)
	}
	return n, nil
}

// Nodes returns all nodes sorted by id.
func (t *Topology) Nodes() []model.Node {
	res := make([]model.Node, 0, len(t.order))
	for _, id := range t.order {
		res = append(res, t.nodes[id])
	}
	return res
}

// Routes returns all routes sorted by origin and destination.
func (t *Topology) Routes() []model.Route {
	return append([]model.Route(nil), t.routes...)
}

// RoutesFrom returns routes leaving id.
func (t *Topology) RoutesFrom(id string) []model.Route { return t.out[id] }

// RoutesInto returns routes terminating at id.
func (t *Topology) RoutesInto(id string) []model.Route { return t.in[id] }

// Route returns the direct route between two nodes.
func (t *Topology) Route(origin, destination string) (model.Route, bool) {
	for _, r := range t.out[origin] {
		if r.Destination == destination {
			return r, true
		}
	}
	return model.Route{}, false
}

// TransitDays returns the whole-day transit of the direct route between two
// nodes.
func (t *Topology) TransitDays(origin, destination string) (int, error) {
	r, ok := t.Route(origin, destination)
	if !ok {
		return 0, fmt.Errorf("%w: no route %s->%s", ErrUnknownNode, origin, destination)
	}
	return r.TransitWholeDays(), nil
}

// ManufacturingNodes returns nodes able to produce, sorted by id.
func (t *Topology) ManufacturingNodes() []model.Node {
	var res []model.Node
	for _, n := range t.Nodes() {
		if n.CanManufacture() {
			res = append(res, n)
		}
	}
	return res
}

// DemandNodes returns nodes with demand, sorted by id.
func (t *Topology) DemandNodes() []model.Node {
	var res []model.Node
	for _, n := range t.Nodes() {
		if n.HasDemand {
			res = append(res, n)
		}
	}
	return res
}

// Reachable reports whether goods can travel from one node to another over
// one or more routes.
func (t *Topology) Reachable(from, to string) bool {
	u, ok := t.ids[from]
	if !ok {
		return false
	}
	v, ok := t.ids[to]
	if !ok {
		return false
	}
	return u == v || topo.PathExistsIn(t.g, simple.Node(u), simple.Node(v))
}

// PathTransitDays returns the smallest total whole-day transit over any path
// between two nodes.
func (t *Topology) PathTransitDays(from, to string) (int, bool) {
	u, ok := t.ids[from]
	if !ok {
		return 0, false
	}
	v, ok := t.ids[to]
	if !ok {
		return 0, false
	}
	w := path.DijkstraFrom(simple.Node(u), t.g).WeightTo(v)
	if math.IsInf(w, 1) {
		return 0, false
	}
	return int(math.Round(w)), true
}
