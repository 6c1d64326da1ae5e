package network

import "github.com/kilianp07/freshplan/core/model"

// HoldsState reports whether inventory in state st can exist at node id.
// Thawed stock only exists at ambient-capable nodes that either thaw on site
// or receive frozen goods they cannot keep frozen.
func (t *Topology) HoldsState(id string, st model.StorageState) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	switch st {
	case model.Ambient, model.Frozen:
		return n.CanStore(st)
	case model.Thawed:
		return n.CanStore(model.Ambient) && t.thawed[id]
	default:
		return false
	}
}

// StatesAt returns the inventory states present at node id.
func (t *Topology) StatesAt(id string) []model.StorageState {
	var res []model.StorageState
	for _, st := range model.AllStates {
		if t.HoldsState(id, st) {
			res = append(res, st)
		}
	}
	return res
}

// TransitStates returns the states goods can travel in on route r. Ambient
// routes carry ambient or thawed stock unchanged; frozen routes carry frozen
// goods, freezing ambient stock at departure when the origin cannot hold
// frozen inventory.
func (t *Topology) TransitStates(r model.Route) []model.StorageState {
	var res []model.StorageState
	switch r.Mode {
	case model.AmbientTransport:
		for _, st := range []model.StorageState{model.Ambient, model.Thawed} {
			if t.HoldsState(r.Origin, st) {
				res = append(res, st)
			}
		}
	case model.FrozenTransport:
		if t.HoldsState(r.Origin, model.Frozen) || t.HoldsState(r.Origin, model.Ambient) {
			res = append(res, model.Frozen)
		}
	}
	return res
}

// PrimaryTransitState is the state trucks load on route r.
func (t *Topology) PrimaryTransitState(r model.Route) model.StorageState {
	if r.Mode == model.FrozenTransport {
		return model.Frozen
	}
	return model.Ambient
}

// SourceState returns the origin inventory state that feeds goods travelling
// in state transit on route r.
func (t *Topology) SourceState(r model.Route, transit model.StorageState) model.StorageState {
	if transit == model.Frozen && !t.HoldsState(r.Origin, model.Frozen) {
		return model.Ambient
	}
	return transit
}

// ArrivalState returns the destination inventory state of goods travelling
// in state transit on route r. Frozen goods unloaded at a node without
// frozen storage thaw on arrival and start the thawed shelf-life clock.
func (t *Topology) ArrivalState(r model.Route, transit model.StorageState) model.StorageState {
	if transit == model.Frozen && !t.HoldsState(r.Destination, model.Frozen) {
		return model.Thawed
	}
	return transit
}

// DepartureStates returns the origin inventory states that may feed route r.
func (t *Topology) DepartureStates(r model.Route) []model.StorageState {
	var res []model.StorageState
	for _, st := range t.TransitStates(r) {
		res = append(res, t.SourceState(r, st))
	}
	return res
}
