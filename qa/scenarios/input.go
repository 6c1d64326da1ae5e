package scenarios

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/freshplan/core/model"
	"github.com/kilianp07/freshplan/core/network"
	"github.com/kilianp07/freshplan/core/planning"
)

// ErrInvalidScenario is returned for scenario data the engine cannot accept.
var ErrInvalidScenario = errors.New("invalid scenario")

// Input converts the scenario into engine input and parameters. Parameter
// overrides are applied on top of base.
func (s *Scenario) Input(base planning.Params) (planning.Input, planning.Params, error) {
	params := s.Params.apply(base)
	start, err := parseDate("start", s.Start)
	if err != nil {
		return planning.Input{}, params, err
	}
	end, err := parseDate("end", s.End)
	if err != nil {
		return planning.Input{}, params, err
	}
	snapshot := model.AddDays(start, -1)
	if s.Snapshot != "" {
		if snapshot, err = parseDate("snapshot", s.Snapshot); err != nil {
			return planning.Input{}, params, err
		}
	}

	nodes := make([]model.Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		node, err := n.toModel()
		if err != nil {
			return planning.Input{}, params, err
		}
		nodes = append(nodes, node)
	}
	routes := make([]model.Route, 0, len(s.Routes))
	for _, r := range s.Routes {
		mode, err := model.ParseTransportMode(r.Mode)
		if err != nil {
			return planning.Input{}, params, fmt.Errorf("%w: route %s->%s: %v", ErrInvalidScenario, r.Origin, r.Destination, err)
		}
		routes = append(routes, model.Route{
			Origin:      r.Origin,
			Destination: r.Destination,
			TransitDays: r.TransitDays,
			Mode:        mode,
			CostPerUnit: r.CostPerUnit,
		})
	}
	topo, err := network.New(nodes, routes)
	if err != nil {
		return planning.Input{}, params, err
	}

	products := make([]model.Product, 0, len(s.Products))
	known := make(map[string]bool, len(s.Products))
	for _, p := range s.Products {
		if p.ID == "" || known[p.ID] {
			return planning.Input{}, params, fmt.Errorf("%w: missing or duplicate product id %q", ErrInvalidScenario, p.ID)
		}
		known[p.ID] = true
		life, err := stateMap(p.ShelfLifeDays)
		if err != nil {
			return planning.Input{}, params, fmt.Errorf("product %s: %w", p.ID, err)
		}
		products = append(products, model.Product{ID: p.ID, UnitsPerPallet: p.UnitsPerPallet, ShelfLifeDays: life})
	}
	checkRef := func(what, node, product string) error {
		if _, err := topo.Node(node); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidScenario, what, err)
		}
		if !known[product] {
			return fmt.Errorf("%w: %s: unknown product %q", ErrInvalidScenario, what, product)
		}
		return nil
	}

	demand := make(model.Demand, len(s.Demand))
	for _, d := range s.Demand {
		if err := checkRef("demand", d.Node, d.Product); err != nil {
			return planning.Input{}, params, err
		}
		if d.Quantity < 0 {
			return planning.Input{}, params, fmt.Errorf("%w: negative demand %v at %s", ErrInvalidScenario, d.Quantity, d.Node)
		}
		date, err := parseDate("demand date", d.Date)
		if err != nil {
			return planning.Input{}, params, err
		}
		demand[model.DemandKey{Node: d.Node, Product: d.Product, Date: date}] += d.Quantity
	}

	initial := model.InitialInventory{SnapshotDate: snapshot, Quantities: make(map[model.InventoryKey]float64)}
	for _, inv := range s.Inventory {
		if err := checkRef("inventory", inv.Node, inv.Product); err != nil {
			return planning.Input{}, params, err
		}
		st, err := model.ParseStorageState(inv.State)
		if err != nil {
			return planning.Input{}, params, fmt.Errorf("%w: inventory at %s: %v", ErrInvalidScenario, inv.Node, err)
		}
		if inv.Quantity < 0 {
			return planning.Input{}, params, fmt.Errorf("%w: negative inventory at %s", ErrInvalidScenario, inv.Node)
		}
		initial.Quantities[model.InventoryKey{Node: inv.Node, Product: inv.Product, State: st}] += inv.Quantity
	}

	trucks := make([]model.TruckDeparture, 0, len(s.Trucks))
	for _, t := range s.Trucks {
		truck, err := t.toModel()
		if err != nil {
			return planning.Input{}, params, err
		}
		for _, id := range []string{truck.Origin, truck.Destination} {
			if _, err := topo.Node(id); err != nil {
				return planning.Input{}, params, fmt.Errorf("%w: truck %s: %v", ErrInvalidScenario, t.ID, err)
			}
		}
		trucks = append(trucks, truck)
	}

	labor, err := s.laborCalendar(start, end)
	if err != nil {
		return planning.Input{}, params, err
	}
	entry, err := stateMap(s.Costs.PalletEntryCost)
	if err != nil {
		return planning.Input{}, params, fmt.Errorf("pallet entry cost: %w", err)
	}

	return planning.Input{
		Topology: topo,
		Products: products,
		Demand:   demand,
		Initial:  initial,
		Labor:    labor,
		Trucks:   trucks,
		Costs: model.CostStructure{
			ProductionCostPerUnit:      s.Costs.ProductionCostPerUnit,
			WasteMultiplier:            s.Costs.WasteMultiplier,
			ShortagePenaltyPerUnit:     s.Costs.ShortagePenaltyPerUnit,
			PalletEntryCost:            entry,
			ChangeoverCost:             s.Costs.ChangeoverCost,
			ChangeoverWasteCostPerUnit: s.Costs.ChangeoverWasteCostPerUnit,
		},
		Start: start,
		End:   end,
	}, params, nil
}

func (p ParamsDef) apply(base planning.Params) planning.Params {
	if p.AmbientShelfLifeDays > 0 {
		base.AmbientShelfLifeDays = p.AmbientShelfLifeDays
	}
	if p.FrozenShelfLifeDays > 0 {
		base.FrozenShelfLifeDays = p.FrozenShelfLifeDays
	}
	if p.ThawedShelfLifeDays > 0 {
		base.ThawedShelfLifeDays = p.ThawedShelfLifeDays
	}
	if p.UnitsPerPallet > 0 {
		base.UnitsPerPallet = p.UnitsPerPallet
	}
	if p.DefaultUnitsPerHour > 0 {
		base.DefaultUnitsPerHour = p.DefaultUnitsPerHour
	}
	if p.MaxNonFixedHours > 0 {
		base.MaxNonFixedHours = p.MaxNonFixedHours
	}
	base.IntegerPallets = base.IntegerPallets || p.IntegerPallets
	base.AllowPostHorizonArrivals = base.AllowPostHorizonArrivals || p.AllowPostHorizonArrivals
	return base
}

func (n NodeDef) toModel() (model.Node, error) {
	storage, err := model.ParseStorage(n.Storage)
	if err != nil {
		return model.Node{}, fmt.Errorf("node %s: %w", n.ID, err)
	}
	holding, err := stateMap(n.HoldingCost)
	if err != nil {
		return model.Node{}, fmt.Errorf("node %s: %w", n.ID, err)
	}
	node := model.Node{
		ID:                    n.ID,
		Name:                  n.Name,
		Storage:               storage,
		HasDemand:             n.Demand,
		RequiresTruckSchedule: n.TruckSchedule,
		HoldingCost:           holding,
	}
	if m := n.Manufacturing; m != nil {
		node.Manufacturing = &model.Manufacturing{
			UnitsPerHour:         m.UnitsPerHour,
			ChangeoverHours:      m.ChangeoverHours,
			ChangeoverWasteUnits: m.ChangeoverWasteUnits,
		}
	}
	return node, nil
}

func (t TruckDef) toModel() (model.TruckDeparture, error) {
	slot, err := model.ParseTruckSlot(t.Slot)
	if err != nil {
		return model.TruckDeparture{}, fmt.Errorf("%w: truck %s: %v", ErrInvalidScenario, t.ID, err)
	}
	days, err := parseWeekdays(t.Weekdays)
	if err != nil {
		return model.TruckDeparture{}, fmt.Errorf("%w: truck %s: %v", ErrInvalidScenario, t.ID, err)
	}
	return model.TruckDeparture{
		ID:              t.ID,
		Origin:          t.Origin,
		Destination:     t.Destination,
		Slot:            slot,
		Weekdays:        days,
		CapacityUnits:   t.CapacityUnits,
		CapacityPallets: t.CapacityPallets,
	}, nil
}

// laborCalendar merges explicit entries with the pattern. Explicit entries
// win over the pattern for the same date.
func (s *Scenario) laborCalendar(start, end time.Time) (model.LaborCalendar, error) {
	var cal model.LaborCalendar
	explicit := make(map[time.Time]bool, len(s.Labor))
	for _, l := range s.Labor {
		d, err := parseDate("labor date", l.Date)
		if err != nil {
			return nil, err
		}
		explicit[d] = true
		cal = append(cal, model.LaborDay{
			Date:             d,
			IsFixedDay:       l.Fixed,
			FixedHours:       l.FixedHours,
			RegularRate:      l.RegularRate,
			OvertimeRate:     l.OvertimeRate,
			MaxOvertimeHours: l.MaxOvertimeHours,
			NonFixedRate:     l.NonFixedRate,
			MinimumHours:     l.MinimumHours,
			MaxHours:         l.MaxHours,
		})
	}
	p := s.LaborPattern
	if p == nil {
		return cal, nil
	}
	names := p.FixedWeekdays
	if len(names) == 0 {
		names = []string{"mon", "tue", "wed", "thu", "fri"}
	}
	weekdays, err := parseWeekdays(names)
	if err != nil {
		return nil, fmt.Errorf("%w: labor pattern: %v", ErrInvalidScenario, err)
	}
	fixed := make(map[time.Weekday]bool, len(weekdays))
	for _, w := range weekdays {
		fixed[w] = true
	}
	for d := start; !d.After(end); d = model.AddDays(d, 1) {
		if explicit[d] {
			continue
		}
		if fixed[d.Weekday()] {
			cal = append(cal, model.LaborDay{
				Date:             d,
				IsFixedDay:       true,
				FixedHours:       p.FixedHours,
				RegularRate:      p.RegularRate,
				OvertimeRate:     p.OvertimeRate,
				MaxOvertimeHours: p.MaxOvertimeHours,
			})
			continue
		}
		if p.Weekends {
			cal = append(cal, model.LaborDay{
				Date:         d,
				NonFixedRate: p.NonFixedRate,
				MinimumHours: p.MinimumHours,
				MaxHours:     p.MaxHours,
			})
		}
	}
	return cal, nil
}

func parseDate(field, v string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q: %v", ErrInvalidScenario, field, v, err)
	}
	return model.Day(d), nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	res := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if len(key) > 3 {
			key = key[:3]
		}
		w, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", n)
		}
		res = append(res, w)
	}
	return res, nil
}

func stateMap[V any](in map[string]V) (map[model.StorageState]V, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[model.StorageState]V, len(in))
	for k, v := range in {
		st, err := model.ParseStorageState(k)
		if err != nil {
			return nil, err
		}
		out[st] = v
	}
	return out, nil
}
