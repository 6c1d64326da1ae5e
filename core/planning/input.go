package planning

import (
	"time"

	"github.com/kilianp07/freshplan/core/model"
	"github.com/kilianp07/freshplan/core/network"
)

// Input is the validated data snapshot of one planning run. It is read but
// never modified by the engine.
type Input struct {
	Topology *network.Topology
	Products []model.Product
	Demand   model.Demand
	Initial  model.InitialInventory
	Labor    model.LaborCalendar
	Trucks   []model.TruckDeparture
	Costs    model.CostStructure
	Start    time.Time
	End      time.Time
}
