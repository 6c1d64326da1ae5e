package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freshplan/core/model"
	"github.com/kilianp07/freshplan/core/planning"
)

func sampleSolution() *planning.Solution {
	d := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	return &planning.Solution{
		Start: d,
		End:   model.AddDays(d, 2),
		Production: []planning.ProductionBatch{
			{Node: "factory", Product: "loaf", Date: d, Quantity: 720},
		},
		Shipments: []planning.Shipment{
			{Origin: "factory", Destination: "store", Product: "loaf", State: model.Ambient, Arrival: model.Ambient, Departure: d, Delivery: model.AddDays(d, 1), Quantity: 500.5},
		},
		TruckLoads: []planning.TruckLoad{
			{Truck: "t1", Origin: "factory", Destination: "store", Product: "loaf", Slot: model.Morning, Departure: d, Delivery: model.AddDays(d, 1), Quantity: 320, Pallets: 1},
		},
		Costs: planning.CostBreakdown{
			Lines: map[planning.Category]decimal.Decimal{
				planning.CostProduction: decimal.NewFromInt(720),
				planning.CostLabor:      decimal.NewFromFloat(240.5),
			},
			Total: decimal.NewFromFloat(960.5),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	sol := sampleSolution()

	var buf bytes.Buffer
	require.NoError(t, WriteProductionCSV(&buf, sol))
	assert.Equal(t, "date,node,product,quantity\n2025-06-02,factory,loaf,720\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteShipmentsCSV(&buf, sol))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2025-06-02,2025-06-03,factory,store,loaf,ambient,ambient,500.5", lines[1])

	buf.Reset()
	require.NoError(t, WriteTruckLoadsCSV(&buf, sol))
	assert.Contains(t, buf.String(), "t1,2025-06-02,morning,2025-06-03,factory,store,loaf,320,1")

	buf.Reset()
	require.NoError(t, WriteCostsCSV(&buf, sol))
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(planning.Categories)+2)
	assert.Equal(t, "production,720.00", lines[1])
	assert.Equal(t, "labor,240.50", lines[2])
	assert.Equal(t, "transport,0.00", lines[3])
	assert.Equal(t, "total,960.50", lines[len(lines)-1])
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	sol := sampleSolution()

	jsonPath := filepath.Join(dir, "plan.json")
	require.NoError(t, WriteFile(jsonPath, sol))
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "production")
	assert.Contains(t, decoded, "costs")

	require.NoError(t, WriteFile(filepath.Join(dir, "plan.csv"), sol))
	for _, name := range []string{"plan_production.csv", "plan_shipments.csv", "plan_trucks.csv", "plan_costs.csv"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	assert.Error(t, WriteFile(filepath.Join(dir, "plan.xml"), sol))
}
