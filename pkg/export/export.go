// Package export writes production plans as JSON or CSV files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/freshplan/core/planning"
)

const dateLayout = "2006-01-02"

// WriteJSON writes the whole plan to w in JSON format.
func WriteJSON(w io.Writer, sol *planning.Solution) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sol)
}

// WriteProductionCSV writes one row per production batch.
func WriteProductionCSV(w io.Writer, sol *planning.Solution) error {
	rows := make([][]string, 0, len(sol.Production))
	for _, b := range sol.Production {
		rows = append(rows, []string{b.Date.Format(dateLayout), b.Node, b.Product, formatQty(b.Quantity)})
	}
	return writeCSV(w, []string{"date", "node", "product", "quantity"}, rows)
}

// WriteShipmentsCSV writes one row per shipment.
func WriteShipmentsCSV(w io.Writer, sol *planning.Solution) error {
	rows := make([][]string, 0, len(sol.Shipments))
	for _, s := range sol.Shipments {
		rows = append(rows, []string{
			s.Departure.Format(dateLayout),
			s.Delivery.Format(dateLayout),
			s.Origin,
			s.Destination,
			s.Product,
			s.State.String(),
			s.Arrival.String(),
			formatQty(s.Quantity),
		})
	}
	return writeCSV(w, []string{"departure", "delivery", "origin", "destination", "product", "state", "arrival_state", "quantity"}, rows)
}

// WriteTruckLoadsCSV writes one row per truck load.
func WriteTruckLoadsCSV(w io.Writer, sol *planning.Solution) error {
	rows := make([][]string, 0, len(sol.TruckLoads))
	for _, l := range sol.TruckLoads {
		rows = append(rows, []string{
			l.Truck,
			l.Departure.Format(dateLayout),
			l.Slot.String(),
			l.Delivery.Format(dateLayout),
			l.Origin,
			l.Destination,
			l.Product,
			formatQty(l.Quantity),
			formatQty(l.Pallets),
		})
	}
	return writeCSV(w, []string{"truck", "departure", "slot", "delivery", "origin", "destination", "product", "quantity", "pallets"}, rows)
}

// WriteCostsCSV writes the cost breakdown in reporting order followed by the
// total.
func WriteCostsCSV(w io.Writer, sol *planning.Solution) error {
	rows := make([][]string, 0, len(planning.Categories)+1)
	for _, c := range planning.Categories {
		rows = append(rows, []string{string(c), sol.Costs.Line(c).StringFixed(2)})
	}
	rows = append(rows, []string{"total", sol.Costs.Total.StringFixed(2)})
	return writeCSV(w, []string{"category", "cost"}, rows)
}

// WriteFile writes the plan to path. A .json path receives the whole plan;
// a .csv path is used as a prefix for one file per ledger.
func WriteFile(path string, sol *planning.Solution) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return writeTo(path, func(w io.Writer) error { return WriteJSON(w, sol) })
	case ".csv":
		base := strings.TrimSuffix(path, filepath.Ext(path))
		parts := []struct {
			suffix string
			write  func(io.Writer, *planning.Solution) error
		}{
			{"_production", WriteProductionCSV},
			{"_shipments", WriteShipmentsCSV},
			{"_trucks", WriteTruckLoadsCSV},
			{"_costs", WriteCostsCSV},
		}
		for _, p := range parts {
			write := p.write
			if err := writeTo(base+p.suffix+ext, func(w io.Writer) error { return write(w, sol) }); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", ext)
	}
}

func writeTo(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
