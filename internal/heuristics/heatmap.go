package heuristics

import (
	"github.com/rawblock/smurfing-engine/pkg/models"
)

// Activity heatmap
//
// The ledger carries relative ages, not timestamps, so the 7x24 grid is a
// synthetic week: each transfer's position within the observed age range
// (oldest = 0, newest = 1) is stretched over 168 hourly slots.
//
//   p    = (maxAge - age) / (maxAge - minAge)   (0 when every age is equal)
//   slot = min(167, floor(p * 168))
//   day  = slot / 24, hour = slot % 24
//
// The grid is reproducible for a given ledger but says nothing about real
// weekdays or clock hours.

const (
	heatmapDays      = 7
	heatmapHours     = 24
	heatmapSlots     = heatmapDays * heatmapHours
	heatmapSaturates = 10
)

// HeatmapCell is one day/hour bucket of the synthetic week.
type HeatmapCell struct {
	Day       int     `json:"day"`
	Hour      int     `json:"hour"`
	Count     int     `json:"count"`
	Intensity float64 `json:"intensity"` // min(1, count/10)
}

// BuildHeatmap returns all 168 cells, day-major, for the given transfers.
func BuildHeatmap(txs []models.Transaction) []HeatmapCell {
	cells := make([]HeatmapCell, heatmapSlots)
	for i := range cells {
		cells[i].Day = i / heatmapHours
		cells[i].Hour = i % heatmapHours
	}
	if len(txs) == 0 {
		return cells
	}

	minAge, maxAge := txs[0].Age, txs[0].Age
	for _, tx := range txs[1:] {
		if tx.Age < minAge {
			minAge = tx.Age
		}
		if tx.Age > maxAge {
			maxAge = tx.Age
		}
	}
	span := float64(maxAge - minAge)

	for _, tx := range txs {
		p := 0.0
		if span > 0 {
			p = float64(maxAge-tx.Age) / span
		}
		slot := int(p * heatmapSlots)
		if slot >= heatmapSlots {
			slot = heatmapSlots - 1
		}
		cells[slot].Count++
	}

	for i := range cells {
		cells[i].Intensity = float64(cells[i].Count) / heatmapSaturates
		if cells[i].Intensity > 1 {
			cells[i].Intensity = 1
		}
	}
	return cells
}
