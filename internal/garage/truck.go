package garage

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Load factor bounds: a full truck accelerates at 30% of an empty one.
const (
	minLoadFactor = 0.3
	loadPenalty   = 0.7
)

// LoadFactor scales a truck's acceleration by how full it is, from 1.0 when
// empty down to 0.3. Other kinds always get 1.
func (v *Vehicle) LoadFactor() float64 {
	if v.kind != KindTruck || v.cargoCapacity.IsZero() {
		return 1
	}
	fill := v.cargoLoad.Div(v.cargoCapacity).InexactFloat64()
	return math.Max(minLoadFactor, 1-fill*loadPenalty)
}

// FillRatio is the share of the capacity in use, 0 for non-trucks.
func (v *Vehicle) FillRatio() float64 {
	if v.kind != KindTruck || v.cargoCapacity.IsZero() {
		return 0
	}
	return v.cargoLoad.Div(v.cargoCapacity).InexactFloat64()
}

// Load adds weight kg of cargo if it fits.
func (v *Vehicle) Load(h Hooks, weight float64) bool {
	if v.kind != KindTruck {
		return v.reject(h, fmt.Sprintf("%s cannot carry cargo", v.model))
	}
	if !validWeight(weight) {
		return v.reject(h, fmt.Sprintf("load weight must be a positive number (got %v)", weight))
	}
	w := decimal.NewFromFloat(weight)
	if v.cargoLoad.Add(w).GreaterThan(v.cargoCapacity) {
		return v.reject(h, fmt.Sprintf("cannot load %s kg on %s: only %s kg free",
			w, v.model, v.cargoCapacity.Sub(v.cargoLoad)))
	}
	v.cargoLoad = v.cargoLoad.Add(w)
	h.committed()
	return true
}

// Unload removes weight kg of cargo if that much is on board.
func (v *Vehicle) Unload(h Hooks, weight float64) bool {
	if v.kind != KindTruck {
		return v.reject(h, fmt.Sprintf("%s cannot carry cargo", v.model))
	}
	if !validWeight(weight) {
		return v.reject(h, fmt.Sprintf("unload weight must be a positive number (got %v)", weight))
	}
	w := decimal.NewFromFloat(weight)
	if w.GreaterThan(v.cargoLoad) {
		return v.reject(h, fmt.Sprintf("cannot unload %s kg from %s: only %s kg on board",
			w, v.model, v.cargoLoad))
	}
	v.cargoLoad = v.cargoLoad.Sub(w)
	h.committed()
	return true
}

func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0)
}
