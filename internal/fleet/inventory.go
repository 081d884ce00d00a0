// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package fleet

import (
	"maps"
	"slices"

	"github.com/voidops/voidops/internal/travel"
)

// Inventory maps resource ids to quantities in kilograms.
type Inventory map[string]float64

// Add accumulates qty of a resource, rounded to 2 decimals.
func (inv Inventory) Add(resource string, qty float64) {
	inv[resource] = travel.Round(inv[resource]+qty, 2)
}

// Empty reports whether the inventory holds nothing.
func (inv Inventory) Empty() bool {
	for _, q := range inv {
		if q > 0 {
			return false
		}
	}
	return true
}

// TotalKg returns the summed cargo mass.
func (inv Inventory) TotalKg() float64 {
	var total float64
	for _, q := range inv {
		total += q
	}
	return travel.Round(total, 2)
}

// Resources returns the resource ids in sorted order.
func (inv Inventory) Resources() []string {
	return slices.Sorted(maps.Keys(inv))
}

// Clone returns a copy that shares nothing with inv.
func (inv Inventory) Clone() Inventory {
	if inv == nil {
		return Inventory{}
	}
	return maps.Clone(inv)
}
