// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package economy converts cargo to credits and credits to fuel.
package economy

import (
	"context"
	"math"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/gamedata"
	"github.com/voidops/voidops/internal/travel"
)

// ServiceConfig holds dependencies for Service.
type ServiceConfig struct {
	Drones     fleet.DroneRepository
	Accounts   fleet.AccountRepository
	Transactor fleet.Transactor
	Catalog    *gamedata.Catalog
	Random     fleet.Random
}

// Service runs sell and refuel operations. Each one updates the drone and
// its owner's credits in a single transaction.
type Service struct {
	drones   fleet.DroneRepository
	accounts fleet.AccountRepository
	tx       fleet.Transactor
	catalog  *gamedata.Catalog
	random   fleet.Random
}

// NewService creates a new Service with the given configuration.
func NewService(cfg ServiceConfig) *Service {
	random := cfg.Random
	if random == nil {
		random = fleet.SystemRandom
	}
	return &Service{
		drones:   cfg.Drones,
		accounts: cfg.Accounts,
		tx:       cfg.Transactor,
		catalog:  cfg.Catalog,
		random:   random,
	}
}

// Line is one sold inventory entry.
type Line struct {
	ResourceID string  `json:"resource_id"`
	Resource   string  `json:"resource"`
	QuantityKg float64 `json:"quantity_kg"`
	UnitPrice  float64 `json:"unit_price"`
	NetCredits float64 `json:"net_credits"`
}

// Receipt is the result of SellCargo.
type Receipt struct {
	CreditsEarned float64 `json:"credits"`
	Balance       float64 `json:"balance"`
	Lines         []Line  `json:"sold"`
}

// RefuelResult is the result of Refuel.
type RefuelResult struct {
	LitresAdded float64 `json:"litres_added"`
	Cost        float64 `json:"cost"`
	FuelL       float64 `json:"fuel_l"`
	Balance     float64 `json:"balance"`
}

func (s *Service) dockedAt(d *fleet.Drone, action string) (gamedata.Location, error) {
	if d.Status() != fleet.StatusIdle {
		return gamedata.Location{}, fleet.WrongState(d.ID, d.Status(), action)
	}
	loc, ok := s.catalog.Location(d.LocationID)
	if !ok && d.LocationID != gamedata.DeepSpace {
		return gamedata.Location{}, fleet.Integrity("drone %s is docked at unknown location %q", d.ID, d.LocationID)
	}
	return loc, nil
}

// SellCargo sells the drone's whole inventory at the local market and
// credits the owner. Lines for resources without a price are dropped from
// the receipt but still removed from the hold.
func (s *Service) SellCargo(ctx context.Context, droneID ulid.ULID) (Receipt, error) {
	var receipt Receipt
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		d, err := s.drones.GetForUpdate(ctx, droneID)
		if err != nil {
			return err
		}
		loc, err := s.dockedAt(d, "sell cargo")
		if err != nil {
			return err
		}
		if !loc.HasMarket {
			return oops.Code(fleet.CodeNoMarket).
				With("drone_id", d.ID.String()).
				With("location_id", d.LocationID).
				Errorf("no market at current location")
		}
		if d.Inventory.Empty() {
			return oops.Code(fleet.CodeCargoEmpty).
				With("drone_id", d.ID.String()).
				Errorf("no cargo to sell")
		}

		tax := s.catalog.Economy.MarketTaxRate
		total := 0.0
		lines := make([]Line, 0, len(d.Inventory))
		for _, id := range d.Inventory.Resources() {
			res, ok := s.catalog.Resource(id)
			if !ok {
				continue
			}
			qty := d.Inventory[id]
			unit := res.BasePrice * (1 + (s.random.Float64()*2-1)*res.Volatility)
			net := unit * qty * (1 - tax)
			total += net
			lines = append(lines, Line{
				ResourceID: id,
				Resource:   res.Name,
				QuantityKg: qty,
				UnitPrice:  travel.Round(unit, 2),
				NetCredits: travel.Round(net, 2),
			})
		}
		total = travel.Round(total, 2)

		d.Inventory = fleet.Inventory{}
		if err := s.drones.Save(ctx, d); err != nil {
			return err
		}
		balance, err := s.accounts.AdjustCredits(ctx, d.OwnerID, total)
		if err != nil {
			return err
		}
		receipt = Receipt{CreditsEarned: total, Balance: balance, Lines: lines}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// Refuel buys up to litres of fuel at the local station, capped at the tank
// capacity; only the litres actually added are charged.
func (s *Service) Refuel(ctx context.Context, droneID ulid.ULID, litres float64) (RefuelResult, error) {
	if math.IsNaN(litres) || litres <= 0 {
		return RefuelResult{}, oops.Code(fleet.CodeInvalidAmount).
			With("litres", litres).
			Errorf("refuel amount must be positive")
	}

	var result RefuelResult
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		d, err := s.drones.GetForUpdate(ctx, droneID)
		if err != nil {
			return err
		}
		loc, err := s.dockedAt(d, "refuel")
		if err != nil {
			return err
		}
		if !loc.HasRefuel {
			return oops.Code(fleet.CodeNoRefuel).
				With("drone_id", d.ID.String()).
				With("location_id", d.LocationID).
				Errorf("no refueling available here")
		}
		spec, ok := s.catalog.Spec(d.TypeID)
		if !ok {
			return fleet.Integrity("drone %s has unknown type %q", d.ID, d.TypeID)
		}

		actual := min(litres, spec.FuelTankL-d.FuelL)
		if actual <= 0 {
			return oops.Code(fleet.CodeTankFull).
				With("drone_id", d.ID.String()).
				Errorf("fuel tank already full")
		}
		cost := travel.Round(actual*s.catalog.Economy.FuelPricePerL, 2)

		owner, err := s.accounts.GetForUpdate(ctx, d.OwnerID)
		if err != nil {
			return err
		}
		if owner.Credits < cost {
			return oops.Code(fleet.CodeInsufficientCredits).
				With("need", cost).
				With("have", travel.Round(owner.Credits, 2)).
				Errorf("insufficient credits: need %.2f, have %.2f", cost, owner.Credits)
		}

		balance, err := s.accounts.AdjustCredits(ctx, d.OwnerID, -cost)
		if err != nil {
			return err
		}
		d.FuelL = min(spec.FuelTankL, travel.Round(d.FuelL+actual, 3))
		if err := s.drones.Save(ctx, d); err != nil {
			return err
		}
		result = RefuelResult{LitresAdded: actual, Cost: cost, FuelL: d.FuelL, Balance: balance}
		return nil
	})
	if err != nil {
		return RefuelResult{}, err
	}
	return result, nil
}
