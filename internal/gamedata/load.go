// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package gamedata

import (
	_ "embed"
	"os"
	"slices"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Error codes for catalog loading.
const (
	CodeReadFailed = "GAMEDATA_READ_FAILED"
	CodeInvalid    = "GAMEDATA_INVALID"
)

//go:embed default.yaml
var defaultCatalog []byte

// Default returns the embedded catalog shipped with the server.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads and validates a catalog file. An empty path loads the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, oops.Code(CodeReadFailed).With("path", path).Wrap(err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return cat, nil
}

// Parse decodes YAML catalog data, checks it against the schema and the
// cross-reference rules, and fills in defaults.
func Parse(data []byte) (*Catalog, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, oops.Code(CodeInvalid).Wrap(err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "decode catalog")
	}
	cat.applyDefaults()
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks the rules the schema cannot express.
func (c *Catalog) Validate() error {
	if len(c.Drones) == 0 {
		return invalid("catalog defines no drone types")
	}
	if len(c.Locations) == 0 {
		return invalid("catalog defines no locations")
	}
	if _, ok := c.Locations[DeepSpace]; ok {
		return invalid("location id %q is reserved", DeepSpace)
	}
	for id, spec := range c.Drones {
		if spec.SpeedKmh <= 0 {
			return invalid("drone %q: speed_kmh must be positive", id)
		}
		if spec.FuelTankL <= 0 {
			return invalid("drone %q: fuel_tank_l must be positive", id)
		}
	}
	for id, loc := range c.Locations {
		if loc.Richness != nil && (*loc.Richness < 0 || *loc.Richness > 1) {
			return invalid("location %q: richness must be within [0,1]", id)
		}
		if slices.Contains(loc.Resources, "") {
			return invalid("location %q: empty resource id", id)
		}
		for _, res := range loc.Resources {
			if _, ok := c.Resources[res]; !ok {
				return invalid("location %q: resource %q has no price entry", id, res)
			}
		}
	}
	if _, ok := c.Locations[c.Economy.SpawnLocation]; !ok {
		return invalid("spawn location %q is not defined", c.Economy.SpawnLocation)
	}
	if _, ok := c.Drones[c.Economy.StarterDrone]; !ok {
		return invalid("starter drone %q is not defined", c.Economy.StarterDrone)
	}
	if c.Economy.MarketTaxRate < 0 || c.Economy.MarketTaxRate >= 1 {
		return invalid("market_tax_rate must be within [0,1)")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return oops.Code(CodeInvalid).Errorf(format, args...)
}
