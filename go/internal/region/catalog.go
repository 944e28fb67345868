// Package region holds the closed table of cleanup regions and the results
// classifier that buckets a collected item count into a region's message tiers.
package region

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/mcdev12/sustainifly/go/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var defaultDocument []byte

// ErrInvalidCatalog is returned when a region document fails validation.
var ErrInvalidCatalog = errors.New("invalid region catalog")

// Fallback holds the values used when a region is unset or unknown.
type Fallback struct {
	ItemLabel string `json:"item_label" yaml:"item_label"`
	ImageKey  string `json:"image_key" yaml:"image_key"`
	Message   string `json:"message" yaml:"message"`
}

type document struct {
	Fallback Fallback        `yaml:"fallback"`
	Regions  []models.Region `yaml:"regions"`
}

// Catalog is an immutable lookup table from RegionID to Region.
type Catalog struct {
	regions  map[models.RegionID]models.Region
	order    []models.RegionID
	fallback Fallback
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("embedded region catalog: %v", err))
	}
	return c
}

// Load reads a catalog document from path, or returns the embedded catalog when
// path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse region catalog: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}

	c := &Catalog{
		regions:  make(map[models.RegionID]models.Region, len(doc.Regions)),
		fallback: doc.Fallback,
	}
	for _, r := range doc.Regions {
		c.regions[r.ID] = r
		c.order = append(c.order, r.ID)
	}
	return c, nil
}

func (d document) validate() error {
	if d.Fallback.Message == "" || d.Fallback.ItemLabel == "" || d.Fallback.ImageKey == "" {
		return fmt.Errorf("%w: fallback entries must not be empty", ErrInvalidCatalog)
	}

	seen := make(map[models.RegionID]bool, len(d.Regions))
	for _, r := range d.Regions {
		if !r.ID.Valid() {
			return fmt.Errorf("%w: unknown region %q", ErrInvalidCatalog, r.ID)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate region %q", ErrInvalidCatalog, r.ID)
		}
		seen[r.ID] = true

		if err := validateTiers(r); err != nil {
			return err
		}
	}

	for _, id := range models.RegionIDs {
		if !seen[id] {
			return fmt.Errorf("%w: missing region %q", ErrInvalidCatalog, id)
		}
	}
	return nil
}

func validateTiers(r models.Region) error {
	if len(r.Tiers) == 0 {
		return fmt.Errorf("%w: region %q has no tiers", ErrInvalidCatalog, r.ID)
	}

	prev := -1
	for i, t := range r.Tiers {
		if t.Message == "" {
			return fmt.Errorf("%w: region %q tier %d has no message", ErrInvalidCatalog, r.ID, i)
		}
		last := i == len(r.Tiers)-1
		switch {
		case last && t.MaxCount != nil:
			return fmt.Errorf("%w: region %q last tier must be unbounded", ErrInvalidCatalog, r.ID)
		case !last && t.MaxCount == nil:
			return fmt.Errorf("%w: region %q tier %d must have max_count", ErrInvalidCatalog, r.ID, i)
		case !last && *t.MaxCount <= prev:
			return fmt.Errorf("%w: region %q tiers must be ascending", ErrInvalidCatalog, r.ID)
		}
		if t.MaxCount != nil {
			prev = *t.MaxCount
		}
	}
	return nil
}

// Lookup returns the record for id.
func (c *Catalog) Lookup(id models.RegionID) (models.Region, bool) {
	r, ok := c.regions[id]
	return r, ok
}

// Regions returns every region in presentation order.
func (c *Catalog) Regions() []models.Region {
	out := make([]models.Region, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.regions[id])
	}
	return out
}

// Fallback returns the values used for unset or unknown regions.
func (c *Catalog) Fallback() Fallback {
	return c.fallback
}

// DisplayName returns the human readable region name, or the raw ID when unknown.
func (c *Catalog) DisplayName(id models.RegionID) string {
	if r, ok := c.regions[id]; ok {
		return r.DisplayName
	}
	return string(id)
}

// ItemLabel returns what the player collects in region id.
func (c *Catalog) ItemLabel(id models.RegionID) string {
	if r, ok := c.regions[id]; ok {
		return r.ItemLabel
	}
	return c.fallback.ItemLabel
}

// ImageKey returns the asset key of the collectible marker for region id.
func (c *Catalog) ImageKey(id models.RegionID) string {
	if r, ok := c.regions[id]; ok {
		return r.ImageKey
	}
	return c.fallback.ImageKey
}
