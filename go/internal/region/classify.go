package region

import "github.com/mcdev12/sustainifly/go/internal/models"

// Classify returns the results message for count items collected in region id.
// The first tier whose bound is at least count wins; unknown regions get the
// fallback message.
func (c *Catalog) Classify(id models.RegionID, count int) string {
	r, ok := c.regions[id]
	if !ok {
		return c.fallback.Message
	}
	return classifyTiers(r.Tiers, count, c.fallback.Message)
}

// TierIndex returns the index of the tier count falls into, or -1 for an unknown region.
func (c *Catalog) TierIndex(id models.RegionID, count int) int {
	r, ok := c.regions[id]
	if !ok {
		return -1
	}
	for i, t := range r.Tiers {
		if t.MaxCount == nil || count <= *t.MaxCount {
			return i
		}
	}
	return len(r.Tiers) - 1
}

func classifyTiers(tiers []models.Tier, count int, fallback string) string {
	for _, t := range tiers {
		if t.MaxCount == nil || count <= *t.MaxCount {
			return t.Message
		}
	}
	// validated catalogs always end with an unbounded tier
	return fallback
}
