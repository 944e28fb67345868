package models

// RegionID identifies one of the fixed cleanup regions.
type RegionID string

const (
	RegionUS      RegionID = "US"
	RegionChina   RegionID = "China"
	RegionBrazil  RegionID = "Brazil"
	RegionJapan   RegionID = "Japan"
	RegionGermany RegionID = "Germany"
)

// RegionIDs lists every region in the order they are offered to the player.
var RegionIDs = []RegionID{RegionUS, RegionChina, RegionBrazil, RegionJapan, RegionGermany}

// Valid reports whether the ID belongs to the closed region set.
func (r RegionID) Valid() bool {
	for _, id := range RegionIDs {
		if id == r {
			return true
		}
	}
	return false
}

// Tier maps a bucket of collected item counts to a results message.
// A nil MaxCount marks the unbounded top tier.
type Tier struct {
	MaxCount *int   `json:"max_count,omitempty" yaml:"max_count"`
	Message  string `json:"message" yaml:"message"`
}

// Region is the immutable record behind a RegionID.
type Region struct {
	ID                   RegionID `json:"id" yaml:"id"`
	DisplayName          string   `json:"display_name" yaml:"display_name"`
	ItemLabel            string   `json:"item_label" yaml:"item_label"`
	ImageKey             string   `json:"image_key" yaml:"image_key"`
	DailyWasteMetricTons float64  `json:"daily_waste_metric_tons" yaml:"daily_waste_metric_tons"`
	Tiers                []Tier   `json:"tiers" yaml:"tiers"`
}
