package models

// Page defines which screen of the session flow is showing.
type Page string

const (
	PageHome         Page = "HOME"
	PageRegionSelect Page = "REGION_SELECT"
	PageCollecting   Page = "COLLECTING"
	PageResults      Page = "RESULTS"
	PageComplete     Page = "COMPLETE"
)

// pageOrder is the only order pages may be visited in.
var pageOrder = map[Page]int{
	PageHome:         0,
	PageRegionSelect: 1,
	PageCollecting:   2,
	PageResults:      3,
	PageComplete:     4,
}

// Ordinal returns the page's position in the flow, or -1 for an unknown page.
func (p Page) Ordinal() int {
	if n, ok := pageOrder[p]; ok {
		return n
	}
	return -1
}

// Terminal reports whether no further transitions leave this page.
func (p Page) Terminal() bool {
	return p == PageComplete
}
