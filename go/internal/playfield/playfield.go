// Package playfield places collectible markers inside the collection play area
// and resolves taps against them. Markers carry no game state: every render pass
// may draw a fresh set, and a tapped marker stays where it is.
package playfield

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

const (
	// MarkerCount is how many markers are drawn per render pass.
	MarkerCount = 5
	// MarkerSize is the edge length of a marker's square hit area.
	MarkerSize = 100.0

	horizontalMargin = 50.0
	topMargin        = 100.0
	bottomMargin     = 150.0
)

// Viewport is the size of the available drawing surface.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultViewport is used until a presentation layer reports its own size.
var DefaultViewport = Viewport{Width: 390, Height: 844}

// Point is a position in viewport coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bounds is the rectangle marker centres are drawn from.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// BoundsFor derives the play area of v. A range that would be empty collapses
// to its lower bound.
func BoundsFor(v Viewport) Bounds {
	b := Bounds{
		MinX: horizontalMargin,
		MaxX: v.Width - horizontalMargin,
		MinY: topMargin,
		MaxY: v.Height - bottomMargin,
	}
	if b.MaxX < b.MinX {
		b.MaxX = b.MinX
	}
	if b.MaxY < b.MinY {
		b.MaxY = b.MinY
	}
	return b
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Marker is one collectible drawn on screen.
type Marker struct {
	Index    int    `json:"index"`
	Center   Point  `json:"center"`
	ImageKey string `json:"image_key"`
}

// Hit reports whether p falls within the marker's square.
func (m Marker) Hit(p Point) bool {
	const half = MarkerSize / 2
	return p.X >= m.Center.X-half && p.X <= m.Center.X+half &&
		p.Y >= m.Center.Y-half && p.Y <= m.Center.Y+half
}

// Spawner draws marker sets. It is not safe for concurrent use.
type Spawner struct {
	rng *rand.Rand
}

// NewSpawner returns a spawner seeded from crypto/rand, so every session draws
// its own layouts.
func NewSpawner() (*Spawner, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("seed marker spawner: %w", err)
	}
	src := rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:]))
	return &Spawner{rng: rand.New(src)}, nil
}

// NewSeededSpawner returns a deterministic spawner.
func NewSeededSpawner(seed int64) *Spawner {
	return &Spawner{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x5851f42d4c957f2d))}
}

// Spawn draws MarkerCount markers at independent uniform positions inside v's play area.
func (s *Spawner) Spawn(v Viewport, imageKey string) []Marker {
	b := BoundsFor(v)
	markers := make([]Marker, MarkerCount)
	for i := range markers {
		markers[i] = Marker{
			Index: i,
			Center: Point{
				X: b.MinX + s.rng.Float64()*(b.MaxX-b.MinX),
				Y: b.MinY + s.rng.Float64()*(b.MaxY-b.MinY),
			},
			ImageKey: imageKey,
		}
	}
	return markers
}

// Resolve returns the first marker containing p. Overlapping markers still
// count as a single tap.
func Resolve(markers []Marker, p Point) (Marker, bool) {
	for _, m := range markers {
		if m.Hit(p) {
			return m, true
		}
	}
	return Marker{}, false
}
