package session

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/sustainifly/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionOn(page models.Page) models.Session {
	s := models.NewSession(uuid.New())
	s.Page = page
	if page.Ordinal() >= models.PageCollecting.Ordinal() {
		r := models.RegionJapan
		s.Region = &r
	}
	return s
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name     string
		from     models.Session
		ev       Event
		wantPage models.Page
		effect   Effect
		wantErr  error
	}{
		{"home continue", sessionOn(models.PageHome), Continue(), models.PageRegionSelect, EffectNone, nil},
		{"home select region", sessionOn(models.PageHome), SelectRegion(models.RegionUS), models.PageHome, EffectNone, ErrInvalidTransition},
		{"home tap", sessionOn(models.PageHome), TapItem(), models.PageHome, EffectNone, ErrInvalidTransition},
		{"region select", sessionOn(models.PageRegionSelect), SelectRegion(models.RegionBrazil), models.PageCollecting, EffectStartTimer, nil},
		{"region select unknown", sessionOn(models.PageRegionSelect), SelectRegion("Atlantis"), models.PageRegionSelect, EffectNone, ErrUnknownRegion},
		{"region select continue", sessionOn(models.PageRegionSelect), Continue(), models.PageRegionSelect, EffectNone, ErrInvalidTransition},
		{"collecting reselect", sessionOn(models.PageCollecting), SelectRegion(models.RegionUS), models.PageCollecting, EffectNone, ErrInvalidTransition},
		{"collecting early results", sessionOn(models.PageCollecting), AcknowledgeTimeExpired(), models.PageCollecting, EffectNone, ErrResultsLocked},
		{"collecting complete", sessionOn(models.PageCollecting), AcknowledgeComplete(), models.PageCollecting, EffectNone, ErrInvalidTransition},
		{"results tap", sessionOn(models.PageResults), TapItem(), models.PageResults, EffectNone, ErrInvalidTransition},
		{"results complete", sessionOn(models.PageResults), AcknowledgeComplete(), models.PageComplete, EffectNone, nil},
		{"complete continue", sessionOn(models.PageComplete), Continue(), models.PageComplete, EffectNone, ErrSessionComplete},
		{"complete tick", sessionOn(models.PageComplete), tick(), models.PageComplete, EffectNone, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, effect, err := Transition(tt.from, tt.ev)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, next)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantPage, next.Page)
			assert.Equal(t, tt.effect, effect)
		})
	}
}

func TestRegionSelectResetsCounters(t *testing.T) {
	for _, id := range models.RegionIDs {
		t.Run(string(id), func(t *testing.T) {
			s := sessionOn(models.PageRegionSelect)
			s.ItemsCollected = 17
			s.SecondsRemaining = 4

			next, effect, err := Transition(s, SelectRegion(id))
			require.NoError(t, err)
			assert.Equal(t, EffectStartTimer, effect)
			assert.Equal(t, models.CollectionSeconds, next.SecondsRemaining)
			assert.Equal(t, 0, next.ItemsCollected)
			require.NotNil(t, next.Region)
			assert.Equal(t, id, *next.Region)
		})
	}
}

func TestResultsOnlyAfterTimeRunsOut(t *testing.T) {
	s := sessionOn(models.PageCollecting)
	s.SecondsRemaining = 1

	_, _, err := Transition(s, AcknowledgeTimeExpired())
	require.ErrorIs(t, err, ErrResultsLocked)

	s, effect, err := Transition(s, tick())
	require.NoError(t, err)
	assert.Equal(t, 0, s.SecondsRemaining)
	assert.Equal(t, EffectStopTimer, effect)

	s, effect, err = Transition(s, AcknowledgeTimeExpired())
	require.NoError(t, err)
	assert.Equal(t, models.PageResults, s.Page)
	assert.Equal(t, EffectStopTimer, effect)
}

func TestTickNeverGoesNegative(t *testing.T) {
	s := sessionOn(models.PageCollecting)
	stops := 0
	for i := 0; i < models.CollectionSeconds+10; i++ {
		var effect Effect
		var err error
		s, effect, err = Transition(s, tick())
		require.NoError(t, err)
		if effect == EffectStopTimer {
			stops++
		}
		assert.GreaterOrEqual(t, s.SecondsRemaining, 0)
	}
	assert.Equal(t, 0, s.SecondsRemaining)
	assert.Equal(t, 1, stops, "reaching zero must stop the timer exactly once")
}

func TestTapAfterExpiryIsRefused(t *testing.T) {
	s := sessionOn(models.PageCollecting)
	s.SecondsRemaining = 0
	s.ItemsCollected = 3

	next, _, err := Transition(s, TapItem())
	require.ErrorIs(t, err, ErrTimeExpired)
	assert.Equal(t, 3, next.ItemsCollected)
}

func TestTransitionInvariantsUnderRandomInput(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	all := []Event{
		Continue(), TapItem(), AcknowledgeTimeExpired(), AcknowledgeComplete(), tick(), tick(), tick(),
		SelectRegion(models.RegionUS), SelectRegion(models.RegionGermany), SelectRegion("Mars"),
	}

	for run := 0; run < 200; run++ {
		s := models.NewSession(uuid.New())
		var setRegion *models.RegionID

		for step := 0; step < 300; step++ {
			ev := all[rng.Intn(len(all))]
			next, _, err := Transition(s, ev)
			if err != nil {
				require.Equal(t, s, next)
				continue
			}

			assert.GreaterOrEqual(t, next.Page.Ordinal(), s.Page.Ordinal(), "pages only move forward")
			assert.LessOrEqual(t, next.Page.Ordinal()-s.Page.Ordinal(), 1, "no page is skipped")
			assert.GreaterOrEqual(t, next.SecondsRemaining, 0)
			assert.LessOrEqual(t, next.SecondsRemaining, s.SecondsRemaining, "countdown never increases")

			if next.ItemsCollected != s.ItemsCollected {
				assert.Equal(t, models.PageCollecting, s.Page)
				assert.Equal(t, s.ItemsCollected+1, next.ItemsCollected)
			}

			if next.Page.Ordinal() <= models.PageRegionSelect.Ordinal() {
				assert.Nil(t, next.Region)
			} else {
				require.NotNil(t, next.Region)
				if setRegion == nil {
					setRegion = next.Region
				}
				assert.Equal(t, *setRegion, *next.Region, "region is immutable once set")
			}
			s = next
		}
	}
}
