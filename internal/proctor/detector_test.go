package proctor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func person(area float64) Detection {
	return Detection{Label: "person", Confidence: 0.9, Width: area, Height: 1}
}

func phone() Detection {
	return Detection{Label: "cell phone", Confidence: 0.8, Width: 0.1, Height: 0.1}
}

func TestObserveCountsRisingEdgeOnce(t *testing.T) {
	detector := NewDetector()

	at := base
	for i := 0; i < 10; i++ {
		observation := detector.Observe(at, []Detection{person(100), phone()})
		require.False(t, observation.Skipped)
		at = at.Add(time.Second)
	}

	require.Equal(t, 1, detector.Count(IncidentCellPhone))
}

func TestObserveCountsAgainAfterClear(t *testing.T) {
	detector := NewDetector()

	detector.Observe(base, []Detection{person(100), phone()})
	detector.Observe(base.Add(time.Second), []Detection{person(100)})
	observation := detector.Observe(base.Add(2*time.Second), []Detection{person(100), phone()})

	require.Equal(t, []IncidentType{IncidentCellPhone}, observation.Incidents)
	require.Equal(t, 2, detector.Count(IncidentCellPhone))
}

func TestObserveSkipsFastFrames(t *testing.T) {
	detector := NewDetector()

	first := detector.Observe(base, []Detection{person(100), phone()})
	require.False(t, first.Skipped)

	second := detector.Observe(base.Add(200*time.Millisecond), []Detection{person(100)})
	require.True(t, second.Skipped)

	// The skipped frame must not have registered a clear, so the phone is
	// still considered present and does not count again.
	third := detector.Observe(base.Add(time.Second), []Detection{person(100), phone()})
	require.Empty(t, third.Incidents)
	require.Equal(t, 1, detector.Count(IncidentCellPhone))
}

func TestObserveIgnoresLowConfidence(t *testing.T) {
	detector := NewDetector()

	observation := detector.Observe(base, []Detection{
		{Label: "person", Confidence: 0.39, Width: 10, Height: 10},
		{Label: "cell phone", Confidence: 0.2, Width: 1, Height: 1},
	})

	require.Contains(t, observation.Incidents, IncidentNoFace)
	require.NotContains(t, observation.Incidents, IncidentCellPhone)
}

func TestObserveNoFaceAndMultipleFace(t *testing.T) {
	detector := NewDetector()

	observation := detector.Observe(base, nil)
	require.Contains(t, observation.Incidents, IncidentNoFace)

	observation = detector.Observe(base.Add(time.Second), []Detection{person(100), person(90)})
	require.Contains(t, observation.Incidents, IncidentMultipleFace)
	require.Equal(t, 1, detector.Count(IncidentNoFace))
	require.Equal(t, 1, detector.Count(IncidentMultipleFace))
}

func TestBaselineSeedsAndSmooths(t *testing.T) {
	detector := NewDetector()

	detector.Observe(base, []Detection{person(100)})
	baseline, seeded := detector.Baseline()
	require.True(t, seeded)
	require.InDelta(t, 100, baseline, 1e-9)

	detector.Observe(base.Add(time.Second), []Detection{person(80)})
	baseline, _ = detector.Baseline()
	require.InDelta(t, 100*0.95+80*0.05, baseline, 1e-9)
}

func TestBaselineIgnoresCrowdedFrames(t *testing.T) {
	detector := NewDetector()

	detector.Observe(base, []Detection{person(100)})
	detector.Observe(base.Add(time.Second), []Detection{person(100), person(50)})

	baseline, _ := detector.Baseline()
	require.InDelta(t, 100, baseline, 1e-9)
}

func TestRecliningComparesAgainstPriorBaseline(t *testing.T) {
	detector := NewDetector()

	detector.Observe(base, []Detection{person(100)})

	// 60 < 0.7 * 100 even though this same frame will drag the baseline down.
	observation := detector.Observe(base.Add(time.Second), []Detection{person(60)})
	require.Contains(t, observation.Incidents, IncidentReclining)
}

func TestRecliningNeedsSeededBaseline(t *testing.T) {
	detector := NewDetector()

	observation := detector.Observe(base, []Detection{person(5)})
	require.NotContains(t, observation.Incidents, IncidentReclining)
}

func TestAlertCooldownSuppressesRepeats(t *testing.T) {
	detector := NewDetector()

	at := base
	first := detector.Observe(at, []Detection{person(100), phone()})
	require.Equal(t, []IncidentType{IncidentCellPhone}, first.Alerts)

	// Clear, then re-trigger inside the cooldown window: counted, not alerted.
	at = at.Add(time.Second)
	detector.Observe(at, []Detection{person(100)})
	at = at.Add(time.Second)
	second := detector.Observe(at, []Detection{person(100), phone()})
	require.Equal(t, []IncidentType{IncidentCellPhone}, second.Incidents)
	require.Empty(t, second.Alerts)

	// Clear and re-trigger after the cooldown has elapsed: alerted again.
	detector.Observe(at.Add(time.Second), []Detection{person(100)})
	third := detector.Observe(at.Add(DefaultAlertCooldown), []Detection{person(100), phone()})
	require.Equal(t, []IncidentType{IncidentCellPhone}, third.Alerts)
	require.Equal(t, 3, detector.Count(IncidentCellPhone))
}

func TestCountsReturnsCopy(t *testing.T) {
	detector := NewDetector()
	detector.Observe(base, nil)

	counts := detector.Counts()
	counts[IncidentNoFace] = 99

	require.Equal(t, 1, detector.Count(IncidentNoFace))
}
