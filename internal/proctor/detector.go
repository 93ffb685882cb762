package proctor

import "time"

// IncidentType identifies one malpractice signal tracked by the detector.
type IncidentType string

// Incident types produced by the detector.
const (
	IncidentNoFace           IncidentType = "no_face"
	IncidentMultipleFace     IncidentType = "multiple_face"
	IncidentCellPhone        IncidentType = "cell_phone"
	IncidentProhibitedObject IncidentType = "prohibited_object"
	IncidentReclining        IncidentType = "reclining"
)

// AllIncidentTypes lists every incident type in a stable order.
var AllIncidentTypes = []IncidentType{
	IncidentNoFace,
	IncidentMultipleFace,
	IncidentCellPhone,
	IncidentProhibitedObject,
	IncidentReclining,
}

// Detection is one labeled, confidence-scored bounding box from the
// classification collaborator.
type Detection struct {
	Label      string
	Confidence float64
	Width      float64
	Height     float64
}

// Area returns the bounding box area.
func (d Detection) Area() float64 {
	return d.Width * d.Height
}

// Classification labels the detector reacts to.
const (
	labelPerson    = "person"
	labelCellPhone = "cell phone"
	labelBook      = "book"
)

// Tuning constants for the detection loop.
const (
	// DefaultConfidenceFloor is deliberately relaxed to favour recall.
	DefaultConfidenceFloor = 0.4
	// DefaultMinCycleInterval gates the loop to at most one cycle per second.
	DefaultMinCycleInterval = time.Second
	// DefaultAlertCooldown suppresses repeat user-facing alerts per type.
	DefaultAlertCooldown = 10 * time.Second

	baselineDecay       = 0.95
	recliningHysteresis = 0.7
)

// Observation summarises one detector cycle. Incidents holds the types that
// rose on this cycle; Alerts the subset that also cleared the per-type
// cooldown and should be surfaced to the user.
type Observation struct {
	Skipped   bool
	Incidents []IncidentType
	Alerts    []IncidentType
}

// Detector converts noisy per-frame detections into discrete, de-duplicated
// incidents. One instance is scoped to a single exam attempt; it carries all
// rolling state as fields so concurrent attempts in one process never share
// anything.
type Detector struct {
	confidenceFloor  float64
	minCycleInterval time.Duration
	alertCooldown    time.Duration

	baseline       float64
	baselineSeeded bool
	previous       map[IncidentType]bool
	lastAlert      map[IncidentType]time.Time
	lastCycle      time.Time
	counts         map[IncidentType]int
}

// NewDetector creates a detector with default tuning.
func NewDetector() *Detector {
	return &Detector{
		confidenceFloor:  DefaultConfidenceFloor,
		minCycleInterval: DefaultMinCycleInterval,
		alertCooldown:    DefaultAlertCooldown,
		previous:         make(map[IncidentType]bool),
		lastAlert:        make(map[IncidentType]time.Time),
		counts:           make(map[IncidentType]int),
	}
}

// Observe runs one detection cycle against the detections classified from a
// single frame. Frames arriving less than the minimum interval after the
// previous cycle are skipped without touching any state. Incidents are
// recorded only on a rising edge: a condition that stays true across many
// cycles counts exactly once.
func (d *Detector) Observe(at time.Time, detections []Detection) Observation {
	if !d.lastCycle.IsZero() && at.Sub(d.lastCycle) < d.minCycleInterval {
		return Observation{Skipped: true}
	}
	d.lastCycle = at

	var persons []Detection
	var hasPhone, hasBook bool
	for _, detection := range detections {
		if detection.Confidence < d.confidenceFloor {
			continue
		}
		switch detection.Label {
		case labelPerson:
			persons = append(persons, detection)
		case labelCellPhone:
			hasPhone = true
		case labelBook:
			hasBook = true
		}
	}

	current := map[IncidentType]bool{
		IncidentNoFace:           len(persons) == 0,
		IncidentMultipleFace:     len(persons) > 1,
		IncidentCellPhone:        hasPhone,
		IncidentProhibitedObject: hasBook,
		IncidentReclining:        d.isReclining(persons),
	}

	d.updateBaseline(persons)

	observation := Observation{}
	for _, incidentType := range AllIncidentTypes {
		if current[incidentType] && !d.previous[incidentType] {
			d.counts[incidentType]++
			observation.Incidents = append(observation.Incidents, incidentType)

			last, alerted := d.lastAlert[incidentType]
			if !alerted || at.Sub(last) >= d.alertCooldown {
				d.lastAlert[incidentType] = at
				observation.Alerts = append(observation.Alerts, incidentType)
			}
		}
	}

	d.previous = current
	return observation
}

// isReclining reports whether a lone subject has shrunk below the hysteresis
// fraction of the rolling baseline. It always sees the baseline as it stood
// before this frame's smoothing update.
func (d *Detector) isReclining(persons []Detection) bool {
	if len(persons) != 1 || !d.baselineSeeded {
		return false
	}
	return persons[0].Area() < recliningHysteresis*d.baseline
}

// updateBaseline exponentially smooths the expected subject size. Only
// frames with exactly one confident subject contribute; the first such frame
// seeds the baseline.
func (d *Detector) updateBaseline(persons []Detection) {
	if len(persons) != 1 {
		return
	}
	area := persons[0].Area()
	if !d.baselineSeeded {
		d.baseline = area
		d.baselineSeeded = true
		return
	}
	d.baseline = d.baseline*baselineDecay + area*(1-baselineDecay)
}

// Count returns the monotonic incident count for one type.
func (d *Detector) Count(incidentType IncidentType) int {
	return d.counts[incidentType]
}

// Counts returns a copy of all per-type incident counts.
func (d *Detector) Counts() map[IncidentType]int {
	counts := make(map[IncidentType]int, len(d.counts))
	for incidentType, count := range d.counts {
		counts[incidentType] = count
	}
	return counts
}

// Baseline exposes the current rolling baseline, mainly for tests.
func (d *Detector) Baseline() (float64, bool) {
	return d.baseline, d.baselineSeeded
}
