package schedule

import (
	"fmt"
	"strings"
)

// MetricKind identifies which tracked measurement a reminder is for.
type MetricKind int

const (
	BodyWeight MetricKind = iota + 1
	Glucose
	BloodPressure
	Pulse
	BodyTemp
)

var metricNames = map[MetricKind]string{
	BodyWeight:    "BODY_WGT",
	Glucose:       "BG",
	BloodPressure: "BP",
	Pulse:         "PULSE",
	BodyTemp:      "BODY_TEMP",
}

var metricLabels = map[MetricKind]string{
	BodyWeight:    "Body Weight",
	Glucose:       "Blood Glucose",
	BloodPressure: "Blood Pressure",
	Pulse:         "Pulse",
	BodyTemp:      "Body Temperature",
}

// Name returns the stable identifier persisted to storage.
func (m MetricKind) Name() string {
	if s, ok := metricNames[m]; ok {
		return s
	}
	return fmt.Sprintf("METRIC(%d)", int(m))
}

// Label returns the human-readable form used in job descriptions and
// reminder text.
func (m MetricKind) Label() string {
	if s, ok := metricLabels[m]; ok {
		return s
	}
	return m.Name()
}

func (m MetricKind) Valid() bool {
	_, ok := metricNames[m]
	return ok
}

// ParseMetricKind resolves a persisted metric name.
func ParseMetricKind(s string) (MetricKind, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for k, n := range metricNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown metric kind %q", s)
}

// MetricKinds lists all supported kinds in stable order.
func MetricKinds() []MetricKind {
	return []MetricKind{BodyWeight, Glucose, BloodPressure, Pulse, BodyTemp}
}
