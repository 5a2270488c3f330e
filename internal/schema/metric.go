package schema

// MetricType is the update semantics of a metric entry.
type MetricType int

const (
	MetricCounter MetricType = iota
	MetricGauge
	MetricCounterSet
	MetricRollingCounter
)

// MetricFlag modifies an entry's behavior.
type MetricFlag uint8

const (
	// FlagNoReset suppresses the reset-on-stop behavior that otherwise
	// restores an entry to its Init value when a node stops.
	FlagNoReset MetricFlag = 1 << iota
)

// MetricEntry is a single named metric: a literal name/help pair, a
// type, its init and current value, and an optional rolling counter for
// MetricRollingCounter entries.
type MetricEntry struct {
	Name    string
	Help    string
	Type    MetricType
	Init    float64
	Current float64
	Flags   MetricFlag
	Rolling *RollingCounter

	refs int // ref-counted: freed when the last reference is released
}

func (m *MetricEntry) NoReset() bool { return m.Flags&FlagNoReset != 0 }
