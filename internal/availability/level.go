package availability

// Level is the 3-step busy classification used for calendar rendering.
type Level int

const (
	Empty Level = iota
	Busy
	VeryBusy
)

func (l Level) String() string {
	switch l {
	case Busy:
		return "busy"
	case VeryBusy:
		return "very_busy"
	default:
		return "empty"
	}
}

// Classify maps reserved minutes vs open minutes to a Level.
//
// ratio > 0.6 is VeryBusy, 0.3 < ratio <= 0.6 is Busy, anything else Empty.
// The comparisons are cross-multiplied so exact boundary ratios (a day that
// is reserved for precisely 60% of its open time) land in the lower class
// without floating-point surprises. totalMin == 0 means no open hours at
// all, defined as Empty rather than a division by zero.
func Classify(busyMin, totalMin int) Level {
	if totalMin <= 0 {
		return Empty
	}
	switch {
	case 10*busyMin > 6*totalMin:
		return VeryBusy
	case 10*busyMin > 3*totalMin:
		return Busy
	default:
		return Empty
	}
}
