package discussion

// Phase is a stage in the discussion session lifecycle. Transitions are
// driven solely by server events and are never reversible.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseActive
	PhaseEnded
	PhaseLocked
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	case PhaseLocked:
		return "locked"
	default:
		return "unknown"
	}
}
