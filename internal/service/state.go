package service

// ManagerState is the state the process manager reports for the service unit.
type ManagerState int

const (
	ManagerUnknown ManagerState = iota
	ManagerActive
	ManagerInactive
	ManagerFailed
)

func (s ManagerState) String() string {
	switch s {
	case ManagerActive:
		return "active"
	case ManagerInactive:
		return "inactive"
	case ManagerFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProbeState is the readiness probe's view of the data engine.
type ProbeState int

const (
	// ProbeError means the probe itself could not produce an answer.
	ProbeError ProbeState = iota
	ProbeReady
	ProbeNotReady
)

func (s ProbeState) String() string {
	switch s {
	case ProbeReady:
		return "ready"
	case ProbeNotReady:
		return "not_ready"
	default:
		return "probe_error"
	}
}

// CompositeStatus reconciles the manager state with the probe state.
type CompositeStatus int

const (
	IndeterminateStatus CompositeStatus = iota
	RunningConsistent
	RunningInconsistent
	StoppedConsistent
	StoppedInconsistent
	FailedButServing
	FailedAndDown
)

func (s CompositeStatus) String() string {
	switch s {
	case RunningConsistent:
		return "running"
	case RunningInconsistent:
		return "running_inconsistent"
	case StoppedConsistent:
		return "stopped"
	case StoppedInconsistent:
		return "stopped_inconsistent"
	case FailedButServing:
		return "failed_but_serving"
	case FailedAndDown:
		return "failed_and_down"
	default:
		return "indeterminate"
	}
}

// Compose maps a manager/probe reading to its CompositeStatus. A probe that
// failed to run yields IndeterminateStatus regardless of the manager state.
func Compose(m ManagerState, p ProbeState) CompositeStatus {
	if p == ProbeError {
		return IndeterminateStatus
	}
	ready := p == ProbeReady
	switch m {
	case ManagerActive:
		if ready {
			return RunningConsistent
		}
		return RunningInconsistent
	case ManagerInactive:
		if ready {
			return StoppedInconsistent
		}
		return StoppedConsistent
	case ManagerFailed:
		if ready {
			return FailedButServing
		}
		return FailedAndDown
	default:
		return IndeterminateStatus
	}
}

// Reading is a single observation of both signals.
type Reading struct {
	Manager ManagerState
	Probe   ProbeState
}

// Status returns the composite status of the reading.
func (r Reading) Status() CompositeStatus {
	return Compose(r.Manager, r.Probe)
}

// Outcome is the result of a successful transition.
type Outcome int

const (
	// Success means the first requested action reached the target state.
	Success Outcome = iota
	// SuccessWithEscalation means a stronger action was needed.
	SuccessWithEscalation
)

func (o Outcome) String() string {
	if o == SuccessWithEscalation {
		return "success_with_escalation"
	}
	return "success"
}
