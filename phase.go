package pickplace

// Phase is the current stage of the pick-and-place cycle. Exactly one Phase
// is active at a time; Success and Failed are terminal.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseApproach
	PhasePostureAdjust
	PhaseDescend
	PhaseGrasp
	PhaseGraspSettle
	PhaseLift
	PhaseRetreat
	PhaseTransport
	PhaseRelease
	PhaseReturnHome
	PhaseSuccess
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:          "idle",
	PhaseApproach:      "approach",
	PhasePostureAdjust: "posture_adjust",
	PhaseDescend:       "descend",
	PhaseGrasp:         "grasp",
	PhaseGraspSettle:   "grasp_settle",
	PhaseLift:          "lift",
	PhaseRetreat:       "retreat",
	PhaseTransport:     "transport",
	PhaseRelease:       "release",
	PhaseReturnHome:    "return_home",
	PhaseSuccess:       "success",
	PhaseFailed:        "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the episode has ended in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseFailed
}

// Outcome is the terminal result of an episode.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

// Reason classifies why an episode ended the way it did. The driver only ever
// observes Success or Failed plus one of these codes.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonCompleted
	ReasonIKFailure
	ReasonGraspLost
	ReasonGroundCollision
	ReasonPlacementTimeout
	ReasonLiftTimeout
	ReasonRegionMoved
)

var reasonNames = map[Reason]string{
	ReasonNone:             "none",
	ReasonCompleted:        "completed",
	ReasonIKFailure:        "ik_failure",
	ReasonGraspLost:        "grasp_lost",
	ReasonGroundCollision:  "ground_collision",
	ReasonPlacementTimeout: "placement_timeout",
	ReasonLiftTimeout:      "lift_timeout",
	ReasonRegionMoved:      "region_moved",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unknown"
}
