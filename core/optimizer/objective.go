package optimizer

import "fmt"

// Objective selects the weighting used by the remote optimizer.
type Objective string

const (
	// ObjectiveHeavy favours affordability for heavy users.
	ObjectiveHeavy Objective = "heavy"
	// ObjectiveProportional favours costs proportional to usage.
	ObjectiveProportional Objective = "proportional"
)

// Objectives lists every supported objective.
var Objectives = []Objective{ObjectiveHeavy, ObjectiveProportional}

// ParseObjective converts s into an Objective.
func ParseObjective(s string) (Objective, error) {
	switch Objective(s) {
	case ObjectiveHeavy, ObjectiveProportional:
		return Objective(s), nil
	default:
		return "", fmt.Errorf("unknown objective: %q", s)
	}
}

func (o Objective) String() string { return string(o) }

// flags returns the heavy and proportionality weights as query values.
// Exactly one of them is "1".
func (o Objective) flags() (heavy, proportionality string) {
	if o == ObjectiveHeavy {
		return "1", "0"
	}
	return "0", "1"
}
