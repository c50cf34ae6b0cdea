package models

// DefaultScenarioPriority is used for catalog entries that omit a priority.
const DefaultScenarioPriority = 999

// Scenario is a static explanation card bound to one or more state tags.
type Scenario struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Details     string   `json:"details"`
	MatchTags   []string `json:"matchTags"`
	Priority    int      `json:"priority,omitempty"`
}

// EffectivePriority returns the priority used for ordering.
func (s Scenario) EffectivePriority() int {
	if s.Priority == 0 {
		return DefaultScenarioPriority
	}
	return s.Priority
}

// Matches reports whether any of the scenario's tags appear in tags.
func (s Scenario) Matches(tags []string) bool {
	for _, want := range s.MatchTags {
		for _, have := range tags {
			if want == have {
				return true
			}
		}
	}
	return false
}

// ScenarioPoint is one "how it works" step parsed from Scenario.Details.
type ScenarioPoint struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
