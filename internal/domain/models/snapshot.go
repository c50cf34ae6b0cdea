package models

// SharedStateSnapshot is the explanation state shared by every view of one
// UI session. Writes are last-writer-wins.
type SharedStateSnapshot struct {
	CurrentThreadID    string   `json:"currentThreadId"`
	CurrentStateTags   []string `json:"currentStateTags"`
	ExplanationVisible bool     `json:"isExplanationPanelVisible"`
}

// Clone returns a deep copy of the snapshot.
func (s SharedStateSnapshot) Clone() SharedStateSnapshot {
	c := s
	if s.CurrentStateTags != nil {
		c.CurrentStateTags = append([]string(nil), s.CurrentStateTags...)
	}
	return c
}
