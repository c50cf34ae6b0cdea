// Package scenario maps agent state tags to explanation cards.
package scenario

import (
	"regexp"
	"sort"
	"strings"

	"github.com/unifiedui/chat-bridge/internal/domain/models"
)

// Resolver picks the explanation card for a set of state tags. It is
// immutable after construction and safe for concurrent use.
type Resolver struct {
	ordered []models.Scenario
	catalog []models.Scenario
}

// NewResolver orders the catalog by priority. Entries sharing a priority
// keep their catalog order.
func NewResolver(catalog []models.Scenario) *Resolver {
	c := make([]models.Scenario, len(catalog))
	for i, s := range catalog {
		s.MatchTags = append([]string(nil), s.MatchTags...)
		c[i] = s
	}

	ordered := append([]models.Scenario(nil), c...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EffectivePriority() < ordered[j].EffectivePriority()
	})

	return &Resolver{ordered: ordered, catalog: c}
}

// Resolve returns the highest-priority scenario whose match tags intersect
// tags, or nil when none does.
func (r *Resolver) Resolve(tags []string) *models.Scenario {
	if len(tags) == 0 {
		return nil
	}
	for i := range r.ordered {
		if r.ordered[i].Matches(tags) {
			s := r.ordered[i]
			s.MatchTags = append([]string(nil), s.MatchTags...)
			return &s
		}
	}
	return nil
}

// Catalog returns the scenarios in catalog order.
func (r *Resolver) Catalog() []models.Scenario {
	out := make([]models.Scenario, len(r.catalog))
	for i, s := range r.catalog {
		s.MatchTags = append([]string(nil), s.MatchTags...)
		out[i] = s
	}
	return out
}

var pointPattern = regexp.MustCompile(`^(?:• )?\*\*(.*?)\*\*([\s\S]*)`)

// ParseDetails splits "• **Title**\n description" blocks separated by blank
// lines into points. Blocks without a bold title are skipped.
func ParseDetails(details string) []models.ScenarioPoint {
	var points []models.ScenarioPoint
	for _, block := range strings.Split(details, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		m := pointPattern.FindStringSubmatch(block)
		if m == nil {
			continue
		}
		points = append(points, models.ScenarioPoint{
			Title:       strings.TrimSpace(m[1]),
			Description: strings.TrimSpace(m[2]),
		})
	}
	return points
}
