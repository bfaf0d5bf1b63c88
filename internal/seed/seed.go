// Package seed loads demo data through the facade at startup, so fixtures
// obey the same rules as API writes.
package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/widgetdeck/control-plane/internal/facade"
	"github.com/widgetdeck/control-plane/pkg/models"
)

// Executor is the part of the facade the loader needs.
type Executor interface {
	Execute(ctx context.Context, req facade.Request) (*facade.Result, error)
}

// Fixtures is a dataset. References between records (parent_recipe_id,
// placement_id, widget_id) use the ids a fresh store assigns, starting at 1
// per type in file order. Widgets composed for recipes count towards the
// widget ids.
type Fixtures struct {
	Users      []models.User            `json:"users"`
	Recipes    []models.Recipe          `json:"recipes"`
	Placements []models.Placement       `json:"placements"`
	Widgets    []models.Widget          `json:"widgets"`
	Segments   []models.AudienceSegment `json:"audience_segments"`
	Analytics  []models.Analytics       `json:"analytics"`
}

// ReadFile decodes a JSON fixture file.
func ReadFile(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var fx Fixtures
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode fixtures %s: %w", path, err)
	}
	return &fx, nil
}

// Load creates every fixture record, stopping at the first rejected one.
// It returns the number of records created per resource.
func Load(ctx context.Context, ex Executor, fx *Fixtures) (map[facade.Resource]int, error) {
	counts := make(map[facade.Resource]int)

	steps := []struct {
		resource facade.Resource
		records  []any
	}{
		{facade.ResourceUsers, asAny(fx.Users)},
		{facade.ResourceRecipes, asAny(fx.Recipes)},
		{facade.ResourcePlacements, asAny(fx.Placements)},
		{facade.ResourceWidgets, asAny(fx.Widgets)},
		{facade.ResourceAudienceSegments, asAny(fx.Segments)},
		{facade.ResourceAnalytics, asAny(fx.Analytics)},
	}

	for _, step := range steps {
		for i, rec := range step.records {
			payload, err := json.Marshal(rec)
			if err != nil {
				return counts, fmt.Errorf("encode %s[%d]: %w", step.resource, i, err)
			}
			if _, err := ex.Execute(ctx, facade.Request{
				Verb:     facade.VerbPost,
				Resource: step.resource,
				Payload:  payload,
			}); err != nil {
				return counts, fmt.Errorf("seed %s[%d]: %w", step.resource, i, err)
			}
			counts[step.resource]++
		}
	}

	log.Info().
		Int("users", counts[facade.ResourceUsers]).
		Int("recipes", counts[facade.ResourceRecipes]).
		Int("placements", counts[facade.ResourcePlacements]).
		Int("widgets", counts[facade.ResourceWidgets]).
		Int("segments", counts[facade.ResourceAudienceSegments]).
		Int("analytics", counts[facade.ResourceAnalytics]).
		Msg("Seed data loaded")
	return counts, nil
}

func asAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i := range in {
		out[i] = in[i]
	}
	return out
}
