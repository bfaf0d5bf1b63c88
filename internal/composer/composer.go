// Package composer derives the widgets a recipe starts with from its template.
package composer

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/widgetdeck/control-plane/internal/rules"
	"github.com/widgetdeck/control-plane/internal/store"
	"github.com/widgetdeck/control-plane/pkg/models"
)

// Templates maps known template ids to the widgets they produce. Ids not
// listed here fall back to keyword matching.
var Templates = map[string][]models.WidgetType{
	"welcome-journey":     {models.WidgetBanner, models.WidgetCarousel},
	"product-discovery":   {models.WidgetCarousel, models.WidgetVideoFeed},
	"flash-sale":          {models.WidgetCountdown, models.WidgetBanner},
	"engagement-quiz":     {models.WidgetQuiz},
	"shoppable-video":     {models.WidgetVideoFeed},
	"tinder-style-picker": {models.WidgetSwipeCard},
}

// keywords is matched in order against the template id.
var keywords = []struct {
	keyword string
	typ     models.WidgetType
}{
	{"swipe-card", models.WidgetSwipeCard},
	{"banner", models.WidgetBanner},
	{"carousel", models.WidgetCarousel},
	{"feed", models.WidgetVideoFeed},
}

// InferWidgetTypes returns the widget types a recipe with the given template
// starts with. story-bar is never inferred.
func InferWidgetTypes(templateID string) []models.WidgetType {
	if t := models.WidgetType(templateID); t.Valid() {
		if t == models.WidgetStoryBar {
			return nil
		}
		return []models.WidgetType{t}
	}

	if types, ok := Templates[templateID]; ok {
		return slices.DeleteFunc(slices.Clone(types), func(t models.WidgetType) bool {
			return t == models.WidgetStoryBar
		})
	}

	var types []models.WidgetType
	for _, kw := range keywords {
		if strings.Contains(templateID, kw.keyword) && !slices.Contains(types, kw.typ) {
			types = append(types, kw.typ)
		}
	}
	return types
}

// Composer creates a recipe's child widgets through the validation layer.
type Composer struct {
	rules *rules.Validator
}

func New(v *rules.Validator) *Composer {
	return &Composer{rules: v}
}

// Compose creates one draft widget per inferred type, owned by recipe. It must
// run in the same transaction that created recipe; any error is meant to roll
// the whole transaction back.
func (c *Composer) Compose(ctx context.Context, tx store.Tx, recipe *models.Recipe) ([]models.Widget, error) {
	types := InferWidgetTypes(recipe.TemplateID)
	created := make([]models.Widget, 0, len(types))

	for _, typ := range types {
		w := models.Widget{
			Name:           fmt.Sprintf("%s %s", recipe.Name, typ),
			Type:           typ,
			IsRecipeWidget: true,
			ParentRecipeID: models.ID(recipe.ID),
			Content:        map[string]interface{}{},
			Style:          map[string]interface{}{},
			Status:         models.WidgetStatusDraft,
		}
		if err := c.rules.Widget(ctx, tx, &w); err != nil {
			return nil, fmt.Errorf("compose %s widget: %w", typ, err)
		}
		if err := tx.CreateWidget(ctx, &w); err != nil {
			return nil, fmt.Errorf("compose %s widget: %w", typ, err)
		}
		created = append(created, w)
	}

	log.Debug().
		Int64("recipe_id", recipe.ID).
		Str("template", recipe.TemplateID).
		Int("widgets", len(created)).
		Msg("Recipe widgets composed")
	return created, nil
}
