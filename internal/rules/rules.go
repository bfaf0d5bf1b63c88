// Package rules enforces the ownership rules between widgets, recipes and
// placements, and the schema of every payload the facade accepts.
package rules

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/widgetdeck/control-plane/internal/apperr"
	"github.com/widgetdeck/control-plane/internal/store"
	"github.com/widgetdeck/control-plane/pkg/models"
)

// Validator checks records against the store they are about to be written to.
// It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the widget_type tag registered.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("widget_type", func(fl validator.FieldLevel) bool {
		return models.WidgetType(fl.Field().String()).Valid()
	})
	return &Validator{v: v}
}

// jsonFieldName makes validation messages use wire names.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// Schema validates struct tags only and reports failures as InvalidPayload.
func (val *Validator) Schema(entity string, s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.InvalidPayload(entity, err, "invalid payload")
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, describe(fe))
	}
	return apperr.InvalidPayload(entity, nil, "%s", strings.Join(parts, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "widget_type":
		return fmt.Sprintf("%s %q is not a known widget type", field, fmt.Sprint(fe.Value()))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ── Widgets ─────────────────────────────────────────────────

// Widget applies the ownership rules in order, then the schema:
//
//  1. only story-bar widgets may exist without a parent recipe
//  2. the parent recipe must exist, and widgets-only recipes take no story-bar
//  3. a widget has at most one owner, and a placement owner must exist
//  4. struct tags
func (val *Validator) Widget(ctx context.Context, tx store.Tx, w *models.Widget) error {
	return val.widget(ctx, tx, w, false, false)
}

// WidgetUpdate runs the Widget rules on the merged record of an update.
// Recipe and placement deletes do not cascade, so an owner that was already
// gone before the update is tolerated as long as the update keeps it.
func (val *Validator) WidgetUpdate(ctx context.Context, tx store.Tx, orig, w *models.Widget) error {
	return val.widget(ctx, tx, w,
		sameID(orig.ParentRecipeID, w.ParentRecipeID),
		sameID(orig.PlacementID, w.PlacementID))
}

func (val *Validator) widget(ctx context.Context, tx store.Tx, w *models.Widget, keptParent, keptPlacement bool) error {
	if w.Type != models.WidgetStoryBar && w.ParentRecipeID == nil {
		return apperr.InvalidRelationship("widget", "widgets must be created inside a recipe")
	}

	if w.ParentRecipeID != nil {
		parent, err := tx.GetRecipe(ctx, *w.ParentRecipeID)
		switch {
		case apperr.KindOf(err) == apperr.KindNotFound:
			if !keptParent {
				return apperr.InvalidRelationship("widget", "parent recipe %d does not exist", *w.ParentRecipeID)
			}
		case err != nil:
			return err
		case parent.Category == models.RecipeCategoryWidgetsOnly && w.Type == models.WidgetStoryBar:
			return apperr.InvalidRelationship("widget", "story widgets are not allowed in widgets-only recipes")
		}
	}

	if w.PlacementID != nil {
		if w.ParentRecipeID != nil {
			return apperr.InvalidRelationship("widget", "a widget belongs to a recipe or a placement, not both")
		}
		if _, err := tx.GetPlacement(ctx, *w.PlacementID); err != nil {
			if apperr.KindOf(err) != apperr.KindNotFound {
				return err
			}
			if !keptPlacement {
				return apperr.InvalidRelationship("widget", "placement %d does not exist", *w.PlacementID)
			}
		}
	}

	return val.Schema("widget", w)
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ── Recipes ─────────────────────────────────────────────────

// Recipe validates the schema, the workflow graph and the delivery condition.
// For a stored recipe (non-zero ID) moving to widgets-only, it also rejects
// the change while the recipe still owns a story-bar widget.
func (val *Validator) Recipe(ctx context.Context, tx store.Tx, r *models.Recipe) error {
	if err := val.Schema("recipe", r); err != nil {
		return err
	}
	if err := checkWorkflow(r.Workflow); err != nil {
		return err
	}
	if _, err := CompileDeliveryCondition(r.DeliveryCondition); err != nil {
		return err
	}

	if r.ID == 0 || r.Category != models.RecipeCategoryWidgetsOnly {
		return nil
	}
	children, err := tx.ListWidgetsByRecipe(ctx, r.ID)
	if err != nil {
		return err
	}
	for _, w := range children {
		if w.Type == models.WidgetStoryBar {
			return apperr.InvalidRelationship("recipe",
				"recipe %d owns story widget %d and cannot become widgets-only", r.ID, w.ID)
		}
	}
	return nil
}

func checkWorkflow(wf models.Workflow) error {
	steps := make(map[string]struct{}, len(wf.Steps))
	for _, s := range wf.Steps {
		if _, dup := steps[s.ID]; dup {
			return apperr.InvalidPayload("recipe", nil, "workflow step %q is defined twice", s.ID)
		}
		steps[s.ID] = struct{}{}
	}
	for _, c := range wf.Connections {
		if c.From == c.To {
			return apperr.InvalidPayload("recipe", nil, "workflow step %q connects to itself", c.From)
		}
		for _, end := range []string{c.From, c.To} {
			if _, ok := steps[end]; !ok {
				return apperr.InvalidPayload("recipe", nil, "workflow connection references unknown step %q", end)
			}
		}
	}
	return nil
}

// ── Placements, segments, analytics, users ──────────────────

// Placement validates the schema and that an assigned widget exists.
func (val *Validator) Placement(ctx context.Context, tx store.Tx, p *models.Placement) error {
	return val.placement(ctx, tx, p, false)
}

// PlacementUpdate is Placement for the merged record of an update; a widget
// deleted before the update is tolerated while the update keeps it.
func (val *Validator) PlacementUpdate(ctx context.Context, tx store.Tx, orig, p *models.Placement) error {
	return val.placement(ctx, tx, p, sameID(orig.WidgetID, p.WidgetID))
}

func (val *Validator) placement(ctx context.Context, tx store.Tx, p *models.Placement, keptWidget bool) error {
	if err := val.Schema("placement", p); err != nil {
		return err
	}
	if p.WidgetID == nil {
		return nil
	}
	if _, err := tx.GetWidget(ctx, *p.WidgetID); err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			return err
		}
		if !keptWidget {
			return apperr.InvalidRelationship("placement", "widget %d does not exist", *p.WidgetID)
		}
	}
	return nil
}

func (val *Validator) Segment(s *models.AudienceSegment) error {
	return val.Schema("audience segment", s)
}

func (val *Validator) Analytics(a *models.Analytics) error {
	return val.Schema("analytics", a)
}

func (val *Validator) User(u *models.User) error {
	return val.Schema("user", u)
}
