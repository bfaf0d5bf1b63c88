package store

import (
	"context"
	"time"

	"github.com/widgetdeck/control-plane/pkg/models"
)

// view implements Tx over one state. It does no locking of its own: the
// MemoryStore holds the lock, or the state is a transaction's private copy.
type view struct {
	st    *state
	clock func() time.Time
}

// updateRow applies patch to a copy of the row and stores it only if the
// patch succeeds. The id is pinned so a patch cannot move a record.
func updateRow[T cloner[T]](t *table[T], entity string, id int64, patch PatchFunc[T], pin func(orig T, cur *T)) (*T, error) {
	orig, ok := t.get(id)
	if !ok {
		return nil, &ErrNotFound{Entity: entity, ID: id}
	}
	cur := orig.Clone()
	if patch != nil {
		if err := patch(&cur); err != nil {
			return nil, err
		}
	}
	pin(orig, &cur)
	t.put(id, cur)
	out := cur.Clone()
	return &out, nil
}

func getRow[T cloner[T]](t *table[T], entity string, id int64) (*T, error) {
	v, ok := t.get(id)
	if !ok {
		return nil, &ErrNotFound{Entity: entity, ID: id}
	}
	return &v, nil
}

// ── Users ───────────────────────────────────────────────────

func (v *view) ListUsers(_ context.Context) ([]models.User, error) {
	return v.st.users.list(nil), nil
}

func (v *view) GetUser(_ context.Context, id int64) (*models.User, error) {
	return getRow(v.st.users, "user", id)
}

func (v *view) CreateUser(_ context.Context, user *models.User) error {
	user.ID = v.st.users.nextID()
	user.CreatedAt = v.clock()
	v.st.users.put(user.ID, *user)
	return nil
}

func (v *view) UpdateUser(_ context.Context, id int64, patch PatchFunc[models.User]) (*models.User, error) {
	return updateRow(v.st.users, "user", id, patch, func(orig models.User, u *models.User) {
		u.ID = id
		u.CreatedAt = orig.CreatedAt
	})
}

func (v *view) DeleteUser(_ context.Context, id int64) error {
	v.st.users.remove(id)
	return nil
}

// ── Widgets ─────────────────────────────────────────────────

func (v *view) ListWidgets(_ context.Context) ([]models.Widget, error) {
	return v.st.widgets.list(nil), nil
}

func (v *view) ListWidgetsByRecipe(_ context.Context, recipeID int64) ([]models.Widget, error) {
	return v.st.widgets.list(func(w models.Widget) bool {
		return w.ParentRecipeID != nil && *w.ParentRecipeID == recipeID
	}), nil
}

func (v *view) GetWidget(_ context.Context, id int64) (*models.Widget, error) {
	return getRow(v.st.widgets, "widget", id)
}

func (v *view) CreateWidget(_ context.Context, widget *models.Widget) error {
	now := v.clock()
	widget.ID = v.st.widgets.nextID()
	widget.CreatedAt = now
	widget.UpdatedAt = now
	v.st.widgets.put(widget.ID, *widget)
	return nil
}

func (v *view) UpdateWidget(_ context.Context, id int64, patch PatchFunc[models.Widget]) (*models.Widget, error) {
	return updateRow(v.st.widgets, "widget", id, patch, func(orig models.Widget, w *models.Widget) {
		w.ID = id
		w.CreatedAt = orig.CreatedAt
		w.UpdatedAt = v.clock()
	})
}

func (v *view) DeleteWidget(_ context.Context, id int64) error {
	v.st.widgets.remove(id)
	return nil
}

// ── Recipes ─────────────────────────────────────────────────

func (v *view) ListRecipes(_ context.Context) ([]models.Recipe, error) {
	return v.st.recipes.list(nil), nil
}

func (v *view) GetRecipe(_ context.Context, id int64) (*models.Recipe, error) {
	return getRow(v.st.recipes, "recipe", id)
}

func (v *view) CreateRecipe(_ context.Context, recipe *models.Recipe) error {
	now := v.clock()
	recipe.ID = v.st.recipes.nextID()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	v.st.recipes.put(recipe.ID, *recipe)
	return nil
}

func (v *view) UpdateRecipe(_ context.Context, id int64, patch PatchFunc[models.Recipe]) (*models.Recipe, error) {
	return updateRow(v.st.recipes, "recipe", id, patch, func(orig models.Recipe, r *models.Recipe) {
		r.ID = id
		r.CreatedAt = orig.CreatedAt
		r.UpdatedAt = v.clock()
	})
}

// DeleteRecipe leaves owned widgets in place.
func (v *view) DeleteRecipe(_ context.Context, id int64) error {
	v.st.recipes.remove(id)
	return nil
}

// ── Placements ──────────────────────────────────────────────

func (v *view) ListPlacements(_ context.Context) ([]models.Placement, error) {
	return v.st.placements.list(nil), nil
}

func (v *view) GetPlacement(_ context.Context, id int64) (*models.Placement, error) {
	return getRow(v.st.placements, "placement", id)
}

func (v *view) CreatePlacement(_ context.Context, placement *models.Placement) error {
	placement.ID = v.st.placements.nextID()
	placement.CreatedAt = v.clock()
	v.st.placements.put(placement.ID, *placement)
	return nil
}

func (v *view) UpdatePlacement(_ context.Context, id int64, patch PatchFunc[models.Placement]) (*models.Placement, error) {
	return updateRow(v.st.placements, "placement", id, patch, func(orig models.Placement, p *models.Placement) {
		p.ID = id
		p.CreatedAt = orig.CreatedAt
	})
}

func (v *view) DeletePlacement(_ context.Context, id int64) error {
	v.st.placements.remove(id)
	return nil
}

// ── Audience Segments ───────────────────────────────────────

func (v *view) ListSegments(_ context.Context) ([]models.AudienceSegment, error) {
	return v.st.segments.list(nil), nil
}

func (v *view) GetSegment(_ context.Context, id int64) (*models.AudienceSegment, error) {
	return getRow(v.st.segments, "audience segment", id)
}

func (v *view) CreateSegment(_ context.Context, segment *models.AudienceSegment) error {
	segment.ID = v.st.segments.nextID()
	segment.CreatedAt = v.clock()
	v.st.segments.put(segment.ID, *segment)
	return nil
}

func (v *view) UpdateSegment(_ context.Context, id int64, patch PatchFunc[models.AudienceSegment]) (*models.AudienceSegment, error) {
	return updateRow(v.st.segments, "audience segment", id, patch, func(orig models.AudienceSegment, s *models.AudienceSegment) {
		s.ID = id
		s.CreatedAt = orig.CreatedAt
	})
}

func (v *view) DeleteSegment(_ context.Context, id int64) error {
	v.st.segments.remove(id)
	return nil
}

// ── Analytics ───────────────────────────────────────────────

func (v *view) ListAnalytics(_ context.Context, filter models.AnalyticsFilter) ([]models.Analytics, error) {
	return v.st.analytics.list(filter.Match), nil
}

func (v *view) GetAnalytics(_ context.Context, id int64) (*models.Analytics, error) {
	return getRow(v.st.analytics, "analytics", id)
}

// CreateAnalytics stamps Date with the current time when the caller left it zero.
func (v *view) CreateAnalytics(_ context.Context, record *models.Analytics) error {
	record.ID = v.st.analytics.nextID()
	if record.Date.IsZero() {
		record.Date = v.clock()
	}
	v.st.analytics.put(record.ID, *record)
	return nil
}

func (v *view) SummarizeAnalytics(_ context.Context, filter models.AnalyticsFilter) ([]models.MetricTotal, error) {
	idx := make(map[string]int)
	totals := []models.MetricTotal{}
	for _, a := range v.st.analytics.list(filter.Match) {
		i, ok := idx[a.Metric]
		if !ok {
			i = len(totals)
			idx[a.Metric] = i
			totals = append(totals, models.MetricTotal{Metric: a.Metric})
		}
		totals[i].Count++
		totals[i].Sum += a.Value
	}
	return totals, nil
}

func (v *view) PurgeAnalytics(_ context.Context, cutoff time.Time) ([]models.Analytics, error) {
	expired := v.st.analytics.list(func(a models.Analytics) bool { return a.Date.Before(cutoff) })
	for _, a := range expired {
		v.st.analytics.remove(a.ID)
	}
	return expired, nil
}
