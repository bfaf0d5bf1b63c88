package store_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/widgetdeck/control-plane/internal/apperr"
	"github.com/widgetdeck/control-plane/internal/store"
	"github.com/widgetdeck/control-plane/pkg/models"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestStore creates a fresh in-memory store with a fixed clock.
func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore(store.WithClock(func() time.Time { return fixedNow }))
	t.Cleanup(func() { s.Close() })
	return s
}

// ─── Widget CRUD ─────────────────────────────────────────────

func TestCreateAndGetWidget_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := models.Widget{
		Name:    "Spring banner",
		Type:    models.WidgetBanner,
		Content: map[string]interface{}{models.ContentTitle: "Spring sale"},
		Style:   map[string]interface{}{models.StyleTextColor: "#fff"},
		Status:  models.WidgetStatusDraft,
	}
	w := in.Clone()
	if err := s.CreateWidget(ctx, &w); err != nil {
		t.Fatalf("CreateWidget() error = %v", err)
	}
	if w.ID != 1 {
		t.Errorf("CreateWidget() id = %d, want 1", w.ID)
	}

	got, err := s.GetWidget(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetWidget() error = %v", err)
	}

	want := in
	want.ID = 1
	want.CreatedAt = fixedNow
	want.UpdatedAt = fixedNow
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("GetWidget() = %+v, want %+v", *got, want)
	}
}

func TestGetWidget_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetWidget(context.Background(), 42)
	var nf *store.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("GetWidget() error = %v, want *ErrNotFound", err)
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("KindOf() = %q, want %q", apperr.KindOf(err), apperr.KindNotFound)
	}
}

func TestStoredRecordIsIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := models.Widget{Name: "w", Type: models.WidgetStoryBar, Content: map[string]interface{}{"k": "v"}}
	s.CreateWidget(ctx, &w)
	w.Content["k"] = "mutated"

	got, _ := s.GetWidget(ctx, w.ID)
	got.Content["k"] = "also mutated"

	again, _ := s.GetWidget(ctx, w.ID)
	if again.Content["k"] != "v" {
		t.Errorf("stored content = %v, want %q", again.Content["k"], "v")
	}
}

func TestListWidgets_InsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"c", "a", "b"} {
		s.CreateWidget(ctx, &models.Widget{Name: name, Type: models.WidgetStoryBar})
	}
	s.DeleteWidget(ctx, 2)
	s.CreateWidget(ctx, &models.Widget{Name: "d", Type: models.WidgetStoryBar})

	widgets, err := s.ListWidgets(ctx)
	if err != nil {
		t.Fatalf("ListWidgets() error = %v", err)
	}
	var names []string
	var ids []int64
	for _, w := range widgets {
		names = append(names, w.Name)
		ids = append(ids, w.ID)
	}
	if !reflect.DeepEqual(names, []string{"c", "b", "d"}) {
		t.Errorf("ListWidgets() names = %v, want [c b d]", names)
	}
	if !reflect.DeepEqual(ids, []int64{1, 3, 4}) {
		t.Errorf("ListWidgets() ids = %v, want [1 3 4] (ids are never reused)", ids)
	}
}

func TestListWidgetsByRecipe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.CreateWidget(ctx, &models.Widget{Name: "a", Type: models.WidgetBanner, ParentRecipeID: models.ID(7)})
	s.CreateWidget(ctx, &models.Widget{Name: "b", Type: models.WidgetStoryBar})
	s.CreateWidget(ctx, &models.Widget{Name: "c", Type: models.WidgetCarousel, ParentRecipeID: models.ID(7)})
	s.CreateWidget(ctx, &models.Widget{Name: "d", Type: models.WidgetCarousel, ParentRecipeID: models.ID(8)})

	got, _ := s.ListWidgetsByRecipe(ctx, 7)
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" {
		t.Errorf("ListWidgetsByRecipe(7) = %+v, want widgets a and c", got)
	}
}

func TestUpdateWidget(t *testing.T) {
	later := fixedNow.Add(time.Hour)
	now := fixedNow
	s := store.NewMemoryStore(store.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	w := models.Widget{Name: "old", Type: models.WidgetStoryBar, Status: models.WidgetStatusDraft}
	s.CreateWidget(ctx, &w)

	now = later
	got, err := s.UpdateWidget(ctx, w.ID, func(rec *models.Widget) error {
		rec.Name = "new"
		rec.ID = 99
		rec.CreatedAt = time.Time{}
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateWidget() error = %v", err)
	}
	if got.Name != "new" || got.ID != w.ID {
		t.Errorf("UpdateWidget() = %+v, want name new and id %d", got, w.ID)
	}
	if !got.CreatedAt.Equal(fixedNow) || !got.UpdatedAt.Equal(later) {
		t.Errorf("timestamps = %v/%v, want %v/%v", got.CreatedAt, got.UpdatedAt, fixedNow, later)
	}
}

func TestUpdateWidget_PatchErrorLeavesRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := models.Widget{Name: "keep", Type: models.WidgetStoryBar}
	s.CreateWidget(ctx, &w)

	boom := errors.New("rejected")
	_, err := s.UpdateWidget(ctx, w.ID, func(rec *models.Widget) error {
		rec.Name = "changed"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("UpdateWidget() error = %v, want %v", err, boom)
	}
	got, _ := s.GetWidget(ctx, w.ID)
	if got.Name != "keep" {
		t.Errorf("Name after failed patch = %q, want %q", got.Name, "keep")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpdateWidget(ctx, 5, nil); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("UpdateWidget(missing) error = %v, want not found", err)
	}
	if _, err := s.UpdateRecipe(ctx, 5, nil); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("UpdateRecipe(missing) error = %v, want not found", err)
	}
	if _, err := s.UpdatePlacement(ctx, 5, nil); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("UpdatePlacement(missing) error = %v, want not found", err)
	}
	if _, err := s.UpdateSegment(ctx, 5, nil); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("UpdateSegment(missing) error = %v, want not found", err)
	}
	if _, err := s.UpdateUser(ctx, 5, nil); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("UpdateUser(missing) error = %v, want not found", err)
	}
}

func TestDelete_MissingIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for name, del := range map[string]func(context.Context, int64) error{
		"widget":    s.DeleteWidget,
		"recipe":    s.DeleteRecipe,
		"placement": s.DeletePlacement,
		"segment":   s.DeleteSegment,
		"user":      s.DeleteUser,
	} {
		if err := del(ctx, 404); err != nil {
			t.Errorf("Delete %s(missing) error = %v, want nil", name, err)
		}
	}
}

// ─── Recipes ─────────────────────────────────────────────────

func TestRecipeDeleteDoesNotCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := models.Recipe{Name: "r", TemplateID: "banner", Category: models.RecipeCategoryStandard}
	s.CreateRecipe(ctx, &r)
	w := models.Widget{Name: "w", Type: models.WidgetBanner, ParentRecipeID: models.ID(r.ID)}
	s.CreateWidget(ctx, &w)

	if err := s.DeleteRecipe(ctx, r.ID); err != nil {
		t.Fatalf("DeleteRecipe() error = %v", err)
	}
	if _, err := s.GetWidget(ctx, w.ID); err != nil {
		t.Errorf("GetWidget() after recipe delete error = %v, want widget kept", err)
	}
}

func TestRecipeCloneIsDeep(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := models.Recipe{
		Name:       "flow",
		TemplateID: "carousel",
		Workflow: models.Workflow{
			Steps:       []models.WorkflowStep{{ID: "s1", Type: "trigger", Config: map[string]interface{}{"event": "open"}}},
			Connections: []models.Connection{{From: "s1", To: "s2"}},
		},
	}
	s.CreateRecipe(ctx, &r)
	r.Workflow.Steps[0].Config["event"] = "mutated"
	r.Workflow.Connections[0].To = "mutated"

	got, _ := s.GetRecipe(ctx, r.ID)
	if got.Workflow.Steps[0].Config["event"] != "open" || got.Workflow.Connections[0].To != "s2" {
		t.Errorf("stored workflow aliased caller state: %+v", got.Workflow)
	}
}

// ─── Transactions ────────────────────────────────────────────

func TestWithTx_Commit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		r := models.Recipe{Name: "r", TemplateID: "banner"}
		if err := tx.CreateRecipe(ctx, &r); err != nil {
			return err
		}
		return tx.CreateWidget(ctx, &models.Widget{Name: "w", Type: models.WidgetBanner, ParentRecipeID: models.ID(r.ID)})
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	recipes, _ := s.ListRecipes(ctx)
	widgets, _ := s.ListWidgets(ctx)
	if len(recipes) != 1 || len(widgets) != 1 {
		t.Errorf("after commit: %d recipes, %d widgets, want 1 and 1", len(recipes), len(widgets))
	}
}

func TestWithTx_RollbackRestoresDataAndIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("second widget failed")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		r := models.Recipe{Name: "r", TemplateID: "banner"}
		tx.CreateRecipe(ctx, &r)
		tx.CreateWidget(ctx, &models.Widget{Name: "w1", Type: models.WidgetBanner, ParentRecipeID: models.ID(r.ID)})

		// Reads inside the transaction see staged writes.
		if _, err := tx.GetRecipe(ctx, r.ID); err != nil {
			t.Errorf("tx.GetRecipe() error = %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want %v", err, boom)
	}

	recipes, _ := s.ListRecipes(ctx)
	widgets, _ := s.ListWidgets(ctx)
	if len(recipes) != 0 || len(widgets) != 0 {
		t.Fatalf("after rollback: %d recipes, %d widgets, want none", len(recipes), len(widgets))
	}

	r := models.Recipe{Name: "next", TemplateID: "banner"}
	s.CreateRecipe(ctx, &r)
	if r.ID != 1 {
		t.Errorf("id after rollback = %d, want 1", r.ID)
	}
}

// ─── Analytics ───────────────────────────────────────────────

func TestAnalyticsFilterAndSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	records := []models.Analytics{
		{EntityType: models.EntityWidget, EntityID: 1, Metric: "impressions", Value: 100, Date: day},
		{EntityType: models.EntityWidget, EntityID: 1, Metric: "clicks", Value: 7, Date: day},
		{EntityType: models.EntityWidget, EntityID: 1, Metric: "impressions", Value: 50, Date: day},
		{EntityType: models.EntityWidget, EntityID: 2, Metric: "impressions", Value: 10, Date: day},
		{EntityType: models.EntityRecipe, EntityID: 1, Metric: "conversions", Value: 3},
	}
	for i := range records {
		if err := s.CreateAnalytics(ctx, &records[i]); err != nil {
			t.Fatalf("CreateAnalytics() error = %v", err)
		}
	}
	if !records[4].Date.Equal(fixedNow) {
		t.Errorf("zero Date stamped as %v, want %v", records[4].Date, fixedNow)
	}

	filter := models.AnalyticsFilter{EntityType: models.EntityWidget, EntityID: 1}
	got, _ := s.ListAnalytics(ctx, filter)
	if len(got) != 3 {
		t.Errorf("ListAnalytics(widget 1) returned %d, want 3", len(got))
	}

	totals, _ := s.SummarizeAnalytics(ctx, filter)
	want := []models.MetricTotal{
		{Metric: "impressions", Count: 2, Sum: 150},
		{Metric: "clicks", Count: 1, Sum: 7},
	}
	if !reflect.DeepEqual(totals, want) {
		t.Errorf("SummarizeAnalytics() = %+v, want %+v", totals, want)
	}
}

func TestPingAfterClose(t *testing.T) {
	s := store.NewMemoryStore()
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	s.Close()
	s.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping() after Close = nil, want error")
	}
}

func TestPurgeAnalytics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := fixedNow.AddDate(0, 0, -40)
	for _, d := range []time.Time{old, fixedNow, old.Add(time.Hour)} {
		rec := &models.Analytics{EntityType: models.EntityWidget, EntityID: 1, Metric: "impressions", Value: 1, Date: d}
		if err := s.CreateAnalytics(ctx, rec); err != nil {
			t.Fatalf("CreateAnalytics() error = %v", err)
		}
	}

	purged, err := s.PurgeAnalytics(ctx, fixedNow.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("PurgeAnalytics() error = %v", err)
	}
	if len(purged) != 2 || purged[0].ID != 1 || purged[1].ID != 3 {
		t.Errorf("PurgeAnalytics() = %+v, want ids 1 and 3", purged)
	}

	left, _ := s.ListAnalytics(ctx, models.AnalyticsFilter{})
	if len(left) != 1 || left[0].ID != 2 {
		t.Errorf("remaining analytics = %+v, want id 2 only", left)
	}
}
