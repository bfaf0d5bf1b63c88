// Package store provides the storage interface and the in-memory
// implementation for the campaign control plane.
package store

import (
	"context"
	"strconv"
	"time"

	"github.com/widgetdeck/control-plane/internal/apperr"
	"github.com/widgetdeck/control-plane/pkg/models"
)

// Store is the primary storage interface for the control plane.
// The facade depends on this interface; tests construct their own
// MemoryStore instead of sharing a process-wide one.
type Store interface {
	Tx

	// WithTx runs fn against a staged copy of the store. The staged writes
	// become visible only if fn returns nil; otherwise they are discarded,
	// id counters included.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Ping checks if the store is usable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// Tx is the set of entity operations available both on the store and
// inside a transaction.
type Tx interface {
	UserStore
	WidgetStore
	RecipeStore
	PlacementStore
	SegmentStore
	AnalyticsStore
}

// PatchFunc mutates a copy of the stored record. Returning an error aborts
// the update and leaves the stored record untouched.
type PatchFunc[T any] func(rec *T) error

// ── User Store ──────────────────────────────────────────────

type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, id int64, patch PatchFunc[models.User]) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// ── Widget Store ────────────────────────────────────────────

type WidgetStore interface {
	ListWidgets(ctx context.Context) ([]models.Widget, error)
	// ListWidgetsByRecipe returns the widgets owned by a recipe.
	ListWidgetsByRecipe(ctx context.Context, recipeID int64) ([]models.Widget, error)
	GetWidget(ctx context.Context, id int64) (*models.Widget, error)
	CreateWidget(ctx context.Context, widget *models.Widget) error
	UpdateWidget(ctx context.Context, id int64, patch PatchFunc[models.Widget]) (*models.Widget, error)
	DeleteWidget(ctx context.Context, id int64) error
}

// ── Recipe Store ────────────────────────────────────────────

type RecipeStore interface {
	ListRecipes(ctx context.Context) ([]models.Recipe, error)
	GetRecipe(ctx context.Context, id int64) (*models.Recipe, error)
	CreateRecipe(ctx context.Context, recipe *models.Recipe) error
	UpdateRecipe(ctx context.Context, id int64, patch PatchFunc[models.Recipe]) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, id int64) error
}

// ── Placement Store ─────────────────────────────────────────

type PlacementStore interface {
	ListPlacements(ctx context.Context) ([]models.Placement, error)
	GetPlacement(ctx context.Context, id int64) (*models.Placement, error)
	CreatePlacement(ctx context.Context, placement *models.Placement) error
	UpdatePlacement(ctx context.Context, id int64, patch PatchFunc[models.Placement]) (*models.Placement, error)
	DeletePlacement(ctx context.Context, id int64) error
}

// ── Audience Segment Store ──────────────────────────────────

type SegmentStore interface {
	ListSegments(ctx context.Context) ([]models.AudienceSegment, error)
	GetSegment(ctx context.Context, id int64) (*models.AudienceSegment, error)
	CreateSegment(ctx context.Context, segment *models.AudienceSegment) error
	UpdateSegment(ctx context.Context, id int64, patch PatchFunc[models.AudienceSegment]) (*models.AudienceSegment, error)
	DeleteSegment(ctx context.Context, id int64) error
}

// ── Analytics Store ─────────────────────────────────────────

// AnalyticsStore is append-only through the facade: facts are never updated,
// and only retention removes them.
type AnalyticsStore interface {
	ListAnalytics(ctx context.Context, filter models.AnalyticsFilter) ([]models.Analytics, error)
	GetAnalytics(ctx context.Context, id int64) (*models.Analytics, error)
	CreateAnalytics(ctx context.Context, record *models.Analytics) error

	// SummarizeAnalytics totals values per metric, in first-seen order.
	SummarizeAnalytics(ctx context.Context, filter models.AnalyticsFilter) ([]models.MetricTotal, error)

	// PurgeAnalytics removes facts dated before cutoff and returns them.
	PurgeAnalytics(ctx context.Context, cutoff time.Time) ([]models.Analytics, error)
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	ID     int64
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + strconv.FormatInt(e.ID, 10)
}

// Kind classifies the error for the facade.
func (e *ErrNotFound) Kind() apperr.Kind { return apperr.KindNotFound }
