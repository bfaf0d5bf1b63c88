package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/widgetdeck/control-plane/pkg/models"
)

// state is the full set of tables. Transactions work on a clone of it.
type state struct {
	users      *table[models.User]
	widgets    *table[models.Widget]
	recipes    *table[models.Recipe]
	placements *table[models.Placement]
	segments   *table[models.AudienceSegment]
	analytics  *table[models.Analytics]
}

func newState() *state {
	return &state{
		users:      newTable[models.User](),
		widgets:    newTable[models.Widget](),
		recipes:    newTable[models.Recipe](),
		placements: newTable[models.Placement](),
		segments:   newTable[models.AudienceSegment](),
		analytics:  newTable[models.Analytics](),
	}
}

func (s *state) clone() *state {
	return &state{
		users:      s.users.clone(),
		widgets:    s.widgets.clone(),
		recipes:    s.recipes.clone(),
		placements: s.placements.clone(),
		segments:   s.segments.clone(),
		analytics:  s.analytics.clone(),
	}
}

// MemoryStore implements Store with in-memory tables. State is volatile:
// nothing is written to disk and a restart starts empty.
type MemoryStore struct {
	mu     sync.RWMutex
	st     *state
	clock  func() time.Time
	closed bool
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(m *MemoryStore) { m.clock = clock }
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	m := &MemoryStore{
		st:    newState(),
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	log.Debug().Msg("Memory store configured")
	return m
}

func (m *MemoryStore) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errors.New("memory store closed")
	}
	return nil
}

// Close marks the store closed. Safe to call multiple times.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	log.Info().
		Int("widgets", m.st.widgets.len()).
		Int("recipes", m.st.recipes.len()).
		Msg("Memory store closed")
	return nil
}

// WithTx holds the write lock for the whole transaction.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.st.clone()
	if err := fn(&view{st: staged, clock: m.clock}); err != nil {
		log.Debug().Err(err).Msg("Transaction rolled back")
		return err
	}
	m.st = staged
	return nil
}

func (m *MemoryStore) view() *view { return &view{st: m.st, clock: m.clock} }

// ── Locked delegation ───────────────────────────────────────
// Every Store method takes the lock and delegates to a view over the
// committed state.

func (m *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListUsers(ctx)
}

func (m *MemoryStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetUser(ctx, id)
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreateUser(ctx, user)
}

func (m *MemoryStore) UpdateUser(ctx context.Context, id int64, patch PatchFunc[models.User]) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateUser(ctx, id, patch)
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().DeleteUser(ctx, id)
}

func (m *MemoryStore) ListWidgets(ctx context.Context) ([]models.Widget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListWidgets(ctx)
}

func (m *MemoryStore) ListWidgetsByRecipe(ctx context.Context, recipeID int64) ([]models.Widget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListWidgetsByRecipe(ctx, recipeID)
}

func (m *MemoryStore) GetWidget(ctx context.Context, id int64) (*models.Widget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetWidget(ctx, id)
}

func (m *MemoryStore) CreateWidget(ctx context.Context, widget *models.Widget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreateWidget(ctx, widget)
}

func (m *MemoryStore) UpdateWidget(ctx context.Context, id int64, patch PatchFunc[models.Widget]) (*models.Widget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateWidget(ctx, id, patch)
}

func (m *MemoryStore) DeleteWidget(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().DeleteWidget(ctx, id)
}

func (m *MemoryStore) ListRecipes(ctx context.Context) ([]models.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListRecipes(ctx)
}

func (m *MemoryStore) GetRecipe(ctx context.Context, id int64) (*models.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetRecipe(ctx, id)
}

func (m *MemoryStore) CreateRecipe(ctx context.Context, recipe *models.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreateRecipe(ctx, recipe)
}

func (m *MemoryStore) UpdateRecipe(ctx context.Context, id int64, patch PatchFunc[models.Recipe]) (*models.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateRecipe(ctx, id, patch)
}

func (m *MemoryStore) DeleteRecipe(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().DeleteRecipe(ctx, id)
}

func (m *MemoryStore) ListPlacements(ctx context.Context) ([]models.Placement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListPlacements(ctx)
}

func (m *MemoryStore) GetPlacement(ctx context.Context, id int64) (*models.Placement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetPlacement(ctx, id)
}

func (m *MemoryStore) CreatePlacement(ctx context.Context, placement *models.Placement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreatePlacement(ctx, placement)
}

func (m *MemoryStore) UpdatePlacement(ctx context.Context, id int64, patch PatchFunc[models.Placement]) (*models.Placement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdatePlacement(ctx, id, patch)
}

func (m *MemoryStore) DeletePlacement(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().DeletePlacement(ctx, id)
}

func (m *MemoryStore) ListSegments(ctx context.Context) ([]models.AudienceSegment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListSegments(ctx)
}

func (m *MemoryStore) GetSegment(ctx context.Context, id int64) (*models.AudienceSegment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetSegment(ctx, id)
}

func (m *MemoryStore) CreateSegment(ctx context.Context, segment *models.AudienceSegment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreateSegment(ctx, segment)
}

func (m *MemoryStore) UpdateSegment(ctx context.Context, id int64, patch PatchFunc[models.AudienceSegment]) (*models.AudienceSegment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().UpdateSegment(ctx, id, patch)
}

func (m *MemoryStore) DeleteSegment(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().DeleteSegment(ctx, id)
}

func (m *MemoryStore) ListAnalytics(ctx context.Context, filter models.AnalyticsFilter) ([]models.Analytics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().ListAnalytics(ctx, filter)
}

func (m *MemoryStore) GetAnalytics(ctx context.Context, id int64) (*models.Analytics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().GetAnalytics(ctx, id)
}

func (m *MemoryStore) CreateAnalytics(ctx context.Context, record *models.Analytics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().CreateAnalytics(ctx, record)
}

func (m *MemoryStore) SummarizeAnalytics(ctx context.Context, filter models.AnalyticsFilter) ([]models.MetricTotal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view().SummarizeAnalytics(ctx, filter)
}

func (m *MemoryStore) PurgeAnalytics(ctx context.Context, cutoff time.Time) ([]models.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view().PurgeAnalytics(ctx, cutoff)
}
