package facade

import (
	"bytes"
	"context"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/widgetdeck/control-plane/internal/apperr"
	"github.com/widgetdeck/control-plane/internal/store"
	"github.com/widgetdeck/control-plane/pkg/models"
)

// resource is the verb-level contract each entity type implements.
type resource interface {
	list(ctx context.Context, query map[string]string) (any, error)
	get(ctx context.Context, id int64) (any, error)
	create(ctx context.Context, payload []byte) (any, error)
	update(ctx context.Context, id int64, payload []byte) (any, error)
	delete(ctx context.Context, id int64) error
}

// crud implements resource for one entity type on top of the store's
// method set. Optional hooks are nil when the entity does not need them;
// a nil modify or drop makes the verb unsupported.
type crud[T any] struct {
	name   Resource
	entity string
	store  store.Store

	listAll func(store.Tx, context.Context) ([]T, error)
	getOne  func(store.Tx, context.Context, int64) (*T, error)
	insert  func(store.Tx, context.Context, *T) error
	modify  func(store.Tx, context.Context, int64, store.PatchFunc[T]) (*T, error)
	drop    func(store.Tx, context.Context, int64) error

	defaults func(rec *T)
	// derive recomputes fields that follow from others, after create
	// defaults and after every update patch.
	derive   func(rec *T)
	validate func(ctx context.Context, tx store.Tx, rec *T) error
	// revalidate replaces validate on update when the rules depend on what
	// the update changed.
	revalidate func(ctx context.Context, tx store.Tx, orig, rec *T) error
	// query replaces listAll when the request carries filters.
	query func(ctx context.Context, tx store.Tx, q map[string]string) (any, error)
	// afterCreate runs in the creating transaction; its result is returned
	// instead of the bare record.
	afterCreate func(ctx context.Context, tx store.Tx, rec *T) (any, error)
}

func (c *crud[T]) list(ctx context.Context, q map[string]string) (any, error) {
	if c.query != nil && len(q) > 0 {
		return c.query(ctx, c.store, q)
	}
	return c.listAll(c.store, ctx)
}

func (c *crud[T]) get(ctx context.Context, id int64) (any, error) {
	rec, err := c.getOne(c.store, ctx, id)
	if err != nil {
		return nil, normalize(c.entity, id, err)
	}
	return rec, nil
}

func (c *crud[T]) create(ctx context.Context, payload []byte) (any, error) {
	var rec T
	if err := decode(c.entity, payload, &rec); err != nil {
		return nil, err
	}
	if r, ok := any(&rec).(interface{ ResetIdentity() }); ok {
		r.ResetIdentity()
	}
	if c.defaults != nil {
		c.defaults(&rec)
	}
	if c.derive != nil {
		c.derive(&rec)
	}

	var out any
	err := c.store.WithTx(ctx, func(tx store.Tx) error {
		if err := c.validate(ctx, tx, &rec); err != nil {
			return err
		}
		if err := c.insert(tx, ctx, &rec); err != nil {
			return err
		}
		out = &rec
		if c.afterCreate == nil {
			return nil
		}
		var err error
		out, err = c.afterCreate(ctx, tx, &rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// update merges payload onto the stored record and validates the result in
// the same transaction, so a rejected patch leaves nothing behind.
func (c *crud[T]) update(ctx context.Context, id int64, payload []byte) (any, error) {
	if c.modify == nil {
		return nil, apperr.Unsupported(string(VerbPut), string(c.name))
	}

	var out *T
	err := c.store.WithTx(ctx, func(tx store.Tx) error {
		orig, err := c.getOne(tx, ctx, id)
		if err != nil {
			return normalize(c.entity, id, err)
		}
		updated, err := c.modify(tx, ctx, id, func(rec *T) error {
			if err := decode(c.entity, payload, rec); err != nil {
				return err
			}
			if c.derive != nil {
				c.derive(rec)
			}
			return nil
		})
		if err != nil {
			return normalize(c.entity, id, err)
		}
		if c.revalidate != nil {
			err = c.revalidate(ctx, tx, orig, updated)
		} else {
			err = c.validate(ctx, tx, updated)
		}
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *crud[T]) delete(ctx context.Context, id int64) error {
	if c.drop == nil {
		return apperr.Unsupported(string(VerbDelete), string(c.name))
	}
	return c.drop(c.store, ctx, id)
}

// decode reads a JSON payload into v. Fields absent from the payload keep
// their current value, which gives PUT its merge-patch behaviour.
func decode(entity string, payload []byte, v any) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return apperr.InvalidPayload(entity, nil, "payload is required")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return apperr.InvalidPayload(entity, err, "malformed JSON")
	}
	return nil
}

// normalize turns the store's not-found error into the facade's.
func normalize(entity string, id int64, err error) error {
	if apperr.KindOf(err) == apperr.KindNotFound {
		return apperr.NotFound(entity, id)
	}
	return err
}

func parseID(entity, key, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidPayload(entity, err, "query %s must be a positive integer, got %q", key, raw)
	}
	return id, nil
}

// ── Resource descriptors ────────────────────────────────────

func (f *Facade) users() resource {
	return &crud[models.User]{
		name:    ResourceUsers,
		entity:  "user",
		store:   f.store,
		listAll: store.Tx.ListUsers,
		getOne:  store.Tx.GetUser,
		insert:  store.Tx.CreateUser,
		modify:  store.Tx.UpdateUser,
		drop:    store.Tx.DeleteUser,
		defaults: func(u *models.User) {
			if u.Role == "" {
				u.Role = models.RoleViewer
			}
		},
		validate: func(_ context.Context, _ store.Tx, u *models.User) error {
			return f.rules.User(u)
		},
	}
}

func (f *Facade) widgets() resource {
	return &crud[models.Widget]{
		name:    ResourceWidgets,
		entity:  "widget",
		store:   f.store,
		listAll: store.Tx.ListWidgets,
		getOne:  store.Tx.GetWidget,
		insert:  store.Tx.CreateWidget,
		modify:  store.Tx.UpdateWidget,
		drop:    store.Tx.DeleteWidget,
		defaults: func(w *models.Widget) {
			if w.Status == "" {
				w.Status = models.WidgetStatusDraft
			}
		},
		derive: func(w *models.Widget) {
			w.IsRecipeWidget = w.ParentRecipeID != nil
		},
		validate:   f.rules.Widget,
		revalidate: f.rules.WidgetUpdate,
		query: func(ctx context.Context, tx store.Tx, q map[string]string) (any, error) {
			raw, ok := q[QueryRecipeID]
			if !ok {
				return tx.ListWidgets(ctx)
			}
			id, err := parseID("widget", QueryRecipeID, raw)
			if err != nil {
				return nil, err
			}
			return tx.ListWidgetsByRecipe(ctx, id)
		},
	}
}

// RecipeWithWidgets is the result of creating a recipe: the stored recipe
// plus the widgets composed for it.
type RecipeWithWidgets struct {
	models.Recipe
	Widgets []models.Widget `json:"widgets"`
}

func (f *Facade) recipes() resource {
	return &crud[models.Recipe]{
		name:    ResourceRecipes,
		entity:  "recipe",
		store:   f.store,
		listAll: store.Tx.ListRecipes,
		getOne:  store.Tx.GetRecipe,
		insert:  store.Tx.CreateRecipe,
		modify:  store.Tx.UpdateRecipe,
		drop:    store.Tx.DeleteRecipe,
		defaults: func(r *models.Recipe) {
			if r.Status == "" {
				r.Status = models.RecipeStatusDraft
			}
			if r.Category == "" {
				r.Category = models.RecipeCategoryStandard
			}
		},
		validate: f.rules.Recipe,
		afterCreate: func(ctx context.Context, tx store.Tx, r *models.Recipe) (any, error) {
			widgets, err := f.composer.Compose(ctx, tx, r)
			if err != nil {
				return nil, err
			}
			return &RecipeWithWidgets{Recipe: *r, Widgets: widgets}, nil
		},
	}
}

func (f *Facade) placements() resource {
	return &crud[models.Placement]{
		name:    ResourcePlacements,
		entity:  "placement",
		store:   f.store,
		listAll: store.Tx.ListPlacements,
		getOne:  store.Tx.GetPlacement,
		insert:  store.Tx.CreatePlacement,
		modify:  store.Tx.UpdatePlacement,
		drop:    store.Tx.DeletePlacement,
		defaults: func(p *models.Placement) {
			if p.SDKToken == "" {
				p.SDKToken = uuid.NewString()
			}
		},
		validate:   f.rules.Placement,
		revalidate: f.rules.PlacementUpdate,
	}
}

func (f *Facade) segments() resource {
	return &crud[models.AudienceSegment]{
		name:    ResourceAudienceSegments,
		entity:  "audience segment",
		store:   f.store,
		listAll: store.Tx.ListSegments,
		getOne:  store.Tx.GetSegment,
		insert:  store.Tx.CreateSegment,
		modify:  store.Tx.UpdateSegment,
		drop:    store.Tx.DeleteSegment,
		validate: func(_ context.Context, _ store.Tx, s *models.AudienceSegment) error {
			return f.rules.Segment(s)
		},
	}
}
