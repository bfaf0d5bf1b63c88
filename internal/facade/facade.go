// Package facade is the single entry point outer layers use to read and
// change control-plane state. Every call is a (verb, resource, id, payload)
// request; the facade dispatches it to the store, the rule layer and the
// composer, and reports failures with an apperr.Kind.
package facade

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/widgetdeck/control-plane/internal/apperr"
	"github.com/widgetdeck/control-plane/internal/composer"
	"github.com/widgetdeck/control-plane/internal/metrics"
	"github.com/widgetdeck/control-plane/internal/rules"
	"github.com/widgetdeck/control-plane/internal/store"
)

var tracer = otel.Tracer("widgetdeck-control-plane/facade")

type Verb string

const (
	VerbGet    Verb = "GET"
	VerbPost   Verb = "POST"
	VerbPut    Verb = "PUT"
	VerbDelete Verb = "DELETE"
)

type Resource string

const (
	ResourceUsers            Resource = "users"
	ResourceWidgets          Resource = "widgets"
	ResourceRecipes          Resource = "recipes"
	ResourcePlacements       Resource = "placements"
	ResourceAudienceSegments Resource = "audience-segments"
	ResourceAnalytics        Resource = "analytics"
)

// Resources lists every resource the facade serves.
var Resources = []Resource{
	ResourceUsers,
	ResourceWidgets,
	ResourceRecipes,
	ResourcePlacements,
	ResourceAudienceSegments,
	ResourceAnalytics,
}

// Query keys understood by list requests.
const (
	QueryEntityType = "entityType"
	QueryEntityID   = "entityId"
	QueryMetric     = "metric"
	QuerySummary    = "summary"
	QueryRecipeID   = "recipeId"
)

// Request is one facade call. ID zero means "no id". Payload is a JSON
// document: the full record for POST, a merge patch for PUT.
type Request struct {
	Verb     Verb
	Resource Resource
	ID       int64
	Payload  []byte
	Query    map[string]string
}

// Result carries the response data: a record, a list of records, a recipe
// with its composed widgets, analytics totals, or nil after a delete.
type Result struct {
	Data    any
	Created bool
}

// Facade dispatches requests. It is safe for concurrent use.
type Facade struct {
	store     store.Store
	rules     *rules.Validator
	composer  *composer.Composer
	metrics   metrics.Provider
	resources map[Resource]resource
}

// New wires a facade over an explicitly constructed store.
func New(s store.Store, v *rules.Validator, c *composer.Composer, m metrics.Provider) *Facade {
	if m == nil {
		m = metrics.Noop()
	}
	f := &Facade{store: s, rules: v, composer: c, metrics: m}
	f.resources = map[Resource]resource{
		ResourceUsers:            f.users(),
		ResourceWidgets:          f.widgets(),
		ResourceRecipes:          f.recipes(),
		ResourcePlacements:       f.placements(),
		ResourceAudienceSegments: f.segments(),
		ResourceAnalytics:        f.analytics(),
	}
	return f
}

// Execute runs one request.
func (f *Facade) Execute(ctx context.Context, req Request) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "facade.Execute",
		trace.WithAttributes(
			attribute.String("facade.verb", string(req.Verb)),
			attribute.String("facade.resource", string(req.Resource)),
			attribute.Int64("facade.id", req.ID),
		),
	)
	defer func() {
		outcome := "OK"
		if err != nil {
			kind := apperr.KindOf(err)
			outcome = string(kind)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logRejection(req, kind, err)
		}
		f.metrics.IncOperations(string(req.Verb), string(req.Resource), outcome)
		span.End()
	}()

	r, ok := f.resources[req.Resource]
	if !ok {
		return nil, apperr.Unsupported(string(req.Verb), string(req.Resource))
	}

	switch req.Verb {
	case VerbGet:
		if req.ID == 0 {
			data, err := r.list(ctx, req.Query)
			if err != nil {
				return nil, err
			}
			return &Result{Data: data}, nil
		}
		data, err := r.get(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data}, nil

	case VerbPost:
		if req.ID != 0 {
			return nil, apperr.Unsupported(string(req.Verb), string(req.Resource)+"/{id}")
		}
		data, err := r.create(ctx, req.Payload)
		if err != nil {
			return nil, err
		}
		log.Info().Str("resource", string(req.Resource)).Msg("Record created")
		return &Result{Data: data, Created: true}, nil

	case VerbPut:
		if req.ID == 0 {
			return nil, apperr.Unsupported(string(req.Verb), string(req.Resource))
		}
		data, err := r.update(ctx, req.ID, req.Payload)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data}, nil

	case VerbDelete:
		if req.ID == 0 {
			return nil, apperr.Unsupported(string(req.Verb), string(req.Resource))
		}
		if err := r.delete(ctx, req.ID); err != nil {
			return nil, err
		}
		log.Info().Str("resource", string(req.Resource)).Int64("id", req.ID).Msg("Record deleted")
		return &Result{}, nil

	default:
		return nil, apperr.Unsupported(string(req.Verb), string(req.Resource))
	}
}

// Ping reports whether the underlying store is usable.
func (f *Facade) Ping(ctx context.Context) error {
	return f.store.Ping(ctx)
}

func logRejection(req Request, kind apperr.Kind, err error) {
	ev := log.Debug()
	if kind == apperr.KindUnknown {
		ev = log.Error()
	}
	ev.Err(err).
		Str("verb", string(req.Verb)).
		Str("resource", string(req.Resource)).
		Int64("id", req.ID).
		Str("kind", string(kind)).
		Msg("Request rejected")
}
