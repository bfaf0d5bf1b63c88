package facade

import (
	"context"

	"github.com/widgetdeck/control-plane/internal/store"
	"github.com/widgetdeck/control-plane/pkg/models"
)

// analytics is append-only: PUT and DELETE are unsupported.
func (f *Facade) analytics() resource {
	return &crud[models.Analytics]{
		name:    ResourceAnalytics,
		entity:  "analytics",
		store:   f.store,
		listAll: listAllAnalytics,
		getOne:  store.Tx.GetAnalytics,
		insert:  store.Tx.CreateAnalytics,
		validate: func(_ context.Context, _ store.Tx, a *models.Analytics) error {
			return f.rules.Analytics(a)
		},
		query: queryAnalytics,
	}
}

func listAllAnalytics(tx store.Tx, ctx context.Context) ([]models.Analytics, error) {
	return tx.ListAnalytics(ctx, models.AnalyticsFilter{})
}

// queryAnalytics filters by entityType, entityId and metric. With
// summary=true it returns per-metric totals instead of the facts.
func queryAnalytics(ctx context.Context, tx store.Tx, q map[string]string) (any, error) {
	filter := models.AnalyticsFilter{
		EntityType: models.EntityType(q[QueryEntityType]),
		Metric:     q[QueryMetric],
	}
	if raw, ok := q[QueryEntityID]; ok && raw != "" {
		id, err := parseID("analytics", QueryEntityID, raw)
		if err != nil {
			return nil, err
		}
		filter.EntityID = id
	}
	if q[QuerySummary] == "true" {
		return tx.SummarizeAnalytics(ctx, filter)
	}
	return tx.ListAnalytics(ctx, filter)
}
