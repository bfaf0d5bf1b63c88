package facade

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/widgetdeck/control-plane/internal/rules"
)

// Delivery is the outcome of evaluating a recipe's delivery condition.
type Delivery struct {
	RecipeID  int64  `json:"recipe_id"`
	Condition string `json:"condition"`
	Deliver   bool   `json:"deliver"`
}

// EvaluateDelivery runs the delivery condition of recipe id against env. A
// recipe without a condition always delivers.
func (f *Facade) EvaluateDelivery(ctx context.Context, id int64, env rules.DeliveryEnv) (*Delivery, error) {
	ctx, span := tracer.Start(ctx, "facade.EvaluateDelivery",
		trace.WithAttributes(attribute.Int64("recipe.id", id)))
	defer span.End()

	recipe, err := f.store.GetRecipe(ctx, id)
	if err != nil {
		err = normalize("recipe", id, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	cond, err := rules.CompileDeliveryCondition(recipe.DeliveryCondition)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	deliver, err := cond.Evaluate(env)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Bool("recipe.deliver", deliver))
	return &Delivery{RecipeID: id, Condition: cond.String(), Deliver: deliver}, nil
}
