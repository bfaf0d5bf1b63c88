package rules

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/widgetdeck/control-plane/internal/apperr"
)

// DeliveryEnv is the environment a recipe's delivery condition is evaluated
// against. User and Device are open attribute maps sent by the SDK.
type DeliveryEnv struct {
	User    map[string]any `expr:"user" json:"user"`
	Device  map[string]any `expr:"device" json:"device"`
	Segment string         `expr:"segment" json:"segment"`
	Now     time.Time      `expr:"now" json:"now"`
}

// Condition is a compiled delivery condition. The zero value always delivers.
type Condition struct {
	source  string
	program *vm.Program
}

// CompileDeliveryCondition compiles src as a boolean expression over
// DeliveryEnv. An empty source compiles to a condition that always holds.
//
//	user.tier == "gold" && device.platform in ["ios", "android"]
func CompileDeliveryCondition(src string) (*Condition, error) {
	if src == "" {
		return &Condition{}, nil
	}
	program, err := expr.Compile(src, expr.Env(DeliveryEnv{}), expr.AsBool())
	if err != nil {
		return nil, apperr.InvalidPayload("recipe", err, "delivery condition does not compile")
	}
	return &Condition{source: src, program: program}, nil
}

func (c *Condition) String() string { return c.source }

// Evaluate runs the condition. Now defaults to the current time.
func (c *Condition) Evaluate(env DeliveryEnv) (bool, error) {
	if c.program == nil {
		return true, nil
	}
	if env.Now.IsZero() {
		env.Now = time.Now().UTC()
	}
	out, err := expr.Run(c.program, env)
	if err != nil {
		return false, apperr.InvalidPayload("recipe", err, "delivery condition failed")
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, apperr.InvalidPayload("recipe", nil, "delivery condition returned %s", fmt.Sprintf("%T", out))
	}
	return ok, nil
}
