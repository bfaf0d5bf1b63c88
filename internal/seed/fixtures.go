package seed

import (
	"time"

	"github.com/widgetdeck/control-plane/pkg/models"
)

// Default returns the built-in demo dataset. Recipe templates compose
// widgets 1-6; the explicit widgets below take ids 7-9.
func Default() *Fixtures {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	return &Fixtures{
		Users: []models.User{
			{Name: "Amira Haddad", Email: "amira@widgetdeck.dev", Role: models.RoleAdmin},
			{Name: "Jonas Berg", Email: "jonas@widgetdeck.dev", Role: models.RoleEditor},
			{Name: "Priya Nair", Email: "priya@widgetdeck.dev", Role: models.RoleViewer},
		},

		Recipes: []models.Recipe{
			{
				Name:       "Summer Sale Journey",
				Goal:       "Drive seasonal conversions",
				TemplateID: "banner-carousel",
				Category:   models.RecipeCategoryStandard,
				Status:     models.RecipeStatusActive,
				Workflow: models.Workflow{
					Steps: []models.WorkflowStep{
						{ID: "trigger", Type: "trigger", Label: "App open", Config: map[string]interface{}{"event": "app_open"}},
						{ID: "audience", Type: "segment", Label: "VIP customers"},
						{ID: "show", Type: "widget", Label: "Show banner"},
					},
					Connections: []models.Connection{
						{From: "trigger", To: "audience"},
						{From: "audience", To: "show"},
					},
				},
				ProductFeed:       models.ProductFeed{Enabled: true, Source: "summer-collection", Filters: map[string]string{"discount": ">=20"}},
				AIPersonalization: true,
				DeliveryCondition: `segment == "vip" || user.tier == "gold"`,
				Performance:       models.Performance{Impressions: 48210, Clicks: 3120, Conversions: 412, Revenue: 18250.5},
			},
			{
				Name:       "Product Discovery",
				Goal:       "Surface new arrivals",
				TemplateID: "product-discovery",
				Category:   models.RecipeCategoryWidgetsOnly,
				Status:     models.RecipeStatusTesting,
				ProductFeed: models.ProductFeed{
					Enabled: true,
					Source:  "new-arrivals",
				},
			},
			{
				Name:              "Flash Sale Countdown",
				Goal:              "Create urgency for a 24h sale",
				TemplateID:        "flash-sale",
				Category:          models.RecipeCategoryStandard,
				Status:            models.RecipeStatusDraft,
				DeliveryCondition: `device.platform in ["ios", "android"]`,
			},
		},

		Placements: []models.Placement{
			{Name: "Home Screen Top", Platform: models.PlatformIOS, SDKToken: "sdk_ios_home_7f3a"},
			{Name: "PDP Carousel Slot", Platform: models.PlatformAndroid, SDKToken: "sdk_and_pdp_91c2"},
			{Name: "Web Homepage Hero", Platform: models.PlatformWeb},
		},

		Widgets: []models.Widget{
			{
				Name:        "Home Stories",
				Type:        models.WidgetStoryBar,
				PlacementID: models.ID(1),
				Status:      models.WidgetStatusActive,
				Content:     map[string]interface{}{models.ContentTitle: "Trending now"},
				Style:       map[string]interface{}{models.StyleHeight: 96, models.StyleBorderRadius: 48},
			},
			{
				Name:           "Summer Stories",
				Type:           models.WidgetStoryBar,
				ParentRecipeID: models.ID(1),
				Status:         models.WidgetStatusActive,
			},
			{
				Name:           "Style Quiz",
				Type:           models.WidgetQuiz,
				ParentRecipeID: models.ID(1),
				Status:         models.WidgetStatusDraft,
				Content: map[string]interface{}{
					models.ContentTitle:     "Find your summer look",
					models.ContentQuestions: []interface{}{"Beach or city?", "Bold or neutral?"},
				},
			},
		},

		Segments: []models.AudienceSegment{
			{
				Name:        "VIP Customers",
				Description: "Lifetime value above 500",
				Conditions:  []models.SegmentCondition{{Field: "ltv", Operator: models.OpGreaterThan, Value: "500"}},
				UserCount:   1840,
			},
			{
				Name:        "Cart Abandoners",
				Description: "Left items in cart during the last week",
				Conditions: []models.SegmentCondition{
					{Field: "cart_items", Operator: models.OpGreaterThan, Value: "0"},
					{Field: "last_order_days", Operator: models.OpGreaterThan, Value: "7"},
				},
				UserCount: 5230,
			},
		},

		Analytics: []models.Analytics{
			{EntityType: models.EntityWidget, EntityID: 1, Metric: "impressions", Value: 12400, Date: day},
			{EntityType: models.EntityWidget, EntityID: 1, Metric: "clicks", Value: 860, Date: day},
			{EntityType: models.EntityWidget, EntityID: 7, Metric: "impressions", Value: 30120, Date: day},
			{EntityType: models.EntityRecipe, EntityID: 1, Metric: "conversions", Value: 412, Date: day},
			{EntityType: models.EntityPlacement, EntityID: 1, Metric: "impressions", Value: 30120, Date: day},
		},
	}
}
