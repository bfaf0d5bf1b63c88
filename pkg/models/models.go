// Package models defines the entities managed by the campaign control plane:
// widgets, recipes, placements, audience segments, analytics facts and users.
package models

import (
	"maps"
	"slices"
	"time"
)

// ── Widget ───────────────────────────────────────────────────

type WidgetType string

const (
	WidgetBanner             WidgetType = "banner"
	WidgetStoryBar           WidgetType = "story-bar"
	WidgetStandaloneStoryBar WidgetType = "standalone-story-bar"
	WidgetVideoFeed          WidgetType = "video-feed"
	WidgetCarousel           WidgetType = "carousel"
	WidgetSwipeCard          WidgetType = "swipe-card"
	WidgetCanvas             WidgetType = "canvas"
	WidgetQuiz               WidgetType = "quiz"
	WidgetCountdown          WidgetType = "countdown"
)

// WidgetTypes lists every widget type in declaration order.
var WidgetTypes = []WidgetType{
	WidgetBanner,
	WidgetStoryBar,
	WidgetStandaloneStoryBar,
	WidgetVideoFeed,
	WidgetCarousel,
	WidgetSwipeCard,
	WidgetCanvas,
	WidgetQuiz,
	WidgetCountdown,
}

// Valid reports whether t is a known widget type.
func (t WidgetType) Valid() bool {
	return slices.Contains(WidgetTypes, t)
}

type WidgetStatus string

const (
	WidgetStatusDraft    WidgetStatus = "draft"
	WidgetStatusActive   WidgetStatus = "active"
	WidgetStatusPaused   WidgetStatus = "paused"
	WidgetStatusDetached WidgetStatus = "detached"
	WidgetStatusArchived WidgetStatus = "archived"
)

// Content keys understood by the SDK renderers. All are optional; which ones
// apply depends on the widget type.
const (
	ContentTitle     = "title"
	ContentSubtitle  = "subtitle"
	ContentImageURL  = "imageUrl"
	ContentVideoURL  = "videoUrl"
	ContentCTAText   = "ctaText"
	ContentCTAURL    = "ctaUrl"
	ContentEndsAt    = "endsAt"    // countdown
	ContentQuestions = "questions" // quiz
)

// Style keys understood by the SDK renderers.
const (
	StyleBackgroundColor = "backgroundColor"
	StyleTextColor       = "textColor"
	StyleBorderRadius    = "borderRadius"
	StyleHeight          = "height"
	StyleLayout          = "layout"
)

// Widget is a single renderable campaign unit. It is owned either by a
// recipe (ParentRecipeID) or by a placement (PlacementID), never both.
type Widget struct {
	ID             int64                  `json:"id"`
	Name           string                 `json:"name" validate:"required,max=200"`
	Type           WidgetType             `json:"type" validate:"required,widget_type"`
	IsRecipeWidget bool                   `json:"is_recipe_widget"`
	ParentRecipeID *int64                 `json:"parent_recipe_id,omitempty"`
	Content        map[string]interface{} `json:"content,omitempty"`
	Style          map[string]interface{} `json:"style,omitempty"`
	PlacementID    *int64                 `json:"placement_id,omitempty"`
	Status         WidgetStatus           `json:"status" validate:"required,oneof=draft active paused detached archived"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Clone returns a copy that shares no mutable state with w.
func (w Widget) Clone() Widget {
	w.ParentRecipeID = cloneID(w.ParentRecipeID)
	w.PlacementID = cloneID(w.PlacementID)
	w.Content = maps.Clone(w.Content)
	w.Style = maps.Clone(w.Style)
	return w
}

// ── Recipe ───────────────────────────────────────────────────

type RecipeCategory string

const (
	RecipeCategoryStandard    RecipeCategory = "standard"
	RecipeCategoryWidgetsOnly RecipeCategory = "widgets-only"
)

type RecipeStatus string

const (
	RecipeStatusDraft   RecipeStatus = "draft"
	RecipeStatusActive  RecipeStatus = "active"
	RecipeStatusTesting RecipeStatus = "testing"
	RecipeStatusPaused  RecipeStatus = "paused"
)

// WorkflowStep is a node of a recipe's personalization flow.
type WorkflowStep struct {
	ID     string                 `json:"id" validate:"required"`
	Type   string                 `json:"type" validate:"required"`
	Label  string                 `json:"label,omitempty"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// Connection is a directed edge between two workflow step ids.
type Connection struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

type Workflow struct {
	Steps       []WorkflowStep `json:"steps" validate:"dive"`
	Connections []Connection   `json:"connections" validate:"dive"`
}

type ProductFeed struct {
	Enabled bool              `json:"enabled"`
	Source  string            `json:"source,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

type Performance struct {
	Impressions int64   `json:"impressions" validate:"gte=0"`
	Clicks      int64   `json:"clicks" validate:"gte=0"`
	Conversions int64   `json:"conversions" validate:"gte=0"`
	Revenue     float64 `json:"revenue" validate:"gte=0"`
}

// Recipe is a named personalization workflow that may own widgets.
type Recipe struct {
	ID                int64                  `json:"id"`
	Name              string                 `json:"name" validate:"required,max=200"`
	Goal              string                 `json:"goal,omitempty"`
	TemplateID        string                 `json:"template_id" validate:"required"`
	Category          RecipeCategory         `json:"category" validate:"required,oneof=standard widgets-only"`
	Workflow          Workflow               `json:"workflow"`
	ProductFeed       ProductFeed            `json:"product_feed"`
	AIPersonalization bool                   `json:"ai_personalization"`
	DeliveryCondition string                 `json:"delivery_condition,omitempty"`
	Status            RecipeStatus           `json:"status" validate:"required,oneof=draft active testing paused"`
	Performance       Performance            `json:"performance"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// Clone returns a copy that shares no mutable state with r.
func (r Recipe) Clone() Recipe {
	steps := make([]WorkflowStep, len(r.Workflow.Steps))
	for i, s := range r.Workflow.Steps {
		s.Config = maps.Clone(s.Config)
		steps[i] = s
	}
	if r.Workflow.Steps == nil {
		steps = nil
	}
	r.Workflow.Steps = steps
	r.Workflow.Connections = slices.Clone(r.Workflow.Connections)
	r.ProductFeed.Filters = maps.Clone(r.ProductFeed.Filters)
	r.Metadata = maps.Clone(r.Metadata)
	return r
}

// ── Placement ────────────────────────────────────────────────

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// Placement is an SDK integration slot where a widget can be shown.
type Placement struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required,max=200"`
	Platform  Platform  `json:"platform" validate:"required,oneof=ios android web"`
	SDKToken  string    `json:"sdk_token" validate:"required"`
	WidgetID  *int64    `json:"widget_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (p Placement) Clone() Placement {
	p.WidgetID = cloneID(p.WidgetID)
	return p
}

// ── Audience Segment ─────────────────────────────────────────

type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpNotEquals   ConditionOperator = "not_equals"
	OpContains    ConditionOperator = "contains"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
	OpIn          ConditionOperator = "in"
)

type SegmentCondition struct {
	Field    string            `json:"field" validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required,oneof=equals not_equals contains greater_than less_than in"`
	Value    string            `json:"value"`
}

// AudienceSegment is descriptive targeting data.
type AudienceSegment struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name" validate:"required,max=200"`
	Description string             `json:"description,omitempty"`
	Conditions  []SegmentCondition `json:"conditions" validate:"dive"`
	UserCount   int64              `json:"user_count" validate:"gte=0"`
	CreatedAt   time.Time          `json:"created_at"`
}

func (s AudienceSegment) Clone() AudienceSegment {
	s.Conditions = slices.Clone(s.Conditions)
	return s
}

// ── Analytics ────────────────────────────────────────────────

type EntityType string

const (
	EntityWidget    EntityType = "widget"
	EntityRecipe    EntityType = "recipe"
	EntityPlacement EntityType = "placement"
)

// Analytics is an append-only metric fact about a widget, recipe or placement.
type Analytics struct {
	ID         int64      `json:"id"`
	EntityType EntityType `json:"entity_type" validate:"required,oneof=widget recipe placement"`
	EntityID   int64      `json:"entity_id" validate:"gt=0"`
	Metric     string     `json:"metric" validate:"required"`
	Value      float64    `json:"value"`
	Date       time.Time  `json:"date"`
}

func (a Analytics) Clone() Analytics { return a }

// AnalyticsFilter narrows analytics queries. Zero fields match everything.
type AnalyticsFilter struct {
	EntityType EntityType
	EntityID   int64
	Metric     string
}

// Match reports whether a satisfies the filter.
func (f AnalyticsFilter) Match(a Analytics) bool {
	if f.EntityType != "" && a.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != 0 && a.EntityID != f.EntityID {
		return false
	}
	if f.Metric != "" && a.Metric != f.Metric {
		return false
	}
	return true
}

// MetricTotal aggregates analytics values for one metric.
type MetricTotal struct {
	Metric string  `json:"metric"`
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
}

// ── User ─────────────────────────────────────────────────────

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleEditor UserRole = "editor"
	RoleViewer UserRole = "viewer"
)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required,max=200"`
	Email     string    `json:"email" validate:"required,email"`
	Role      UserRole  `json:"role" validate:"required,oneof=admin editor viewer"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Clone() User { return u }

// ID returns a pointer to id, for optional reference fields.
func ID(id int64) *int64 { return &id }

func cloneID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ── Identity ────────────────────────────────────────────────

// ResetIdentity clears the fields the store assigns on create, so a client
// payload cannot choose them.
func (u *User) ResetIdentity() { u.ID, u.CreatedAt = 0, time.Time{} }

func (w *Widget) ResetIdentity() { w.ID, w.CreatedAt, w.UpdatedAt = 0, time.Time{}, time.Time{} }

func (r *Recipe) ResetIdentity() { r.ID, r.CreatedAt, r.UpdatedAt = 0, time.Time{}, time.Time{} }

func (p *Placement) ResetIdentity() { p.ID, p.CreatedAt = 0, time.Time{} }

func (s *AudienceSegment) ResetIdentity() { s.ID, s.CreatedAt = 0, time.Time{} }

// ResetIdentity clears only the id; Date is the fact's own timestamp.
func (a *Analytics) ResetIdentity() { a.ID = 0 }
