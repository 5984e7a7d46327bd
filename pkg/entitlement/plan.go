package entitlement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

// Money is a monetary amount in the smallest currency unit.
// 39€ is Amount: 3900, Currency: "EUR".
type Money struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// Plan describes a subscription tier as the product sells it.
//
// ContactOnly marks plans that are quoted manually by sales and only ever
// reach active status through an out-of-band process. They are rejected by
// every automatic billing path.
type Plan struct {
	ID          PlanID   `yaml:"id"`
	Name        string   `yaml:"name"`
	Tagline     string   `yaml:"tagline"`
	Price       Money    `yaml:"price"`
	TrialDays   int      `yaml:"trial_days"`
	Features    []string `yaml:"features"`
	ContactOnly bool     `yaml:"contact_only"`
}

// Billable reports whether the plan may ever be charged automatically.
func (p Plan) Billable() bool {
	return !p.ContactOnly
}

// CatalogSource loads plan definitions into a Catalog.
type CatalogSource interface {
	Load(ctx context.Context) ([]Plan, error)
}

// Catalog is the validated, immutable set of plans the product offers.
type Catalog struct {
	plans map[PlanID]Plan
	order []PlanID
}

// NewCatalog loads and validates plans from the given source.
func NewCatalog(ctx context.Context, src CatalogSource) (*Catalog, error) {
	if src == nil {
		panic("entitlement: CatalogSource is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrInvalidPlanConfiguration, err)
	}
	if len(plans) == 0 {
		return nil, errors.Join(ErrInvalidPlanConfiguration, errors.New("no plans defined"))
	}

	c := &Catalog{plans: make(map[PlanID]Plan, len(plans))}
	for _, p := range plans {
		if p.ID == "" || p.ID == PlanNone {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("plan %q has no usable ID", p.Name))
		}
		if _, dup := c.plans[p.ID]; dup {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("duplicate plan ID %q", p.ID))
		}
		if p.TrialDays < 0 {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("plan %q has negative trial days", p.ID))
		}
		if p.Billable() && p.Price.Amount <= 0 {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("billable plan %q has no price", p.ID))
		}
		c.plans[p.ID] = p
		c.order = append(c.order, p.ID)
	}

	return c, nil
}

// Get returns the plan with the given ID.
func (c *Catalog) Get(id PlanID) (Plan, bool) {
	p, ok := c.plans[id]
	return p, ok
}

// Plans returns all plans in definition order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id])
	}
	return out
}

// Billable returns the plan if it exists and may be billed automatically.
// Quote-only plans return ErrPlanNotBillable; this is the guard every
// charge-capable flow goes through.
func (c *Catalog) Billable(id PlanID) (Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	if !p.Billable() {
		return Plan{}, ErrPlanNotBillable
	}
	return p, nil
}

type inMemSource struct {
	plans []Plan
}

// NewInMemSource returns a CatalogSource over a fixed set of plans.
func NewInMemSource(plans ...Plan) CatalogSource {
	return &inMemSource{plans: slices.Clone(plans)}
}

func (s *inMemSource) Load(context.Context) ([]Plan, error) {
	return slices.Clone(s.plans), nil
}

type yamlSource struct {
	r io.Reader
}

// NewYAMLSource returns a CatalogSource reading a plan list from YAML:
//
//	- id: coach
//	  name: Coach
//	  price: {amount: 3900, currency: EUR}
//	  trial_days: 7
//	  features: ["4 matchs analysés / mois"]
//	- id: club
//	  name: Club
//	  contact_only: true
func NewYAMLSource(r io.Reader) CatalogSource {
	return &yamlSource{r: r}
}

func (s *yamlSource) Load(context.Context) ([]Plan, error) {
	data, err := io.ReadAll(s.r)
	if err != nil {
		return nil, fmt.Errorf("read plan catalog: %w", err)
	}
	var plans []Plan
	if err := yaml.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("parse plan catalog: %w", err)
	}
	return plans, nil
}

// DefaultPlans is the catalog the product ships with: Coach is self-service
// with a 7-day trial, Club is quoted by sales and never auto-billed.
func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:        PlanCoach,
			Name:      "Coach",
			Tagline:   "Pour les coachs",
			Price:     Money{Amount: 3900, Currency: "EUR"},
			TrialDays: 7,
			Features: []string{
				"4 matchs analysés / mois",
				"Rapports tactiques PDF complets",
				"Statistiques individuelles joueurs",
				"Heatmaps & données de performance",
				"Suivi progression match après match",
			},
		},
		{
			ID:      PlanClub,
			Name:    "Club",
			Tagline: "Offre sur mesure",
			Price:   Money{Amount: 12900, Currency: "EUR"},
			Features: []string{
				"12 matchs analysés / mois",
				"Multi-équipes",
				"Gestion effectif illimitée",
				"Dashboard club avancé",
				"Support prioritaire dédié",
			},
			ContactOnly: true,
		},
	}
}
