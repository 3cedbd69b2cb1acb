// Package catalog resolves a URL locator to the PlanConfig a checkout sells.
//
// A Catalog is built once at startup from static issuer and plan tables and
// is safe for concurrent use: it is never mutated after New returns.
package catalog

import (
	"fmt"
	"strings"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Issuer is the identity metadata of a plan seller.
type Issuer struct {
	Key   string
	Name  string
	ID    string
	Phone string
}

// Plan is a sellable offer, independent of the issuer.
type Plan struct {
	Key                   string
	DisplayName           string
	Price                 decimal.Decimal
	MaxInstallments       int
	PixDiscountPercentage decimal.Decimal
}

// Options control the fallback when a locator does not resolve.
type Options struct {
	DefaultIssuer string
	DefaultPlan   string
	// EmptyState makes unresolved locators fail with ErrPlanNotSelected
	// instead of returning the default plan.
	EmptyState bool
}

// Catalog is an immutable lookup over issuers and plans.
type Catalog struct {
	issuers map[string]Issuer
	plans   map[string]Plan
	opts    Options
	def     domain.PlanConfig
}

var recurringNames = []string{
	"Consultoria Online - Mensal",
	"Consultoria Online - Casal",
}

// New validates the tables and builds a Catalog. The default issuer and
// plan must exist in the tables.
func New(issuers []Issuer, plans []Plan, opts Options) (*Catalog, error) {
	c := &Catalog{
		issuers: make(map[string]Issuer, len(issuers)),
		plans:   make(map[string]Plan, len(plans)),
		opts:    opts,
	}

	for _, is := range issuers {
		key := normalizeKey(is.Key)
		if key == "" {
			return nil, fmt.Errorf("catalog: issuer with empty key")
		}
		if _, dup := c.issuers[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate issuer %q", key)
		}
		is.Key = key
		c.issuers[key] = is
	}

	for _, p := range plans {
		key := normalizeKey(p.Key)
		if key == "" {
			return nil, fmt.Errorf("catalog: plan with empty key")
		}
		if _, dup := c.plans[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate plan %q", key)
		}
		if err := validatePlan(p); err != nil {
			return nil, fmt.Errorf("catalog: plan %q: %w", key, err)
		}
		p.Key = key
		c.plans[key] = p
	}

	def, ok := c.lookup(Locator{Issuer: normalizeKey(opts.DefaultIssuer), Plan: normalizeKey(opts.DefaultPlan)})
	if !ok {
		return nil, fmt.Errorf("catalog: default %s/%s is not in the tables", opts.DefaultIssuer, opts.DefaultPlan)
	}
	c.def = def
	return c, nil
}

// Default builds the catalog with the built-in tables.
func Default(opts Options) (*Catalog, error) {
	if opts.DefaultIssuer == "" {
		opts.DefaultIssuer = DefaultIssuerKey
	}
	if opts.DefaultPlan == "" {
		opts.DefaultPlan = DefaultPlanKey
	}
	return New(BuiltinIssuers(), BuiltinPlans(), opts)
}

// Resolve returns the plan for loc. Unresolved locators (including
// NoLocator) yield the default plan, or ErrPlanNotSelected when the empty
// state is enabled.
func (c *Catalog) Resolve(loc Locator) (domain.PlanConfig, error) {
	if plan, ok := c.lookup(loc); ok {
		return plan, nil
	}
	if c.opts.EmptyState {
		return domain.PlanConfig{}, &domain.ErrPlanNotSelected{Locator: loc.String()}
	}
	return c.def, nil
}

// ResolvePath is Resolve(ParseLocator(path)).
func (c *Catalog) ResolvePath(path string) (domain.PlanConfig, error) {
	return c.Resolve(ParseLocator(path))
}

// DefaultPlan returns the statically configured fallback plan.
func (c *Catalog) DefaultPlan() domain.PlanConfig {
	return c.def
}

// EmptyState reports whether unresolved locators fail instead of falling back.
func (c *Catalog) EmptyState() bool {
	return c.opts.EmptyState
}

func (c *Catalog) lookup(loc Locator) (domain.PlanConfig, bool) {
	if loc.IsZero() {
		return domain.PlanConfig{}, false
	}
	is, ok := c.issuers[loc.Issuer]
	if !ok {
		return domain.PlanConfig{}, false
	}
	p, ok := c.plans[loc.Plan]
	if !ok {
		return domain.PlanConfig{}, false
	}
	return compose(is, p), true
}

func compose(is Issuer, p Plan) domain.PlanConfig {
	return domain.PlanConfig{
		ID:                    is.ID,
		IssuerKey:             is.Key,
		IssuerName:            is.Name,
		IssuerID:              is.ID,
		IssuerPhone:           is.Phone,
		PlanKey:               p.Key,
		DisplayName:           p.DisplayName,
		Price:                 p.Price,
		MaxInstallments:       p.MaxInstallments,
		PixDiscountPercentage: p.PixDiscountPercentage,
		Recurring:             isRecurring(p.DisplayName),
	}
}

func isRecurring(displayName string) bool {
	for _, name := range recurringNames {
		if strings.Contains(displayName, name) {
			return true
		}
	}
	return false
}

func validatePlan(p Plan) error {
	if !p.Price.IsPositive() {
		return fmt.Errorf("price must be > 0, got %s", p.Price)
	}
	if p.MaxInstallments < 1 {
		return fmt.Errorf("maxInstallments must be >= 1, got %d", p.MaxInstallments)
	}
	if p.PixDiscountPercentage.IsNegative() || p.PixDiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("pixDiscountPercentage must be within [0,100], got %s", p.PixDiscountPercentage)
	}
	return nil
}
