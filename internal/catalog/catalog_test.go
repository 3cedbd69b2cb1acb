package catalog_test

import (
	"errors"
	"testing"

	"github.com/boddenberg/checkout-bfa-go/internal/catalog"
	"github.com/boddenberg/checkout-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

func newCatalog(t *testing.T, emptyState bool) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default(catalog.Options{EmptyState: emptyState})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestParseLocator(t *testing.T) {
	tests := []struct {
		path string
		want catalog.Locator
	}{
		{"/kathy/projeto-90d", catalog.Locator{Issuer: "kathy", Plan: "projeto-90d"}},
		{"/KATHY/Projeto-90D/", catalog.Locator{Issuer: "kathy", Plan: "projeto-90d"}},
		{"gilliard/projeto-60d?utm=ig", catalog.Locator{Issuer: "gilliard", Plan: "projeto-60d"}},
		{"//teste//consultoria-online-casal", catalog.Locator{Issuer: "teste", Plan: "consultoria-online-casal"}},
		{"/kathy", catalog.NoLocator},
		{"", catalog.NoLocator},
		{"/", catalog.NoLocator},
	}
	for _, tt := range tests {
		if got := catalog.ParseLocator(tt.path); got != tt.want {
			t.Errorf("ParseLocator(%q) = %+v, want %+v", tt.path, got, tt.want)
		}
	}
}

func TestResolve_KnownLocator(t *testing.T) {
	c := newCatalog(t, false)

	plan, err := c.ResolvePath("/Kathy/PROJETO-90D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.ID != "1234" || plan.IssuerName != "Kathy" {
		t.Errorf("unexpected issuer identity: %+v", plan)
	}
	if plan.DisplayName != "Projeto - 90D" {
		t.Errorf("expected 'Projeto - 90D', got '%s'", plan.DisplayName)
	}
	if !plan.Price.Equal(decimal.NewFromInt(497)) || plan.MaxInstallments != 3 {
		t.Errorf("unexpected pricing: %s / %d", plan.Price, plan.MaxInstallments)
	}
	if plan.Recurring {
		t.Error("project plans are not recurring")
	}
	if plan.SupportURL() != "https://wa.me/5555996707903" {
		t.Errorf("unexpected support url '%s'", plan.SupportURL())
	}
}

func TestResolve_UnknownFallsBackToDefault(t *testing.T) {
	c := newCatalog(t, false)

	for _, path := range []string{"/unknown/unknown", "/kathy/unknown", "/unknown/projeto-60d", ""} {
		plan, err := c.ResolvePath(path)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", path, err)
		}
		if plan.PlanKey != catalog.DefaultPlanKey || plan.IssuerKey != catalog.DefaultIssuerKey {
			t.Errorf("%q: expected default plan, got %s/%s", path, plan.IssuerKey, plan.PlanKey)
		}
		if !plan.Price.Equal(decimal.NewFromInt(1797)) {
			t.Errorf("%q: expected 1797, got %s", path, plan.Price)
		}
	}
}

func TestResolve_EmptyState(t *testing.T) {
	c := newCatalog(t, true)

	_, err := c.Resolve(catalog.NoLocator)
	var notSelected *domain.ErrPlanNotSelected
	if !errors.As(err, &notSelected) {
		t.Fatalf("expected ErrPlanNotSelected, got %v", err)
	}

	plan, err := c.ResolvePath("/gilliard/projeto-180d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.MaxInstallments != 6 {
		t.Errorf("expected 6 installments, got %d", plan.MaxInstallments)
	}
}

func TestResolve_RecurringPlans(t *testing.T) {
	c := newCatalog(t, false)

	for _, key := range []string{"consultoria-online-mensal", "consultoria-online-casal"} {
		plan, err := c.Resolve(catalog.Locator{Issuer: "teste", Plan: key})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !plan.Recurring {
			t.Errorf("%s should be recurring", key)
		}
		if plan.HasPixDiscount() {
			t.Errorf("%s should have no PIX discount", key)
		}
	}
}

func TestNew_RejectsInvalidTables(t *testing.T) {
	issuers := catalog.BuiltinIssuers()

	tests := []struct {
		name string
		plan catalog.Plan
	}{
		{"zero price", catalog.Plan{Key: "p", DisplayName: "P", Price: decimal.Zero, MaxInstallments: 1}},
		{"no installments", catalog.Plan{Key: "p", DisplayName: "P", Price: decimal.NewFromInt(10), MaxInstallments: 0}},
		{"pix over 100", catalog.Plan{Key: "p", DisplayName: "P", Price: decimal.NewFromInt(10), MaxInstallments: 1, PixDiscountPercentage: decimal.NewFromInt(101)}},
		{"negative pix", catalog.Plan{Key: "p", DisplayName: "P", Price: decimal.NewFromInt(10), MaxInstallments: 1, PixDiscountPercentage: decimal.NewFromInt(-1)}},
	}
	for _, tt := range tests {
		_, err := catalog.New(issuers, []catalog.Plan{tt.plan}, catalog.Options{DefaultIssuer: "teste", DefaultPlan: "p"})
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestNew_RequiresDefaultInTables(t *testing.T) {
	_, err := catalog.New(catalog.BuiltinIssuers(), catalog.BuiltinPlans(), catalog.Options{DefaultIssuer: "teste", DefaultPlan: "missing"})
	if err == nil {
		t.Fatal("expected error for missing default plan")
	}
}
