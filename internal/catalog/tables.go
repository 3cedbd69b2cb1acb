package catalog

import "github.com/shopspring/decimal"

const (
	DefaultIssuerKey = "teste"
	DefaultPlanKey   = "consultoria-online-anual"
)

// BuiltinIssuers returns the issuer table shipped with the service.
func BuiltinIssuers() []Issuer {
	return []Issuer{
		{Key: "kathy", Name: "Kathy", ID: "1234", Phone: "5555996707903"},
		{Key: "gilliard", Name: "Gilliard", ID: "5678", Phone: "5555996806665"},
		{Key: "teste", Name: "Teste", ID: "8f68ca1d-9605-4063-964f-12a186382a1a", Phone: "5555991665515"},
	}
}

// BuiltinPlans returns the plan table shipped with the service.
func BuiltinPlans() []Plan {
	return []Plan{
		plan("projeto-60d", "Projeto - 60D", 354, 2, 10),
		plan("projeto-90d", "Projeto - 90D", 497, 3, 10),
		plan("projeto-180d", "Projeto - 180D", 947, 6, 10),
		plan("consultoria-online-mensal", "Consultoria Online - Mensal", 197, 1, 0),
		plan("consultoria-online-casal", "Consultoria Online - Casal", 297, 1, 0),
		plan("consultoria-online-anual", "Consultoria Online - Anual", 1797, 12, 10),
	}
}

func plan(key, name string, price int64, maxInstallments int, pix int64) Plan {
	return Plan{
		Key:                   key,
		DisplayName:           name,
		Price:                 decimal.NewFromInt(price),
		MaxInstallments:       maxInstallments,
		PixDiscountPercentage: decimal.NewFromInt(pix),
	}
}
