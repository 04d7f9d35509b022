package models

// Requests for the analysis HTTP endpoints.

type AnalysisRequest struct {
	Symbol    string  `query:"symbol" json:"symbol" validate:"required,max=32,ticker"`
	CostBasis float64 `query:"cost_basis" json:"cost_basis" validate:"gte=0"`
}

type BarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=32,ticker"`
	Limit  int    `query:"limit" json:"limit" default:"120" validate:"gte=1,lte=5000"`
}

type InvalidateRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=32,ticker"`
}
