package models

// Requests for the chart and signal HTTP endpoints. Toggle flags are read from
// the query separately so an explicit "false" is never replaced by a default.

type ChartRequest struct {
	Symbol       string `query:"symbol" json:"symbol" validate:"required,max=32"`
	Days         int    `query:"days" json:"days" default:"7" validate:"gte=1,lte=365"`
	ForceRefresh bool   `query:"force_refresh" json:"force_refresh"`
}

type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=32"`
	Days   int    `query:"days" json:"days" default:"7" validate:"gte=1,lte=365"`
}

type SignalHistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=32"`
	Key    string `query:"key" json:"key" validate:"omitempty,oneof=rsi macd stoch_k cci williams_r adx"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type StreamRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=32"`
}
