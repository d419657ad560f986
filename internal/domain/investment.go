package domain

import "github.com/grana-finance/grana-go/internal/fincalc"

// Growth computation modes.
const (
	GrowthModeFlat       = "flat"
	GrowthModeHistorical = "historical"
)

// InvestmentGrowthResponse is returned by the investment growth endpoint.
type InvestmentGrowthResponse struct {
	AccountID          string         `json:"account_id"`
	Mode               string         `json:"mode"`
	AsOf               string         `json:"as_of"`
	AnnualPercent      float64        `json:"annual_percent,omitempty"`
	PercentOfBenchmark float64        `json:"percent_of_benchmark"`
	Result             fincalc.Result `json:"result"`
}
