package scrape

import (
	"github.com/shopspring/decimal"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// convertedPlaces is the precision of every converted amount.
const convertedPlaces = 2

// Amount is a value in one currency.
type Amount struct {
	Code  string
	Value decimal.Decimal
}

// CurrencyRow is a BankRow with its market cap converted through a rate table.
// Converted follows the rate table order.
type CurrencyRow struct {
	BankRow
	Converted []Amount
}

// Convert multiplies amount by factor and rounds half away from zero to
// two decimal places.
func Convert(amount, factor decimal.Decimal) decimal.Decimal {
	return amount.Mul(factor).Round(convertedPlaces)
}

// ConvertRows applies every rate to every row.
func ConvertRows(rows []BankRow, rates []pgingest.Rate) []CurrencyRow {
	out := make([]CurrencyRow, len(rows))
	for i, row := range rows {
		converted := make([]Amount, len(rates))
		for j, rate := range rates {
			converted[j] = Amount{Code: rate.Code, Value: Convert(row.MarketCap, rate.Factor)}
		}
		out[i] = CurrencyRow{BankRow: row, Converted: converted}
	}
	return out
}
