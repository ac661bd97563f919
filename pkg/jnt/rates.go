package jnt

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Rate is a shipping quote for one destination.
type Rate struct {
	BaseFee       decimal.Decimal `json:"base_fee"`
	FuelSurcharge decimal.Decimal `json:"fuel_surcharge"`
	AdditionalFee decimal.Decimal `json:"additional_fee"`
	TotalFee      decimal.Decimal `json:"total_fee"`
	Currency      string          `json:"currency"`
	EstimatedDays string          `json:"estimated_days"`
	Fallback      bool            `json:"fallback"`
}

type staticRate struct {
	fee      int64
	currency string
	days     string
}

var fallbackRates = map[string]staticRate{
	"AE": {fee: 15, currency: "AED", days: "2-3"},
	"SA": {fee: 25, currency: "SAR", days: "3-5"},
	"QA": {fee: 20, currency: "QAR", days: "3-4"},
	"OM": {fee: 22, currency: "OMR", days: "3-5"},
	"BH": {fee: 18, currency: "BHD", days: "2-4"},
	"KW": {fee: 24, currency: "KWD", days: "3-5"},
}

var defaultFallbackRate = staticRate{fee: 30, currency: "USD", days: "5-7"}

var deliveryDays = map[string]int{
	"AE": 3,
	"SA": 5,
	"QA": 4,
	"OM": 5,
	"BH": 4,
	"KW": 5,
}

const defaultDeliveryDays = 7

// FallbackRate returns the static quote for a destination country code.
func FallbackRate(countryCode string) Rate {
	r, ok := fallbackRates[normalizeCountry(countryCode)]
	if !ok {
		r = defaultFallbackRate
	}
	fee := decimal.NewFromInt(r.fee)
	return Rate{
		BaseFee:       fee,
		FuelSurcharge: decimal.Zero,
		AdditionalFee: decimal.Zero,
		TotalFee:      fee,
		Currency:      r.currency,
		EstimatedDays: r.days,
		Fallback:      true,
	}
}

// EstimatedDelivery returns from plus the transit days for the destination.
func EstimatedDelivery(countryCode string, from time.Time) time.Time {
	days, ok := deliveryDays[normalizeCountry(countryCode)]
	if !ok {
		days = defaultDeliveryDays
	}
	return from.AddDate(0, 0, days)
}

func normalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
