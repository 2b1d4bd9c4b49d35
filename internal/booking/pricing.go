package booking

import (
	"strconv"
)

const (
	DefaultCleaningFee = 200
	DefaultServiceFee  = 0
)

type Fees struct {
	Cleaning float64 `json:"cleaning" yaml:"cleaning"`
	Service  float64 `json:"service"  yaml:"service"`
}

func DefaultFees() Fees {
	return Fees{Cleaning: DefaultCleaningFee, Service: DefaultServiceFee}
}

type PriceBreakdown struct {
	NightlyRate float64 `json:"nightlyRate"`
	Nights      int     `json:"nights"`
	Subtotal    float64 `json:"subtotal"`
	CleaningFee float64 `json:"cleaningFee"`
	ServiceFee  float64 `json:"serviceFee"`
	Total       float64 `json:"total"`
}

// ComputePrice derives the breakdown shown at every booking step. Fees are
// always charged: without a valid range the subtotal is 0 and the total is
// the fees alone.
func ComputePrice(nightlyRate float64, rng *DateRange, fees Fees) PriceBreakdown {
	nights := rng.Nights()

	var subtotal float64
	if nights > 0 {
		subtotal = nightlyRate * float64(nights)
	}

	return PriceBreakdown{
		NightlyRate: nightlyRate,
		Nights:      nights,
		Subtotal:    subtotal,
		CleaningFee: fees.Cleaning,
		ServiceFee:  fees.Service,
		Total:       subtotal + fees.Cleaning + fees.Service,
	}
}

// FormatMoney rounds to cents for display only.
func FormatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) //nolint:gomnd
}

type PriceDisplay struct {
	NightlyRate string `json:"nightlyRate"`
	Subtotal    string `json:"subtotal"`
	CleaningFee string `json:"cleaningFee"`
	ServiceFee  string `json:"serviceFee"`
	Total       string `json:"total"`
}

func (p PriceBreakdown) Display() PriceDisplay {
	return PriceDisplay{
		NightlyRate: FormatMoney(p.NightlyRate),
		Subtotal:    FormatMoney(p.Subtotal),
		CleaningFee: FormatMoney(p.CleaningFee),
		ServiceFee:  FormatMoney(p.ServiceFee),
		Total:       FormatMoney(p.Total),
	}
}
