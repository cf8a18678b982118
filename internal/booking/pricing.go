package booking

// PlatformFeePercent is charged to the requester on top of the booking amount
// and is not credited to any wallet.
const PlatformFeePercent = 10

type Quote struct {
	AmountCents int64 `json:"amount_cents"`
	FeeCents    int64 `json:"fee_cents"`
}

// TotalCents is what the requester pays.
func (q Quote) TotalCents() int64 { return q.AmountCents + q.FeeCents }

// QuoteFor prices minutes of occupancy at an hourly rate.
func QuoteFor(hourlyCents, minutes int64) Quote {
	return QuoteForAmount(divRoundHalfUp(hourlyCents*minutes, 60))
}

func QuoteForAmount(amountCents int64) Quote {
	return Quote{
		AmountCents: amountCents,
		FeeCents:    divRoundHalfUp(amountCents*PlatformFeePercent, 100),
	}
}

// divRoundHalfUp divides non-negative n by d rounding halves away from zero.
func divRoundHalfUp(n, d int64) int64 {
	return (2*n + d) / (2 * d)
}
