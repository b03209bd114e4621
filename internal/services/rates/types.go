package rates

// Rate is a single bid/ask quote against PLN. Bid is the price the
// counterparty buys the foreign currency at, Ask the price it sells at.
type Rate struct {
	Currency string  `json:"currency"`
	Code     string  `json:"code"`
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
}

// Table is a point-in-time rate table (NBP table C).
type Table struct {
	EffectiveDate string `json:"effectiveDate"`
	Rates         []Rate `json:"rates"`
}

// Find locates the quote for a currency code.
func (t *Table) Find(code string) (Rate, bool) {
	for _, r := range t.Rates {
		if r.Code == code {
			return r, true
		}
	}
	return Rate{}, false
}

// HistoricalRate is one point of a mid-rate series (NBP table A).
type HistoricalRate struct {
	Date string  `json:"effectiveDate"`
	Mid  float64 `json:"mid"`
}
