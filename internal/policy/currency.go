package policy

import "strings"

// ReferenceCurrency is the canonical currency the price ceiling and
// commission are expressed in.  Prices in other currencies are converted
// before the ceiling comparison.
const ReferenceCurrency = "USD"

// referenceRates maps a currency code to its value in the reference
// currency.  The table is intentionally static; rates only gate the
// moderation threshold, they are not used for settlement.
var referenceRates = map[string]float64{
	"USD": 1.0,
	"EUR": 1.08,
	"GBP": 1.27,
	"KZT": 0.0021,
	"RUB": 0.011,
	"TRY": 0.029,
	"AED": 0.27,
}

// ToReference converts an amount in the given currency to whole units of
// the reference currency.  Unknown currency codes are treated as already
// being in the reference currency so a bad code can never bypass the
// ceiling by converting to zero.
func ToReference(amount int64, currency string) int64 {
	rate, ok := referenceRates[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok {
		return amount
	}
	return int64(float64(amount) * rate)
}
