// README: Common money value object used across modules.
package types

// Money is an integer amount in the currency's minor unit.
type Money struct {
	Amount   int64
	Currency string
}
