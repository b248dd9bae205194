package domain

import "github.com/shopspring/decimal"

// TicketRates is the fixed per-type rate table. Prices are captured on the
// ticket at settlement time, so later rate changes never affect sold tickets.
var TicketRates = map[TicketType]decimal.Decimal{
	TicketTypeAdult:   decimal.NewFromFloat(25.0),
	TicketTypeChild:   decimal.NewFromFloat(15.0),
	TicketTypeSenior:  decimal.NewFromFloat(20.0),
	TicketTypeStudent: decimal.NewFromFloat(18.0),
}

// AmountTolerance is the maximum accepted difference between the declared
// amount and the canonical price.
var AmountTolerance = decimal.NewFromFloat(0.01)

// TotalPrice computes the canonical price of a ticket-type breakdown from
// the rate table.
func TotalPrice(ticketTypes []TicketTypeCount) decimal.Decimal {
	total := decimal.Zero

	for _, tc := range ticketTypes {
		total = total.Add(TicketRates[tc.Type].Mul(decimal.NewFromInt(int64(tc.Count))))
	}

	return total
}

// ApplyDiscount reduces the total by a percentage, rounded to two decimal
// places.
func ApplyDiscount(total, percent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(100).Sub(percent).Div(decimal.NewFromInt(100))

	return total.Mul(factor).Round(2)
}

// AmountsMatch reports whether two amounts agree within AmountTolerance.
func AmountsMatch(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(AmountTolerance)
}
