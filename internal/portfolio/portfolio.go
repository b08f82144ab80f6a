package portfolio

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Position constants are fixed at build time: the bot tracks one purchase
// of 5488 XRP that cost $3527.60 all-in.
var (
	ShareCount   = decimal.NewFromInt(5488)
	CostBasisUSD = decimal.RequireFromString("3527.60")
)

var hundred = decimal.NewFromInt(100)

// Round truncates to two decimal places as floor(x*100)/100. For negative
// inputs the floor biases toward negative infinity, not toward zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Mul(hundred).Floor().Div(hundred)
}

// ShortReport renders the current-state portfolio summary in HTML.
func ShortReport(price decimal.Decimal) string {
	deposit := Round(ShareCount.Mul(price))
	diff := Round(deposit.Sub(CostBasisUSD))

	b := strings.Builder{}
	b.WriteString("\n")
	b.WriteString("Депозит, USD: <b>$3527,60</b>\n")
	b.WriteString("Кол-во XRP: <b>5488 шт.</b>\n")
	writeCurrentState(&b, deposit, price, diff)
	return b.String()
}

// FullReport renders the summary plus the fixed acquisition details.
func FullReport(price decimal.Decimal) string {
	deposit := Round(ShareCount.Mul(price))
	diff := Round(deposit.Sub(CostBasisUSD))

	b := strings.Builder{}
	b.WriteString("\n")
	b.WriteString("Бюджет, евро: <b>€3000,00</b>\n")
	b.WriteString("Бюджет, грн: <b>101000,00 грн.</b>\n")
	b.WriteString("Комисия, грн: <b>895,00 грн.</b>\n")
	b.WriteString("Депозит, грн: <b>100105,00 грн.</b>\n")
	b.WriteString("Депозит, USD: <b>$3527,60</b>\n")
	b.WriteString("Курс покупки, USD: <b>28,38 грн.</b>\n")
	b.WriteString("Кол-во XRP: <b>5488 шт.</b>\n")
	b.WriteString("Курс покупки: <b>$0,64215</b>\n")
	writeCurrentState(&b, deposit, price, diff)
	return b.String()
}

func writeCurrentState(b *strings.Builder, deposit, price, diff decimal.Decimal) {
	b.WriteString(fmt.Sprintf("Депозит на сейчас: <b>$%s.</b>\n", deposit.String()))
	b.WriteString(fmt.Sprintf("Курс на сейчас: <b>$%s</b>\n", price.String()))
	if diff.IsNegative() {
		b.WriteString(fmt.Sprintf("Убыток: <b>$%s</b>\n", diff.Neg().String()))
	} else {
		b.WriteString(fmt.Sprintf("Доход: <b>$%s.</b>", diff.String()))
	}
	b.WriteString("\n")
}
