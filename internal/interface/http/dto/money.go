package dto

import "github.com/ignatzorin/escrow-backend/internal/domain/valueobject"

// MoneyCodec переводит суммы API (десятичные) во внутренние минимальные единицы и обратно.
type MoneyCodec struct {
	Decimals int
}

func (c MoneyCodec) ToMoney(amount float64) (valueobject.Money, error) {
	return valueobject.MoneyFromDecimal(amount, c.Decimals)
}

func (c MoneyCodec) FromMoney(m valueobject.Money) float64 {
	return m.Decimal(c.Decimals)
}
