package valueobject

import (
	"fmt"
	"math"

	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// Money хранит сумму в минимальных единицах валюты (копейки, центы).
type Money int64

func NewMoney(amount int64) (Money, error) {
	if amount < 0 {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	return Money(amount), nil
}

// MoneyFromDecimal переводит сумму из API (например 199.99) в минимальные единицы.
func MoneyFromDecimal(amount float64, decimals int) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, apperror.New(apperror.ErrCodeValidation, "некорректная сумма")
	}
	if amount < 0 {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	minor := math.Round(amount * math.Pow10(decimals))
	if minor > math.MaxInt64/10000 {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма слишком велика")
	}
	return Money(int64(minor)), nil
}

func (m Money) Decimal(decimals int) float64 {
	return float64(m) / math.Pow10(decimals)
}

func (m Money) Format(decimals int) string {
	return fmt.Sprintf("%.*f", decimals, m.Decimal(decimals))
}

// FeePolicy задает единственную комиссию площадки в базисных пунктах (1000 = 10%).
type FeePolicy struct {
	Bps int64
}

func NewFeePolicy(bps int64) (FeePolicy, error) {
	if bps < 0 || bps > 10000 {
		return FeePolicy{}, apperror.New(apperror.ErrCodeValidation, "комиссия должна быть в диапазоне 0..10000 б.п.")
	}
	return FeePolicy{Bps: bps}, nil
}

// Split делит сумму на комиссию и выплату исполнителю. Комиссия округляется half-up,
// выплата получается вычитанием, поэтому fee + net всегда равно gross.
func (p FeePolicy) Split(gross Money) (fee, net Money) {
	fee = Money((int64(gross)*p.Bps + 5000) / 10000)
	return fee, gross - fee
}

type PricingMode string

const (
	PricingHourly PricingMode = "hourly"
	PricingFixed  PricingMode = "fixed"
)

func NewPricingMode(mode string) (PricingMode, error) {
	m := PricingMode(mode)
	if m != PricingHourly && m != PricingFixed {
		return "", apperror.New(apperror.ErrCodeValidation, "режим оплаты должен быть hourly или fixed")
	}
	return m, nil
}

type Role string

const (
	RoleRequester Role = "requester"
	RoleFulfiller Role = "fulfiller"
	RoleMediator  Role = "mediator"
)

func (r Role) IsValid() bool {
	return r == RoleRequester || r == RoleFulfiller || r == RoleMediator
}
