package calc

import "github.com/shopspring/decimal"

// =============================================================================
// PAY - Pure arithmetic over hour buckets
// =============================================================================

// PaySplit is pay per bucket, in currency units rounded to cents.
type PaySplit struct {
	RegularPay    decimal.Decimal `json:"regular_pay"`
	OvertimePay   decimal.Decimal `json:"overtime_pay"`
	DoubleTimePay decimal.Decimal `json:"double_time_pay"`
	TotalPay      decimal.Decimal `json:"total_pay"`
}

const centPlaces = 2

// CalculateOvertimePay returns regular pay (rate x regular) and overtime pay
// (rate x multiplier x overtime).
func CalculateOvertimePay(rate, regularHours, overtimeHours, multiplier decimal.Decimal) PaySplit {
	regular := rate.Mul(regularHours).Round(centPlaces)
	overtime := rate.Mul(multiplier).Mul(overtimeHours).Round(centPlaces)
	return PaySplit{
		RegularPay:    regular,
		OvertimePay:   overtime,
		DoubleTimePay: decimal.Zero,
		TotalPay:      regular.Add(overtime),
	}
}

// CalculateShiftPay prices every bucket of a breakdown, including double time.
func CalculateShiftPay(rate decimal.Decimal, h HourBreakdown, overtimeMultiplier, doubleTimeMultiplier decimal.Decimal) PaySplit {
	pay := CalculateOvertimePay(rate, h.RegularHours, h.OvertimeHours, overtimeMultiplier)
	pay.DoubleTimePay = rate.Mul(doubleTimeMultiplier).Mul(h.DoubleTimeHours).Round(centPlaces)
	pay.TotalPay = pay.TotalPay.Add(pay.DoubleTimePay)
	return pay
}
