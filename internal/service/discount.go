package service

import "math/bits"

// distributeDiscount делит скидку между черновиками пропорционально subtotal.
// Каждый получает floor(discount*subtotal/total), последний забирает остаток.
// Если остаток больше subtotal последнего, излишек уходит предыдущим с конца,
// так что сумма всегда равна discount и ни один заказ не уходит в минус.
func distributeDiscount(subtotals []int64, discount int64) ([]int64, error) {
	out := make([]int64, len(subtotals))
	if discount == 0 || len(subtotals) == 0 {
		return out, nil
	}
	if discount < 0 {
		return nil, newValidationError("discount_cents", "must be greater than or equal to 0")
	}

	var total int64
	for _, st := range subtotals {
		total += st
	}
	if discount > total {
		return nil, newValidationError("discount_cents", "must not exceed order subtotal")
	}

	var given int64
	last := len(subtotals) - 1
	for i := 0; i < last; i++ {
		hi, lo := bits.Mul64(uint64(discount), uint64(subtotals[i]))
		q, _ := bits.Div64(hi, lo, uint64(total))
		out[i] = int64(q)
		given += out[i]
	}
	out[last] = discount - given

	excess := out[last] - subtotals[last]
	if excess > 0 {
		out[last] = subtotals[last]
		for i := last - 1; i >= 0 && excess > 0; i-- {
			room := subtotals[i] - out[i]
			take := min(room, excess)
			out[i] += take
			excess -= take
		}
	}
	return out, nil
}
