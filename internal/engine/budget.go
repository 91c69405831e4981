package engine

import (
	"fmt"
	"strings"
)

// BudgetSeverity grades the outcome of the PO budget check.
type BudgetSeverity int

const (
	BudgetOK BudgetSeverity = iota
	BudgetNearLimit
	BudgetExceeded
)

// BudgetOutcome is the result of evaluating one prospective payment against
// its PO. Message is ready for display; the numeric fields support callers
// that format their own.
type BudgetOutcome struct {
	Severity  BudgetSeverity `json:"severity"`
	Message   string         `json:"message"`
	PORef     string         `json:"po_ref"`
	POTotal   float64        `json:"po_total"`
	Existing  float64        `json:"existing"`
	Payment   float64        `json:"payment"`
	Excess    float64        `json:"excess"`
	Remaining float64        `json:"remaining"`
}

// EvaluateBudget applies the budget rule: the new payment plus everything
// already booked must not exceed the PO value. Exactly reaching the limit is
// allowed; crossing 95% of it earns a warning.
func EvaluateBudget(poRef string, poTotal, existing, payment float64) BudgetOutcome {
	o := BudgetOutcome{
		PORef:    poRef,
		POTotal:  poTotal,
		Existing: existing,
		Payment:  payment,
	}
	total := existing + payment

	switch {
	case total > poTotal:
		o.Severity = BudgetExceeded
		o.Excess = total - poTotal
		o.Message = fmt.Sprintf(
			"PAYMENT EXCEEDS PO AMOUNT! PO %s: AED %s, already paid: AED %s, new payment: AED %s, total would be: AED %s, excess: AED %s",
			poRef, aed(poTotal), aed(existing), aed(payment), aed(total), aed(o.Excess))
	case total > poTotal*0.95:
		o.Severity = BudgetNearLimit
		o.Remaining = poTotal - existing
		o.Message = fmt.Sprintf(
			"Payment is close to PO limit. PO %s: AED %s, already paid: AED %s, remaining: AED %s, new payment: AED %s",
			poRef, aed(poTotal), aed(existing), aed(o.Remaining), aed(payment))
	default:
		o.Severity = BudgetOK
		o.Remaining = poTotal - total
		pct := 0.0
		if poTotal > 0 {
			pct = total / poTotal * 100
		}
		o.Message = fmt.Sprintf(
			"Payment progress for PO %s: PO amount AED %s, paid AED %s, this payment AED %s, total after AED %s (%.1f%%), remaining AED %s",
			poRef, aed(poTotal), aed(existing), aed(payment), aed(total), pct, aed(o.Remaining))
	}
	return o
}

// aed renders an amount with thousands separators and two decimals.
func aed(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}
