package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/shockerli/cvt"
	"gorm.io/gorm"
)

// Record types the engine understands. lpo_release corresponds to a PO being
// released to a supplier.
const (
	RecordSubmittal  = "submittal"
	RecordLPORelease = "lpo_release"
	RecordInvoice    = "invoice"
	RecordDelivery   = "delivery"
)

// Result is the outcome of one validation pass. Warnings never block a write,
// errors always do.
type Result struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validator checks record bags before they are written. It reads the database
// for the PO budget check but never writes.
type Validator struct {
	pos      *repository.PurchaseOrderRepository
	payments *repository.PaymentRepository
}

func NewValidator(pos *repository.PurchaseOrderRepository, payments *repository.PaymentRepository) *Validator {
	return &Validator{pos: pos, payments: payments}
}

// Validate routes the bag to the rule set for its record type.
func (v *Validator) Validate(ctx context.Context, recordType string, data map[string]interface{}) Result {
	rs := &ruleSet{now: time.Now()}

	switch recordType {
	case RecordLPORelease:
		v.validateLPORelease(rs, data)
	case RecordInvoice:
		v.validateInvoice(ctx, rs, data)
	case RecordSubmittal:
		v.validateSubmittal(rs, data)
	case RecordDelivery:
		v.validateDelivery(rs, data)
	default:
		rs.errorf("Unknown record type: %s", recordType)
	}

	return rs.result()
}

func (v *Validator) validateLPORelease(rs *ruleSet, data map[string]interface{}) {
	rs.requireFields(data, "material_id", "supplier_name", "lpo_number", "release_date", "amount")

	rs.checkLPONumber(str(data, "lpo_number"))
	rs.checkDate(data["release_date"], "Release Date")
	rs.checkAmount(data["amount"], "Amount")
	rs.checkPhone(str(data, "contact_number"))
	rs.checkEmail(str(data, "contact_email"))

	if data["expected_delivery_date"] != nil && data["release_date"] != nil {
		rs.checkDeliveryAfterRelease(data["release_date"], data["expected_delivery_date"])
	}

	rs.checkAmountAnomaly(data["amount"])
}

func (v *Validator) validateInvoice(ctx context.Context, rs *ruleSet, data map[string]interface{}) {
	rs.requireFields(data, "payment_date", "total_amount")

	if n := str(data, "invoice_number"); n != "" {
		rs.checkInvoiceNumber(n)
	}
	rs.checkDate(firstOf(data, "payment_date", "invoice_date"), "Payment Date")
	rs.checkAmount(firstOf(data, "total_amount", "amount"), "Amount")

	if data["due_date"] != nil {
		rs.checkDate(data["due_date"], "Due Date")
	}
	if data["invoice_date"] != nil && data["due_date"] != nil {
		rs.checkDueAfterInvoice(data["invoice_date"], data["due_date"])
	}

	// Budget check: total payments against a PO must never exceed its value.
	poID, poErr := cvt.Uint64E(data["po_id"])
	amount, amtErr := cvt.Float64E(data["total_amount"])
	if poErr == nil && poID > 0 && amtErr == nil && amount > 0 {
		outcome, err := v.CheckPaymentAgainstPO(ctx, nil, uint(poID), amount, 0)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				rs.errorf("Purchase Order with ID %d not found", poID)
			} else {
				rs.warnf("Could not validate payment against PO: %v", err)
			}
		} else {
			rs.addBudget(outcome)
		}
	}
}

func (v *Validator) validateSubmittal(rs *ruleSet, data map[string]interface{}) {
	rs.requireFields(data, "material_type", "approval_status")

	rs.checkDate(data["date_submitted"], "Submission Date")
	rs.checkStatus(str(data, "approval_status"), []string{
		"Pending", "Under Review", "Approved", "Approved as Noted", "Revise & Resubmit",
	})

	if data["date_submitted"] != nil && data["response_date"] != nil {
		rs.checkResponseAfterSubmission(data["date_submitted"], data["response_date"])
	}

	if str(data, "approval_status") == "Pending" && data["date_submitted"] != nil {
		rs.checkSubmittalOverdue(data["date_submitted"])
	}
}

func (v *Validator) validateDelivery(rs *ruleSet, data map[string]interface{}) {
	rs.requireFields(data, "lpo_id", "delivery_date", "status")

	rs.checkDate(data["delivery_date"], "Delivery Date")
	rs.checkStatus(str(data, "status"), []string{"Pending", "Partial", "Delivered", "Rejected"})

	if str(data, "status") == "Partial" {
		pct := cvt.Float64(data["delivery_percentage"])
		if pct <= 0 || pct >= 100 {
			rs.warnf("Partial delivery should have percentage between 1-99%% (currently: %g%%)", pct)
		}
	}

	if data["ordered_quantity"] != nil && data["delivered_quantity"] != nil {
		rs.checkQuantityMatch(data["ordered_quantity"], data["delivered_quantity"])
	}
}

// CheckPaymentAgainstPO evaluates a prospective payment against the PO budget.
// When tx is non-nil the PO row is read under FOR UPDATE so concurrent
// payments serialize on the parent row; excludePaymentID omits one existing
// payment from the sum when re-validating an update.
func (v *Validator) CheckPaymentAgainstPO(ctx context.Context, tx *gorm.DB, poID uint, amount float64, excludePaymentID uint) (BudgetOutcome, error) {
	var (
		poRef   string
		poTotal float64
	)
	if tx != nil {
		po, err := v.pos.FindByIDForUpdate(ctx, tx, poID)
		if err != nil {
			return BudgetOutcome{}, err
		}
		poRef, poTotal = po.PORef, po.TotalAmount
	} else {
		po, err := v.pos.FindByID(ctx, poID)
		if err != nil {
			return BudgetOutcome{}, err
		}
		poRef, poTotal = po.PORef, po.TotalAmount
	}

	existing, err := v.payments.SumByPO(ctx, tx, poID, excludePaymentID)
	if err != nil {
		return BudgetOutcome{}, err
	}

	return EvaluateBudget(poRef, poTotal, existing, amount), nil
}

// ruleSet collects errors and warnings for one validation pass.
type ruleSet struct {
	errors   []string
	warnings []string
	now      time.Time
}

func (rs *ruleSet) result() Result {
	return Result{
		IsValid:  len(rs.errors) == 0,
		Errors:   rs.errors,
		Warnings: rs.warnings,
	}
}

func (rs *ruleSet) errorf(format string, args ...interface{}) {
	rs.errors = append(rs.errors, fmt.Sprintf(format, args...))
}

func (rs *ruleSet) warnf(format string, args ...interface{}) {
	rs.warnings = append(rs.warnings, fmt.Sprintf(format, args...))
}

func (rs *ruleSet) addBudget(o BudgetOutcome) {
	switch o.Severity {
	case BudgetExceeded:
		rs.errors = append(rs.errors, o.Message)
	default:
		// near-limit and progress notes are both advisory
		rs.warnings = append(rs.warnings, o.Message)
	}
}

func (rs *ruleSet) requireFields(data map[string]interface{}, fields ...string) {
	for _, f := range fields {
		v, ok := data[f]
		if !ok || v == nil || strings.TrimSpace(cvt.String(v)) == "" {
			rs.errorf("%s is required", titleField(f))
		}
	}
}

var lpoNumberRe = regexp.MustCompile(`(?i)^LPO-\d{4}-\d{3,}$`)

func (rs *ruleSet) checkLPONumber(n string) {
	if n == "" {
		return
	}
	if !lpoNumberRe.MatchString(n) {
		rs.warnf("LPO number '%s' doesn't follow standard format (LPO-YYYY-NNN)", n)
	}
}

func (rs *ruleSet) checkInvoiceNumber(n string) {
	if len(n) < 3 {
		rs.errorf("Invoice number '%s' is too short", n)
	}
}

func (rs *ruleSet) checkDate(value interface{}, field string) {
	if value == nil {
		return
	}
	d, err := ParseDate(value)
	if err != nil {
		rs.errorf("%s has invalid date format (use YYYY-MM-DD)", field)
		return
	}
	if d.Before(rs.now.AddDate(-5, 0, 0)) {
		rs.warnf("%s is more than 5 years in the past", field)
	}
	if d.After(rs.now.AddDate(2, 0, 0)) {
		rs.warnf("%s is more than 2 years in the future", field)
	}
}

func (rs *ruleSet) checkAmount(value interface{}, field string) {
	if value == nil {
		return
	}
	amount, err := cvt.Float64E(value)
	if err != nil {
		rs.errorf("%s must be a valid number", field)
		return
	}
	if amount <= 0 {
		rs.errorf("%s must be a positive number", field)
	} else if amount > 10_000_000 {
		rs.warnf("%s is unusually high (AED %s)", field, aed(amount))
	}
}

var phoneStripRe = regexp.MustCompile(`[\s\-()]`)

func (rs *ruleSet) checkPhone(phone string) {
	if phone == "" {
		return
	}
	cleaned := phoneStripRe.ReplaceAllString(phone, "")
	cleaned = strings.TrimPrefix(cleaned, "+")
	if !isDigits(cleaned) || len(cleaned) < 7 || len(cleaned) > 15 {
		rs.warnf("Phone number '%s' may not be valid", phone)
	}
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func (rs *ruleSet) checkEmail(email string) {
	if email == "" {
		return
	}
	if !emailRe.MatchString(email) {
		rs.errorf("Email '%s' is not valid", email)
	}
}

func (rs *ruleSet) checkStatus(status string, allowed []string) {
	if status == "" {
		return
	}
	for _, a := range allowed {
		if a == status {
			return
		}
	}
	rs.errorf("Status '%s' is invalid. Must be one of: %s", status, strings.Join(allowed, ", "))
}

func (rs *ruleSet) checkDeliveryAfterRelease(release, delivery interface{}) {
	r, err1 := ParseDate(release)
	d, err2 := ParseDate(delivery)
	if err1 != nil || err2 != nil {
		return
	}
	if d.Before(r) {
		rs.errorf("Expected delivery date cannot be before LPO release date")
	} else if d.Equal(r) {
		rs.warnf("Expected delivery is same day as LPO release")
	}
}

func (rs *ruleSet) checkDueAfterInvoice(invoice, due interface{}) {
	i, err1 := ParseDate(invoice)
	d, err2 := ParseDate(due)
	if err1 != nil || err2 != nil {
		return
	}
	if d.Before(i) {
		rs.errorf("Payment due date cannot be before invoice date")
	}
	if days := int(d.Sub(i).Hours() / 24); days > 90 {
		rs.warnf("Payment terms are %d days (longer than typical)", days)
	}
}

func (rs *ruleSet) checkResponseAfterSubmission(submitted, response interface{}) {
	s, err1 := ParseDate(submitted)
	r, err2 := ParseDate(response)
	if err1 != nil || err2 != nil {
		return
	}
	if r.Before(s) {
		rs.errorf("Response date cannot be before submission date")
	}
}

func (rs *ruleSet) checkQuantityMatch(ordered, delivered interface{}) {
	o, err1 := cvt.Float64E(ordered)
	d, err2 := cvt.Float64E(delivered)
	if err1 != nil || err2 != nil {
		return
	}
	if d > o {
		rs.warnf("Delivered quantity (%g) exceeds ordered (%g)", d, o)
	} else if d < o*0.9 {
		rs.warnf("Delivered quantity (%g) is less than ordered (%g)", d, o)
	}
}

// Typical band for PO and invoice amounts on this project.
const (
	typicalAmountMin = 1_000
	typicalAmountMax = 500_000
)

func (rs *ruleSet) checkAmountAnomaly(value interface{}) {
	if value == nil {
		return
	}
	amount, err := cvt.Float64E(value)
	if err != nil {
		return
	}
	if amount < typicalAmountMin {
		rs.warnf("Amount (AED %s) is lower than typical range", aed(amount))
	} else if amount > typicalAmountMax {
		rs.warnf("Amount (AED %s) is higher than typical range", aed(amount))
	}
}

func (rs *ruleSet) checkSubmittalOverdue(submitted interface{}) {
	s, err := ParseDate(submitted)
	if err != nil {
		return
	}
	if days := int(rs.now.Sub(s).Hours() / 24); days > 7 {
		rs.warnf("Submittal response pending for %d days (>7 days threshold)", days)
	}
}

// ParseDate accepts time.Time or a YYYY-MM-DD / RFC3339 string.
func ParseDate(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil date")
		}
		return *v, nil
	case string:
		if d, err := time.Parse("2006-01-02", v); err == nil {
			return d, nil
		}
		return time.Parse(time.RFC3339, v)
	default:
		return time.Time{}, fmt.Errorf("invalid date format %T", value)
	}
}

func str(data map[string]interface{}, key string) string {
	return strings.TrimSpace(cvt.String(data[key]))
}

func firstOf(data map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := data[k]; ok && v != nil && strings.TrimSpace(cvt.String(v)) != "" {
			return v
		}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func titleField(field string) string {
	parts := strings.Split(field, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
