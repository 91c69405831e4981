package pipeline

import (
	"time"

	"github.com/pkpgroup/matdash/internal/engine"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/shockerli/cvt"
)

// The coercion layer maps loose extracted bags onto the typed columns of the
// target record. Unknown keys are never guessed into columns; they ride along
// in the record's extracted_data bag.

func coerceDate(v interface{}) *time.Time {
	if v == nil {
		return nil
	}
	d, err := engine.ParseDate(v)
	if err != nil {
		return nil
	}
	return &d
}

func coerceFloat(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}
	f, err := cvt.Float64E(v)
	return f, err == nil
}

func coerceString(v interface{}) (string, bool) {
	if v == nil {
		return "", false
	}
	s := cvt.String(v)
	return s, s != ""
}

// applyDeliveryFields writes recognized bag keys onto the delivery and
// returns the names of the fields it set.
func applyDeliveryFields(d *entity.Delivery, bag map[string]interface{}) []string {
	var applied []string

	if t := coerceDate(bag["delivery_date"]); t != nil {
		d.ActualDeliveryDate = t
		applied = append(applied, "actual_delivery_date")
	}
	if t := coerceDate(bag["expected_delivery_date"]); t != nil {
		d.ExpectedDeliveryDate = t
		applied = append(applied, "expected_delivery_date")
	}
	if s, ok := coerceString(bag["status"]); ok && entity.IsValidDeliveryStatus(s) {
		d.DeliveryStatus = s
		applied = append(applied, "delivery_status")
	}
	if f, ok := coerceFloat(bag["ordered_quantity"]); ok {
		d.OrderedQuantity = f
		applied = append(applied, "ordered_quantity")
	}
	if f, ok := coerceFloat(bag["delivered_quantity"]); ok {
		d.DeliveredQuantity = f
		applied = append(applied, "delivered_quantity")
	}
	if f, ok := coerceFloat(bag["delivery_percentage"]); ok && f >= 0 && f <= 100 {
		d.DeliveryPercentage = f
		applied = append(applied, "delivery_percentage")
	}
	for key, dst := range map[string]*string{
		"unit":              &d.Unit,
		"tracking_number":   &d.TrackingNumber,
		"carrier":           &d.Carrier,
		"delivery_location": &d.DeliveryLocation,
		"received_by":       &d.ReceivedBy,
		"notes":             &d.Notes,
	} {
		if s, ok := coerceString(bag[key]); ok {
			*dst = s
			applied = append(applied, key)
		}
	}
	return applied
}

func applyPOFields(po *entity.PurchaseOrder, bag map[string]interface{}) []string {
	var applied []string

	if t := coerceDate(firstKey(bag, "po_date", "release_date")); t != nil {
		po.PODate = t
		applied = append(applied, "po_date")
	}
	if t := coerceDate(bag["expected_delivery_date"]); t != nil {
		po.ExpectedDeliveryDate = t
		applied = append(applied, "expected_delivery_date")
	}
	if f, ok := coerceFloat(firstKey(bag, "total_amount", "amount")); ok && f > 0 {
		po.TotalAmount = f
		applied = append(applied, "total_amount")
	}
	if s, ok := coerceString(bag["po_status"]); ok && entity.IsValidPOStatus(s) {
		po.POStatus = s
		applied = append(applied, "po_status")
	}
	for key, dst := range map[string]*string{
		"supplier_name":    &po.SupplierName,
		"supplier_contact": &po.SupplierContact,
		"supplier_email":   &po.SupplierEmail,
		"currency":         &po.Currency,
		"payment_terms":    &po.PaymentTerms,
		"delivery_terms":   &po.DeliveryTerms,
		"quote_ref":        &po.QuoteRef,
		"notes":            &po.Notes,
	} {
		if s, ok := coerceString(bag[key]); ok {
			*dst = s
			applied = append(applied, key)
		}
	}
	return applied
}

func applyPaymentFields(p *entity.Payment, bag map[string]interface{}) []string {
	var applied []string

	if t := coerceDate(firstKey(bag, "payment_date", "invoice_date")); t != nil {
		p.PaymentDate = t
		applied = append(applied, "payment_date")
	}
	if f, ok := coerceFloat(bag["total_amount"]); ok && f > 0 {
		p.TotalAmount = f
		applied = append(applied, "total_amount")
	}
	if f, ok := coerceFloat(bag["paid_amount"]); ok && f >= 0 {
		p.PaidAmount = f
		applied = append(applied, "paid_amount")
	}
	for key, dst := range map[string]*string{
		"payment_ref":       &p.PaymentRef,
		"invoice_ref":       &p.InvoiceRef,
		"payment_method":    &p.PaymentMethod,
		"payment_type":      &p.PaymentType,
		"payment_status":    &p.PaymentStatus,
		"payment_structure": &p.PaymentStructure,
		"currency":          &p.Currency,
		"notes":             &p.Notes,
	} {
		if s, ok := coerceString(bag[key]); ok {
			*dst = s
			applied = append(applied, key)
		}
	}
	return applied
}

// projectFields keeps only the keys the target kind recognizes, for storing
// on a suggestion.
func projectFields(kind string, bag map[string]interface{}) map[string]interface{} {
	known := knownFields(kind)
	out := make(map[string]interface{}, len(bag))
	for k, v := range bag {
		if _, ok := known[k]; ok {
			out[k] = v
		}
	}
	return out
}

func knownFields(kind string) map[string]struct{} {
	var keys []string
	switch kind {
	case TargetDelivery:
		keys = []string{
			"delivery_date", "expected_delivery_date", "status", "ordered_quantity",
			"delivered_quantity", "delivery_percentage", "unit", "tracking_number",
			"carrier", "delivery_location", "received_by", "notes",
		}
	case TargetPO:
		keys = []string{
			"po_date", "release_date", "expected_delivery_date", "total_amount",
			"amount", "po_status", "supplier_name", "supplier_contact",
			"supplier_email", "currency", "payment_terms", "delivery_terms",
			"quote_ref", "notes",
		}
	case TargetPayment:
		keys = []string{
			"payment_date", "invoice_date", "total_amount", "paid_amount",
			"payment_ref", "invoice_ref", "payment_method", "payment_type",
			"payment_status", "payment_structure", "currency", "notes",
		}
	}
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

func firstKey(bag map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := bag[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
