package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories bundles every table's repository behind one constructor.
type Repositories struct {
	Material      *MaterialRepository
	PurchaseOrder *PurchaseOrderRepository
	Payment       *PaymentRepository
	Delivery      *DeliveryRepository
	Suggestion    *SuggestionRepository
	File          *FileRepository
	LPO           *LPORepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Material:      NewMaterialRepository(db),
		PurchaseOrder: NewPurchaseOrderRepository(db),
		Payment:       NewPaymentRepository(db),
		Delivery:      NewDeliveryRepository(db),
		Suggestion:    NewSuggestionRepository(db),
		File:          NewFileRepository(db),
		LPO:           NewLPORepository(db),
	}
}
