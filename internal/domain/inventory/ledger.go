package inventory

import (
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Operation names a ledger operation
type Operation string

const (
	OperationReserve Operation = "reserve"
	OperationCommit  Operation = "commit"
	OperationRelease Operation = "release"
	OperationRestock Operation = "restock"
)

// Skip reasons for lines that are not applied
const (
	SkipMissingProduct  = "missing product reference"
	SkipInvalidQuantity = "quantity must be a positive finite number"
	SkipStoreFailure    = "stock update failed"
)

// LineItem is the ledger view of an order line.
type LineItem struct {
	ProductID  uuid.UUID `json:"product_id"`
	VariantSKU string    `json:"variant_sku,omitempty"`
	Quantity   float64   `json:"quantity"`
}

// Validate returns the quantity as a decimal, or a skip reason.
func (l LineItem) Validate() (decimal.Decimal, string) {
	if l.ProductID == uuid.Nil {
		return decimal.Zero, SkipMissingProduct
	}
	if math.IsNaN(l.Quantity) || math.IsInf(l.Quantity, 0) || l.Quantity <= 0 {
		return decimal.Zero, SkipInvalidQuantity
	}
	return decimal.NewFromFloat(l.Quantity), ""
}

// SkippedLine describes a line that was not applied
type SkippedLine struct {
	Index      int       `json:"index"`
	ProductID  uuid.UUID `json:"product_id"`
	VariantSKU string    `json:"variant_sku,omitempty"`
	Reason     string    `json:"reason"`
}

// LedgerReport is the per-line outcome of a ledger operation.
type LedgerReport struct {
	Operation Operation     `json:"operation"`
	Applied   int           `json:"applied"`
	Skipped   []SkippedLine `json:"skipped"`
}

// NewLedgerReport creates an empty report
func NewLedgerReport(op Operation) *LedgerReport {
	return &LedgerReport{Operation: op, Skipped: make([]SkippedLine, 0)}
}

// Skip records a skipped line
func (r *LedgerReport) Skip(index int, item LineItem, reason string) {
	r.Skipped = append(r.Skipped, SkippedLine{
		Index:      index,
		ProductID:  item.ProductID,
		VariantSKU: item.VariantSKU,
		Reason:     reason,
	})
}

// AllApplied reports whether no line was skipped
func (r *LedgerReport) AllApplied() bool {
	return len(r.Skipped) == 0
}

// StockAdjustment moves the counters of one product or variant row.
type StockAdjustment struct {
	ProductID     uuid.UUID
	VariantSKU    string
	InStockDelta  decimal.Decimal
	ReservedDelta decimal.Decimal
}

// ReserveAdjustment holds qty for checkout
func ReserveAdjustment(item LineItem, qty decimal.Decimal) StockAdjustment {
	return StockAdjustment{ProductID: item.ProductID, VariantSKU: item.VariantSKU, InStockDelta: decimal.Zero, ReservedDelta: qty}
}

// CommitAdjustment turns a hold into a sale
func CommitAdjustment(item LineItem, qty decimal.Decimal) StockAdjustment {
	return StockAdjustment{ProductID: item.ProductID, VariantSKU: item.VariantSKU, InStockDelta: qty.Neg(), ReservedDelta: qty.Neg()}
}

// ReleaseAdjustment returns stock from a cancelled or expired order
func ReleaseAdjustment(item LineItem, qty decimal.Decimal) StockAdjustment {
	return StockAdjustment{ProductID: item.ProductID, VariantSKU: item.VariantSKU, InStockDelta: qty, ReservedDelta: qty.Neg()}
}

// RestockAdjustment puts sold units back after a cancelled or refunded sale
func RestockAdjustment(item LineItem, qty decimal.Decimal) StockAdjustment {
	return StockAdjustment{ProductID: item.ProductID, VariantSKU: item.VariantSKU, InStockDelta: qty, ReservedDelta: decimal.Zero}
}
