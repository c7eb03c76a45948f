package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/shopspring/decimal"
)

// ReceiveLotRequest adds a lot outside of a purchase order
type ReceiveLotRequest struct {
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	ReceiptDate string          `json:"receipt_date" binding:"required,datetime=2006-01-02"`
}

// CostLotResponse is the API view of a cost lot
type CostLotResponse struct {
	ID               uuid.UUID       `json:"id"`
	Barcode          string          `json:"barcode"`
	Seq              int64           `json:"seq"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	VATRate          decimal.Decimal `json:"vat_rate"`
	ReceiptDate      time.Time       `json:"receipt_date"`
	ConsumedQuantity decimal.Decimal `json:"consumed_quantity"`
	Remaining        decimal.Decimal `json:"remaining"`
	Source           string          `json:"source"`
	SourceRef        *uuid.UUID      `json:"source_ref,omitempty"`
	Depleted         bool            `json:"depleted"`
	Version          int             `json:"version"`
}

// ToCostLotResponse converts a domain lot
func ToCostLotResponse(lot *costing.CostLot) CostLotResponse {
	return CostLotResponse{
		ID:               lot.ID,
		Barcode:          lot.Barcode,
		Seq:              lot.Seq,
		Quantity:         lot.Quantity,
		UnitCost:         lot.UnitCost,
		VATRate:          lot.VATRate,
		ReceiptDate:      lot.ReceiptDate,
		ConsumedQuantity: lot.ConsumedQuantity,
		Remaining:        lot.Remaining(),
		Source:           string(lot.Source),
		SourceRef:        lot.SourceRef,
		Depleted:         lot.Depleted,
		Version:          lot.Version,
	}
}

// ToCostLotResponses converts a lot history, keeping its order
func ToCostLotResponses(lots []*costing.CostLot) []CostLotResponse {
	out := make([]CostLotResponse, 0, len(lots))
	for _, lot := range lots {
		out = append(out, ToCostLotResponse(lot))
	}
	return out
}

// RedistributionResponse summarizes a rebuilt consumption index
type RedistributionResponse struct {
	Barcode       string          `json:"barcode"`
	Replayed      bool            `json:"replayed"`
	ReplayFrom    *time.Time      `json:"replay_from,omitempty"`
	ReplayedSales int             `json:"replayed_sales"`
	CarriedSales  int             `json:"carried_sales"`
	ChangedLines  []uuid.UUID     `json:"changed_lines"`
	Discrepancy   decimal.Decimal `json:"discrepancy"`
}

// ToRedistributionResponse converts a redistribution result
func ToRedistributionResponse(r *costing.RedistributionResult) RedistributionResponse {
	changed := r.Changed
	if changed == nil {
		changed = []uuid.UUID{}
	}
	return RedistributionResponse{
		Barcode:       r.Barcode,
		Replayed:      r.Replayed,
		ReplayFrom:    r.ReplayFrom,
		ReplayedSales: r.ReplayedSales,
		CarriedSales:  r.CarriedSales,
		ChangedLines:  changed,
		Discrepancy:   r.Discrepancy,
	}
}
