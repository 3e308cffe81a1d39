// Package workspace implements the aggregation workspace: a set of mutable
// zones into which invoices and transactions are grouped before being
// committed as a single reconciliation action.
//
// The workspace is a single-writer structure. Every mutation recomputes the
// affected zone's balance and status synchronously, so concurrent readers
// never observe a transient inconsistent state, and an item belongs to at
// most one zone at any time.
package workspace

import (
	"fmt"

	"invoice-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

// ItemKind distinguishes the two kinds of zone members
type ItemKind string

const (
	KindInvoice     ItemKind = "invoice"
	KindTransaction ItemKind = "transaction"
)

// String returns the string representation of ItemKind
func (k ItemKind) String() string {
	return string(k)
}

// IsValid checks if the item kind is valid
func (k ItemKind) IsValid() bool {
	return k == KindInvoice || k == KindTransaction
}

// ZoneItem references one invoice or transaction grouped into a zone
type ZoneItem struct {
	Kind  ItemKind `json:"kind"`
	RefID string   `json:"ref_id"`
}

// String returns the string representation of the ZoneItem
func (zi ZoneItem) String() string {
	return fmt.Sprintf("%s:%s", zi.Kind, zi.RefID)
}

// ZoneStatus classifies a zone's balance
type ZoneStatus string

const (
	// ZoneEmpty means the zone has no items
	ZoneEmpty ZoneStatus = "empty"
	// ZonePerfect means invoice and transaction amounts balance exactly
	ZonePerfect ZoneStatus = "perfect"
	// ZoneClose means the imbalance is within the close tolerance
	ZoneClose ZoneStatus = "close"
	// ZoneDifferent means the imbalance is at or beyond the close
	// tolerance; commit is blocked by contract
	ZoneDifferent ZoneStatus = "different"
)

// String returns the string representation of ZoneStatus
func (zs ZoneStatus) String() string {
	return string(zs)
}

// IsCommittable reports whether the balance classification permits commit
func (zs ZoneStatus) IsCommittable() bool {
	return zs == ZonePerfect || zs == ZoneClose
}

// Zone is a snapshot of one aggregation zone. NetBalance and Status are
// always derived from Items; they are never stored independently.
type Zone struct {
	ID         string          `json:"id"`
	Items      []ZoneItem      `json:"items"`
	NetBalance decimal.Decimal `json:"net_balance"`
	Status     ZoneStatus      `json:"status"`
}

// InvoiceIDs returns the IDs of the invoices in the zone, in insertion order
func (z *Zone) InvoiceIDs() []string {
	var ids []string
	for _, item := range z.Items {
		if item.Kind == KindInvoice {
			ids = append(ids, item.RefID)
		}
	}
	return ids
}

// TransactionIDs returns the IDs of the transactions in the zone, in
// insertion order
func (z *Zone) TransactionIDs() []string {
	var ids []string
	for _, item := range z.Items {
		if item.Kind == KindTransaction {
			ids = append(ids, item.RefID)
		}
	}
	return ids
}

// IsCommittable reports whether the zone satisfies the commit contract:
// at least one invoice, at least one transaction, and a balance within
// tolerance.
func (z *Zone) IsCommittable() bool {
	return len(z.InvoiceIDs()) >= 1 &&
		len(z.TransactionIDs()) >= 1 &&
		z.Status.IsCommittable()
}

// ComputeBalance returns the net balance of a set of zone items:
// the sum of invoice total amounts minus the sum of absolute transaction
// amounts.
func ComputeBalance(
	items []ZoneItem,
	invoices map[string]*models.Invoice,
	transactions map[string]*models.Transaction,
) decimal.Decimal {

	balance := decimal.Zero
	for _, item := range items {
		switch item.Kind {
		case KindInvoice:
			if inv, ok := invoices[item.RefID]; ok {
				balance = balance.Add(inv.TotalAmount)
			}
		case KindTransaction:
			if tx, ok := transactions[item.RefID]; ok {
				balance = balance.Sub(tx.AbsoluteAmount())
			}
		}
	}
	return balance
}

// ClassifyBalance derives the zone status from its items and net balance.
// It is a pure function: repeated evaluation without mutation always yields
// the same result.
func ClassifyBalance(items []ZoneItem, netBalance, closeTolerance decimal.Decimal) ZoneStatus {
	if len(items) == 0 {
		return ZoneEmpty
	}

	abs := netBalance.Abs()
	switch {
	case abs.IsZero():
		return ZonePerfect
	case abs.LessThan(closeTolerance):
		return ZoneClose
	default:
		return ZoneDifferent
	}
}
