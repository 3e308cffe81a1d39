package workspace

import (
	"sort"
	"sync"

	"invoice-reconciliation-engine/internal/models"
	enginerrors "invoice-reconciliation-engine/pkg/errors"
	"invoice-reconciliation-engine/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssignResult reports the outcome of an assignment command. When the item
// was moved from another zone, MovedFrom carries the previous zone ID and
// PreviousZone its recomputed state.
type AssignResult struct {
	Zone         *Zone  `json:"zone"`
	MovedFrom    string `json:"moved_from,omitempty"`
	PreviousZone *Zone  `json:"previous_zone,omitempty"`
}

// Workspace holds the aggregation zones over a snapshot of invoices and
// transactions. All mutations go through a single write lock; reads take a
// shared lock and return copies, so callers never hold references into the
// guarded state.
type Workspace struct {
	mu sync.RWMutex

	zones map[string]*zoneState

	// membership maps an item to the zone it currently belongs to,
	// enforcing the one-zone-per-item rule
	membership map[ZoneItem]string

	invoices     map[string]*models.Invoice
	transactions map[string]*models.Transaction

	closeTolerance decimal.Decimal
	log            logger.Logger
}

// zoneState is the mutable zone record guarded by the workspace lock
type zoneState struct {
	id    string
	items []ZoneItem
}

// NewWorkspace creates a workspace over the given snapshot. The close
// tolerance controls the boundary between the close and different statuses.
func NewWorkspace(
	invoices []*models.Invoice,
	transactions []*models.Transaction,
	closeTolerance decimal.Decimal,
) *Workspace {

	ws := &Workspace{
		zones:          make(map[string]*zoneState),
		membership:     make(map[ZoneItem]string),
		invoices:       make(map[string]*models.Invoice),
		transactions:   make(map[string]*models.Transaction),
		closeTolerance: closeTolerance,
		log:            logger.GetGlobalLogger().WithComponent("workspace"),
	}
	ws.loadSnapshot(invoices, transactions)
	return ws
}

func (ws *Workspace) loadSnapshot(invoices []*models.Invoice, transactions []*models.Transaction) {
	for _, inv := range invoices {
		if inv != nil {
			ws.invoices[inv.ID] = inv
		}
	}
	for _, tx := range transactions {
		if tx != nil {
			ws.transactions[tx.ID] = tx
		}
	}
}

// CreateZone creates a new empty zone and returns it
func (ws *Workspace) CreateZone() *Zone {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	id := uuid.NewString()
	ws.zones[id] = &zoneState{id: id}

	ws.log.WithField("zone_id", id).Debug("Zone created")
	return &Zone{ID: id, NetBalance: decimal.Zero, Status: ZoneEmpty}
}

// AssignItem places an invoice or transaction into the zone. If the item is
// already in another zone it is moved atomically: under a single lock hold
// both zones are updated and recomputed, so no intermediate state is ever
// observable. Assigning an item to the zone it already occupies is a no-op.
func (ws *Workspace) AssignItem(zoneID string, item ZoneItem) (*AssignResult, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	zone, ok := ws.zones[zoneID]
	if !ok {
		return nil, enginerrors.ConflictError(enginerrors.CodeItemStale, "zone", zoneID, "zone does not exist")
	}

	if err := ws.validateItem(item); err != nil {
		return nil, err
	}

	result := &AssignResult{}

	if currentID, member := ws.membership[item]; member {
		if currentID == zoneID {
			result.Zone = ws.snapshotZone(zone)
			return result, nil
		}

		previous := ws.zones[currentID]
		previous.items = removeItem(previous.items, item)
		result.MovedFrom = currentID
		result.PreviousZone = ws.snapshotZone(previous)

		ws.log.WithFields(logger.Fields{
			"item": item.String(),
			"from": currentID,
			"to":   zoneID,
		}).Debug("Item moved between zones")
	}

	zone.items = append(zone.items, item)
	ws.membership[item] = zoneID

	result.Zone = ws.snapshotZone(zone)
	return result, nil
}

// RemoveItem takes the item out of the zone and returns the zone's
// recomputed state. Removing an item the zone does not hold is a conflict.
func (ws *Workspace) RemoveItem(zoneID string, item ZoneItem) (*Zone, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	zone, ok := ws.zones[zoneID]
	if !ok {
		return nil, enginerrors.ConflictError(enginerrors.CodeItemStale, "zone", zoneID, "zone does not exist")
	}

	if ws.membership[item] != zoneID {
		return nil, enginerrors.ConflictError(enginerrors.CodeItemStale, string(item.Kind), item.RefID, "item is not in this zone")
	}

	zone.items = removeItem(zone.items, item)
	delete(ws.membership, item)

	return ws.snapshotZone(zone), nil
}

// ClearZone removes every item from the zone, returning its emptied state.
// The zone itself survives for reuse.
func (ws *Workspace) ClearZone(zoneID string) (*Zone, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	zone, ok := ws.zones[zoneID]
	if !ok {
		return nil, enginerrors.ConflictError(enginerrors.CodeItemStale, "zone", zoneID, "zone does not exist")
	}

	for _, item := range zone.items {
		delete(ws.membership, item)
	}
	zone.items = nil

	ws.log.WithField("zone_id", zoneID).Debug("Zone cleared")
	return ws.snapshotZone(zone), nil
}

// DeleteZone removes the zone entirely, releasing its items
func (ws *Workspace) DeleteZone(zoneID string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	zone, ok := ws.zones[zoneID]
	if !ok {
		return enginerrors.ConflictError(enginerrors.CodeItemStale, "zone", zoneID, "zone does not exist")
	}

	for _, item := range zone.items {
		delete(ws.membership, item)
	}
	delete(ws.zones, zoneID)
	return nil
}

// Zone returns a copy of the zone's current state
func (ws *Workspace) Zone(zoneID string) (*Zone, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	zone, ok := ws.zones[zoneID]
	if !ok {
		return nil, enginerrors.ConflictError(enginerrors.CodeItemStale, "zone", zoneID, "zone does not exist")
	}
	return ws.snapshotZone(zone), nil
}

// Zones returns copies of all zones, ordered by ID for stable output
func (ws *Workspace) Zones() []*Zone {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	zones := make([]*Zone, 0, len(ws.zones))
	for _, zone := range ws.zones {
		zones = append(zones, ws.snapshotZone(zone))
	}

	sort.Slice(zones, func(i, j int) bool {
		return zones[i].ID < zones[j].ID
	})
	return zones
}

// ZoneOf reports which zone currently holds the item, if any
func (ws *Workspace) ZoneOf(item ZoneItem) (string, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	id, ok := ws.membership[item]
	return id, ok
}

// Committable reports whether the zone may be committed. The second return
// is a human-readable reason when it may not.
func (ws *Workspace) Committable(zoneID string) (bool, string) {
	zone, err := ws.Zone(zoneID)
	if err != nil {
		return false, "zone does not exist"
	}

	switch {
	case len(zone.InvoiceIDs()) == 0:
		return false, "zone has no invoices"
	case len(zone.TransactionIDs()) == 0:
		return false, "zone has no transactions"
	case !zone.Status.IsCommittable():
		return false, "zone balance is " + zone.Status.String()
	}
	return true, ""
}

// Invoice looks up an invoice from the snapshot
func (ws *Workspace) Invoice(id string) (*models.Invoice, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	inv, ok := ws.invoices[id]
	return inv, ok
}

// Transaction looks up a transaction from the snapshot
func (ws *Workspace) Transaction(id string) (*models.Transaction, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	tx, ok := ws.transactions[id]
	return tx, ok
}

// UpdateSnapshots replaces the invoice and transaction snapshots. Zone
// memberships referencing entities absent from the new snapshot are
// released, since their balances can no longer be computed.
func (ws *Workspace) UpdateSnapshots(invoices []*models.Invoice, transactions []*models.Transaction) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.invoices = make(map[string]*models.Invoice)
	ws.transactions = make(map[string]*models.Transaction)
	ws.loadSnapshot(invoices, transactions)

	for _, zone := range ws.zones {
		kept := zone.items[:0]
		for _, item := range zone.items {
			if ws.itemExists(item) {
				kept = append(kept, item)
			} else {
				delete(ws.membership, item)
				ws.log.WithField("item", item.String()).Debug("Released stale zone item on snapshot update")
			}
		}
		zone.items = kept
	}
}

// validateItem rejects unknown and already settled items
func (ws *Workspace) validateItem(item ZoneItem) error {
	if !item.Kind.IsValid() {
		return enginerrors.ConflictError(enginerrors.CodeItemStale, string(item.Kind), item.RefID, "unknown item kind")
	}

	switch item.Kind {
	case KindInvoice:
		inv, ok := ws.invoices[item.RefID]
		if !ok {
			return enginerrors.ConflictError(enginerrors.CodeItemStale, "invoice", item.RefID, "invoice not in snapshot")
		}
		if inv.PaymentStatus.IsSettled() {
			return enginerrors.ConflictError(enginerrors.CodeAlreadyReconciled, "invoice", item.RefID, "invoice is already settled")
		}
	case KindTransaction:
		tx, ok := ws.transactions[item.RefID]
		if !ok {
			return enginerrors.ConflictError(enginerrors.CodeItemStale, "transaction", item.RefID, "transaction not in snapshot")
		}
		if tx.ReconciliationStatus.IsSettled() {
			return enginerrors.ConflictError(enginerrors.CodeAlreadyReconciled, "transaction", item.RefID, "transaction is already reconciled")
		}
	}
	return nil
}

func (ws *Workspace) itemExists(item ZoneItem) bool {
	switch item.Kind {
	case KindInvoice:
		_, ok := ws.invoices[item.RefID]
		return ok
	case KindTransaction:
		_, ok := ws.transactions[item.RefID]
		return ok
	}
	return false
}

// snapshotZone builds a consistent copy of the zone with its derived balance
// and status. Callers must hold at least the read lock.
func (ws *Workspace) snapshotZone(zone *zoneState) *Zone {
	items := append([]ZoneItem(nil), zone.items...)
	balance := ComputeBalance(items, ws.invoices, ws.transactions)

	return &Zone{
		ID:         zone.id,
		Items:      items,
		NetBalance: balance,
		Status:     ClassifyBalance(items, balance, ws.closeTolerance),
	}
}

func removeItem(items []ZoneItem, target ZoneItem) []ZoneItem {
	kept := items[:0]
	for _, item := range items {
		if item != target {
			kept = append(kept, item)
		}
	}
	return kept
}
