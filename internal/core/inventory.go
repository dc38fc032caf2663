package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgercore/internal/apperr"
	"ledgercore/internal/money"
	"ledgercore/internal/outbox"
)

// InventoryEngine implements spec.md §4.7: quantity stock moves costed at
// weighted-average cost, value-only landed-cost adjustments, and backdated
// replay. It generalizes the teacher's WAC update in
// InventoryService.ReceiveStock/ShipStockTx (internal/core/inventory_service.go)
// — same "lock the balance row, recompute new_cost = (old_qty*old_cost +
// qty*unitCost)/(old_qty+qty)" arithmetic — extended with the backdating
// replay the teacher never needed because it only ever appended at "now".
type InventoryEngine struct {
	pool *pgxpool.Pool
}

func NewInventoryEngine(pool *pgxpool.Pool) *InventoryEngine {
	return &InventoryEngine{pool: pool}
}

// ApplyStockMoveInput is the request shape of spec.md §4.7's
// applyStockMoveWac(tx, move).
type ApplyStockMoveInput struct {
	CompanyID       int
	LocationID      int
	ItemID          int
	Date            time.Time
	Type            StockMoveType
	Direction       Direction
	Quantity        money.Qty
	UnitCostApplied money.Rate    // required for IN moves unless TotalCostOverride is set
	TotalCostOverride *money.Amount // preserves discounted lot cost on IN moves
	ReferenceType   string
	ReferenceID     int
	CorrelationID   string
	JournalEntryID  *int
	AllowBackdated  bool
	// AllowNegative permits an OUT move to drive quantityOnHand negative —
	// used only by the void/reconciliation path (spec.md §4.7 invariant).
	AllowNegative bool
}

// ApplyStockMoveWAC applies a quantity move and recomputes WAC, replaying
// the full (location, item) timeline when the move is backdated.
func (e *InventoryEngine) ApplyStockMoveWAC(ctx context.Context, tx pgx.Tx, in ApplyStockMoveInput) (*StockMove, error) {
	if !in.Quantity.IsPositive() {
		return nil, apperr.New(apperr.InvalidInput, "stock move quantity must be positive, got %s", in.Quantity)
	}

	if err := lockOrCreateBalance(ctx, tx, in.CompanyID, in.LocationID, in.ItemID); err != nil {
		return nil, err
	}

	latestDate, hasLatest, err := latestMoveDate(ctx, tx, in.CompanyID, in.LocationID, in.ItemID)
	if err != nil {
		return nil, err
	}
	backdated := hasLatest && in.Date.Before(latestDate)
	if backdated && !in.AllowBackdated {
		return nil, apperr.New(apperr.InvalidInput, "move dated %s precedes latest move %s for (location=%d, item=%d); allowBackdated required",
			in.Date.Format("2006-01-02"), latestDate.Format("2006-01-02"), in.LocationID, in.ItemID)
	}

	if !backdated {
		move, err := e.applyIncremental(ctx, tx, in)
		if err != nil {
			return nil, err
		}
		return move, nil
	}

	move, err := insertPlaceholderMove(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	if err := e.replayTimeline(ctx, tx, in.CompanyID, in.LocationID, in.ItemID); err != nil {
		return nil, err
	}
	if err := e.emitRecalcRequested(ctx, tx, in.CompanyID, in.LocationID, in.ItemID, in.Date, in.CorrelationID); err != nil {
		return nil, err
	}
	return move, nil
}

func lockOrCreateBalance(ctx context.Context, tx pgx.Tx, companyID, locationID, itemID int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO inventory_balances (company_id, location_id, item_id, quantity_on_hand, total_value, wac)
		VALUES ($1, $2, $3, 0, 0, 0)
		ON CONFLICT (company_id, location_id, item_id) DO NOTHING
	`, companyID, locationID, itemID)
	if err != nil {
		return fmt.Errorf("inventory: upserting balance row: %w", err)
	}
	_, err = tx.Exec(ctx, `
		SELECT 1 FROM inventory_balances WHERE company_id = $1 AND location_id = $2 AND item_id = $3 FOR UPDATE
	`, companyID, locationID, itemID)
	if err != nil {
		return fmt.Errorf("inventory: locking balance row: %w", err)
	}
	return nil
}

func latestMoveDate(ctx context.Context, tx pgx.Tx, companyID, locationID, itemID int) (time.Time, bool, error) {
	var t time.Time
	err := tx.QueryRow(ctx, `
		SELECT date FROM stock_moves
		WHERE company_id = $1 AND location_id = $2 AND item_id = $3
		ORDER BY date DESC, id DESC LIMIT 1
	`, companyID, locationID, itemID).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("inventory: reading latest move date: %w", err)
	}
	return t, true, nil
}

// applyIncremental is the non-backdated path: read the current balance,
// derive this move's applied cost, update the balance and insert the move
// in one step.
func (e *InventoryEngine) applyIncremental(ctx context.Context, tx pgx.Tx, in ApplyStockMoveInput) (*StockMove, error) {
	var qtyStr, totalStr string
	err := tx.QueryRow(ctx, `
		SELECT quantity_on_hand, total_value FROM inventory_balances
		WHERE company_id = $1 AND location_id = $2 AND item_id = $3
	`, in.CompanyID, in.LocationID, in.ItemID).Scan(&qtyStr, &totalStr)
	if err != nil {
		return nil, fmt.Errorf("inventory: reading balance: %w", err)
	}
	qtyOnHand, _ := money.NewQty(qtyStr)
	totalValue, _ := money.NewAmount(totalStr)

	var unitCostApplied money.Rate
	var totalCostApplied money.Amount
	var newQty money.Qty
	var newTotal money.Amount

	switch in.Direction {
	case DirectionIn:
		if in.TotalCostOverride != nil {
			totalCostApplied = *in.TotalCostOverride
		} else {
			totalCostApplied = in.Quantity.MulAmount(money.NewAmountFromDecimal(in.UnitCostApplied.Decimal()))
		}
		unitCostApplied = in.UnitCostApplied
		newQty = qtyOnHand.Add(in.Quantity)
		newTotal = totalValue.Add(totalCostApplied)

	case DirectionOut:
		if in.Quantity.GreaterThan(qtyOnHand) && !in.AllowNegative {
			return nil, apperr.New(apperr.InsufficientStock, "insufficient stock at (location=%d, item=%d): have %s, need %s",
				in.LocationID, in.ItemID, qtyOnHand, in.Quantity)
		}
		if qtyOnHand.IsPositive() {
			unitCostApplied = money.WAC(totalValue, qtyOnHand)
		}
		if in.TotalCostOverride != nil {
			// Used by void/compensation: preserve the exact cost of the
			// original move being reversed rather than today's WAC.
			unitCostApplied = in.UnitCostApplied
			totalCostApplied = *in.TotalCostOverride
		} else {
			totalCostApplied = money.ApplyWAC(in.Quantity, unitCostApplied)
		}
		newQty = qtyOnHand.Sub(in.Quantity)
		newTotal = totalValue.Sub(totalCostApplied)

	default:
		return nil, apperr.New(apperr.InvalidInput, "unknown stock move direction %q", in.Direction)
	}

	var newWAC money.Rate
	if newQty.IsPositive() {
		newWAC = money.WAC(newTotal, newQty)
	} else {
		newQty = money.ZeroQty
		newTotal = money.Zero
	}

	if _, err := tx.Exec(ctx, `
		UPDATE inventory_balances
		SET quantity_on_hand = $1, total_value = $2, wac = $3
		WHERE company_id = $4 AND location_id = $5 AND item_id = $6
	`, newQty.String(), newTotal.String(), newWAC.String(), in.CompanyID, in.LocationID, in.ItemID); err != nil {
		return nil, fmt.Errorf("inventory: updating balance: %w", err)
	}

	move := &StockMove{
		CompanyID: in.CompanyID, LocationID: in.LocationID, ItemID: in.ItemID,
		Date: in.Date, Type: in.Type, Direction: in.Direction, Quantity: in.Quantity,
		UnitCostApplied: unitCostApplied, TotalCostApplied: totalCostApplied,
		ReferenceType: in.ReferenceType, ReferenceID: in.ReferenceID,
		CorrelationID: in.CorrelationID, JournalEntryID: in.JournalEntryID,
	}
	id, err := insertMoveRow(ctx, tx, move)
	if err != nil {
		return nil, err
	}
	move.ID = id
	return move, nil
}

func insertPlaceholderMove(ctx context.Context, tx pgx.Tx, in ApplyStockMoveInput) (*StockMove, error) {
	move := &StockMove{
		CompanyID: in.CompanyID, LocationID: in.LocationID, ItemID: in.ItemID,
		Date: in.Date, Type: in.Type, Direction: in.Direction, Quantity: in.Quantity,
		UnitCostApplied: in.UnitCostApplied, TotalCostApplied: money.Zero,
		ReferenceType: in.ReferenceType, ReferenceID: in.ReferenceID,
		CorrelationID: in.CorrelationID, JournalEntryID: in.JournalEntryID,
	}
	if in.Direction == DirectionIn {
		if in.TotalCostOverride != nil {
			move.TotalCostApplied = *in.TotalCostOverride
		} else {
			move.TotalCostApplied = in.Quantity.MulAmount(money.NewAmountFromDecimal(in.UnitCostApplied.Decimal()))
		}
	}
	id, err := insertMoveRow(ctx, tx, move)
	if err != nil {
		return nil, err
	}
	move.ID = id
	return move, nil
}

func insertMoveRow(ctx context.Context, tx pgx.Tx, m *StockMove) (int, error) {
	var id int
	err := tx.QueryRow(ctx, `
		INSERT INTO stock_moves (
			company_id, location_id, item_id, date, type, direction, quantity,
			unit_cost_applied, total_cost_applied, reference_type, reference_id,
			correlation_id, journal_entry_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
		RETURNING id
	`, m.CompanyID, m.LocationID, m.ItemID, m.Date, string(m.Type), string(m.Direction), m.Quantity.String(),
		m.UnitCostApplied.String(), m.TotalCostApplied.String(), m.ReferenceType, m.ReferenceID,
		m.CorrelationID, m.JournalEntryID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inventory: inserting stock move: %w", err)
	}
	return id, nil
}

// replayTimeline recomputes every move's applied cost and the final balance
// for (locationID, itemID) from the earliest move forward, per spec.md §4.7:
// "the engine then replays the full timeline from the earliest affected
// date". IN moves keep their recorded cost (never WAC-derived); OUT moves
// are revalued against the running WAC at their position in the replayed
// order, exactly reproducing end-to-end scenario 3 (a backdated receipt
// changes the cost of a later OUT move).
func (e *InventoryEngine) replayTimeline(ctx context.Context, tx pgx.Tx, companyID, locationID, itemID int) error {
	rows, err := tx.Query(ctx, `
		SELECT id, direction, quantity, unit_cost_applied, total_cost_applied
		FROM stock_moves
		WHERE company_id = $1 AND location_id = $2 AND item_id = $3
		ORDER BY date ASC, id ASC
		FOR UPDATE
	`, companyID, locationID, itemID)
	if err != nil {
		return fmt.Errorf("inventory: reading timeline: %w", err)
	}

	type row struct {
		id                int
		direction         Direction
		quantity          money.Qty
		unitCostApplied   money.Rate
		totalCostApplied  money.Amount
	}
	var timeline []row
	for rows.Next() {
		var r row
		var dir, qty, unitCost, totalCost string
		if err := rows.Scan(&r.id, &dir, &qty, &unitCost, &totalCost); err != nil {
			rows.Close()
			return fmt.Errorf("inventory: scanning timeline row: %w", err)
		}
		r.direction = Direction(dir)
		r.quantity, _ = money.NewQty(qty)
		r.unitCostApplied, _ = money.NewRate(unitCost)
		r.totalCostApplied, _ = money.NewAmount(totalCost)
		timeline = append(timeline, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inventory: iterating timeline: %w", err)
	}

	qtyOnHand := money.ZeroQty
	totalValue := money.Zero

	for _, r := range timeline {
		switch r.direction {
		case DirectionIn:
			qtyOnHand = qtyOnHand.Add(r.quantity)
			totalValue = totalValue.Add(r.totalCostApplied)
			// IN cost is input-fixed; nothing to rewrite.
		case DirectionOut:
			var wac money.Rate
			if qtyOnHand.IsPositive() {
				wac = money.WAC(totalValue, qtyOnHand)
			}
			newTotalCost := money.ApplyWAC(r.quantity, wac)
			if !newTotalCost.Equal(r.totalCostApplied) {
				if _, err := tx.Exec(ctx, `
					UPDATE stock_moves SET unit_cost_applied = $1, total_cost_applied = $2 WHERE id = $3
				`, wac.String(), newTotalCost.String(), r.id); err != nil {
					return fmt.Errorf("inventory: revaluing move %d: %w", r.id, err)
				}
			}
			qtyOnHand = qtyOnHand.Sub(r.quantity)
			totalValue = totalValue.Sub(newTotalCost)
		}
	}

	var wac money.Rate
	if qtyOnHand.IsPositive() {
		wac = money.WAC(totalValue, qtyOnHand)
	} else {
		qtyOnHand = money.ZeroQty
		totalValue = money.Zero
	}

	if _, err := tx.Exec(ctx, `
		UPDATE inventory_balances
		SET quantity_on_hand = $1, total_value = $2, wac = $3
		WHERE company_id = $4 AND location_id = $5 AND item_id = $6
	`, qtyOnHand.String(), totalValue.String(), wac.String(), companyID, locationID, itemID); err != nil {
		return fmt.Errorf("inventory: writing replayed balance: %w", err)
	}

	return nil
}

func (e *InventoryEngine) emitRecalcRequested(ctx context.Context, tx pgx.Tx, companyID, locationID, itemID int, fromDate time.Time, correlationID string) error {
	ev, err := outbox.NewEvent(companyID, outbox.EventInventoryRecalcRequest, "InventoryBalance",
		fmt.Sprintf("%d:%d", locationID, itemID), correlationID, "", "ledgercore.inventory", time.Now(),
		map[string]any{"locationId": locationID, "itemId": itemID, "fromDate": fromDate.Format("2006-01-02")})
	if err != nil {
		return fmt.Errorf("inventory: building recalc event: %w", err)
	}
	return outbox.Insert(ctx, tx, ev)
}

// ApplyStockValueAdjustmentWAC implements the value-only move of spec.md
// §4.7 (landed cost): adjusts totalValue and wac without changing
// quantityOnHand. Same backdating rules apply conceptually, but since
// quantity never changes, a value-only adjustment never needs to revalue
// other moves — it is simply added to the current totalValue and the WAC
// recomputed against the unchanged quantity.
func (e *InventoryEngine) ApplyStockValueAdjustmentWAC(ctx context.Context, tx pgx.Tx, companyID, locationID, itemID int, valueDelta money.Amount) error {
	if err := lockOrCreateBalance(ctx, tx, companyID, locationID, itemID); err != nil {
		return err
	}
	var qtyStr, totalStr string
	err := tx.QueryRow(ctx, `
		SELECT quantity_on_hand, total_value FROM inventory_balances
		WHERE company_id = $1 AND location_id = $2 AND item_id = $3
	`, companyID, locationID, itemID).Scan(&qtyStr, &totalStr)
	if err != nil {
		return fmt.Errorf("inventory: reading balance: %w", err)
	}
	qtyOnHand, _ := money.NewQty(qtyStr)
	totalValue, _ := money.NewAmount(totalStr)

	newTotal := totalValue.Add(valueDelta)
	var newWAC money.Rate
	if qtyOnHand.IsPositive() {
		newWAC = money.WAC(newTotal, qtyOnHand)
	} else {
		newTotal = money.Zero
	}

	if _, err := tx.Exec(ctx, `
		UPDATE inventory_balances SET total_value = $1, wac = $2
		WHERE company_id = $3 AND location_id = $4 AND item_id = $5
	`, newTotal.String(), newWAC.String(), companyID, locationID, itemID); err != nil {
		return fmt.Errorf("inventory: writing value adjustment: %w", err)
	}
	return nil
}
