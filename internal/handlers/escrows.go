package handlers

import (
	"context"

	"github.com/openswap-labs/swapsync/internal/events"
	"github.com/openswap-labs/swapsync/internal/store"
)

// handleLocked registers an HTLC lock and advances the order's state. A lock
// by the order's maker on the source chain is the maker leg; any other lock
// is the taker leg and identifies the taker.
func (h *Handlers) handleLocked(ctx context.Context, evt *events.DecodedEvent) error {
	payload := evt.Payload.(*events.Locked)

	rec, err := h.recordEvent(evt)
	if err != nil {
		return err
	}

	orderID := payload.OrderId.String()
	lockID := hashHex(payload.LockId)

	if rec.Processed {
		return nil
	}

	// The contract derives the lock id from the deposit parameters; a
	// mismatch means the event came from a non-standard deployment.
	if derived := events.ComputeLockID(orderID, payload.Depositor, payload.HashLock, evt.ChainID); hashHex(derived) != lockID {
		h.log.Warnf("lock %s for order %s does not match derived id %s", lockID, orderID, hashHex(derived))
	}

	order, err := h.store.GetOrder(orderID)
	if err != nil {
		return err
	}

	if order == nil {
		h.log.Warnf("Locked for unknown order %s (lock %s), will retry once the order is seen",
			orderID, lockID)

		return nil
	}

	escrow, err := h.store.GetEscrow(lockID)
	if err != nil {
		return err
	}

	if escrow == nil {
		escrow = &store.Escrow{
			LockID:      lockID,
			OrderID:     orderID,
			ChainID:     evt.ChainID,
			Depositor:   payload.Depositor,
			Recipient:   addrHex(payload.Recipient),
			Token:       addrHex(payload.Token),
			Amount:      payload.Amount,
			HashLock:    hashHex(payload.HashLock),
			Timelock:    payload.Timelock.Int64(),
			Status:      store.EscrowStatusLocked,
			TxHash:      evt.TxHash,
			BlockNumber: evt.Block,
			LogIndex:    uint64(evt.LogIndex),
		}

		if err := h.store.InsertEscrow(escrow); err != nil {
			return err
		}
	}

	makerLeg := payload.Depositor == order.Maker && evt.ChainID == order.SrcChainID

	next := store.OrderStatusTakerLocked
	if makerLeg {
		next = store.OrderStatusMakerLocked
	}

	changed := false

	if !makerLeg && order.Taker == "" {
		order.Taker = addrHex(payload.Depositor)
		changed = true
	}

	if store.StatusAdvances(order.Status, next) {
		order.Status = next
		changed = true
	}

	if changed {
		if err := h.store.SaveOrder(order); err != nil {
			return err
		}
	}

	h.log.Infow("escrow locked",
		"order_id", orderID,
		"lock_id", lockID,
		"chain", evt.ChainID,
		"maker_leg", makerLeg,
	)

	return h.finish(rec, orderID)
}

// handleClaimed marks a lock claimed and pulls the revealed secret out of the
// claim transaction calldata. When every leg of the order is claimed the swap
// is complete.
func (h *Handlers) handleClaimed(ctx context.Context, evt *events.DecodedEvent) error {
	payload := evt.Payload.(*events.Claimed)

	rec, err := h.recordEvent(evt)
	if err != nil {
		return err
	}

	lockID := hashHex(payload.LockId)

	if rec.Processed {
		return nil
	}

	escrow, err := h.store.GetEscrow(lockID)
	if err != nil {
		return err
	}

	if escrow == nil {
		h.log.Warnf("Claimed for unknown lock %s, will retry once the lock is seen", lockID)

		return nil
	}

	secret := h.extractSecret(ctx, evt)

	if escrow.Status != store.EscrowStatusClaimed {
		escrow.Status = store.EscrowStatusClaimed
		escrow.Secret = secret

		if err := h.store.SaveEscrow(escrow); err != nil {
			return err
		}
	}

	order, err := h.store.GetOrder(escrow.OrderID)
	if err != nil {
		return err
	}

	if order == nil {
		return h.finish(rec, escrow.OrderID)
	}

	if secret != "" && order.Secret == "" {
		order.Secret = secret

		if err := h.store.SaveOrder(order); err != nil {
			return err
		}
	}

	if err := h.maybeCompleteOrder(order); err != nil {
		return err
	}

	h.log.Infow("escrow claimed",
		"order_id", escrow.OrderID,
		"lock_id", lockID,
		"secret_known", secret != "",
	)

	return h.finish(rec, escrow.OrderID)
}

// handleRefunded marks a lock refunded after its timelock expired and moves
// the order into the refunded branch.
func (h *Handlers) handleRefunded(ctx context.Context, evt *events.DecodedEvent) error {
	payload := evt.Payload.(*events.Refunded)

	rec, err := h.recordEvent(evt)
	if err != nil {
		return err
	}

	lockID := hashHex(payload.LockId)

	if rec.Processed {
		return nil
	}

	escrow, err := h.store.GetEscrow(lockID)
	if err != nil {
		return err
	}

	if escrow == nil {
		h.log.Warnf("Refunded for unknown lock %s, will retry once the lock is seen", lockID)

		return nil
	}

	if escrow.Status != store.EscrowStatusRefunded {
		escrow.Status = store.EscrowStatusRefunded

		if err := h.store.SaveEscrow(escrow); err != nil {
			return err
		}
	}

	order, err := h.store.GetOrder(escrow.OrderID)
	if err != nil {
		return err
	}

	if order != nil && order.Status != store.OrderStatusRefunded {
		order.Status = store.OrderStatusRefunded

		if err := h.store.SaveOrder(order); err != nil {
			return err
		}
	}

	h.log.Infow("escrow refunded", "order_id", escrow.OrderID, "lock_id", lockID)

	return h.finish(rec, escrow.OrderID)
}

// extractSecret fetches the claim transaction and decodes the preimage from
// its calldata. Extraction failures only cost the stored secret, never the
// claim itself.
func (h *Handlers) extractSecret(ctx context.Context, evt *events.DecodedEvent) string {
	client, err := h.clients.Client(evt.ChainID)
	if err != nil {
		h.log.Warnf("cannot extract secret from tx %s: %v", evt.TxHash, err)

		return ""
	}

	tx, err := client.GetTransaction(ctx, evt.TxHash)
	if err != nil {
		h.log.Warnf("failed to fetch claim tx %s: %v", evt.TxHash, err)

		return ""
	}

	secret, err := events.ExtractClaimSecret(tx.Data())
	if err != nil {
		h.log.Warnf("failed to decode claim calldata in tx %s: %v", evt.TxHash, err)

		return ""
	}

	return hashHex(secret)
}

// maybeCompleteOrder completes an order once it has both legs locked and
// every lock claimed, then updates the per-user aggregates.
func (h *Handlers) maybeCompleteOrder(order *store.Order) error {
	if !store.StatusAdvances(order.Status, store.OrderStatusCompleted) {
		return nil
	}

	escrows, err := h.store.EscrowsByOrder(order.OrderID)
	if err != nil {
		return err
	}

	if len(escrows) < 2 {
		return nil
	}

	for _, escrow := range escrows {
		if escrow.Status != store.EscrowStatusClaimed {
			return nil
		}
	}

	order.Status = store.OrderStatusCompleted

	if err := h.store.SaveOrder(order); err != nil {
		return err
	}

	maker := addrHex(order.Maker)

	if err := h.store.IncOrdersCompleted(maker); err != nil {
		return err
	}

	if order.Taker != "" && order.Taker != maker {
		if err := h.store.IncOrdersCompleted(order.Taker); err != nil {
			return err
		}
	}

	if err := h.store.AddVolume(maker, order.SellAmount); err != nil {
		return err
	}

	h.log.Infow("order completed", "order_id", order.OrderID, "legs", len(escrows))

	return nil
}
