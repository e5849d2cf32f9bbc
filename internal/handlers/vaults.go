package handlers

import (
	"context"
	"math/big"

	"github.com/openswap-labs/swapsync/internal/events"
	"github.com/openswap-labs/swapsync/internal/store"
)

func vaultFlow(kind events.ContractKind) store.Flow {
	if kind == events.ContractSellVault {
		return store.FlowSellVault
	}

	return store.FlowBuyVault
}

// handleVaultOrderCreated registers a pooled vault order under its
// offset-adjusted id.
func (h *Handlers) handleVaultOrderCreated(ctx context.Context, evt *events.DecodedEvent) error {
	payload := evt.Payload.(*events.VaultOrderCreated)

	rec, err := h.recordEvent(evt)
	if err != nil {
		return err
	}

	orderID := orderIDFor(evt.Contract, payload.OrderId)

	if rec.Processed {
		return nil
	}

	existing, err := h.store.GetOrder(orderID)
	if err != nil {
		return err
	}

	if existing != nil {
		h.log.Debugf("vault order %s already known, skipping duplicate", orderID)

		return h.finish(rec, orderID)
	}

	order := &store.Order{
		OrderID:      orderID,
		Flow:         vaultFlow(evt.Contract),
		Maker:        payload.Maker,
		SellToken:    addrHex(payload.SellToken),
		BuyToken:     addrHex(payload.BuyToken),
		SellAmount:   payload.SellAmount,
		BuyAmount:    payload.BuyAmount,
		FilledAmount: new(big.Int),
		SrcChainID:   evt.ChainID,
		DstChainID:   payload.DstChainId.Uint64(),
		Status:       store.OrderStatusOpen,
		TxHash:       evt.TxHash,
		BlockNumber:  evt.Block,
		LogIndex:     uint64(evt.LogIndex),
	}

	if err := h.store.InsertOrder(order); err != nil {
		return err
	}

	if err := h.store.IncOrdersCreated(addrHex(payload.Maker)); err != nil {
		return err
	}

	h.log.Infow("vault order created",
		"order_id", orderID,
		"flow", order.Flow,
		"maker", addrHex(payload.Maker),
	)

	return h.finish(rec, orderID)
}

// handleVaultOrderCancelled withdraws a vault order.
func (h *Handlers) handleVaultOrderCancelled(ctx context.Context, evt *events.DecodedEvent) error {
	payload := evt.Payload.(*events.VaultOrderCancelled)

	rec, err := h.recordEvent(evt)
	if err != nil {
		return err
	}

	orderID := orderIDFor(evt.Contract, payload.OrderId)

	if rec.Processed {
		return nil
	}

	order, err := h.store.GetOrder(orderID)
	if err != nil {
		return err
	}

	if order == nil {
		h.log.Warnf("VaultOrderCancelled for unknown order %s, will retry once the order is seen", orderID)

		return nil
	}

	order.Cancelled = true
	order.Status = store.OrderStatusCancelled

	if err := h.store.SaveOrder(order); err != nil {
		return err
	}

	h.log.Infow("vault order cancelled", "order_id", orderID)

	return h.finish(rec, orderID)
}

// handleVaultOrderMatched pairs a vault order with its counter order from
// the opposite vault and credits the matched amount.
func (h *Handlers) handleVaultOrderMatched(ctx context.Context, evt *events.DecodedEvent) error {
	payload := evt.Payload.(*events.VaultOrderMatched)

	rec, err := h.recordEvent(evt)
	if err != nil {
		return err
	}

	orderID := orderIDFor(evt.Contract, payload.OrderId)

	if rec.Processed {
		return nil
	}

	order, err := h.store.GetOrder(orderID)
	if err != nil {
		return err
	}

	if order == nil {
		h.log.Warnf("VaultOrderMatched for unknown order %s, will retry once the order is seen", orderID)

		return nil
	}

	order.CounterOrderID = counterOrderIDFor(evt.Contract, payload.CounterOrderId)

	if order.Taker == "" {
		order.Taker = addrHex(payload.Taker)
	}

	order.FilledAmount = addAmount(order.FilledAmount, payload.Amount)

	if store.StatusAdvances(order.Status, store.OrderStatusMatched) {
		order.Status = store.OrderStatusMatched
	}

	if err := h.store.SaveOrder(order); err != nil {
		return err
	}

	h.log.Infow("vault order matched",
		"order_id", orderID,
		"counter_order_id", order.CounterOrderID,
		"filled", order.FilledAmount.String(),
	)

	return h.finish(rec, orderID)
}

// handleVaultOrderFilled credits a direct fill. The order is fully filled
// once the running total reaches the sell amount.
func (h *Handlers) handleVaultOrderFilled(ctx context.Context, evt *events.DecodedEvent) error {
	payload := evt.Payload.(*events.VaultOrderFilled)

	rec, err := h.recordEvent(evt)
	if err != nil {
		return err
	}

	orderID := orderIDFor(evt.Contract, payload.OrderId)

	if rec.Processed {
		return nil
	}

	order, err := h.store.GetOrder(orderID)
	if err != nil {
		return err
	}

	if order == nil {
		h.log.Warnf("VaultOrderFilled for unknown order %s, will retry once the order is seen", orderID)

		return nil
	}

	if order.Taker == "" {
		order.Taker = addrHex(payload.Taker)
	}

	order.FilledAmount = addAmount(order.FilledAmount, payload.Amount)

	fullyFilled := order.SellAmount != nil && order.FilledAmount.Cmp(order.SellAmount) >= 0

	next := store.OrderStatusMatched
	if fullyFilled {
		next = store.OrderStatusFilled
	}

	if store.StatusAdvances(order.Status, next) {
		order.Status = next
	}

	if err := h.store.SaveOrder(order); err != nil {
		return err
	}

	h.log.Infow("vault order filled",
		"order_id", orderID,
		"filled", order.FilledAmount.String(),
		"fully_filled", fullyFilled,
	)

	return h.finish(rec, orderID)
}

// handleVaultOrderCompleted settles a vault order and updates the per-user
// aggregates.
func (h *Handlers) handleVaultOrderCompleted(ctx context.Context, evt *events.DecodedEvent) error {
	payload := evt.Payload.(*events.VaultOrderCompleted)

	rec, err := h.recordEvent(evt)
	if err != nil {
		return err
	}

	orderID := orderIDFor(evt.Contract, payload.OrderId)

	if rec.Processed {
		return nil
	}

	order, err := h.store.GetOrder(orderID)
	if err != nil {
		return err
	}

	if order == nil {
		h.log.Warnf("VaultOrderCompleted for unknown order %s, will retry once the order is seen", orderID)

		return nil
	}

	if store.StatusAdvances(order.Status, store.OrderStatusCompleted) {
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
	}

	h.log.Infow("vault order completed", "order_id", orderID)

	return h.finish(rec, orderID)
}

func addAmount(current, delta *big.Int) *big.Int {
	if current == nil {
		current = new(big.Int)
	}

	if delta == nil {
		return current
	}

	return new(big.Int).Add(current, delta)
}
