package handlers

import (
	"context"
	"math/big"

	"github.com/openswap-labs/swapsync/internal/events"
	"github.com/openswap-labs/swapsync/internal/store"
)

// handleOrderCreated registers a new orderbook order. A duplicate delivery of
// the same order id leaves the existing row untouched.
func (h *Handlers) handleOrderCreated(ctx context.Context, evt *events.DecodedEvent) error {
	payload := evt.Payload.(*events.OrderCreated)

	rec, err := h.recordEvent(evt)
	if err != nil {
		return err
	}

	orderID := payload.OrderId.String()

	if rec.Processed {
		return nil
	}

	existing, err := h.store.GetOrder(orderID)
	if err != nil {
		return err
	}

	if existing != nil {
		h.log.Debugf("order %s already known, skipping duplicate OrderCreated", orderID)

		return h.finish(rec, orderID)
	}

	order := &store.Order{
		OrderID:       orderID,
		Flow:          store.FlowEscrow,
		Maker:         payload.Maker,
		SellToken:     addrHex(payload.SellToken),
		BuyToken:      addrHex(payload.BuyToken),
		SellAmount:    payload.SellAmount,
		BuyAmount:     payload.BuyAmount,
		FilledAmount:  new(big.Int),
		SrcChainID:    evt.ChainID,
		DstChainID:    payload.DstChainId.Uint64(),
		HashLock:      hashHex(payload.HashLock),
		MakerTimelock: payload.MakerTimelock.Int64(),
		TakerTimelock: payload.TakerTimelock.Int64(),
		Status:        store.OrderStatusOpen,
		TxHash:        evt.TxHash,
		BlockNumber:   evt.Block,
		LogIndex:      uint64(evt.LogIndex),
	}

	if err := h.store.InsertOrder(order); err != nil {
		return err
	}

	if err := h.store.IncOrdersCreated(addrHex(payload.Maker)); err != nil {
		return err
	}

	h.log.Infow("order created",
		"order_id", orderID,
		"maker", addrHex(payload.Maker),
		"src_chain", evt.ChainID,
		"dst_chain", order.DstChainID,
	)

	return h.finish(rec, orderID)
}

// handleOrderCancelled marks an order cancelled. The on-chain cancel is
// authoritative, so the status moves regardless of the current state.
func (h *Handlers) handleOrderCancelled(ctx context.Context, evt *events.DecodedEvent) error {
	payload := evt.Payload.(*events.OrderCancelled)

	rec, err := h.recordEvent(evt)
	if err != nil {
		return err
	}

	orderID := payload.OrderId.String()

	if rec.Processed {
		return nil
	}

	order, err := h.store.GetOrder(orderID)
	if err != nil {
		return err
	}

	if order == nil {
		h.log.Warnf("OrderCancelled for unknown order %s, will retry once the order is seen", orderID)

		return nil
	}

	order.Cancelled = true
	order.Status = store.OrderStatusCancelled

	if err := h.store.SaveOrder(order); err != nil {
		return err
	}

	h.log.Infow("order cancelled", "order_id", orderID)

	return h.finish(rec, orderID)
}
