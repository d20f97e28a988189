package service

import "Ripple/internal/event"

// Deliverer pushes realtime events at online recipients. Delivery is best
// effort and at most once; services never treat a delivery problem as a
// failure of the mutation that produced the event.
type Deliverer interface {
	Deliver(recipientIDs []string, ev event.WsEvent)
}
