package domain

// transitionKey identifies one edge in the order status graph.
type transitionKey struct {
	From OrderStatus
	To   OrderStatus
}

// transitionRule describes who may take an edge. DriverOfOrder means the
// acting driver must be the order's assigned driver; CustomerOfOrder means
// the actor must be the order's customer. Admin is always allowed on any
// edge present in the table.
type transitionRule struct {
	DriverOfOrder   bool
	CustomerOfOrder bool
}

// orderTransitions is the closed set of legal order status edges. Any
// (from, to) pair absent from this table is an invalid transition, full
// stop. pending→accepted is deliberately absent: acceptance only happens
// through the driver self-assignment compare-and-swap, never through a
// plain status update.
var orderTransitions = map[transitionKey]transitionRule{
	{OrderStatusAccepted, OrderStatusInProgress}:  {DriverOfOrder: true},
	{OrderStatusInProgress, OrderStatusCompleted}: {DriverOfOrder: true},
	{OrderStatusPending, OrderStatusCancelled}:    {CustomerOfOrder: true},
	{OrderStatusAccepted, OrderStatusCancelled}:   {CustomerOfOrder: true},
}

// CanTransition reports whether the edge from→to exists at all.
func CanTransition(from, to OrderStatus) bool {
	_, ok := orderTransitions[transitionKey{from, to}]
	return ok
}

// TransitionAllowed reports whether the actor may take the edge from→to on
// the given order. The first return value is false when the edge itself is
// illegal; the second is false when the edge exists but the actor lacks the
// role or ownership it requires.
func TransitionAllowed(o *Order, actor Actor, to OrderStatus) (edgeOK, actorOK bool) {
	rule, ok := orderTransitions[transitionKey{o.Status, to}]
	if !ok {
		return false, false
	}
	if actor.Role == RoleAdmin {
		return true, true
	}
	if rule.DriverOfOrder && actor.Role == RoleDriver && o.DriverID != "" && actor.ID == o.DriverID {
		return true, true
	}
	if rule.CustomerOfOrder && actor.Role == RoleCustomer && actor.ID == o.CustomerID {
		return true, true
	}
	return true, false
}

// ValidOrderStatus reports whether s is a member of the closed status set.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusInProgress,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}
