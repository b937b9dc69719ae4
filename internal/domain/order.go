package domain

import "time"

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPaymentRequired OrderStatus = "payment_required"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusThrottled       OrderStatus = "throttled"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusFailed          OrderStatus = "failed"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// Terminal reports whether no further transition exists for the status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderKind enumerates supported order shapes.
type OrderKind string

const (
	OrderKindSingle         OrderKind = "single"
	OrderKindMerge          OrderKind = "merge"
	OrderKindCombineAnimate OrderKind = "combine_and_animate"
)

// Order is a user's request to turn one or two input photos into a video.
type Order struct {
	ID             string
	OwnerID        string
	Status         OrderStatus
	Kind           OrderKind
	PhotoRef       string
	SecondPhotoRef string
	Prompt         string
	ResultRefs     []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var legalTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusProcessing, OrderStatusThrottled},
	OrderStatusPaymentRequired: {OrderStatusPending, OrderStatusProcessing, OrderStatusThrottled},
	OrderStatusThrottled:       {OrderStatusProcessing},
	OrderStatusProcessing:      {OrderStatusCompleted, OrderStatusFailed, OrderStatusThrottled},
}

// CanTransition reports whether from -> to is a legal status edge.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
