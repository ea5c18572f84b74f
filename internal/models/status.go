package models

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusConfirmed       OrderStatus = "confirmed"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusOutForDelivery  OrderStatus = "out_for_delivery"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusReturnRequested OrderStatus = "return_requested"
	OrderStatusReturned        OrderStatus = "returned"
	OrderStatusRefunded        OrderStatus = "refunded"
)

var orderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:         {},
	OrderStatusConfirmed:       {},
	OrderStatusProcessing:      {},
	OrderStatusShipped:         {},
	OrderStatusOutForDelivery:  {},
	OrderStatusDelivered:       {},
	OrderStatusCancelled:       {},
	OrderStatusReturnRequested: {},
	OrderStatusReturned:        {},
	OrderStatusRefunded:        {},
}

// ParseOrderStatus rejects anything outside the closed set of order states.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(s)
	_, ok := orderStatuses[status]
	return status, ok
}

type PaymentMethod string

const (
	PaymentMethodCOD        PaymentMethod = "cod"
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetBanking PaymentMethod = "netbanking"
	PaymentMethodWallet     PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetBanking, PaymentMethodWallet:
		return true
	}
	return false
}

func (m PaymentMethod) IsPrepaid() bool {
	return m.Valid() && m != PaymentMethodCOD
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// OrderPayoutStatus tracks an order's settlement towards its seller.
type OrderPayoutStatus string

const (
	OrderPayoutNone      OrderPayoutStatus = "none"
	OrderPayoutUpcoming  OrderPayoutStatus = "upcoming"
	OrderPayoutBatched   OrderPayoutStatus = "batched"
	OrderPayoutCompleted OrderPayoutStatus = "completed"
	OrderPayoutFailed    OrderPayoutStatus = "failed"
	OrderPayoutReversed  OrderPayoutStatus = "reversed"
)

// PayoutStatus is the lifecycle of a PayoutTransaction.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
)

type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)
