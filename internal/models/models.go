package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type Seller struct {
	UserID            int64              `json:"user_id"`
	DisplayName       string             `json:"display_name"`
	PayoutDestination PaymentDestination `json:"payout_destination"`
	Wallet            SellerWallet       `json:"wallet"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	Version           int                `json:"version"`
}

type SellerWallet struct {
	Available         decimal.Decimal  `json:"available"`
	Pending           decimal.Decimal  `json:"pending"`
	LifetimeEarnings  decimal.Decimal  `json:"lifetime_earnings"`
	LifetimeWithdrawn decimal.Decimal  `json:"lifetime_withdrawn"`
	LastPayoutAt      *time.Time       `json:"last_payout_at,omitempty"`
	LastPayoutAmount  *decimal.Decimal `json:"last_payout_amount,omitempty"`
}

type Category struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	ParentID       *int64          `json:"parent_id,omitempty"`
	CommissionRate decimal.Decimal `json:"-"`
}

type Product struct {
	ID          int64           `json:"id"`
	SKU         string          `json:"sku"`
	SellerID    int64           `json:"seller_id"`
	CategoryID  int64           `json:"category_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       Stock           `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

type Stock struct {
	Available         int         `json:"available"`
	LowStockThreshold int         `json:"low_stock_threshold"`
	Status            StockStatus `json:"status"`
}

type CartItem struct {
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

type Address struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type OrderItem struct {
	ProductID  int64           `json:"product_id"`
	SellerID   int64           `json:"seller_id"`
	CategoryID int64           `json:"category_id"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Size       string          `json:"size,omitempty"`
	Color      string          `json:"color,omitempty"`
}

type Pricing struct {
	ItemsTotal     decimal.Decimal `json:"items_total"`
	ShippingCharge decimal.Decimal `json:"shipping_charge"`
	Discount       decimal.Decimal `json:"discount"`
	Tax            decimal.Decimal `json:"tax"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

type HistoryEntry struct {
	Status    OrderStatus `json:"status"`
	ActorID   int64       `json:"actor_id"`
	ActorRole string      `json:"actor_role"`
	Comment   string      `json:"comment,omitempty"`
	At        time.Time   `json:"at"`
}

type Tracking struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
	URL            string `json:"url,omitempty"`
}

type ReturnRequest struct {
	Reason      string    `json:"reason"`
	RequestedBy int64     `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// Earnings is frozen onto an order when it is delivered and never rewritten.
type Earnings struct {
	PlatformCommission decimal.Decimal  `json:"platform_commission"`
	TotalTax           decimal.Decimal  `json:"total_tax"`
	ShippingCharges    decimal.Decimal  `json:"shipping_charges"`
	NetSellerEarning   decimal.Decimal  `json:"net_seller_earning"`
	Lines              []CommissionLine `json:"lines"`
	ComputedAt         time.Time        `json:"computed_at"`
}

type CommissionLine struct {
	ProductID  int64           `json:"product_id"`
	CategoryID int64           `json:"category_id"`
	Rate       decimal.Decimal `json:"rate"`
	Base       decimal.Decimal `json:"base"`
	Commission decimal.Decimal `json:"commission"`
}

type OrderPayout struct {
	Status        OrderPayoutStatus `json:"status"`
	TransactionID string            `json:"transaction_id,omitempty"`
}

type Order struct {
	ID                 int64          `json:"id"`
	OrderNumber        string         `json:"order_number"`
	BuyerID            int64          `json:"buyer_id"`
	SellerID           int64          `json:"seller_id"`
	Items              []OrderItem    `json:"items"`
	ShippingAddress    Address        `json:"shipping_address"`
	PaymentMethod      PaymentMethod  `json:"payment_method"`
	PaymentStatus      PaymentStatus  `json:"payment_status"`
	PaidAt             *time.Time     `json:"paid_at,omitempty"`
	Pricing            Pricing        `json:"pricing"`
	Status             OrderStatus    `json:"status"`
	History            []HistoryEntry `json:"status_history"`
	Tracking           *Tracking      `json:"tracking,omitempty"`
	ShippedAt          *time.Time     `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time     `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty"`
	ReturnedAt         *time.Time     `json:"returned_at,omitempty"`
	RefundedAt         *time.Time     `json:"refunded_at,omitempty"`
	CancellationReason string         `json:"cancellation_reason,omitempty"`
	ReturnRequest      *ReturnRequest `json:"return_request,omitempty"`
	Earnings           *Earnings      `json:"earnings,omitempty"`
	Payout             OrderPayout    `json:"payout"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	Version            int            `json:"version"`
}

// NetSellerEarning is zero until the order has been delivered.
func (o *Order) NetSellerEarning() decimal.Decimal {
	if o.Earnings == nil {
		return decimal.Zero
	}
	return o.Earnings.NetSellerEarning
}

type PaymentDestination struct {
	Method        string `json:"method"`
	AccountHolder string `json:"account_holder,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	IFSC          string `json:"ifsc,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	UPIID         string `json:"upi_id,omitempty"`
}

func (d PaymentDestination) IsZero() bool {
	return d.Method == ""
}

type PayoutBreakdown struct {
	TotalOrders int             `json:"total_orders"`
	GrossSales  decimal.Decimal `json:"gross_sales"`
	Commission  decimal.Decimal `json:"commission"`
	Tax         decimal.Decimal `json:"tax"`
	Shipping    decimal.Decimal `json:"shipping"`
	NetAmount   decimal.Decimal `json:"net_amount"`
}

type PayoutTransaction struct {
	ID            int64              `json:"id"`
	TransactionID string             `json:"transaction_id"`
	SellerID      int64              `json:"seller_id"`
	Amount        decimal.Decimal    `json:"amount"`
	OrderIDs      []int64            `json:"order_ids"`
	Destination   PaymentDestination `json:"destination"`
	Status        PayoutStatus       `json:"status"`
	Breakdown     PayoutBreakdown    `json:"breakdown"`
	GatewayRef    string             `json:"gateway_ref,omitempty"`
	ProcessedBy   *int64             `json:"processed_by,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty"`
	FailureCode   string             `json:"failure_code,omitempty"`
	RetryOf       string             `json:"retry_of,omitempty"`
	ProcessingAt  *time.Time         `json:"processing_at,omitempty"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	FailedAt      *time.Time         `json:"failed_at,omitempty"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Version       int                `json:"version"`
}
