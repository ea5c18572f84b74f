package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/safar/go-sql-marketplace/internal/orders"
	"github.com/safar/go-sql-marketplace/internal/payouts"
)

type OrderItemRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (i OrderItemRequest) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required, validation.Min(int64(1))),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1)),
	)
}

type AddressRequest struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a AddressRequest) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.FullName, validation.Required, validation.Length(1, 120)),
		validation.Field(&a.Line1, validation.Required),
		validation.Field(&a.City, validation.Required),
		validation.Field(&a.PostalCode, validation.Required),
		validation.Field(&a.Country, validation.Required),
	)
}

func (a AddressRequest) toAddress() models.Address {
	return models.Address{
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

type PlaceOrderRequest struct {
	Items         []OrderItemRequest `json:"items"`
	FromCart      bool               `json:"from_cart"`
	Address       AddressRequest     `json:"shipping_address"`
	PaymentMethod string             `json:"payment_method"`
}

func (r *PlaceOrderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Items, validation.When(!r.FromCart, validation.Required), validation.Length(0, 100)),
		validation.Field(&r.Address),
		validation.Field(&r.PaymentMethod, validation.Required, validation.In("cod", "card", "upi", "netbanking", "wallet")),
	)
}

func (r *PlaceOrderRequest) toCore() orders.PlaceOrderRequest {
	items := make([]orders.ItemRequest, len(r.Items))
	for i, item := range r.Items {
		items[i] = orders.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity, Size: item.Size, Color: item.Color}
	}
	return orders.PlaceOrderRequest{
		Items:         items,
		FromCart:      r.FromCart,
		Address:       r.Address.toAddress(),
		PaymentMethod: models.PaymentMethod(r.PaymentMethod),
	}
}

type TrackingRequest struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
	URL            string `json:"url"`
}

func (t TrackingRequest) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Carrier, validation.Required),
		validation.Field(&t.TrackingNumber, validation.Required),
		validation.Field(&t.URL, is.URL),
	)
}

type TransitionRequest struct {
	Status   string           `json:"status"`
	Comment  string           `json:"comment"`
	Reason   string           `json:"reason"`
	Tracking *TrackingRequest `json:"tracking"`
}

func (r *TransitionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.Required, validation.By(func(v any) error {
			if _, ok := models.ParseOrderStatus(v.(string)); !ok {
				return validation.NewError("validation_status_unknown", "unknown order status")
			}
			return nil
		})),
		validation.Field(&r.Comment, validation.Length(0, 500)),
		validation.Field(&r.Tracking),
	)
}

func (r *TransitionRequest) extra() orders.TransitionExtra {
	extra := orders.TransitionExtra{Reason: r.Reason}
	if r.Tracking != nil {
		extra.Tracking = &models.Tracking{
			Carrier:        r.Tracking.Carrier,
			TrackingNumber: r.Tracking.TrackingNumber,
			URL:            r.Tracking.URL,
		}
	}
	return extra
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (r *ReasonRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, validation.Length(1, 500)),
	)
}

type DestinationRequest struct {
	Method        string `json:"method"`
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
	BankName      string `json:"bank_name"`
	UPIID         string `json:"upi_id"`
}

func (d DestinationRequest) Validate() error {
	bank := d.Method == "bank"
	return validation.ValidateStruct(&d,
		validation.Field(&d.Method, validation.Required, validation.In("bank", "upi")),
		validation.Field(&d.AccountHolder, validation.When(bank, validation.Required)),
		validation.Field(&d.AccountNumber, validation.When(bank, validation.Required, is.Digit)),
		validation.Field(&d.IFSC, validation.When(bank, validation.Required, validation.Length(11, 11))),
		validation.Field(&d.UPIID, validation.When(d.Method == "upi", validation.Required)),
	)
}

type CreatePayoutRequest struct {
	OrderIDs    []int64             `json:"order_ids"`
	Destination *DestinationRequest `json:"destination"`
}

func (r *CreatePayoutRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OrderIDs, validation.Each(validation.Min(int64(1)))),
		validation.Field(&r.Destination),
	)
}

func (r *CreatePayoutRequest) toCore(sellerID int64) payouts.CreatePayoutRequest {
	req := payouts.CreatePayoutRequest{SellerID: sellerID, OrderIDs: r.OrderIDs}
	if d := r.Destination; d != nil {
		req.Destination = &models.PaymentDestination{
			Method:        d.Method,
			AccountHolder: d.AccountHolder,
			AccountNumber: d.AccountNumber,
			IFSC:          d.IFSC,
			BankName:      d.BankName,
			UPIID:         d.UPIID,
		}
	}
	return req
}

type CompletePayoutRequest struct {
	GatewayRef string `json:"gateway_ref"`
}

func (r *CompletePayoutRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.GatewayRef, validation.Required),
	)
}

type FailPayoutRequest struct {
	Reason string `json:"reason"`
	Code   string `json:"code"`
}

func (r *FailPayoutRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required),
		validation.Field(&r.Code, validation.Length(0, 32)),
	)
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

func (r *RestockRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Quantity, validation.Required, validation.Min(1)),
	)
}
