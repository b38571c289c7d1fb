package service

import (
	"strings"

	"fulfillment-engine/internal/features/orders/domain"

	"github.com/shopspring/decimal"
)

// RawCheckout is the checkout body as clients send it. Several historical
// field names are accepted; Normalize folds them into a CheckoutRequest.
type RawCheckout struct {
	Items           []RawItem    `json:"items"`
	ShippingAddress *RawAddress  `json:"shippingAddress"`
	CustomerInfo    *RawCustomer `json:"customerInfo"`
	UserDetails     *RawCustomer `json:"userDetails"`

	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`

	PaymentMethod string `json:"paymentMethod"`

	Subtotal     *decimal.Decimal `json:"subtotal"`
	Shipping     *decimal.Decimal `json:"shipping"`
	ShippingCost *decimal.Decimal `json:"shippingCost"`
	Total        *decimal.Decimal `json:"total"`
	TotalAmount  *decimal.Decimal `json:"totalAmount"`
	FinalAmount  *decimal.Decimal `json:"finalAmount"`
}

// RawItem is one requested line. The product may be referenced as productId, id or _id.
type RawItem struct {
	ProductID string           `json:"productId"`
	ID        string           `json:"id"`
	LegacyID  string           `json:"_id"`
	Quantity  int64            `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

type RawAddress struct {
	Street  string `json:"street"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// RawCustomer is the contact block. Guests may also inline their address here.
type RawCustomer struct {
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	RawAddress
}

// CheckoutRequest is the canonical input of the order builder.
type CheckoutRequest struct {
	Items           []ItemRequest
	ShippingAddress domain.ShippingAddress
	Contact         domain.CustomerSnapshot
	PaymentMethod   string
	// ClientTotals are the totals the client computed, if any. Informational only.
	ClientTotals ClientTotals
}

// ItemRequest is one canonical line.
type ItemRequest struct {
	ProductRef  string
	Quantity    int64
	ClientPrice *decimal.Decimal
}

type ClientTotals struct {
	Subtotal     *decimal.Decimal
	ShippingCost *decimal.Decimal
	Total        *decimal.Decimal
}

// Normalize maps the accepted request shapes onto a CheckoutRequest.
// It performs no validation beyond trimming.
func (r *RawCheckout) Normalize() CheckoutRequest {
	req := CheckoutRequest{
		Items:         make([]ItemRequest, 0, len(r.Items)),
		PaymentMethod: strings.ToLower(strings.TrimSpace(r.PaymentMethod)),
		ClientTotals: ClientTotals{
			Subtotal:     r.Subtotal,
			ShippingCost: firstDecimal(r.ShippingCost, r.Shipping),
			Total:        firstDecimal(r.Total, r.TotalAmount, r.FinalAmount),
		},
	}

	for _, item := range r.Items {
		req.Items = append(req.Items, ItemRequest{
			ProductRef:  firstString(item.ProductID, item.ID, item.LegacyID),
			Quantity:    item.Quantity,
			ClientPrice: item.Price,
		})
	}

	contact := r.CustomerInfo
	if contact == nil {
		contact = r.UserDetails
	}
	if contact == nil {
		contact = &RawCustomer{}
	}

	req.Contact = domain.CustomerSnapshot{
		Name:  firstString(contact.FullName, contact.Name, r.FullName, r.Name),
		Email: firstString(contact.Email, r.Email),
		Phone: firstString(contact.Phone, r.Phone),
	}

	addr := r.ShippingAddress
	if addr == nil {
		addr = &contact.RawAddress
	}
	req.ShippingAddress = domain.ShippingAddress{
		Street:  firstString(addr.Street, addr.Address),
		City:    strings.TrimSpace(addr.City),
		State:   strings.TrimSpace(addr.State),
		ZipCode: firstString(addr.ZipCode, addr.Zip),
		Country: strings.TrimSpace(addr.Country),
	}

	return req
}

func firstString(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstDecimal(values ...*decimal.Decimal) *decimal.Decimal {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
