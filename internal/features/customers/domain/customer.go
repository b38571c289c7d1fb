package domain

import "errors"

// ErrCustomerNotFound is returned when an authenticated caller has no account record.
var ErrCustomerNotFound = errors.New("customer not found")

// Customer is the account profile owned by the identity service.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}
