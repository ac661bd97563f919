package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ShippingAddress is the delivery destination snapshot captured on an order.
type ShippingAddress struct {
	FullName    string `json:"full_name" validate:"required"`
	Mobile      string `json:"mobile" validate:"required,phone"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	CountryCode string `json:"country_code" validate:"required,country"`
	Country     string `json:"country,omitempty"`
	City        string `json:"city" validate:"required"`
	Area        string `json:"area,omitempty"`
	Address     string `json:"address" validate:"required"`
	PostCode    string `json:"post_code,omitempty"`
	Landmark    string `json:"landmark,omitempty"`
}

// NormalizedCountryCode returns the upper-cased ISO-3166 alpha-2 code.
func (a ShippingAddress) NormalizedCountryCode() string {
	return strings.ToUpper(strings.TrimSpace(a.CountryCode))
}

// Value serializes the address to JSON.
func (a ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan decodes a JSON column into the address.
func (a *ShippingAddress) Scan(value interface{}) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return fmt.Errorf("shipping address: %w", err)
	}
	return json.Unmarshal(raw, a)
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
