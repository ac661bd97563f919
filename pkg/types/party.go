package types

import (
	"database/sql/driver"
	"encoding/json"
)

// Party is a sender or receiver snapshot stored on a shipment.
type Party struct {
	Name        string `json:"name"`
	Mobile      string `json:"mobile,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	CountryCode string `json:"country_code"`
	Country     string `json:"country,omitempty"`
	City        string `json:"city"`
	Area        string `json:"area,omitempty"`
	Address     string `json:"address"`
	PostCode    string `json:"post_code,omitempty"`
}

func (p Party) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *Party) Scan(value interface{}) error {
	if value == nil {
		*p = Party{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, p)
}

// JSONMap stores an arbitrary JSON object inside a JSON column.
type JSONMap map[string]any

// Value serializes the map to JSON.
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan decodes JSON into the map.
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded JSONMap
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*j = decoded
	return nil
}
