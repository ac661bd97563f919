package types

import (
	"database/sql/driver"
	"encoding/json"
)

// PickupInfo records a courier pickup request for a shipment.
type PickupInfo struct {
	Scheduled    bool   `json:"scheduled"`
	PickupNo     string `json:"pickup_no,omitempty"`
	PickupDate   string `json:"pickup_date,omitempty"`
	PickupTime   string `json:"pickup_time,omitempty"`
	PickupStatus string `json:"pickup_status,omitempty"`
}

func (p *PickupInfo) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func (p *PickupInfo) Scan(value interface{}) error {
	if value == nil {
		*p = PickupInfo{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, p)
}
