package enums

import (
	"fmt"
	"strings"
)

// ServiceType is the courier service level requested for a shipment.
type ServiceType string

const (
	ServiceTypeStandard ServiceType = "standard"
	ServiceTypeExpress  ServiceType = "express"
	ServiceTypeEconomy  ServiceType = "economy"
)

var validServiceTypes = []ServiceType{
	ServiceTypeStandard,
	ServiceTypeExpress,
	ServiceTypeEconomy,
}

func (s ServiceType) String() string {
	return string(s)
}

func (s ServiceType) IsValid() bool {
	for _, candidate := range validServiceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseServiceType converts raw input into a ServiceType; empty input yields standard.
func ParseServiceType(value string) (ServiceType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return ServiceTypeStandard, nil
	}
	for _, candidate := range validServiceTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service type %q", value)
}
