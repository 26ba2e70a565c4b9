package ride

import (
	"errors"
	"strings"
)

// ServiceType is the ride service class requested by the passenger.
type ServiceType string

const (
	ServiceStandard ServiceType = "STANDARD"
	ServiceComfort  ServiceType = "COMFORT"
	ServiceXL       ServiceType = "XL"
)

var ErrInvalidServiceType = errors.New("invalid service type")

// ParseServiceType normalizes (uppercases+trims) and validates a service type string.
func ParseServiceType(in string) (ServiceType, error) {
	serviceType := ServiceType(strings.ToUpper(strings.TrimSpace(in)))
	if serviceType.Valid() {
		return serviceType, nil
	}
	return "", ErrInvalidServiceType
}

// Valid reports whether serviceType is one of the allowed constants.
func (serviceType ServiceType) Valid() bool {
	switch serviceType {
	case ServiceStandard, ServiceComfort, ServiceXL:
		return true
	default:
		return false
	}
}

// String returns the string representation of the ServiceType.
func (serviceType ServiceType) String() string {
	return string(serviceType)
}
