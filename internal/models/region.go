package models

import "fmt"

// Region is a market variant of the storefront with its own pricing and availability.
type Region int

// Known regions in enumeration order. The order is significant: it drives price
// formatting and the region pass order of a crawl.
const (
	RegionUnitedStates Region = iota
	RegionEurope
	RegionUnitedKingdom
	RegionIndia
	RegionCanada
	RegionAustralia
	RegionGlobal
)

// Regions lists every supported region in enumeration order.
var Regions = []Region{ //nolint:gochecknoglobals // closed enumeration
	RegionUnitedStates,
	RegionEurope,
	RegionUnitedKingdom,
	RegionIndia,
	RegionCanada,
	RegionAustralia,
	RegionGlobal,
}

// Code is the short form the storefront expects when switching the active region.
func (r Region) Code() string {
	switch r {
	case RegionUnitedStates:
		return "US"
	case RegionEurope:
		return "EU"
	case RegionUnitedKingdom:
		return "UK"
	case RegionIndia:
		return "IN"
	case RegionCanada:
		return "CA"
	case RegionAustralia:
		return "AU"
	case RegionGlobal:
		return "XX"
	default:
		return ""
	}
}

// String returns the display form used in notifications.
func (r Region) String() string {
	switch r {
	case RegionUnitedStates:
		return "USA"
	case RegionEurope:
		return "Europe"
	case RegionUnitedKingdom:
		return "UK"
	case RegionIndia:
		return "India"
	case RegionCanada:
		return "Canada"
	case RegionAustralia:
		return "Australia"
	case RegionGlobal:
		return "Global"
	default:
		return fmt.Sprintf("Region(%d)", int(r))
	}
}

// ParseRegion looks a region up by its short code.
func ParseRegion(code string) (Region, error) {
	for _, r := range Regions {
		if r.Code() == code {
			return r, nil
		}
	}

	return 0, fmt.Errorf("unknown region code %q", code)
}

// MarshalText encodes the region as its code so price maps serialize with readable keys.
func (r Region) MarshalText() ([]byte, error) {
	code := r.Code()
	if code == "" {
		return nil, fmt.Errorf("cannot marshal unknown region %d", int(r))
	}

	return []byte(code), nil
}

// UnmarshalText decodes a region code.
func (r *Region) UnmarshalText(text []byte) error {
	parsed, err := ParseRegion(string(text))
	if err != nil {
		return err
	}
	*r = parsed

	return nil
}
