package timetable

import (
	"strings"
)

type VehicleType int

//goland:noinspection GoUnusedConst
const (
	VehicleTypeUnknown VehicleType = iota
	VehicleTypeTram
	VehicleTypeBus
	VehicleTypeSubway
	VehicleTypeInterurbanTrain
	VehicleTypeMetro
	VehicleTypeTrolleyBus
	VehicleTypeRegionalTrain
	VehicleTypeRegionalExpressTrain
	VehicleTypeInterregionalTrain
	VehicleTypeIntercityTrain
	VehicleTypeHighSpeedTrain
	VehicleTypeFerry
	VehicleTypeShip
	VehicleTypePlane
	VehicleTypeFeet
)

var vehicleTypeNames = map[VehicleType]string{
	VehicleTypeUnknown:              "Unknown",
	VehicleTypeTram:                 "Tram",
	VehicleTypeBus:                  "Bus",
	VehicleTypeSubway:               "Subway",
	VehicleTypeInterurbanTrain:      "InterurbanTrain",
	VehicleTypeMetro:                "Metro",
	VehicleTypeTrolleyBus:           "TrolleyBus",
	VehicleTypeRegionalTrain:        "RegionalTrain",
	VehicleTypeRegionalExpressTrain: "RegionalExpressTrain",
	VehicleTypeInterregionalTrain:   "InterregionalTrain",
	VehicleTypeIntercityTrain:       "IntercityTrain",
	VehicleTypeHighSpeedTrain:       "HighSpeedTrain",
	VehicleTypeFerry:                "Ferry",
	VehicleTypeShip:                 "Ship",
	VehicleTypePlane:                "Plane",
	VehicleTypeFeet:                 "Feet",
}

// Names and abbreviations providers commonly use for their vehicles
var vehicleTypeAliases = map[string]VehicleType{
	"tram":          VehicleTypeTram,
	"str":           VehicleTypeTram,
	"strab":         VehicleTypeTram,
	"straßenbahn":   VehicleTypeTram,
	"bus":           VehicleTypeBus,
	"nachtbus":      VehicleTypeBus,
	"subway":        VehicleTypeSubway,
	"u":             VehicleTypeSubway,
	"u-bahn":        VehicleTypeSubway,
	"ubahn":         VehicleTypeSubway,
	"underground":   VehicleTypeSubway,
	"s":             VehicleTypeInterurbanTrain,
	"s-bahn":        VehicleTypeInterurbanTrain,
	"sbahn":         VehicleTypeInterurbanTrain,
	"interurban":    VehicleTypeInterurbanTrain,
	"metro":         VehicleTypeMetro,
	"m":             VehicleTypeMetro,
	"trolleybus":    VehicleTypeTrolleyBus,
	"obus":          VehicleTypeTrolleyBus,
	"o-bus":         VehicleTypeTrolleyBus,
	"rb":            VehicleTypeRegionalTrain,
	"regional":      VehicleTypeRegionalTrain,
	"regionaltrain": VehicleTypeRegionalTrain,
	"re":            VehicleTypeRegionalExpressTrain,
	"ire":           VehicleTypeInterregionalTrain,
	"ir":            VehicleTypeInterregionalTrain,
	"ic":            VehicleTypeIntercityTrain,
	"ec":            VehicleTypeIntercityTrain,
	"intercity":     VehicleTypeIntercityTrain,
	"ice":           VehicleTypeHighSpeedTrain,
	"tgv":           VehicleTypeHighSpeedTrain,
	"thalys":        VehicleTypeHighSpeedTrain,
	"highspeed":     VehicleTypeHighSpeedTrain,
	"ferry":         VehicleTypeFerry,
	"fähre":         VehicleTypeFerry,
	"boat":          VehicleTypeFerry,
	"ship":          VehicleTypeShip,
	"plane":         VehicleTypePlane,
	"flight":        VehicleTypePlane,
	"feet":          VehicleTypeFeet,
	"walk":          VehicleTypeFeet,
	"fußweg":        VehicleTypeFeet,
}

func (v VehicleType) String() string {
	if name, exists := vehicleTypeNames[v]; exists {
		return name
	}

	return vehicleTypeNames[VehicleTypeUnknown]
}

// IsTrain is true for every rail bound type running on the main network
func (v VehicleType) IsTrain() bool {
	switch v {
	case VehicleTypeInterurbanTrain, VehicleTypeRegionalTrain, VehicleTypeRegionalExpressTrain,
		VehicleTypeInterregionalTrain, VehicleTypeIntercityTrain, VehicleTypeHighSpeedTrain:
		return true
	}

	return false
}

func (v VehicleType) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *VehicleType) UnmarshalText(text []byte) error {
	*v = VehicleTypeFromString(string(text))
	return nil
}

// VehicleTypeFromString resolves canonical names as well as the common abbreviations used by
// providers (case-insensitive). Unrecognised values give VehicleTypeUnknown.
func VehicleTypeFromString(name string) VehicleType {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if lowered == "" {
		return VehicleTypeUnknown
	}

	for vehicleType, typeName := range vehicleTypeNames {
		if strings.ToLower(typeName) == lowered {
			return vehicleType
		}
	}

	if vehicleType, exists := vehicleTypeAliases[lowered]; exists {
		return vehicleType
	}

	return VehicleTypeUnknown
}

// VehicleTypeFromGTFSRouteType maps the basic and extended GTFS route_type values
func VehicleTypeFromGTFSRouteType(routeType int) VehicleType {
	switch {
	case routeType == 0:
		return VehicleTypeTram
	case routeType == 1:
		return VehicleTypeSubway
	case routeType == 2:
		return VehicleTypeRegionalTrain
	case routeType == 3:
		return VehicleTypeBus
	case routeType == 4:
		return VehicleTypeFerry
	case routeType == 11:
		return VehicleTypeTrolleyBus
	case routeType == 101:
		return VehicleTypeHighSpeedTrain
	case routeType == 102:
		return VehicleTypeIntercityTrain
	case routeType == 103:
		return VehicleTypeInterregionalTrain
	case routeType == 106:
		return VehicleTypeRegionalTrain
	case routeType == 109:
		return VehicleTypeInterurbanTrain
	case routeType >= 100 && routeType < 200:
		return VehicleTypeRegionalTrain
	case routeType >= 200 && routeType < 300:
		return VehicleTypeBus
	case routeType >= 400 && routeType < 500:
		return VehicleTypeSubway
	case routeType >= 700 && routeType < 800:
		return VehicleTypeBus
	case routeType == 800:
		return VehicleTypeTrolleyBus
	case routeType >= 900 && routeType < 1000:
		return VehicleTypeTram
	case routeType >= 1000 && routeType < 1300:
		return VehicleTypeFerry
	}

	return VehicleTypeUnknown
}
