package filter

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type yamlConstraint struct {
	Type    Type      `yaml:"type"`
	Variant Variant   `yaml:"variant"`
	Value   yaml.Node `yaml:"value"`
}

// UnmarshalYAML reads constraints written as
//
//	type: ByVehicleType
//	variant: IsOneOf
//	value: [Bus, Tram]
//
// Times are "15:04", dates "2006-01-02", vehicle types by name or number.
func (c *Constraint) UnmarshalYAML(node *yaml.Node) error {
	var raw yamlConstraint
	if err := node.Decode(&raw); err != nil {
		return err
	}

	value, err := decodeYAMLValue(raw.Type, &raw.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	constraint, err := NewConstraint(raw.Type, raw.Variant, value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	*c = constraint
	return nil
}

func (c Constraint) MarshalYAML() (interface{}, error) {
	out := map[string]any{
		"type":    c.Type.String(),
		"variant": c.Variant.String(),
	}

	switch value := c.Value.(type) {
	case time.Time:
		if c.Type == ByDepartureDate {
			out["value"] = value.Format(time.DateOnly)
		} else {
			out["value"] = value.Format("15:04")
		}
	case []int:
		if c.Type == ByVehicleType {
			names := make([]string, len(value))
			for i, vehicleType := range value {
				names[i] = timetable.VehicleType(vehicleType).String()
			}
			out["value"] = names
		} else {
			out["value"] = value
		}
	default:
		out["value"] = value
	}

	return out, nil
}

func decodeYAMLValue(filterType Type, node *yaml.Node) (any, error) {
	switch filterType.ValueKind() {
	case ValueString:
		var value string
		err := node.Decode(&value)
		return value, err
	case ValueInt:
		var value int
		err := node.Decode(&value)
		return value, err
	case ValueIntList:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		values := make([]int, 0, len(raw))
		for _, item := range raw {
			if number, err := strconv.Atoi(item); err == nil {
				values = append(values, number)
			} else if filterType == ByVehicleType {
				values = append(values, int(timetable.VehicleTypeFromString(item)))
			} else {
				return nil, fmt.Errorf("invalid list value %q", item)
			}
		}
		return values, nil
	case ValueTimeOfDay:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		return time.ParseInLocation("15:04", raw, time.Local)
	case ValueDate:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		return time.ParseInLocation(time.DateOnly, raw, time.Local)
	}

	return nil, fmt.Errorf("unsupported filter type %s", filterType)
}

// LoadSettingsFile reads named filter settings from a YAML document. A missing file gives an
// empty list.
func LoadSettingsFile(path string) (SettingsList, error) {
	bytes, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debug().Str("path", path).Msg("No filter settings file")
		return SettingsList{}, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseSettings(bytes)
}

func ParseSettings(document []byte) (SettingsList, error) {
	var settings SettingsList
	if err := yaml.Unmarshal(document, &settings); err != nil {
		return nil, fmt.Errorf("parse filter settings: %w", err)
	}

	for _, entry := range settings {
		log.Debug().Str("name", entry.Name).Int("filters", len(entry.Filters)).Msg("Loaded filter settings")
	}

	return settings, nil
}
