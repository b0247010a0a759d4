package timetable

import (
	"fmt"
	"time"

	"golang.org/x/exp/slices"
)

// TimetableData accumulates the values collected for one record before it gets turned into a
// DepartureInfo, JourneyInfo or StopInfo. Values are validated against the Kind of their
// Information when they are set.
type TimetableData struct {
	values map[Information]any
}

type IncompatibleValueError struct {
	Information Information
	Value       any
}

func (e *IncompatibleValueError) Error() string {
	return fmt.Sprintf("value of type %T is not valid for %s", e.Value, e.Information)
}

func NewTimetableData() *TimetableData {
	return &TimetableData{values: map[Information]any{}}
}

// Set stores a typed value, coercing the loose forms (int64 → int, []int → []VehicleType, ...)
func (d *TimetableData) Set(info Information, value any) error {
	if d.values == nil {
		d.values = map[Information]any{}
	}

	converted, ok := coerce(info.Kind(), value)
	if !ok {
		return &IncompatibleValueError{Information: info, Value: value}
	}

	d.values[info] = converted
	return nil
}

// MustSet is Set for values produced by code that already knows the type is correct
func (d *TimetableData) MustSet(info Information, value any) {
	if err := d.Set(info, value); err != nil {
		panic(err)
	}
}

func (d *TimetableData) Has(info Information) bool {
	_, exists := d.values[info]
	return exists
}

func (d *TimetableData) Remove(info Information) {
	delete(d.values, info)
}

func (d *TimetableData) Get(info Information) any {
	return d.values[info]
}

func (d *TimetableData) Informations() []Information {
	keys := make([]Information, 0, len(d.values))
	for key := range d.values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func (d *TimetableData) Len() int {
	return len(d.values)
}

func (d *TimetableData) Clone() *TimetableData {
	clone := NewTimetableData()
	for key, value := range d.values {
		switch typed := value.(type) {
		case []string:
			clone.values[key] = slices.Clone(typed)
		case []int:
			clone.values[key] = slices.Clone(typed)
		case []time.Time:
			clone.values[key] = slices.Clone(typed)
		case []VehicleType:
			clone.values[key] = slices.Clone(typed)
		default:
			clone.values[key] = value
		}
	}
	return clone
}

func (d *TimetableData) Int(info Information) (int, bool) {
	value, ok := d.values[info].(int)
	return value, ok
}

// IntOr returns fallback if info is missing
func (d *TimetableData) IntOr(info Information, fallback int) int {
	if value, ok := d.Int(info); ok {
		return value
	}
	return fallback
}

func (d *TimetableData) String(info Information) string {
	value, _ := d.values[info].(string)
	return value
}

func (d *TimetableData) Bool(info Information) bool {
	value, _ := d.values[info].(bool)
	return value
}

func (d *TimetableData) Float(info Information) (float64, bool) {
	value, ok := d.values[info].(float64)
	return value, ok
}

func (d *TimetableData) Time(info Information) (time.Time, bool) {
	value, ok := d.values[info].(time.Time)
	return value, ok && !value.IsZero()
}

func (d *TimetableData) VehicleType(info Information) VehicleType {
	value, _ := d.values[info].(VehicleType)
	return value
}

func (d *TimetableData) Strings(info Information) []string {
	value, _ := d.values[info].([]string)
	return value
}

func (d *TimetableData) Ints(info Information) []int {
	value, _ := d.values[info].([]int)
	return value
}

func (d *TimetableData) Times(info Information) []time.Time {
	value, _ := d.values[info].([]time.Time)
	return value
}

func (d *TimetableData) VehicleTypes(info Information) []VehicleType {
	value, _ := d.values[info].([]VehicleType)
	return value
}

func coerce(kind Kind, value any) (any, bool) {
	switch kind {
	case KindInt:
		switch typed := value.(type) {
		case int:
			return typed, true
		case int32:
			return int(typed), true
		case int64:
			return int(typed), true
		case float64:
			return int(typed), true
		}
	case KindString:
		typed, ok := value.(string)
		return typed, ok
	case KindBool:
		typed, ok := value.(bool)
		return typed, ok
	case KindFloat:
		switch typed := value.(type) {
		case float64:
			return typed, true
		case int:
			return float64(typed), true
		}
	case KindDate, KindDateTime, KindTimeOfDay:
		typed, ok := value.(time.Time)
		return typed, ok
	case KindVehicleType:
		switch typed := value.(type) {
		case VehicleType:
			return typed, true
		case int:
			return VehicleType(typed), true
		case string:
			return VehicleTypeFromString(typed), true
		}
	case KindStringList:
		typed, ok := value.([]string)
		return typed, ok
	case KindIntList:
		typed, ok := value.([]int)
		return typed, ok
	case KindTimeOfDayList:
		typed, ok := value.([]time.Time)
		return typed, ok
	case KindVehicleTypeList:
		switch typed := value.(type) {
		case []VehicleType:
			return typed, true
		case []int:
			vehicleTypes := make([]VehicleType, len(typed))
			for i, vehicleType := range typed {
				vehicleTypes[i] = VehicleType(vehicleType)
			}
			return vehicleTypes, true
		case []string:
			vehicleTypes := make([]VehicleType, len(typed))
			for i, vehicleType := range typed {
				vehicleTypes[i] = VehicleTypeFromString(vehicleType)
			}
			return vehicleTypes, true
		}
	}

	return nil, false
}

// TimeOfDay builds a clock time value as used for route times
func TimeOfDay(hour, minute int) time.Time {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.Local)
}
