package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/publictransport/timetables/pkg/timetable"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

var ErrVariantNotSupported = errors.New("variant is not supported by the filter type")

// Constraint is a single comparison against one departure property. Value holds a string,
// an int, an []int, or a time.Time depending on Type.ValueKind().
type Constraint struct {
	Type    Type
	Variant Variant
	Value   any
}

type InvalidValueError struct {
	Type  Type
	Value any
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("value of type %T is not valid for %s", e.Value, e.Type)
}

// NewConstraint validates value against the type and normalises loose value forms
// (vehicle type names, []VehicleType) to the stored representation.
func NewConstraint(filterType Type, variant Variant, value any) (Constraint, error) {
	if !filterType.IsValid() {
		return Constraint{}, &UnknownNameError{What: "filter type", Name: fmt.Sprint(int(filterType))}
	}
	if !slices.Contains(filterType.Variants(), variant) {
		return Constraint{}, fmt.Errorf("%s %s: %w", filterType, variant, ErrVariantNotSupported)
	}

	normalised, ok := normaliseValue(filterType.ValueKind(), value)
	if !ok {
		return Constraint{}, &InvalidValueError{Type: filterType, Value: value}
	}

	return Constraint{Type: filterType, Variant: variant, Value: normalised}, nil
}

// MustConstraint is NewConstraint for values known to be correct
func MustConstraint(filterType Type, variant Variant, value any) Constraint {
	constraint, err := NewConstraint(filterType, variant, value)
	if err != nil {
		panic(err)
	}
	return constraint
}

// DefaultConstraint is what unreadable constraints get replaced with
func DefaultConstraint() Constraint {
	return Constraint{Type: ByVehicleType, Variant: IsOneOf, Value: []int{}}
}

func normaliseValue(kind ValueKind, value any) (any, bool) {
	switch kind {
	case ValueString:
		typed, ok := value.(string)
		return typed, ok
	case ValueInt:
		switch typed := value.(type) {
		case int:
			return typed, true
		case int32:
			return int(typed), true
		case int64:
			return int(typed), true
		}
	case ValueIntList:
		switch typed := value.(type) {
		case []int:
			return typed, true
		case []timetable.VehicleType:
			values := make([]int, len(typed))
			for i, vehicleType := range typed {
				values[i] = int(vehicleType)
			}
			return values, true
		case []time.Weekday:
			values := make([]int, len(typed))
			for i, weekday := range typed {
				values[i] = isoWeekday(weekday)
			}
			return values, true
		}
	case ValueTimeOfDay, ValueDate:
		typed, ok := value.(time.Time)
		return typed, ok
	}

	return nil, false
}

// Match evaluates the constraint against a departure. A constraint whose value does not fit
// its type never matches.
func (c Constraint) Match(departure *timetable.DepartureInfo) bool {
	switch c.Type {
	case ByVehicleType:
		return c.matchList(int(departure.VehicleType))
	case ByTransportLine:
		return c.matchString(departure.LineString)
	case ByTransportLineNumber:
		return c.matchInt(departure.LineNumber, departure.LineNumber > 0)
	case ByTarget:
		return c.matchString(departure.Target)
	case ByDelay:
		return c.matchInt(departure.Delay, departure.Delay >= 0)
	case ByVia:
		return c.matchVia(departure)
	case ByNextStop:
		return c.matchString(nextStop(departure))
	case ByDepartureTime:
		return c.matchTime(departure.Departure)
	case ByDepartureDate:
		return c.matchDate(departure.Departure)
	case ByDayOfWeek:
		return c.matchList(isoWeekday(departure.Departure.Weekday()))
	}

	log.Warn().Int("type", int(c.Type)).Msg("Unknown filter type")
	return false
}

func (c Constraint) malformed() bool {
	_, ok := normaliseValue(c.Type.ValueKind(), c.Value)
	if !ok {
		log.Warn().Str("type", c.Type.String()).Str("value", fmt.Sprintf("%T", c.Value)).Msg("Constraint value does not fit its filter type")
	}
	return !ok
}

func (c Constraint) matchString(testString string) bool {
	if c.malformed() {
		return false
	}
	filterString := c.Value.(string)

	switch c.Variant {
	case Contains:
		return strings.Contains(strings.ToLower(testString), strings.ToLower(filterString))
	case DoesntContain:
		return !strings.Contains(strings.ToLower(testString), strings.ToLower(filterString))
	case Equals:
		return strings.EqualFold(testString, filterString)
	case DoesntEqual:
		return !strings.EqualFold(testString, filterString)
	case MatchesRegExp, DoesntMatchRegExp:
		regex, err := compileCaseInsensitive(filterString)
		if err != nil {
			log.Warn().Err(err).Str("pattern", filterString).Msg("Invalid filter regular expression")
			return false
		}
		found := regex.MatchString(testString)
		if c.Variant == MatchesRegExp {
			return found
		}
		return !found
	}

	log.Debug().Str("variant", c.Variant.String()).Msg("Variant not usable for strings")
	return false
}

// matchInt treats invalid source values as unequal to everything
func (c Constraint) matchInt(testInt int, valid bool) bool {
	if c.malformed() {
		return false
	}
	if !valid {
		return c.Variant == DoesntEqual
	}
	filterInt := c.Value.(int)

	switch c.Variant {
	case Equals:
		return testInt == filterInt
	case DoesntEqual:
		return testInt != filterInt
	case GreaterThan:
		return testInt > filterInt
	case LessThan:
		return testInt < filterInt
	}

	return false
}

func (c Constraint) matchList(testValue int) bool {
	if c.malformed() {
		return false
	}
	contains := slices.Contains(c.Value.([]int), testValue)

	switch c.Variant {
	case IsOneOf:
		return contains
	case IsntOneOf:
		return !contains
	}

	return false
}

func (c Constraint) matchTime(testTime time.Time) bool {
	if c.malformed() {
		return false
	}
	filterTime := c.Value.(time.Time)

	return compareOrdered(c.Variant, testTime.Hour()*60+testTime.Minute(), filterTime.Hour()*60+filterTime.Minute())
}

func (c Constraint) matchDate(testDate time.Time) bool {
	if c.malformed() {
		return false
	}
	filterDate := c.Value.(time.Time)

	return compareOrdered(c.Variant, dayNumber(testDate), dayNumber(filterDate))
}

// matchVia checks the route stops first and falls back to the target when route data is
// missing or none of the stops match
func (c Constraint) matchVia(departure *timetable.DepartureInfo) bool {
	positive := c
	negate := false
	switch c.Variant {
	case DoesntContain:
		positive.Variant, negate = Contains, true
	case DoesntEqual:
		positive.Variant, negate = Equals, true
	case DoesntMatchRegExp:
		positive.Variant, negate = MatchesRegExp, true
	}

	matched := false
	for _, stop := range departure.RouteStops {
		if positive.matchString(stop) {
			matched = true
			break
		}
	}
	if !matched {
		matched = positive.matchString(departure.Target)
	}

	return matched != negate
}

func nextStop(departure *timetable.DepartureInfo) string {
	if len(departure.RouteStops) < 2 || departure.RouteExactStops == 1 {
		return departure.Target
	}

	if departure.IsArrival {
		return departure.RouteStops[1]
	}
	return departure.RouteStops[len(departure.RouteStops)-2]
}

func compareOrdered(variant Variant, test int, filter int) bool {
	switch variant {
	case Equals:
		return test == filter
	case DoesntEqual:
		return test != filter
	case GreaterThan:
		return test > filter
	case LessThan:
		return test < filter
	}

	return false
}

func dayNumber(date time.Time) int {
	return date.Year()*10000 + int(date.Month())*100 + date.Day()
}

// isoWeekday numbers Monday as 1 and Sunday as 7
func isoWeekday(weekday time.Weekday) int {
	if weekday == time.Sunday {
		return 7
	}
	return int(weekday)
}

func compileCaseInsensitive(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

func (c Constraint) String() string {
	switch value := c.Value.(type) {
	case time.Time:
		if c.Type == ByDepartureDate {
			return fmt.Sprintf("%s %s %s", c.Type, c.Variant, value.Format(time.DateOnly))
		}
		return fmt.Sprintf("%s %s %s", c.Type, c.Variant, value.Format("15:04"))
	case []int:
		if c.Type == ByVehicleType {
			names := make([]string, len(value))
			for i, vehicleType := range value {
				names[i] = timetable.VehicleType(vehicleType).String()
			}
			return fmt.Sprintf("%s %s [%s]", c.Type, c.Variant, strings.Join(names, ", "))
		}
	}

	return fmt.Sprintf("%s %s %v", c.Type, c.Variant, c.Value)
}
