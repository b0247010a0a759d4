package filter

import "strings"

// Type selects the departure property a constraint looks at
type Type int

const (
	ByVehicleType Type = iota
	ByTransportLine
	ByTransportLineNumber
	ByTarget
	ByDelay
	ByVia
	ByNextStop
	ByDepartureTime
	ByDepartureDate
	ByDayOfWeek
)

var typeNames = []string{
	"ByVehicleType", "ByTransportLine", "ByTransportLineNumber", "ByTarget", "ByDelay", "ByVia",
	"ByNextStop", "ByDepartureTime", "ByDepartureDate", "ByDayOfWeek",
}

// Variant is the comparison a constraint applies
type Variant int

const (
	Contains Variant = iota
	DoesntContain
	Equals
	DoesntEqual
	MatchesRegExp
	DoesntMatchRegExp
	IsOneOf
	IsntOneOf
	GreaterThan
	LessThan
)

var variantNames = []string{
	"Contains", "DoesntContain", "Equals", "DoesntEqual", "MatchesRegExp", "DoesntMatchRegExp",
	"IsOneOf", "IsntOneOf", "GreaterThan", "LessThan",
}

type Action int

const (
	ShowMatching Action = iota
	HideMatching
)

var actionNames = []string{"ShowMatching", "HideMatching"}

// ValueKind is the Go type a constraint value must have for a Type
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueInt
	ValueIntList
	ValueTimeOfDay
	ValueDate
)

func (t Type) ValueKind() ValueKind {
	switch t {
	case ByTransportLine, ByTarget, ByVia, ByNextStop:
		return ValueString
	case ByTransportLineNumber, ByDelay:
		return ValueInt
	case ByVehicleType, ByDayOfWeek:
		return ValueIntList
	case ByDepartureTime:
		return ValueTimeOfDay
	case ByDepartureDate:
		return ValueDate
	}

	return ValueString
}

// Variants lists the comparisons that make sense for a Type
func (t Type) Variants() []Variant {
	switch t.ValueKind() {
	case ValueString:
		return []Variant{Contains, DoesntContain, Equals, DoesntEqual, MatchesRegExp, DoesntMatchRegExp}
	case ValueIntList:
		return []Variant{IsOneOf, IsntOneOf}
	}

	return []Variant{Equals, DoesntEqual, GreaterThan, LessThan}
}

func (t Type) IsValid() bool {
	return t >= ByVehicleType && int(t) < len(typeNames)
}

func (t Type) String() string {
	if !t.IsValid() {
		return "Unknown"
	}
	return typeNames[t]
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	index, err := parseName("filter type", typeNames, string(text))
	*t = Type(index)
	return err
}

func (v Variant) IsValid() bool {
	return v >= Contains && int(v) < len(variantNames)
}

func (v Variant) String() string {
	if !v.IsValid() {
		return "Unknown"
	}
	return variantNames[v]
}

func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Variant) UnmarshalText(text []byte) error {
	index, err := parseName("filter variant", variantNames, string(text))
	*v = Variant(index)
	return err
}

func (a Action) String() string {
	if a != ShowMatching && a != HideMatching {
		return "Unknown"
	}
	return actionNames[a]
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	index, err := parseName("filter action", actionNames, string(text))
	*a = Action(index)
	return err
}

func parseName(what string, names []string, name string) (int, error) {
	trimmed := strings.TrimSpace(name)
	for index, candidate := range names {
		if strings.EqualFold(candidate, trimmed) || strings.EqualFold("Filter"+candidate, trimmed) {
			return index, nil
		}
	}

	return 0, &UnknownNameError{What: what, Name: name}
}

type UnknownNameError struct {
	What string
	Name string
}

func (e *UnknownNameError) Error() string {
	return "unknown " + e.What + " " + e.Name
}
