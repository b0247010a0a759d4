package timetable

// StopInfo is a stop suggestion for a partially typed stop name
type StopInfo struct {
	Name        string `groups:"basic,detailed"`
	ID          string `groups:"basic,detailed"`
	City        string `groups:"detailed"`
	CountryCode string `groups:"detailed"`
	Weight      int    `groups:"basic,detailed"`

	HasLocation bool    `groups:"detailed"`
	Latitude    float64 `groups:"detailed"`
	Longitude   float64 `groups:"detailed"`
}

func NewStopInfo(data *TimetableData) *StopInfo {
	stopInfo := &StopInfo{
		Name:        data.String(StopName),
		ID:          data.String(StopID),
		City:        data.String(StopCity),
		CountryCode: data.String(StopCountryCode),
		Weight:      data.IntOr(StopWeight, -1),
	}

	latitude, hasLatitude := data.Float(StopLatitude)
	longitude, hasLongitude := data.Float(StopLongitude)
	if hasLatitude && hasLongitude {
		stopInfo.HasLocation = true
		stopInfo.Latitude = latitude
		stopInfo.Longitude = longitude
	}

	return stopInfo
}

func (s *StopInfo) IsValid() bool {
	return s.Name != ""
}
