package accessor

import (
	"context"
	"time"

	"github.com/publictransport/timetables/pkg/accessorinfo"
	"github.com/publictransport/timetables/pkg/extraction"
	"github.com/publictransport/timetables/pkg/timetable"
)

// XMLStrategy reads HAFAS style XML departure documents. Journeys and stop suggestions come as
// HTML and use the regular expressions of the definition.
type XMLStrategy struct {
	*RegexStrategy
}

func NewXMLStrategy(info *accessorinfo.AccessorInfo) *XMLStrategy {
	return &XMLStrategy{RegexStrategy: NewRegexStrategy(info)}
}

func (s *XMLStrategy) ParseDocument(_ context.Context, document []byte, request Request, now time.Time) ([]*timetable.DepartureInfo, error) {
	datas, err := extraction.ParseXMLDepartures(document, now)
	if err != nil {
		return nil, err
	}

	for _, data := range datas {
		extraction.CalculateMissingValues(data, extraction.InferNothing, now)
	}

	return extraction.BuildDepartures(datas, s.Info.DefaultVehicleType, isArrivals(request), now), nil
}
