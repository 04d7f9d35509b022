package levels

import (
	"errors"
	"math"

	"SignalDesk/internal/domain/models"
)

// DefaultWindow is the trailing bar count for support/resistance.
const DefaultWindow = 20

var errEmptyWindow = errors.New("band: empty window")

// Extract reduces the trailing window of s to support = min(low) and
// resistance = max(high). The window is a suffix of the fetched series.
func Extract(s models.PriceSeries, window int) (models.Band, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	tail := s.Tail(window)
	if len(tail) == 0 {
		return models.Band{}, errEmptyWindow
	}

	support, resistance := math.Inf(1), math.Inf(-1)
	for _, b := range tail {
		support = math.Min(support, b.Low)
		resistance = math.Max(resistance, b.High)
	}
	return models.Band{Support: support, Resistance: resistance, Window: len(tail)}, nil
}
