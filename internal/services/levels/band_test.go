package levels

import (
	"math/rand"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(n int, f func(i int) (low, high, close float64)) models.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.PriceBar, n)
	for i := range out {
		lo, hi, c := f(i)
		out[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: hi, Low: lo, Close: c, Volume: 1}
	}
	return models.NewPriceSeries("TEST", out)
}

func TestExtractTrailingWindow(t *testing.T) {
	s := bars(30, func(i int) (float64, float64, float64) {
		c := 100 + float64(i)
		return c - 1, c + 1, c
	})

	band, err := Extract(s, DefaultWindow)
	require.NoError(t, err)
	// bars 10..29: lows 109..128, highs 111..130
	assert.Equal(t, 109.0, band.Support)
	assert.Equal(t, 130.0, band.Resistance)
	assert.Equal(t, 20, band.Window)
}

func TestExtractShortSeries(t *testing.T) {
	s := bars(5, func(i int) (float64, float64, float64) { return 10, 12, 11 })
	band, err := Extract(s, DefaultWindow)
	require.NoError(t, err)
	assert.Equal(t, 5, band.Window)
	assert.Equal(t, 10.0, band.Support)
	assert.Equal(t, 12.0, band.Resistance)
}

func TestExtractEmpty(t *testing.T) {
	_, err := Extract(models.PriceSeries{Symbol: "TEST"}, DefaultWindow)
	assert.Error(t, err)
}

func TestSupportNotAboveResistance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		s := bars(10+rng.Intn(40), func(int) (float64, float64, float64) {
			// deliberately unordered low/high; normalization must fix them
			a, b := 50+rng.Float64()*50, 50+rng.Float64()*50
			return a, b, 50 + rng.Float64()*50
		})
		band, err := Extract(s, DefaultWindow)
		require.NoError(t, err)
		assert.LessOrEqual(t, band.Support, band.Resistance)
	}
}
