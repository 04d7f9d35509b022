package features

import (
	"math"

	"SignalDesk/internal/domain/models"

	"github.com/montanaflynn/stats"
)

// DefaultRSIPeriod is the classic Wilder look-back.
const DefaultRSIPeriod = 14

// Config tunes the indicator engine.
type Config struct {
	RSIPeriod int
	// SaturateZeroLoss maps avgLoss == 0 (with some gain) to RSI 100 instead of a missing value.
	SaturateZeroLoss bool
}

// DefaultConfig returns RSI(14) with zero-loss saturation. Without saturation a
// strictly rising window has no RSI, so a steadily rising series drops every
// row and can never be analyzed.
func DefaultConfig() Config {
	return Config{RSIPeriod: DefaultRSIPeriod, SaturateZeroLoss: true}
}

// Missing is the marker for an undefined feature value.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is undefined.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Compute derives one FeatureRow per bar. It never fails: values that cannot be
// computed (first bar, zero prior volume, short RSI window) are left missing.
func Compute(series models.PriceSeries, cfg Config) []models.FeatureRow {
	bars := series.Bars
	rows := make([]models.FeatureRow, len(bars))
	rsi := RSI(series.Closes(), cfg.RSIPeriod, cfg.SaturateZeroLoss)
	for i, b := range bars {
		row := models.FeatureRow{
			Index:        i,
			Date:         b.Date,
			Close:        b.Close,
			Return:       Missing(),
			VolumeChange: Missing(),
			RSI:          rsi[i],
		}
		if i > 0 {
			row.Return = pctChange(bars[i-1].Close, b.Close)
			row.VolumeChange = pctChange(bars[i-1].Volume, b.Volume)
		}
		rows[i] = row
	}
	return rows
}

// DropIncomplete keeps only rows whose features for fs are all defined.
func DropIncomplete(rows []models.FeatureRow, fs models.FeatureSet) []models.FeatureRow {
	out := make([]models.FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.Complete(fs) {
			out = append(out, r)
		}
	}
	return out
}

// RSI returns the relative strength index per close using simple trailing means
// of gains and losses over period deltas. Entries before index period are missing.
func RSI(closes []float64, period int, saturateZeroLoss bool) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = Missing()
	}
	if period <= 0 || len(closes) <= period {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}

	for i := period; i < len(closes); i++ {
		avgGain, err := stats.Mean(gains[i-period+1 : i+1])
		if err != nil {
			continue
		}
		avgLoss, err := stats.Mean(losses[i-period+1 : i+1])
		if err != nil {
			continue
		}
		out[i] = rsiValue(avgGain, avgLoss, saturateZeroLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64, saturateZeroLoss bool) float64 {
	if avgLoss == 0 {
		if avgGain > 0 && saturateZeroLoss {
			return 100
		}
		return Missing()
	}
	v := 100 - 100/(1+avgGain/avgLoss)
	return math.Max(0, math.Min(100, v))
}

func pctChange(prev, cur float64) float64 {
	if prev == 0 || math.IsNaN(prev) || math.IsNaN(cur) {
		return Missing()
	}
	return (cur - prev) / prev
}
