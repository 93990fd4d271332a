// Package indicator provides pure series transforms over bar history.
// Every function returns a series aligned with its input; positions where
// not enough history exists yet hold NaN and must be treated as undefined.
package indicator

import (
	"math"
	"time"

	"phoenix/internal/model"
)

// Defined reports whether an indicator value is usable.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// Closes extracts the close series from a bar sequence.
func Closes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA computes a simple moving average series.
func SMA(values []float64, length int) []float64 {
	out := nanSeries(len(values))
	if length <= 0 || len(values) < length {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= length {
			sum -= values[i-length]
		}
		if i >= length-1 {
			out[i] = sum / float64(length)
		}
	}
	return out
}

// EMA computes an exponential moving average series seeded with the SMA
// of the first length values.
func EMA(values []float64, length int) []float64 {
	out := nanSeries(len(values))
	if length <= 0 || len(values) < length {
		return out
	}
	sum := 0.0
	for i := 0; i < length; i++ {
		sum += values[i]
	}
	k := 2.0 / float64(length+1)
	e := sum / float64(length)
	out[length-1] = e
	for i := length; i < len(values); i++ {
		e = values[i]*k + e*(1-k)
		out[i] = e
	}
	return out
}

// RSI computes the relative strength index with Wilder smoothing.
func RSI(values []float64, length int) []float64 {
	out := nanSeries(len(values))
	if length <= 0 || len(values) < length+1 {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= length; i++ {
		diff := values[i] - values[i-1]
		if diff > 0 {
			avgGain += diff
		} else {
			avgLoss -= diff
		}
	}
	avgGain /= float64(length)
	avgLoss /= float64(length)
	out[length] = rsiValue(avgGain, avgLoss)
	for i := length + 1; i < len(values); i++ {
		diff := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = (avgGain*float64(length-1) + gain) / float64(length)
		avgLoss = (avgLoss*float64(length-1) + loss) / float64(length)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// TrueRange computes the true-range series; index 0 is the bar's own range.
func TrueRange(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			out[i] = b.High - b.Low
			continue
		}
		prevClose := bars[i-1].Close
		out[i] = math.Max(b.High-b.Low, math.Max(
			math.Abs(b.High-prevClose),
			math.Abs(b.Low-prevClose),
		))
	}
	return out
}

// ATR computes the average true range with Wilder smoothing.
func ATR(bars []model.Bar, length int) []float64 {
	out := nanSeries(len(bars))
	if length <= 0 || len(bars) < length+1 {
		return out
	}
	tr := TrueRange(bars)
	sum := 0.0
	for i := 1; i <= length; i++ {
		sum += tr[i]
	}
	atr := sum / float64(length)
	out[length] = atr
	for i := length + 1; i < len(bars); i++ {
		atr = (atr*float64(length-1) + tr[i]) / float64(length)
		out[i] = atr
	}
	return out
}

// ADX computes the average directional index (trend strength, 0-100).
// The first defined value appears after 2*length bars of history.
func ADX(bars []model.Bar, length int) []float64 {
	out := nanSeries(len(bars))
	n := len(bars)
	if length <= 0 || n < 2*length+1 {
		return out
	}
	tr := TrueRange(bars)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	var sTR, sPlus, sMinus float64
	for i := 1; i <= length; i++ {
		sTR += tr[i]
		sPlus += plusDM[i]
		sMinus += minusDM[i]
	}

	dx := nanSeries(n)
	dx[length] = dxValue(sPlus, sMinus, sTR)
	for i := length + 1; i < n; i++ {
		sTR = sTR - sTR/float64(length) + tr[i]
		sPlus = sPlus - sPlus/float64(length) + plusDM[i]
		sMinus = sMinus - sMinus/float64(length) + minusDM[i]
		dx[i] = dxValue(sPlus, sMinus, sTR)
	}

	sum := 0.0
	for i := length; i < 2*length; i++ {
		sum += dx[i]
	}
	adx := sum / float64(length)
	out[2*length-1] = adx
	for i := 2 * length; i < n; i++ {
		adx = (adx*float64(length-1) + dx[i]) / float64(length)
		out[i] = adx
	}
	return out
}

func dxValue(plus, minus, tr float64) float64 {
	if tr == 0 {
		return 0
	}
	diPlus := 100 * plus / tr
	diMinus := 100 * minus / tr
	total := diPlus + diMinus
	if total == 0 {
		return 0
	}
	return 100 * math.Abs(diPlus-diMinus) / total
}

// Bands holds Bollinger band series plus the normalized band width.
type Bands struct {
	Upper []float64
	Mid   []float64
	Lower []float64
	Width []float64
}

// Bollinger computes Bollinger bands over a close series.
func Bollinger(values []float64, length int, dev float64) Bands {
	n := len(values)
	b := Bands{
		Upper: nanSeries(n),
		Mid:   SMA(values, length),
		Lower: nanSeries(n),
		Width: nanSeries(n),
	}
	if length <= 0 || n < length {
		return b
	}
	for i := length - 1; i < n; i++ {
		mean := b.Mid[i]
		sum := 0.0
		for j := i - length + 1; j <= i; j++ {
			d := values[j] - mean
			sum += d * d
		}
		sd := math.Sqrt(sum / float64(length))
		b.Upper[i] = mean + dev*sd
		b.Lower[i] = mean - dev*sd
		if mean != 0 {
			b.Width[i] = (b.Upper[i] - b.Lower[i]) / mean
		}
	}
	return b
}

// RollingMin computes the minimum over a trailing window.
func RollingMin(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		m := math.Inf(1)
		defined := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				defined = false
				break
			}
			if values[j] < m {
				m = values[j]
			}
		}
		if defined {
			out[i] = m
		}
	}
	return out
}

// VolumeZScore computes the rolling z-score of volume over a window.
// A zero standard deviation yields 0, not NaN, once the window is full.
func VolumeZScore(bars []model.Bar, window int) []float64 {
	out := nanSeries(len(bars))
	if window <= 0 || len(bars) < window {
		return out
	}
	for i := window - 1; i < len(bars); i++ {
		mean := 0.0
		for j := i - window + 1; j <= i; j++ {
			mean += bars[j].Volume
		}
		mean /= float64(window)
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := bars[j].Volume - mean
			sum += d * d
		}
		sd := math.Sqrt(sum / float64(window))
		if sd == 0 {
			out[i] = 0
			continue
		}
		out[i] = (bars[i].Volume - mean) / sd
	}
	return out
}

// SessionVWAP computes a volume-weighted average price that re-anchors at
// each calendar-day boundary in the given location. Zero-volume prefixes
// stay undefined until the first traded bar of the day.
func SessionVWAP(bars []model.Bar, loc *time.Location) []float64 {
	out := nanSeries(len(bars))
	var day time.Time
	var cumPV, cumV float64
	for i, b := range bars {
		local := b.Time.In(loc)
		d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		if !d.Equal(day) {
			day = d
			cumPV, cumV = 0, 0
		}
		typical := (b.High + b.Low + b.Close) / 3
		cumPV += typical * b.Volume
		cumV += b.Volume
		if cumV > 0 {
			out[i] = cumPV / cumV
		}
	}
	return out
}

// Last returns the final value of a series, or NaN for an empty series.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
