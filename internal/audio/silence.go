package audio

import "math"

type SilenceMetrics struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// Measure computes RMS and peak levels over a decoded waveform.
func Measure(w Waveform) SilenceMetrics {
	if w.Empty() {
		return SilenceMetrics{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}
	}

	var peak float64
	var sumSquares float64
	for _, s := range w.Samples {
		v := float64(s) / 32768.0
		abs := math.Abs(v)
		if abs > peak {
			peak = abs
		}
		sumSquares += v * v
	}

	rms := math.Sqrt(sumSquares / float64(len(w.Samples)))
	return SilenceMetrics{
		RMSdBFS:  amplitudeToDBFS(rms),
		PeakdBFS: amplitudeToDBFS(peak),
		Samples:  int64(len(w.Samples)),
	}
}

// IsSilent reports whether the waveform is quiet enough to be treated as a
// speechless window. The peak gate sits 6 dB above the RMS threshold so a
// brief click does not count as speech on its own.
func IsSilent(w Waveform, thresholdDBFS float64) (bool, SilenceMetrics) {
	metrics := Measure(w)
	if metrics.Samples == 0 {
		return true, metrics
	}
	if math.IsInf(metrics.RMSdBFS, -1) && math.IsInf(metrics.PeakdBFS, -1) {
		return true, metrics
	}

	peakGate := thresholdDBFS + 6
	return metrics.RMSdBFS <= thresholdDBFS && metrics.PeakdBFS <= peakGate, metrics
}

// IsSilentWAV is the file-path convenience wrapper around IsSilent.
func IsSilentWAV(path string, thresholdDBFS float64) (bool, SilenceMetrics, error) {
	w, err := DecodeWAV(path)
	if err != nil {
		return false, SilenceMetrics{}, err
	}

	silent, metrics := IsSilent(w, thresholdDBFS)
	return silent, metrics, nil
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
