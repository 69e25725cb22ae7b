package main

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Metrics is the confusion matrix of a replay.
type Metrics struct {
	mu sync.Mutex

	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int

	Errors  int
	Latency time.Duration
}

// Record adds one scored row.
func (m *Metrics) Record(predicted, actual bool, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Latency += elapsed
	switch {
	case predicted && actual:
		m.TruePositives++
	case predicted && !actual:
		m.FalsePositives++
	case !predicted && !actual:
		m.TrueNegatives++
	default:
		m.FalseNegatives++
	}
}

// RecordError counts a row that could not be scored.
func (m *Metrics) RecordError(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors++
	m.Latency += elapsed
}

// Total is the number of scored rows.
func (m *Metrics) Total() int {
	return m.TruePositives + m.FalsePositives + m.TrueNegatives + m.FalseNegatives
}

// Precision is TP / (TP + FP), zero without positive predictions.
func (m *Metrics) Precision() float64 {
	return ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
}

// Recall is TP / (TP + FN), zero without positive labels.
func (m *Metrics) Recall() float64 {
	return ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
}

// F1 is the harmonic mean of precision and recall.
func (m *Metrics) F1() float64 {
	p, r := m.Precision(), m.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Accuracy is the share of correct predictions.
func (m *Metrics) Accuracy() float64 {
	return ratio(m.TruePositives+m.TrueNegatives, m.Total())
}

// Print writes the replay report.
func (m *Metrics) Print(w io.Writer, duration time.Duration) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "REPLAY RESULTS")
	fmt.Fprintf(w, "   Scored:  %d\n", m.Total())
	fmt.Fprintf(w, "   Errors:  %d\n", m.Errors)

	fmt.Fprintln(w, "\nCONFUSION MATRIX")
	fmt.Fprintln(w, "                      Predicted")
	fmt.Fprintln(w, "                  positive  negative")
	fmt.Fprintf(w, "   Diagnosed      %8d  %8d   (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Fprintf(w, "   Not diagnosed  %8d  %8d   (FP, TN)\n", m.FalsePositives, m.TrueNegatives)

	fmt.Fprintln(w, "\nMETRICS")
	fmt.Fprintf(w, "   Precision:  %.4f\n", m.Precision())
	fmt.Fprintf(w, "   Recall:     %.4f\n", m.Recall())
	fmt.Fprintf(w, "   F1-Score:   %.4f\n", m.F1())
	fmt.Fprintf(w, "   Accuracy:   %.4f\n", m.Accuracy())

	fmt.Fprintln(w, "\nPERFORMANCE")
	fmt.Fprintf(w, "   Duration:     %v\n", duration.Round(time.Millisecond))
	if n := m.Total() + m.Errors; n > 0 {
		fmt.Fprintf(w, "   Avg latency:  %v\n", (m.Latency / time.Duration(n)).Round(time.Microsecond))
		fmt.Fprintf(w, "   Throughput:   %.2f rows/sec\n", float64(n)/duration.Seconds())
	}
	fmt.Fprintln(w)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
