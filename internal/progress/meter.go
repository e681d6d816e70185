// Package progress implements the ProgressMeter and ProgressBus
// components (spec.md §4.4, §4.9), grounded on the teacher's
// aggregate progress computation in
// internal/downloader/downloader.go's downloadConcurrentWithProgress,
// ported from a Bubble Tea UI model to a headless meter.
package progress

import (
	"fmt"
	"time"
)

// FormatSpeed renders a bytes-per-second rate using the thresholds in
// spec.md §4.4: B/s, KB/s, MB/s, GB/s at powers of 10^3, with two
// decimal places above the B/s band.
func FormatSpeed(bytesPerSecond float64) string {
	switch {
	case bytesPerSecond >= 1e9:
		return fmt.Sprintf("%.2f GB/s", bytesPerSecond/1e9)
	case bytesPerSecond >= 1e6:
		return fmt.Sprintf("%.2f MB/s", bytesPerSecond/1e6)
	case bytesPerSecond >= 1e3:
		return fmt.Sprintf("%.2f KB/s", bytesPerSecond/1e3)
	default:
		return fmt.Sprintf("%.0f B/s", bytesPerSecond)
	}
}

// FormatPercent renders a percentage to one decimal place, clamped to
// [0, 100].
func FormatPercent(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// ClampPercent clamps a raw percentage to [0, 100] without the string
// formatting FormatPercent adds; callers that store Progress as a
// float64 use this.
func ClampPercent(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// FormatDuration renders a duration as "Xs", "Xm Ys" or "Xh Ym" per
// spec.md §4.4.
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	if total < 60 {
		return fmt.Sprintf("%ds", total)
	}
	if total < 3600 {
		m := total / 60
		s := total % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := total / 3600
	m := (total % 3600) / 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// Sample is one SubTask's current byte/rate state, used as input to
// Aggregate.
type Sample struct {
	DownloadedBytes int64
	TotalBytes      int64 // 0 means unknown
	BytesPerSecond  float64
	ETASeconds      int // 0 means unknown/not applicable
}

// Aggregate combines per-SubTask samples into a Task-level summary
// per spec.md §4.4: progress is the weighted mean by total_bytes
// (equal weight when a sample's total is unknown), downloaded/total
// are summed, speed is summed, and ETA is the max of the positive
// per-sample ETAs.
func Aggregate(samples []Sample) (progressPct float64, downloaded, total int64, bytesPerSecond float64, etaSeconds int) {
	if len(samples) == 0 {
		return 0, 0, 0, 0, 0
	}

	var weightedSum, weightTotal float64
	for _, s := range samples {
		downloaded += s.DownloadedBytes
		bytesPerSecond += s.BytesPerSecond

		var pct float64
		var weight float64
		if s.TotalBytes > 0 {
			pct = float64(s.DownloadedBytes) / float64(s.TotalBytes) * 100
			weight = float64(s.TotalBytes)
			total += s.TotalBytes
		} else {
			// Unknown total: the completion fraction is unknown, so
			// the sample counts as 0% with a weight of 1 (spec.md
			// §4.4's equal weight for unknown totals).
			if s.DownloadedBytes > 0 {
				pct = 0 // unknown total means unknown completion fraction
			}
			weight = 1
		}
		weightedSum += pct * weight
		weightTotal += weight

		if s.ETASeconds > etaSeconds {
			etaSeconds = s.ETASeconds
		}
	}

	if weightTotal > 0 {
		progressPct = weightedSum / weightTotal
	}
	progressPct = ClampPercent(progressPct)

	return progressPct, downloaded, total, bytesPerSecond, etaSeconds
}
