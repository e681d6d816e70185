package transcoder

import (
	"regexp"
	"strconv"
	"time"
)

var (
	durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)
	timeRe     = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)
	sizeRe     = regexp.MustCompile(`size=\s*(\d+)kB`)
	bitrateRe  = regexp.MustCompile(`bitrate=\s*([\d.]+)kbits/s`)
)

// progressParser accumulates ffmpeg-style stderr lines into Progress
// snapshots, per spec.md §4.5: Duration captured once, then
// time=/size=/bitrate= tracked per line.
type progressParser struct {
	durationSeconds float64
	haveDuration    bool
	lastBytes       int64
}

func newProgressParser() *progressParser {
	return &progressParser{}
}

// feed parses one stderr line, returning a Progress snapshot when the
// line carried new time/size information.
func (p *progressParser) feed(line string, startedAt time.Time) (Progress, bool) {
	if !p.haveDuration {
		if m := durationRe.FindStringSubmatch(line); len(m) == 4 {
			p.durationSeconds = hmsToSeconds(m[1], m[2], m[3])
			p.haveDuration = true
		}
	}

	timeMatch := timeRe.FindStringSubmatch(line)
	sizeMatch := sizeRe.FindStringSubmatch(line)
	if timeMatch == nil && sizeMatch == nil {
		return Progress{}, false
	}

	elapsed := time.Since(startedAt).Seconds()

	var bytesWritten int64
	if sizeMatch != nil {
		kb, _ := strconv.ParseInt(sizeMatch[1], 10, 64)
		bytesWritten = kb * 1024
		p.lastBytes = bytesWritten
	} else {
		bytesWritten = p.lastBytes
	}

	var bitrateKbps float64
	if bm := bitrateRe.FindStringSubmatch(line); bm != nil {
		bitrateKbps, _ = strconv.ParseFloat(bm[1], 64)
	}

	var bps float64
	if elapsed > 0 {
		bps = float64(bytesWritten) / elapsed
	}

	out := Progress{
		ElapsedSeconds:  elapsed,
		BytesWritten:    bytesWritten,
		BitrateKbps:     bitrateKbps,
		BytesPerSecond:  bps,
		DurationSeconds: p.durationSeconds,
	}

	if timeMatch != nil {
		processedSeconds := hmsToSeconds(timeMatch[1], timeMatch[2], timeMatch[3])
		if p.haveDuration && p.durationSeconds > 0 {
			out.PercentKnown = true
			out.PercentIfKnown = clamp(processedSeconds / p.durationSeconds * 100)
			if processedSeconds > 0 && bps > 0 {
				remaining := p.durationSeconds - processedSeconds
				out.ETASeconds = int(remaining * (elapsed / processedSeconds))
			}
		}
	} else if bps > 0 && bytesWritten > 0 {
		// Size-only progress: estimate total from the observed
		// size/elapsed ratio against the known duration; without a
		// Duration line no percent is reported.
		if p.haveDuration && p.durationSeconds > 0 {
			estimatedTotal := bps * p.durationSeconds
			out.EstimatedTotalB = int64(estimatedTotal)
			out.PercentKnown = true
			out.PercentIfKnown = clamp(float64(bytesWritten) / estimatedTotal * 100)
			remaining := estimatedTotal - float64(bytesWritten)
			if remaining < 0 {
				remaining = 0
			}
			out.ETASeconds = int(remaining / bps)
		}
	}

	return out, true
}

func hmsToSeconds(h, m, s string) float64 {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.ParseFloat(s, 64)
	return float64(hh)*3600 + float64(mm)*60 + ss
}

func clamp(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
