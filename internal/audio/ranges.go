// Package audio computes which parts of a voice track to cut: filler words
// and long pauses found in a word-level transcript.
package audio

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Range is a half-open span in milliseconds.
type Range struct {
	Start int64
	End   int64
}

func (r Range) Len() int64 { return r.End - r.Start }

// Word is one timed token of a transcript, times in milliseconds.
type Word struct {
	Text  string `json:"text"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// MergeRanges clamps ranges to t >= 0, drops empty ones, sorts them and
// joins any that overlap or touch. The result is sorted and disjoint, so
// MergeRanges(MergeRanges(x)) == MergeRanges(x).
func MergeRanges(ranges []Range) []Range {
	clean := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		s := max(0, r.Start)
		e := max(s, r.End)
		if e > s {
			clean = append(clean, Range{s, e})
		}
	}
	if len(clean) == 0 {
		return nil
	}
	sort.Slice(clean, func(i, j int) bool { return clean[i].Start < clean[j].Start })

	merged := []Range{clean[0]}
	for _, r := range clean[1:] {
		cur := &merged[len(merged)-1]
		if r.Start <= cur.End {
			cur.End = max(cur.End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// BuildReductionRanges marks every filler word and every silence of at
// least pauseGap ms between consecutive words. pauseGap 0 disables pause
// detection.
func BuildReductionRanges(words []Word, fillers []string, pauseGap int64) []Range {
	lookup := make(map[string]bool, len(fillers))
	for _, f := range fillers {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			lookup[f] = true
		}
	}

	var ranges []Range
	var prevEnd int64
	for i, w := range words {
		end := w.End
		if end == 0 {
			end = w.Start
		}
		if lookup[strings.ToLower(strings.TrimSpace(w.Text))] {
			ranges = append(ranges, Range{w.Start, end})
		}
		if i > 0 && pauseGap > 0 && w.Start-prevEnd >= pauseGap {
			ranges = append(ranges, Range{prevEnd, w.Start})
		}
		prevEnd = end
	}
	return MergeRanges(ranges)
}

// StripPlan returns the spans of a total ms long track that survive cutting
// ranges, and their summed length. When less than floor ms would remain the
// cut is abandoned and the whole track is kept.
func StripPlan(total int64, ranges []Range, floor int64) ([]Range, int64) {
	whole := []Range{{0, total}}
	if total <= 0 {
		return nil, 0
	}
	var keep []Range
	var kept, cursor int64
	for _, r := range MergeRanges(ranges) {
		s := min(r.Start, total)
		e := max(s, min(r.End, total))
		if s > cursor {
			keep = append(keep, Range{cursor, s})
			kept += s - cursor
		}
		cursor = max(cursor, e)
	}
	if cursor < total {
		keep = append(keep, Range{cursor, total})
		kept += total - cursor
	}
	if kept < floor {
		return whole, total
	}
	return keep, kept
}

// KeepFilter renders keep as an ffmpeg audio filter that drops everything
// else and closes the gaps. It returns "" when nothing is cut.
func KeepFilter(keep []Range, total int64) string {
	if len(keep) == 0 || (len(keep) == 1 && keep[0].Start <= 0 && keep[0].End >= total) {
		return ""
	}
	parts := make([]string, len(keep))
	for i, r := range keep {
		parts[i] = fmt.Sprintf("between(t,%s,%s)", seconds(r.Start), seconds(r.End))
	}
	return fmt.Sprintf("aselect='%s',asetpts=N/SR/TB", strings.Join(parts, "+"))
}

// Enhancements names the processing steps applied, for the response header.
func Enhancements(trimmed bool) []string {
	steps := []string{"rnnoise-denoise", "loudnorm"}
	if trimmed {
		steps = append(steps, "filler-trim")
	}
	return steps
}

func seconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', -1, 64)
}
