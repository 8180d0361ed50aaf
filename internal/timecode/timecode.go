package timecode

import (
	"fmt"
	"math"
)

// Display formats a position in seconds as "MM:SS" for transcript lines.
// Non-finite or negative input yields the "00:00" sentinel instead of
// an error, since the value comes straight from backend JSON.
func Display(seconds float64) string {
	if !usable(seconds) {
		return "00:00"
	}

	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// SubtitleStamp formats a position in seconds as "HH:MM:SS,mmm", the
// timestamp form shared by SRT and VTT cues. The millisecond field is
// computed from the fractional part; transcription segments normally
// carry whole seconds, which renders as ",000".
// Non-finite or negative input yields "00:00:00,000".
func SubtitleStamp(seconds float64) string {
	if !usable(seconds) {
		return "00:00:00,000"
	}

	total := int(seconds)
	millis := int(math.Round((seconds - float64(total)) * 1000))
	if millis >= 1000 {
		total++
		millis -= 1000
	}

	return fmt.Sprintf("%02d:%02d:%02d,%03d", total/3600, total/60%60, total%60, millis)
}

func usable(seconds float64) bool {
	return !math.IsNaN(seconds) && !math.IsInf(seconds, 0) && seconds >= 0
}
