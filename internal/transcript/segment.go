package transcript

// DefaultSpeaker labels segments the backend returned without a speaker.
const DefaultSpeaker = "Speaker 1"

// Segment is one timestamped line of transcript. Start and End are
// seconds from the beginning of the video and come from the backend;
// edits only ever touch Text.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// Normalize fills in the default speaker label on segments that arrived
// without one. It returns its argument for chaining into a store load.
func Normalize(segments []Segment) []Segment {
	for i := range segments {
		if segments[i].Speaker == "" {
			segments[i].Speaker = DefaultSpeaker
		}
	}
	return segments
}
