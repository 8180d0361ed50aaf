package export

import (
	"errors"
	"fmt"
	"strings"

	"videoscribe/internal/timecode"
	"videoscribe/internal/transcript"
)

// Format selects one of the supported transcript export formats.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatTXT Format = "txt"
)

// ErrUnknownFormat is returned when the requested format is not one of
// srt, vtt, or txt.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatSRT:
		return FormatSRT, nil
	case FormatVTT:
		return FormatVTT, nil
	case FormatTXT:
		return FormatTXT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Render serializes a transcript snapshot into the requested format and
// returns the content plus the suggested download filename.
//
// Segment text is written as-is: a literal newline inside a segment
// will break the SRT/VTT block structure. The backend does not produce
// such segments and the editor does not accept them.
func Render(segments []transcript.Segment, format Format) ([]byte, string, error) {
	var b strings.Builder

	switch format {
	case FormatTXT:
		for _, seg := range segments {
			fmt.Fprintf(&b, "[%s] %s: %s\n", timecode.Display(seg.Start), seg.Speaker, seg.Text)
		}
	case FormatSRT:
		for i, seg := range segments {
			fmt.Fprintf(&b, "%d\n", i+1)
			writeCue(&b, seg)
		}
	case FormatVTT:
		b.WriteString("WEBVTT\n\n")
		for _, seg := range segments {
			writeCue(&b, seg)
		}
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return []byte(b.String()), Filename(format), nil
}

// Filename returns the suggested download name for a format.
func Filename(format Format) string {
	return "transcript." + string(format)
}

func writeCue(b *strings.Builder, seg transcript.Segment) {
	fmt.Fprintf(b, "%s --> %s\n%s\n\n",
		timecode.SubtitleStamp(seg.Start),
		timecode.SubtitleStamp(seg.End),
		seg.Text,
	)
}
