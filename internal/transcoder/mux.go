package transcoder

import "fmt"

// AudioInput describes one audio track to mux, in selection order.
type AudioInput struct {
	Path     string
	Language string
	Title    string
	Default  bool
}

// SubtitleInput describes one subtitle track to mux.
type SubtitleInput struct {
	Path     string
	Language string
	Title    string
	Default  bool
}

// MuxParams is the input to BuildMuxArgs, grounded on spec.md §4.7's
// mux argv construction step: copy codecs, per-track language
// metadata, disposition default on the first separate audio/subtitle.
type MuxParams struct {
	VideoPath  string
	Audios     []AudioInput
	Subtitles  []SubtitleInput
	OutputPath string
}

// BuildMuxArgs constructs the ffmpeg argv to remux a video track with
// N audio and M subtitle tracks into one container, copying all
// codecs (no re-encode) and tagging each stream's language metadata,
// following the structured-argv style of eleven-am/goshl's
// ffmpeg.CommandBuilder. When no separate audio input is supplied,
// the video's own embedded audio stream is mapped optionally
// (`0:a?`) per spec.md §4.7 step 5.
func BuildMuxArgs(p MuxParams) []string {
	args := []string{"-nostats", "-hide_banner", "-loglevel", "warning", "-y"}

	args = append(args, "-i", p.VideoPath)
	for _, a := range p.Audios {
		args = append(args, "-i", a.Path)
	}
	for _, s := range p.Subtitles {
		args = append(args, "-i", s.Path)
	}

	args = append(args, "-map", "0:v:0")
	if len(p.Audios) == 0 {
		args = append(args, "-map", "0:a?")
	} else {
		for i := range p.Audios {
			args = append(args, "-map", fmt.Sprintf("%d:a:0", i+1))
		}
	}
	subtitleInputOffset := 1 + len(p.Audios)
	for i := range p.Subtitles {
		args = append(args, "-map", fmt.Sprintf("%d:s:0", subtitleInputOffset+i))
	}

	args = append(args, "-c:v", "copy", "-c:a", "copy")
	if len(p.Subtitles) > 0 {
		args = append(args, "-c:s", "mov_text")
	}

	for i, a := range p.Audios {
		args = append(args, fmt.Sprintf("-metadata:s:a:%d", i), "language="+a.Language)
		if a.Title != "" {
			args = append(args, fmt.Sprintf("-metadata:s:a:%d", i), "title="+a.Title)
		}
		if a.Default {
			args = append(args, fmt.Sprintf("-disposition:a:%d", i), "default")
		} else {
			args = append(args, fmt.Sprintf("-disposition:a:%d", i), "0")
		}
	}
	for i, s := range p.Subtitles {
		args = append(args, fmt.Sprintf("-metadata:s:s:%d", i), "language="+s.Language)
		if s.Title != "" {
			args = append(args, fmt.Sprintf("-metadata:s:s:%d", i), "title="+s.Title)
		}
		if s.Default {
			args = append(args, fmt.Sprintf("-disposition:s:%d", i), "default")
		} else {
			args = append(args, fmt.Sprintf("-disposition:s:%d", i), "0")
		}
	}

	args = append(args, p.OutputPath)
	return args
}
