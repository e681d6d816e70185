package transcoder

// BuildVideoConvertArgs constructs the ffmpeg argv for spec.md §4.6
// step 6's video conversion: copy-codec the fetched segment
// concatenation into an MP4 container, applying the AAC ADTS→ASC
// bitstream filter to the audio stream when one is present (a no-op
// stream specifier when the video has none).
func BuildVideoConvertArgs(inputPath, outputPath string) []string {
	return []string{
		"-nostats", "-hide_banner", "-loglevel", "warning", "-y",
		"-i", inputPath,
		"-c", "copy",
		"-bsf:a", "aac_adts_to_asc",
		outputPath,
	}
}

// BuildAudioConvertArgs constructs the ffmpeg argv for spec.md §4.6
// step 6's audio conversion: copy-codec into M4A, discarding any
// video stream.
func BuildAudioConvertArgs(inputPath, outputPath string) []string {
	return []string{
		"-nostats", "-hide_banner", "-loglevel", "warning", "-y",
		"-i", inputPath,
		"-vn",
		"-c", "copy",
		outputPath,
	}
}
