package domain

// PlaylistKind tags whether an HlsPlaylist is a master (variant/track
// index) or a media (segment list) playlist.
type PlaylistKind string

const (
	PlaylistMaster PlaylistKind = "master"
	PlaylistMedia  PlaylistKind = "media"
)

// EncryptionMethod is the HLS #EXT-X-KEY METHOD value.
type EncryptionMethod string

const (
	EncryptionNone   EncryptionMethod = "NONE"
	EncryptionAES128 EncryptionMethod = "AES-128"
	// EncryptionOther covers any METHOD value the parser recognizes
	// syntactically but this engine cannot decrypt (spec.md §4.1).
	EncryptionOther EncryptionMethod = "OTHER"
)

// VideoVariant is one quality rendition listed in a master playlist.
type VideoVariant struct {
	Bandwidth  int
	Width      int
	Height     int
	Resolution string // raw "WxH" as it appeared in the tag
	URL        string
}

// AudioTrack is one #EXT-X-MEDIA:TYPE=AUDIO alternative.
type AudioTrack struct {
	GroupID  string
	Language string
	Name     string
	URL      string
}

// SubtitleTrack is one #EXT-X-MEDIA:TYPE=SUBTITLES alternative.
type SubtitleTrack struct {
	GroupID  string
	Language string
	Name     string
	URL      string
}

// EncryptionInfo describes the #EXT-X-KEY in effect for a media
// playlist's segments.
type EncryptionInfo struct {
	Method EncryptionMethod
	KeyURL string
	IV     []byte // 16 bytes when explicitly present, nil otherwise
}

// Playlist is the tagged Master/Media union described by spec.md §3.
// Exactly one of the Master* or Media* field groups is meaningful,
// selected by Kind.
type Playlist struct {
	Kind PlaylistKind

	// Master fields.
	Variants  []VideoVariant
	Audios    []AudioTrack
	Subtitles []SubtitleTrack

	// Media fields.
	Segments   []string
	Encryption *EncryptionInfo
}
