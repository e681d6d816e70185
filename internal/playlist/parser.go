// Package playlist implements the HlsPlaylistParser described by
// spec.md §4.1, grounded on the teacher's scan-and-classify parser in
// internal/downloader/hls/hls.go, generalized to extract audio and
// subtitle alternatives and explicit encryption metadata.
package playlist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/alvarorichard/vixstream/internal/domain"
)

// ErrorKind classifies a ParseError (spec.md §7 "Parse errors").
type ErrorKind string

const (
	ErrFetch              ErrorKind = "fetch"
	ErrClassify           ErrorKind = "classify"
	ErrMalformed          ErrorKind = "malformed"
	ErrUnknownEncryption  ErrorKind = "unknown_encryption"
)

// ParseError is the typed error this package returns.
type ParseError struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("playlist %s error for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	bandwidthRe = regexp.MustCompile(`BANDWIDTH=(\d+)`)
	resolutionRe = regexp.MustCompile(`RESOLUTION=(\d+)x(\d+)`)
)

// Parser fetches and parses HLS master/media playlists.
type Parser struct {
	Client *http.Client
}

// NewParser constructs a Parser using the given HTTP client. A nil
// client falls back to http.DefaultClient; callers that need the
// anti-bot transport described by spec.md §1 should inject their own
// client here.
func NewParser(client *http.Client) *Parser {
	if client == nil {
		client = http.DefaultClient
	}
	return &Parser{Client: client}
}

// Fetch downloads and parses the playlist at playlistURL, sending
// referer as the Referer header.
func (p *Parser) Fetch(ctx context.Context, playlistURL, referer string) (*domain.Playlist, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, nil)
	if err != nil {
		return nil, &ParseError{Kind: ErrFetch, URL: playlistURL, Err: err}
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", defaultUserAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, &ParseError{Kind: ErrFetch, URL: playlistURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &ParseError{Kind: ErrFetch, URL: playlistURL, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Kind: ErrFetch, URL: playlistURL, Err: err}
	}

	return ParseLines(lines, playlistURL)
}

// FetchKey downloads the AES-128 key referenced by an
// EncryptionInfo.KeyURL, the way the teacher's hls.go fetches the key
// file ahead of segment decryption.
func (p *Parser) FetchKey(ctx context.Context, keyURL, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, keyURL, nil)
	if err != nil {
		return nil, &ParseError{Kind: ErrFetch, URL: keyURL, Err: err}
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, &ParseError{Kind: ErrFetch, URL: keyURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &ParseError{Kind: ErrFetch, URL: keyURL, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	key := make([]byte, 16)
	n, err := io.ReadFull(resp.Body, key)
	if err != nil && n != 16 {
		return nil, &ParseError{Kind: ErrMalformed, URL: keyURL, Err: fmt.Errorf("expected 16-byte AES-128 key, got %d bytes: %w", n, err)}
	}
	return key, nil
}

// ParseLines classifies and parses already-fetched playlist text,
// split into lines. baseURL is used to resolve relative URIs.
func ParseLines(lines []string, baseURL string) (*domain.Playlist, error) {
	isMaster := false
	for _, l := range lines {
		if strings.HasPrefix(l, "#EXT-X-STREAM-INF:") || strings.HasPrefix(l, "#EXT-X-MEDIA:") {
			isMaster = true
			break
		}
	}

	if isMaster {
		return parseMaster(lines, baseURL)
	}

	hasSegmentTag := false
	for _, l := range lines {
		if strings.HasPrefix(l, "#EXTINF:") {
			hasSegmentTag = true
			break
		}
	}
	if !hasSegmentTag {
		return nil, &ParseError{Kind: ErrClassify, URL: baseURL, Err: fmt.Errorf("neither master nor media playlist tags found")}
	}

	return parseMedia(lines, baseURL)
}

func parseMaster(lines []string, baseURL string) (*domain.Playlist, error) {
	pl := &domain.Playlist{Kind: domain.PlaylistMaster}

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "#EXT-X-MEDIA:"):
			attrs := parseAttributes(strings.TrimPrefix(line, "#EXT-X-MEDIA:"))
			switch strings.ToUpper(attrs["TYPE"]) {
			case "AUDIO":
				pl.Audios = append(pl.Audios, domain.AudioTrack{
					GroupID:  attrs["GROUP-ID"],
					Language: attrs["LANGUAGE"],
					Name:     attrs["NAME"],
					URL:      resolveURI(attrs["URI"], baseURL),
				})
			case "SUBTITLES":
				pl.Subtitles = append(pl.Subtitles, domain.SubtitleTrack{
					GroupID:  attrs["GROUP-ID"],
					Language: attrs["LANGUAGE"],
					Name:     attrs["NAME"],
					URL:      resolveURI(attrs["URI"], baseURL),
				})
			}

		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			bandwidth := 0
			if m := bandwidthRe.FindStringSubmatch(line); len(m) > 1 {
				bandwidth, _ = strconv.Atoi(m[1])
			}
			width, height, resolution := 0, 0, ""
			if m := resolutionRe.FindStringSubmatch(line); len(m) > 2 {
				width, _ = strconv.Atoi(m[1])
				height, _ = strconv.Atoi(m[2])
				resolution = m[1] + "x" + m[2]
			}

			variantURL := nextURI(lines, i)
			if variantURL == "" {
				continue
			}
			pl.Variants = append(pl.Variants, domain.VideoVariant{
				Bandwidth:  bandwidth,
				Width:      width,
				Height:     height,
				Resolution: resolution,
				URL:        resolveURI(variantURL, baseURL),
			})
		}
	}

	if len(pl.Variants) == 0 {
		return nil, &ParseError{Kind: ErrMalformed, URL: baseURL, Err: fmt.Errorf("master playlist has no video variants")}
	}

	return pl, nil
}

func parseMedia(lines []string, baseURL string) (*domain.Playlist, error) {
	pl := &domain.Playlist{Kind: domain.PlaylistMedia}

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "#EXT-X-KEY:"):
			enc, err := parseEncryption(strings.TrimPrefix(line, "#EXT-X-KEY:"), baseURL)
			if err != nil {
				return nil, err
			}
			pl.Encryption = enc

		case strings.HasPrefix(line, "#EXTINF:"):
			segURL := nextURI(lines, i)
			if segURL == "" {
				continue
			}
			pl.Segments = append(pl.Segments, resolveURI(segURL, baseURL))
		}
	}

	if len(pl.Segments) == 0 {
		return nil, &ParseError{Kind: ErrMalformed, URL: baseURL, Err: fmt.Errorf("media playlist has no segments")}
	}

	return pl, nil
}

func parseEncryption(attrsRaw, baseURL string) (*domain.EncryptionInfo, error) {
	attrs := parseAttributes(attrsRaw)
	method := strings.ToUpper(attrs["METHOD"])

	switch method {
	case "NONE", "":
		return &domain.EncryptionInfo{Method: domain.EncryptionNone}, nil
	case "AES-128":
		info := &domain.EncryptionInfo{
			Method: domain.EncryptionAES128,
			KeyURL: resolveURI(attrs["URI"], baseURL),
		}
		if ivHex, ok := attrs["IV"]; ok && ivHex != "" {
			ivHex = strings.TrimPrefix(strings.TrimPrefix(ivHex, "0x"), "0X")
			iv, err := hexDecode(ivHex)
			if err != nil {
				return nil, &ParseError{Kind: ErrMalformed, URL: baseURL, Err: fmt.Errorf("invalid IV: %w", err)}
			}
			info.IV = iv
		}
		return info, nil
	default:
		// Parsed syntactically but decryption of any other method is a
		// fatal fetch error per spec.md §4.1.
		return &domain.EncryptionInfo{Method: domain.EncryptionOther, KeyURL: resolveURI(attrs["URI"], baseURL)}, nil
	}
}

// nextURI returns the next non-blank, non-comment line after index i,
// or "" if none exists.
func nextURI(lines []string, i int) string {
	for j := i + 1; j < len(lines); j++ {
		l := strings.TrimSpace(lines[j])
		if l == "" {
			continue
		}
		if strings.HasPrefix(l, "#") {
			return ""
		}
		return l
	}
	return ""
}

// resolveURI resolves uri against the directory portion of baseURL,
// per spec.md §4.1: relative, scheme-relative and path-absolute forms
// must all work.
func resolveURI(uri, baseURL string) string {
	if uri == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return uri
	}
	ref, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	return base.ResolveReference(ref).String()
}

// parseAttributes parses a comma-separated KEY=VALUE / KEY="VALUE"
// attribute list, the way #EXT-X-MEDIA and #EXT-X-KEY tags are
// formatted. Commas inside quoted values are respected.
func parseAttributes(s string) map[string]string {
	out := make(map[string]string)
	var key, val strings.Builder
	inQuotes := false
	readingKey := true

	flush := func() {
		k := strings.TrimSpace(key.String())
		if k != "" {
			out[strings.ToUpper(k)] = strings.Trim(val.String(), `"`)
		}
		key.Reset()
		val.Reset()
		readingKey = true
	}

	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			if readingKey {
				key.WriteRune(r)
			} else {
				val.WriteRune(r)
			}
		case r == '=' && readingKey && !inQuotes:
			readingKey = false
		case r == ',' && !inQuotes:
			flush()
		default:
			if readingKey {
				key.WriteRune(r)
			} else {
				val.WriteRune(r)
			}
		}
	}
	flush()

	// Strip stray quote characters accumulated from the quote toggle.
	for k, v := range out {
		out[k] = strings.Trim(v, `"`)
	}
	return out
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		b, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(b)
	}
	return out, nil
}
