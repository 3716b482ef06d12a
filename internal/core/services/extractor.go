package services

import (
	"bufio"
	"bytes"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// frontMatterFence delimits the metadata block at the top of a document.
const frontMatterFence = "---"

// dateLayouts are the accepted textual formats for author-declared dates.
// MM/DD/YYYY is what the docs pipelines emit in ms.date; ISO dates appear
// in hand-edited files. Both normalise to the same date-only value.
var dateLayouts = []string{
	"01/02/2006",
	"2006-01-02",
}

// Extracted holds the structured fields parsed from an article.
// All fields are optional; absent fields are empty or nil.
type Extracted struct {
	Title         string
	Summary       string
	EffectiveDate *time.Time
}

// frontMatter is the subset of the metadata block the extractor reads.
type frontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	MSDate      string `yaml:"ms.date"`
	Date        string `yaml:"date"`
}

// ExtractArticle parses raw article bytes into structured fields.
// It parses a YAML front-matter block when present and falls back to the
// first heading and paragraph otherwise. It never fails: worst case all
// fields are absent and the caller derives a title from the filename.
func ExtractArticle(raw []byte) Extracted {
	var out Extracted

	body := raw
	if fm, rest, ok := splitFrontMatter(raw); ok {
		var meta frontMatter
		if err := yaml.Unmarshal(fm, &meta); err == nil {
			out.Title = strings.TrimSpace(meta.Title)
			out.Summary = strings.TrimSpace(meta.Description)
			out.EffectiveDate = parseDate(meta.MSDate)
			if out.EffectiveDate == nil {
				out.EffectiveDate = parseDate(meta.Date)
			}
		}
		body = rest
	}

	if out.Title == "" {
		out.Title = firstHeading(body)
	}
	if out.Summary == "" {
		out.Summary = firstParagraph(body)
	}

	return out
}

// TitleFromFilename derives a readable title from a file path, used when
// extraction yields nothing.
func TitleFromFilename(p string) string {
	base := path.Base(p)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}

// splitFrontMatter separates a leading front-matter block from the body.
// Returns ok=false when the document has no block.
func splitFrontMatter(raw []byte) (meta, body []byte, ok bool) {
	trimmed := bytes.TrimLeft(raw, "\uFEFF \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte(frontMatterFence)) {
		return nil, raw, false
	}

	rest := trimmed[len(frontMatterFence):]
	// The opening fence must be alone on its line.
	nl := bytes.IndexByte(rest, '\n')
	if nl == -1 || strings.TrimSpace(string(rest[:nl])) != "" {
		return nil, raw, false
	}
	rest = rest[nl+1:]

	end := findClosingFence(rest)
	if end.start == -1 {
		return nil, raw, false
	}

	meta = rest[:end.start]
	body = rest[end.next:]
	return meta, body, true
}

// fencePos locates a closing fence line within a byte slice.
type fencePos struct {
	start int // offset of the fence line
	next  int // offset just past the fence line
}

// findClosingFence scans for a line consisting of the fence marker.
func findClosingFence(b []byte) fencePos {
	offset := 0
	for offset <= len(b) {
		nl := bytes.IndexByte(b[offset:], '\n')
		var line []byte
		var next int
		if nl == -1 {
			line = b[offset:]
			next = len(b)
		} else {
			line = b[offset : offset+nl]
			next = offset + nl + 1
		}
		if strings.TrimSpace(string(line)) == frontMatterFence {
			return fencePos{start: offset, next: next}
		}
		if nl == -1 {
			break
		}
		offset = next
	}
	return fencePos{start: -1, next: -1}
}

// parseDate parses an author-declared date in any accepted format,
// normalised to a date-only UTC time. Unparseable input yields nil,
// never a fabricated date.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &day
		}
	}
	return nil
}

// firstHeading returns the text of the first markdown heading line.
func firstHeading(body []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return ""
}

// firstParagraph returns the first non-heading, non-empty text line.
func firstParagraph(body []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Skip markdown lines that are not prose.
		if strings.HasPrefix(line, "|") || strings.HasPrefix(line, "<") ||
			strings.HasPrefix(line, "[!") || strings.HasPrefix(line, "```") {
			continue
		}
		return line
	}
	return ""
}
