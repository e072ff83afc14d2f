package chunker

import (
	"regexp"
	"strings"
)

// Config controls chunking behavior. Sizes are in characters.
type Config struct {
	ChunkSize int // Target chunk size.
	Overlap   int // Characters shared between consecutive chunks.
}

// DefaultConfig returns the analysis-window defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 4000,
		Overlap:   300,
	}
}

// RetrievalConfig returns the smaller window used for similarity retrieval.
func RetrievalConfig() Config {
	return Config{
		ChunkSize: 1500,
		Overlap:   200,
	}
}

// ChunkText splits text into bounded, overlapping chunks along semantic
// section boundaries. Text that already fits in one chunk is returned as-is
// without parsing. Boundaries are a pure function of the input and config:
// re-chunking identical input yields identical chunks.
//
// A config without a chunk size falls back to DefaultConfig. Overlap zero is
// valid and disables the carried tail; only negative overlap is coerced.
func ChunkText(text string, cfg Config) []string {
	if cfg.ChunkSize <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if len(text) <= cfg.ChunkSize {
		return []string{text}
	}
	return Assemble(ParseSections(text), cfg.ChunkSize, cfg.Overlap)
}

// Assemble greedily packs sections into chunks of at most chunkSize
// characters. When a chunk closes, the next one is seeded with an overlap
// tail of the previous chunk. A section larger than chunkSize is split on
// its own: the first fragment becomes the new accumulator and the rest are
// emitted immediately.
func Assemble(sections []Section, chunkSize, overlap int) []string {
	var chunks []string
	current := ""

	for _, sec := range sections {
		secLen := len(sec.Content)

		if len(current)+secLen > chunkSize && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			tail := overlapTail(current, overlap)
			if tail != "" {
				current = tail + "\n\n" + sec.Content
			} else {
				current = sec.Content
			}
		} else if current != "" {
			current = current + "\n\n" + sec.Content
		} else {
			current = sec.Content
		}

		if secLen > chunkSize {
			subs := splitOversize(sec.Content, chunkSize, overlap)
			if len(subs) > 0 {
				current = subs[0]
				chunks = append(chunks, subs[1:]...)
			}
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

var sentenceBoundaryRe = regexp.MustCompile(`[.!?]\s+[A-Z]`)

// overlapTail returns the suffix of a finished chunk that seeds the next one.
// It looks for a sentence boundary within the last 1.5x overlap characters so
// the carried context starts on a sentence; failing that it takes the last
// overlap characters verbatim.
func overlapTail(text string, overlap int) string {
	if len(text) <= overlap {
		return text
	}
	start := len(text) - overlap*3/2
	if start < 0 {
		start = 0
	}
	area := text[start:]
	if loc := sentenceBoundaryRe.FindStringIndex(area); loc != nil {
		return strings.TrimSpace(area[loc[0]+1:])
	}
	return text[len(text)-overlap:]
}

// splitOversize walks a section in chunkSize strides. At each boundary it
// searches overlap characters back and forward for a break point, preferring
// paragraph break, then line break, sentence end, comma; with no break point
// the cut is hard at exactly chunkSize. Fragment n+1 starts overlap
// characters before the end of fragment n.
func splitOversize(section string, chunkSize, overlap int) []string {
	var chunks []string
	start := 0
	for start < len(section) {
		end := start + chunkSize
		if end < len(section) {
			searchStart := start + chunkSize - overlap
			searchEnd := end + overlap
			if searchEnd > len(section) {
				searchEnd = len(section)
			}
			area := section[searchStart:searchEnd]
			for _, sep := range []string{"\n\n", "\n", ". ", ", "} {
				if idx := strings.LastIndex(area, sep); idx != -1 {
					end = searchStart + idx
					break
				}
			}
			if end <= start {
				end = start + chunkSize
			}
		} else {
			end = len(section)
		}

		if chunk := strings.TrimSpace(section[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// ToMarkdown normalizes line endings and blank runs, then prefixes every line
// that looks like a heading with '#' markers matching its level. Run upstream
// of chunking to sharpen the structural signal in extracted PDF text.
func ToMarkdown(text string) string {
	s := strings.ReplaceAll(text, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			out = append(out, "")
			continue
		}
		if isLikelyHeading(stripped) {
			out = append(out, strings.Repeat("#", headingLevel(stripped))+" "+stripped)
		} else {
			out = append(out, stripped)
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
