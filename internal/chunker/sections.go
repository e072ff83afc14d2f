package chunker

import (
	"regexp"
	"strings"
)

// SectionKind classifies a block of contract text.
type SectionKind string

const (
	KindHeading   SectionKind = "heading"
	KindParagraph SectionKind = "paragraph"
	KindList      SectionKind = "list"
	KindTable     SectionKind = "table"
)

// Section is a structurally classified block of text. Level is only
// meaningful for headings.
type Section struct {
	Kind    SectionKind
	Content string
	Level   int
}

var (
	numberedPrefixRe = regexp.MustCompile(`^\d+(\.\d+)*\.?\s`)
	outlineNumberRe  = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s`)
	romanPrefixRe    = regexp.MustCompile(`^[IVX]+\.?\s`)
	letterPrefixRe   = regexp.MustCompile(`^[A-Z]\.?\s`)
	headingWordRe    = regexp.MustCompile(`(?i)^(section|chapter|part|article|clause|schedule|appendix|exhibit)\s+\d+`)

	blankRunRe  = regexp.MustCompile(`\n{3,}`)
	hspaceRe    = regexp.MustCompile(`[ \t]+`)
	paraSplitRe = regexp.MustCompile(`\n\s*\n`)
	colSplitRe  = regexp.MustCompile(`\s{2,}|\t`)

	listItemRes = []*regexp.Regexp{
		regexp.MustCompile(`^\s*[-•*]\s`),
		regexp.MustCompile(`^\s*\d+\.\s`),
		regexp.MustCompile(`^\s*[a-z]\)\s`),
		regexp.MustCompile(`^\s*\([a-z]\)\s`),
	}
)

// ParseSections splits normalized text into classified sections. The heading
// check runs first: a short bulleted heading-like block would otherwise be
// swallowed by the list check.
func ParseSections(text string) []Section {
	normalized := normalize(text)

	var sections []Section
	for _, para := range paraSplitRe.Split(normalized, -1) {
		trimmed := strings.TrimSpace(para)
		if trimmed == "" {
			continue
		}
		switch {
		case isLikelyHeading(trimmed):
			sections = append(sections, Section{Kind: KindHeading, Content: trimmed, Level: headingLevel(trimmed)})
		case isLikelyList(trimmed):
			sections = append(sections, Section{Kind: KindList, Content: trimmed, Level: 1})
		case isLikelyTable(trimmed):
			sections = append(sections, Section{Kind: KindTable, Content: trimmed, Level: 1})
		default:
			sections = append(sections, Section{Kind: KindParagraph, Content: trimmed, Level: 1})
		}
	}
	return sections
}

// normalize unifies line endings, collapses blank-line runs to a single blank
// line and runs of horizontal whitespace to a single space.
func normalize(text string) string {
	s := strings.ReplaceAll(text, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	s = hspaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func isLikelyHeading(text string) bool {
	lines := strings.Split(text, "\n")
	if len(lines) > 3 {
		return false
	}
	first := strings.TrimSpace(lines[0])
	if first == "" {
		return false
	}
	return numberedPrefixRe.MatchString(first) ||
		romanPrefixRe.MatchString(first) ||
		letterPrefixRe.MatchString(first) ||
		(first == strings.ToUpper(first) && len(first) > 3 && len(first) < 100) ||
		headingWordRe.MatchString(first) ||
		(len(first) < 80 && strings.HasSuffix(first, ":")) ||
		(len(first) < 60 && len(lines) == 1)
}

// headingLevel derives the outline depth: "1.2.3" is level 3, roman numerals
// are level 1, single capital letters are level 2.
func headingLevel(heading string) int {
	first, _, _ := strings.Cut(heading, "\n")
	first = strings.TrimSpace(first)
	if m := outlineNumberRe.FindStringSubmatch(first); m != nil {
		return strings.Count(m[1], ".") + 1
	}
	if romanPrefixRe.MatchString(first) {
		return 1
	}
	if letterPrefixRe.MatchString(first) {
		return 2
	}
	return 1
}

func isLikelyList(text string) bool {
	lines := strings.Split(text, "\n")
	matches := 0
	for _, line := range lines {
		for _, re := range listItemRes {
			if re.MatchString(line) {
				matches++
				break
			}
		}
	}
	return float64(matches) > float64(len(lines))*0.5
}

func isLikelyTable(text string) bool {
	lines := strings.Split(text, "\n")
	multiCols := false
	nonBlank := 0
	for _, line := range lines {
		if len(colSplitRe.Split(line, -1)) >= 3 {
			multiCols = true
		}
		if strings.TrimSpace(line) != "" {
			nonBlank++
		}
	}
	return multiCols && nonBlank > 2
}
