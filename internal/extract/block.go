package extract

import (
	"regexp"
	"strings"
)

const bulletGlyphs = `\-•*‣◦▪●·`

var (
	listMarker  = regexp.MustCompile(`^(?:[` + bulletGlyphs + `]\s+|\d+\.\s+)`)
	prefixNoise = regexp.MustCompile(`^\s*(?:[` + bulletGlyphs + `]\s*)?(?:\d+\.\s*)?[:\-–—\s]*`)
)

// StartsListItem reports whether a trimmed line opens a bulleted or numbered item.
func StartsListItem(line string) bool {
	return listMarker.MatchString(line)
}

// SplitBlocks groups section lines into entry blocks. A blank line closes the
// current block and a bullet or "N." line opens a new one; any other line
// continues the current block. Lines are trimmed and joined with "\n".
func SplitBlocks(section string) []string {
	var (
		blocks  []string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, raw := range strings.Split(section, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			flush()
		case StartsListItem(line):
			flush()
			current = []string{line}
		default:
			current = append(current, line)
		}
	}
	flush()
	return blocks
}

// CleanPrefix strips a leading bullet, "N." marker and separator characters.
func CleanPrefix(text string) string {
	return strings.TrimSpace(prefixNoise.ReplaceAllString(text, ""))
}
