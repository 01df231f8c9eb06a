// Package htmltext converts Zotero note and annotation HTML into plain
// markdown blocks suitable for appending to a Craft document.
package htmltext

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// citationSpanRe matches Zotero citation spans, which wrap a rendered
// citation in a span carrying machine-readable metadata. Only the rendered
// text is worth keeping.
var citationSpanRe = regexp.MustCompile(`(?s)<span[^>]*class="citation"[^>]*>(.*?)</span>`)

// tagRe strips any remaining markup in the fallback path.
var tagRe = regexp.MustCompile(`<[^>]*>`)

var converter = md.NewConverter("", true, nil)

// Blocks converts raw note HTML into block-level markdown strings, one per
// heading or paragraph. Headings keep their markdown prefix so the sink
// can render them as headings.
func Blocks(rawHTML string) []string {
	if strings.TrimSpace(rawHTML) == "" {
		return nil
	}

	cleaned := citationSpanRe.ReplaceAllString(rawHTML, "$1")

	text, err := converter.ConvertString(cleaned)
	if err != nil {
		// Best effort: fall back to bare tag stripping.
		text = tagRe.ReplaceAllString(cleaned, " ")
	}

	return splitBlocks(text)
}

// splitBlocks splits markdown into blocks on blank lines, dropping empties.
func splitBlocks(text string) []string {
	var blocks []string
	for _, chunk := range strings.Split(text, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		// A chunk may still hold single-newline separated lines; keep them
		// together as one block, normalized to single spaces.
		lines := strings.Split(chunk, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimSpace(line)
		}
		blocks = append(blocks, strings.Join(lines, " "))
	}
	return blocks
}
