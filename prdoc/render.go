package prdoc

import (
	"sort"
	"strings"
)

// Hyperlinks returns the paragraph's link-text → URL map. When two
// hyperlinks carry identical text the later one wins; that collapse is an
// accepted limitation of the text-keyed model, not a bug.
func Hyperlinks(p *Paragraph) HyperlinkMap {
	if len(p.Links) == 0 {
		return nil
	}
	links := make(HyperlinkMap, len(p.Links))
	for _, l := range p.Links {
		if l.Text != "" {
			links[l.Text] = l.URL
		}
	}
	return links
}

// dedupedLinks returns one entry per distinct link text in first-appearance
// order, carrying the same last-seen URL as Hyperlinks. Scans that depend on
// document order (product-link detection) use this instead of the map.
func dedupedLinks(p *Paragraph) []Hyperlink {
	var out []Hyperlink
	seen := map[string]int{}
	for _, l := range p.Links {
		if l.Text == "" {
			continue
		}
		if i, ok := seen[l.Text]; ok {
			out[i].URL = l.URL
			continue
		}
		seen[l.Text] = len(out)
		out = append(out, l)
	}
	return out
}

// stripQuery drops everything from the first '?' on; tracking parameters
// are never published.
func stripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

// RenderParagraph converts a paragraph into an HTML fragment: the plain
// text with each hyperlink's first text occurrence replaced by an anchor
// tag. With splice false (or no links) the plain text is returned as is.
//
// Anchor positions are located against the original text, then spliced
// highest offset first so earlier offsets stay valid while the working
// string grows. Candidates whose range overlaps an already claimed range
// are dropped. A left-to-right replace pass would shift every later
// offset; keep the reverse order.
func RenderParagraph(p *Paragraph, links HyperlinkMap, splice bool) string {
	text := p.Text
	if !splice || len(links) == 0 {
		return text
	}

	type candidate struct {
		pos, length int
		text, url   string
	}
	var cands []candidate
	for linkText, url := range links {
		if pos := strings.Index(text, linkText); pos >= 0 {
			cands = append(cands, candidate{pos: pos, length: len(linkText), text: linkText, url: url})
		}
	}
	// Descending position, then descending length. Distinct link texts can
	// never tie on both, so the order is deterministic despite map iteration.
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].pos != cands[j].pos {
			return cands[i].pos > cands[j].pos
		}
		return cands[i].length > cands[j].length
	})

	type span struct{ start, end int }
	var claimed []span
	out := text
	for _, c := range cands {
		overlaps := false
		for _, s := range claimed {
			if !(c.pos+c.length <= s.start || c.pos >= s.end) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		anchor := `<a href="` + stripQuery(c.url) + `" target="_blank">` + c.text + `</a>`
		out = out[:c.pos] + anchor + out[c.pos+c.length:]
		claimed = append(claimed, span{start: c.pos, end: c.pos + c.length})
	}
	return out
}
