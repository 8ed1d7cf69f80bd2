package prdoc

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// section is the extraction state: which part of the release the walker is
// currently inside. Transitions are monotonic; body text never resumes
// after an "About" or trademark block starts.
type section int

const (
	sectionBody section = iota
	sectionAbout
	sectionTrademarks
)

// canEnter reports whether moving to next is a legal transition. Legal
// moves are body→about, body→trademarks and about→trademarks; staying in
// the same state (a further "About" heading while in about) is always
// fine. Anything else, notably trademarks→about, is ignored.
func (s section) canEnter(next section) bool {
	switch {
	case s == next:
		return true
	case s == sectionBody:
		return next == sectionAbout || next == sectionTrademarks
	case s == sectionAbout:
		return next == sectionTrademarks
	default:
		return false
	}
}

var (
	months = "January|February|March|April|May|June|July|August|September|October|November|December"

	// dateRe matches a full calendar date at the start of a rendered body
	// paragraph, e.g. "January 19, 2026 – DALLAS, TX – ...".
	dateRe = regexp.MustCompile(`^((` + months + `)\s+\d{1,2},\s+\d{4})`)

	// monthPrefixRe spots dateline-shaped text so it is never mistaken for
	// a subheadline.
	monthPrefixRe = regexp.MustCompile(`^(` + months + `)\s+\d`)

	tagRe     = regexp.MustCompile(`<[^>]+>`)
	keywordRe = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9-]+\b`)
)

// outcome is what a matched classification rule does with its paragraph.
type outcome int

const (
	outcomeSkip        outcome = iota // consume, contribute nothing
	outcomeHeadline                   // capture headline if still unset, consume
	outcomeSubheadline                // capture subheadline, consume
	outcomeAbout                      // open an "About ..." section
	outcomeTrademarks                 // enter the trademark boilerplate tail
	outcomeContent                    // contribute to the current section
)

// rule is one ordered classification step over a trimmed paragraph.
type rule struct {
	name    string
	match   func(e *extractor, p *Paragraph, text string) bool
	outcome outcome
}

// extractRules is evaluated top to bottom per paragraph; the first match
// wins and a paragraph matching nothing contributes content to the current
// section. Order is significant: the closing marker beats everything,
// title styles beat the long-heading fallback, and subheadline capture
// runs before section starts.
var extractRules = []rule{
	{name: "closing-marker", outcome: outcomeSkip,
		match: func(_ *extractor, _ *Paragraph, text string) bool {
			return text == "– 30 –" || text == "- 30 -"
		}},
	{name: "announcement-banner", outcome: outcomeSkip,
		match: func(_ *extractor, p *Paragraph, text string) bool {
			return isTitleStyle(p.Style) && strings.Contains(text, "New Product Announcement")
		}},
	{name: "title-headline", outcome: outcomeHeadline,
		match: func(_ *extractor, p *Paragraph, _ string) bool {
			return isTitleStyle(p.Style)
		}},
	{name: "long-heading-headline", outcome: outcomeHeadline,
		match: func(e *extractor, p *Paragraph, text string) bool {
			return e.content.Headline == "" &&
				(styleIs(p.Style, "Title") || styleIs(p.Style, "Heading 1")) &&
				utf8.RuneCountInString(text) > 20 &&
				!strings.Contains(text, "New Product Announcement")
		}},
	{name: "subtitle-subheadline", outcome: outcomeSubheadline,
		match: func(e *extractor, p *Paragraph, _ string) bool {
			return e.subheadlineOpen() && styleIs(p.Style, "Subtitle")
		}},
	{name: "italic-subheadline", outcome: outcomeSubheadline,
		match: func(e *extractor, p *Paragraph, text string) bool {
			return e.subheadlineOpen() &&
				hasItalicRun(p) &&
				utf8.RuneCountInString(text) < 200 &&
				text != e.content.Headline &&
				!monthPrefixRe.MatchString(text)
		}},
	{name: "about-heading", outcome: outcomeAbout,
		match: func(_ *extractor, _ *Paragraph, text string) bool {
			return strings.HasPrefix(text, "About ")
		}},
	{name: "trademarks-heading", outcome: outcomeTrademarks,
		match: func(_ *extractor, p *Paragraph, text string) bool {
			return strings.Contains(text, "Trademarks") &&
				(styleIs(p.Style, "Heading 1") || strings.HasPrefix(text, "Trademarks"))
		}},
}

type extractor struct {
	content  Content
	state    section
	curAbout int            // index into content.AboutSections
	aboutIdx map[string]int // section title → index, for repeated titles
}

// Extract walks the document's paragraphs in order and assembles the
// content model. Processing is strictly sequential: headline, subheadline,
// date and product link are all first-match-wins, and section transitions
// depend on what has already been seen.
func Extract(doc *Document) *Content {
	e := &extractor{state: sectionBody, aboutIdx: map[string]int{}}
	for i := range doc.Paragraphs {
		e.paragraph(&doc.Paragraphs[i])
	}
	e.finish()
	return &e.content
}

func (e *extractor) paragraph(p *Paragraph) {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return
	}
	for _, r := range extractRules {
		if r.match(e, p, text) {
			e.apply(r.outcome, p, text)
			return
		}
	}
	e.apply(outcomeContent, p, text)
}

func (e *extractor) apply(o outcome, p *Paragraph, text string) {
	switch o {
	case outcomeSkip:

	case outcomeHeadline:
		if e.content.Headline == "" {
			e.content.Headline = text
		}

	case outcomeSubheadline:
		e.content.Subheadline = text

	case outcomeAbout:
		if !e.state.canEnter(sectionAbout) {
			return
		}
		e.state = sectionAbout
		if idx, ok := e.aboutIdx[text]; ok {
			// Repeated title restarts its section in place.
			e.content.AboutSections[idx].Paragraphs = nil
			e.curAbout = idx
			return
		}
		e.aboutIdx[text] = len(e.content.AboutSections)
		e.curAbout = len(e.content.AboutSections)
		e.content.AboutSections = append(e.content.AboutSections, AboutSection{Title: text})

	case outcomeTrademarks:
		if e.state.canEnter(sectionTrademarks) {
			e.state = sectionTrademarks
		}

	case outcomeContent:
		e.contribute(p)
	}
}

// contribute renders the paragraph into the current section. Body
// paragraphs additionally feed the date and product-link captures.
func (e *extractor) contribute(p *Paragraph) {
	if e.state == sectionTrademarks {
		return
	}
	html := RenderParagraph(p, Hyperlinks(p), true)
	if e.state == sectionAbout {
		s := &e.content.AboutSections[e.curAbout]
		s.Paragraphs = append(s.Paragraphs, html)
		return
	}

	if e.content.Date == "" {
		if m := dateRe.FindStringSubmatch(html); m != nil {
			e.content.Date = m[1]
		}
	}
	if e.content.ProductLink == "" {
		for _, l := range dedupedLinks(p) {
			if strings.Contains(l.URL, "mouser.com") && strings.Contains(l.URL, "/new/") {
				e.content.ProductLink = stripQuery(l.URL)
				break
			}
		}
	}
	e.content.BodyParagraphs = append(e.content.BodyParagraphs, html)
}

// subheadlineOpen reports whether the subheadline window is still open: a
// headline exists, nothing has claimed the subheadline, and no body or
// section content has been seen yet.
func (e *extractor) subheadlineOpen() bool {
	return e.state == sectionBody &&
		e.content.Headline != "" &&
		e.content.Subheadline == "" &&
		len(e.content.BodyParagraphs) == 0
}

func (e *extractor) finish() {
	c := &e.content
	if len(c.BodyParagraphs) > 0 {
		c.MetaDescription = metaDescription(c.BodyParagraphs[0])
	}
	c.MetaKeywords = metaKeywords(c.Headline)
}

// metaDescription strips markup from the first body paragraph and
// truncates to 160 characters at the last whole word.
func metaDescription(para string) string {
	text := tagRe.ReplaceAllString(para, "")
	runes := []rune(text)
	if len(runes) <= 160 {
		return text
	}
	cut := string(runes[:160])
	if i := strings.LastIndexByte(cut, ' '); i >= 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

// metaKeywords pulls up to ten capitalized tokens out of the headline,
// joined and lowercased for the keywords meta tag.
func metaKeywords(headline string) string {
	words := keywordRe.FindAllString(headline, -1)
	if len(words) > 10 {
		words = words[:10]
	}
	return strings.ToLower(strings.Join(words, ", "))
}

// styleIs matches a resolved style name against a target ignoring case and
// spaces: "Heading 1", "heading 1" and "Heading1" are the same style. Word
// stores built-in heading names lowercased; unstyled exports keep the raw
// style id.
func styleIs(style, target string) bool {
	return normalizeStyle(style) == normalizeStyle(target)
}

func normalizeStyle(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// isTitleStyle reports whether the style is one of the title-class styles
// that carry the release headline.
func isTitleStyle(style string) bool {
	return styleIs(style, "Title") || styleIs(style, "Title2")
}

// hasItalicRun reports whether any run with visible text is italic.
func hasItalicRun(p *Paragraph) bool {
	for _, r := range p.Runs {
		if r.Italic && strings.TrimSpace(r.Text) != "" {
			return true
		}
	}
	return false
}
