package prdoc

import (
	"strings"
	"testing"
)

func plain(style, text string) Paragraph {
	return Paragraph{Text: text, Style: style, Runs: []Run{{Text: text}}}
}

func italic(style, text string) Paragraph {
	return Paragraph{Text: text, Style: style, Runs: []Run{{Text: text, Italic: true}}}
}

func doc(paras ...Paragraph) *Document {
	return &Document{Paragraphs: paras}
}

func TestExtractHeadline(t *testing.T) {
	c := Extract(doc(
		plain("Title", "Mouser Ships New Widget Controller"),
		plain("Title", "A Second Title That Must Not Win"),
		plain("Normal", "Body paragraph follows."),
	))
	if c.Headline != "Mouser Ships New Widget Controller" {
		t.Errorf("headline = %q", c.Headline)
	}
	if len(c.BodyParagraphs) != 1 {
		t.Errorf("later title paragraphs must be consumed, body = %v", c.BodyParagraphs)
	}
}

func TestExtractHeadlineSkipsAnnouncementBanner(t *testing.T) {
	c := Extract(doc(
		plain("Title", "New Product Announcement"),
		plain("Title", "The Real Headline Arrives"),
	))
	if c.Headline != "The Real Headline Arrives" {
		t.Errorf("headline = %q", c.Headline)
	}
}

func TestExtractHeadlineFallback(t *testing.T) {
	// Short headings fall into body; the first long enough heading wins.
	c := Extract(doc(
		plain("Heading 1", "Overview"),
		plain("Heading 1", "Mouser Now Stocking the New Widget Controller"),
	))
	if c.Headline != "Mouser Now Stocking the New Widget Controller" {
		t.Errorf("headline = %q", c.Headline)
	}
	if len(c.BodyParagraphs) != 1 || c.BodyParagraphs[0] != "Overview" {
		t.Errorf("body = %v", c.BodyParagraphs)
	}
}

func TestExtractNoHeadline(t *testing.T) {
	c := Extract(doc(
		plain("Normal", "Just a plain paragraph."),
	))
	if c.Headline != "" {
		t.Errorf("headline should stay empty, got %q", c.Headline)
	}
	if c.MetaKeywords != "" {
		t.Errorf("keywords from empty headline should be empty, got %q", c.MetaKeywords)
	}
}

func TestExtractSubheadline(t *testing.T) {
	t.Run("subtitle style", func(t *testing.T) {
		c := Extract(doc(
			plain("Title", "Widget Launch"),
			plain("Subtitle", "The tagline under the title"),
		))
		if c.Subheadline != "The tagline under the title" {
			t.Errorf("subheadline = %q", c.Subheadline)
		}
	})

	t.Run("italic run", func(t *testing.T) {
		c := Extract(doc(
			plain("Title", "Widget Launch"),
			italic("Normal", "Smart control for dense designs"),
			plain("Normal", "Body text."),
		))
		if c.Subheadline != "Smart control for dense designs" {
			t.Errorf("subheadline = %q", c.Subheadline)
		}
		if len(c.BodyParagraphs) != 1 {
			t.Errorf("body = %v", c.BodyParagraphs)
		}
	})

	t.Run("window closes after body", func(t *testing.T) {
		c := Extract(doc(
			plain("Title", "Widget Launch"),
			plain("Normal", "Body text first."),
			italic("Normal", "Too late to be a subheadline"),
		))
		if c.Subheadline != "" {
			t.Errorf("subheadline = %q, want empty", c.Subheadline)
		}
		if len(c.BodyParagraphs) != 2 {
			t.Errorf("body = %v", c.BodyParagraphs)
		}
	})

	t.Run("dateline is not a subheadline", func(t *testing.T) {
		c := Extract(doc(
			plain("Title", "Widget Launch"),
			italic("Normal", "January 19, 2026 – DALLAS – Mouser announced a widget."),
		))
		if c.Subheadline != "" {
			t.Errorf("subheadline = %q, want empty", c.Subheadline)
		}
		// The dateline lands in body and feeds the date capture instead.
		if c.Date != "January 19, 2026" {
			t.Errorf("date = %q", c.Date)
		}
	})

	t.Run("italic headline echo is ignored", func(t *testing.T) {
		c := Extract(doc(
			plain("Title", "Widget Launch"),
			italic("Normal", "Widget Launch"),
		))
		if c.Subheadline != "" {
			t.Errorf("subheadline = %q, want empty", c.Subheadline)
		}
	})
}

func TestExtractClosingMarker(t *testing.T) {
	for _, marker := range []string{"– 30 –", "- 30 -"} {
		c := Extract(doc(
			plain("Normal", "Body text."),
			plain("Normal", marker),
		))
		if len(c.BodyParagraphs) != 1 {
			t.Errorf("marker %q leaked into body: %v", marker, c.BodyParagraphs)
		}
	}
}

func TestExtractAboutSections(t *testing.T) {
	c := Extract(doc(
		plain("Title", "Widget Launch"),
		plain("Normal", "Body paragraph."),
		plain("Heading 1", "About Mouser Electronics"),
		plain("Normal", "Mouser is a distributor."),
		plain("Normal", "It stocks many parts."),
		plain("Heading 1", "About Widget Corp"),
		plain("Normal", "Widget Corp makes widgets."),
	))
	if len(c.AboutSections) != 2 {
		t.Fatalf("expected 2 about sections, got %d", len(c.AboutSections))
	}
	if c.AboutSections[0].Title != "About Mouser Electronics" {
		t.Errorf("section 0 title = %q", c.AboutSections[0].Title)
	}
	if len(c.AboutSections[0].Paragraphs) != 2 {
		t.Errorf("section 0 paragraphs = %v", c.AboutSections[0].Paragraphs)
	}
	if c.AboutSections[1].Title != "About Widget Corp" {
		t.Errorf("section 1 title = %q", c.AboutSections[1].Title)
	}
	if len(c.BodyParagraphs) != 1 {
		t.Errorf("body = %v", c.BodyParagraphs)
	}
}

func TestExtractMonotonicSections(t *testing.T) {
	// Once about starts, nothing returns to body, whatever the styling.
	c := Extract(doc(
		plain("Title", "Widget Launch Headline Text"),
		plain("Normal", "Body paragraph."),
		plain("Heading 1", "About Mouser"),
		plain("Normal", "About text one."),
		plain("Heading 1", "Pricing and Availability"),
		plain("Normal", "Still inside the about section."),
	))
	if len(c.BodyParagraphs) != 1 {
		t.Fatalf("body must not grow after about starts: %v", c.BodyParagraphs)
	}
	if got := len(c.AboutSections[0].Paragraphs); got != 3 {
		t.Errorf("about paragraphs = %d, want 3", got)
	}
}

func TestExtractTrademarks(t *testing.T) {
	c := Extract(doc(
		plain("Normal", "Body paragraph."),
		plain("Heading 1", "Trademarks"),
		plain("Normal", "All trademarks are property of their owners."),
	))
	if len(c.BodyParagraphs) != 1 {
		t.Errorf("body = %v", c.BodyParagraphs)
	}
	if len(c.AboutSections) != 0 {
		t.Errorf("about sections = %v", c.AboutSections)
	}
}

func TestExtractTrademarksByPrefix(t *testing.T) {
	c := Extract(doc(
		plain("Normal", "Body paragraph."),
		plain("Normal", "Trademarks mentioned belong to their owners."),
		plain("Normal", "This trailing text is discarded."),
	))
	if len(c.BodyParagraphs) != 1 {
		t.Errorf("body = %v", c.BodyParagraphs)
	}
}

func TestExtractTrademarksMentionStaysInBody(t *testing.T) {
	// "Trademarks" mid-text without heading style or prefix is plain body.
	c := Extract(doc(
		plain("Normal", "All Trademarks are respected by the company."),
	))
	if len(c.BodyParagraphs) != 1 {
		t.Errorf("body = %v", c.BodyParagraphs)
	}
}

func TestExtractNoReturnFromTrademarks(t *testing.T) {
	c := Extract(doc(
		plain("Normal", "Body paragraph."),
		plain("Heading 1", "Trademarks"),
		plain("Normal", "Boilerplate."),
		plain("Heading 1", "About Mouser"),
		plain("Normal", "This must not be captured."),
	))
	if len(c.AboutSections) != 0 {
		t.Errorf("about after trademarks must be ignored, got %v", c.AboutSections)
	}
	if len(c.BodyParagraphs) != 1 {
		t.Errorf("body = %v", c.BodyParagraphs)
	}
}

func TestExtractDateFirstWins(t *testing.T) {
	c := Extract(doc(
		plain("Normal", "January 19, 2026 – DALLAS, TX – Mouser announced."),
		plain("Normal", "February 2, 2026 – a later date that must not win."),
	))
	if c.Date != "January 19, 2026" {
		t.Errorf("date = %q", c.Date)
	}
}

func TestExtractProductLink(t *testing.T) {
	withLinks := func(text string, links ...Hyperlink) Paragraph {
		return Paragraph{Text: text, Style: "Normal", Runs: []Run{{Text: text}}, Links: links}
	}

	c := Extract(doc(
		withLinks("Visit the catalog page today.",
			Hyperlink{Text: "catalog", URL: "https://www.mouser.com/c/widgets"},
		),
		withLinks("Order the widget controller now or see more parts.",
			Hyperlink{Text: "widget controller", URL: "https://www.mouser.com/new/widget-controller?utm_source=pr"},
			Hyperlink{Text: "more parts", URL: "https://www.mouser.com/new/other"},
		),
	))
	if c.ProductLink != "https://www.mouser.com/new/widget-controller" {
		t.Errorf("product link = %q", c.ProductLink)
	}
}

func TestExtractProductLinkIgnoresOtherDomains(t *testing.T) {
	p := Paragraph{
		Text:  "See the new thing",
		Style: "Normal",
		Links: []Hyperlink{{Text: "new thing", URL: "https://example.com/new/thing"}},
	}
	c := Extract(doc(p))
	if c.ProductLink != "" {
		t.Errorf("product link = %q, want empty", c.ProductLink)
	}
}

func TestExtractMetaDescription(t *testing.T) {
	t.Run("short paragraph kept whole", func(t *testing.T) {
		p := Paragraph{
			Text:  "Visit the widget today for details.",
			Style: "Normal",
			Links: []Hyperlink{{Text: "the widget", URL: "https://www.mouser.com/new/widget"}},
		}
		c := Extract(doc(p))
		if c.MetaDescription != "Visit the widget today for details." {
			t.Errorf("meta description = %q", c.MetaDescription)
		}
	})

	t.Run("long paragraph truncated at word boundary", func(t *testing.T) {
		long := strings.Repeat("0123456789 ", 20)
		c := Extract(doc(plain("Normal", long)))
		want := strings.Repeat("0123456789 ", 13) + "0123456789..."
		if c.MetaDescription != want {
			t.Errorf("meta description = %q, want %q", c.MetaDescription, want)
		}
	})
}

func TestExtractMetaKeywords(t *testing.T) {
	c := Extract(doc(
		plain("Title", "Mouser Electronics Now Shipping TI Widget-Pro Controllers"),
	))
	want := "mouser, electronics, now, shipping, ti, widget-pro, controllers"
	if c.MetaKeywords != want {
		t.Errorf("meta keywords = %q, want %q", c.MetaKeywords, want)
	}
}

func TestExtractMetaKeywordsCapped(t *testing.T) {
	c := Extract(doc(
		plain("Title", "Aa Bb Cc Dd Ee Ff Gg Hh Ii Jj Kk Ll"),
	))
	got := strings.Split(c.MetaKeywords, ", ")
	if len(got) != 10 {
		t.Errorf("expected 10 keywords, got %d: %q", len(got), c.MetaKeywords)
	}
	if got[0] != "aa" || got[9] != "jj" {
		t.Errorf("keywords = %q", c.MetaKeywords)
	}
}

func TestExtractBlankParagraphsIgnored(t *testing.T) {
	c := Extract(doc(
		plain("Normal", "   "),
		plain("Normal", "Real content."),
	))
	if len(c.BodyParagraphs) != 1 {
		t.Errorf("body = %v", c.BodyParagraphs)
	}
}

// Each classification rule is addressable by name so individual heuristics
// can be audited without running a whole document through Extract.
func TestClassificationRuleNames(t *testing.T) {
	want := []string{
		"closing-marker",
		"announcement-banner",
		"title-headline",
		"long-heading-headline",
		"subtitle-subheadline",
		"italic-subheadline",
		"about-heading",
		"trademarks-heading",
	}
	if len(extractRules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(extractRules))
	}
	for i, name := range want {
		if extractRules[i].name != name {
			t.Errorf("rule %d = %q, want %q", i, extractRules[i].name, name)
		}
	}
}

func TestSectionTransitions(t *testing.T) {
	tests := []struct {
		from, to section
		ok       bool
	}{
		{sectionBody, sectionAbout, true},
		{sectionBody, sectionTrademarks, true},
		{sectionAbout, sectionTrademarks, true},
		{sectionAbout, sectionAbout, true},
		{sectionAbout, sectionBody, false},
		{sectionTrademarks, sectionAbout, false},
		{sectionTrademarks, sectionBody, false},
	}
	for _, tt := range tests {
		if got := tt.from.canEnter(tt.to); got != tt.ok {
			t.Errorf("canEnter(%d → %d) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}
