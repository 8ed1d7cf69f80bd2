// Package prdoc parses press-release Word documents and extracts their
// content model.
//
// A .docx file is a ZIP archive; the paragraph stream lives in
// word/document.xml, hyperlink targets in word/_rels/document.xml.rels and
// style display names in word/styles.xml. Open reads all three into a
// Document of ordered structural paragraphs; Extract walks those paragraphs
// through heuristic classification rules and assembles the normalized
// Content used by the HTML renderers.
//
// Usage:
//
//	doc, err := prdoc.Open("/path/to/release.docx")
//	if err != nil { ... }
//	content := prdoc.Extract(doc)
//	fmt.Println(content.Headline, len(content.BodyParagraphs), "paragraphs")
package prdoc

// Document is a parsed press-release source file.
type Document struct {
	Path       string      `json:"path"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Paragraph is one structural paragraph of the source document.
type Paragraph struct {
	Text  string      `json:"text"`            // concatenated run text, hyperlink runs included
	Style string      `json:"style"`           // resolved display name, e.g. "Title", "Heading 1"
	Runs  []Run       `json:"runs,omitempty"`  // direct formatting per run
	Links []Hyperlink `json:"links,omitempty"` // hyperlinks in document order
}

// Run is a span of identically formatted text inside a paragraph.
type Run struct {
	Text   string `json:"text"`
	Italic bool   `json:"italic,omitempty"`
}

// Hyperlink maps a span of link text to its external target.
type Hyperlink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// HyperlinkMap maps exact link text to a target URL within one paragraph.
type HyperlinkMap map[string]string

// Content is the normalized content model of one press release.
type Content struct {
	Headline        string         `json:"headline"`
	Subheadline     string         `json:"subheadline,omitempty"`
	Date            string         `json:"date,omitempty"` // raw matched text, e.g. "January 19, 2026"
	BodyParagraphs  []string       `json:"body_paragraphs"`
	AboutSections   []AboutSection `json:"about_sections,omitempty"`
	ProductLink     string         `json:"product_link,omitempty"`
	MetaDescription string         `json:"meta_description,omitempty"`
	MetaKeywords    string         `json:"meta_keywords,omitempty"`
}

// AboutSection is one titled "About ..." block in document order.
type AboutSection struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
}
