// Package render turns an extracted content model into the two published
// HTML artifacts: the web page and the email version. Both are plain
// placeholder substitution over a fixed, case-sensitive {{name}} set; a
// placeholder missing from the template is simply not substituted, and an
// unknown {{name}} in the template is left verbatim.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ezwire/presskit/config"
	"github.com/ezwire/presskit/prdoc"
)

// Assets carries the published filenames referenced by the rendered HTML.
type Assets struct {
	JPG string
	PNG string
	PDF string
}

// Dims is the final pixel size of the published JPEG.
type Dims struct {
	Width  int
	Height int
}

// Options are the per-ticket overrides. Empty fields fall back to the
// extracted content: ProductLink to the first product URL found in the
// body, ImageURL to the computed jpg_url, Subject to the headline.
type Options struct {
	ProductLink string
	ImageURL    string
	Subject     string
}

// Renderer renders press-release HTML for one site configuration.
type Renderer struct {
	baseTemplate string
	contacts     config.Contacts
}

// New builds a Renderer. baseURLTemplate expands {month_folder} and
// {folder_name}, e.g. "https://pr.ezwire.com/Mouser/{month_folder}/{folder_name}/".
func New(baseURLTemplate string, contacts config.Contacts) *Renderer {
	return &Renderer{baseTemplate: baseURLTemplate, contacts: contacts}
}

// MonthFolder derives the remote month folder from an extracted date such
// as "January 19, 2026", giving "2026-01 - Mouser". An empty or unparsable
// date falls back to the current month.
func MonthFolder(dateStr string) string {
	if dateStr != "" {
		if t, err := time.Parse("January 2, 2006", dateStr); err == nil {
			return fmt.Sprintf("%d-%02d - Mouser", t.Year(), int(t.Month()))
		}
	}
	now := time.Now()
	return fmt.Sprintf("%d-%02d - Mouser", now.Year(), int(now.Month()))
}

// placeholder is one {{key}} → value substitution. Order matters: values
// are substituted sequentially, mirroring the template contract.
type placeholder struct {
	key   string
	value string
}

func substitute(tmpl string, phs []placeholder) string {
	out := tmpl
	for _, ph := range phs {
		out = strings.ReplaceAll(out, "{{"+ph.key+"}}", ph.value)
	}
	return out
}

// WebHTML renders the web page from the given template.
func (r *Renderer) WebHTML(tmpl string, content *prdoc.Content, folderName string, a Assets, d Dims, opts Options) string {
	return substitute(tmpl, r.webPlaceholders(content, folderName, a, d, opts))
}

// EmailHTML renders the email version. The body splits into the first
// paragraph and the wrapped remainder so the template controls the lead
// styling, and the page markup swaps to inline styles throughout.
func (r *Renderer) EmailHTML(tmpl string, content *prdoc.Content, folderName string, a Assets, d Dims, opts Options) string {
	return substitute(tmpl, r.emailPlaceholders(content, folderName, a, d, opts))
}

func (r *Renderer) webPlaceholders(content *prdoc.Content, folderName string, a Assets, d Dims, opts Options) []placeholder {
	base := r.BaseURL(MonthFolder(content.Date), folderName)

	jpgURL := base + a.JPG
	if opts.ImageURL != "" {
		jpgURL = opts.ImageURL
	}
	productLink := content.ProductLink
	if opts.ProductLink != "" {
		productLink = opts.ProductLink
	}

	phs := []placeholder{
		{"title", folderName},
		{"meta_description", content.MetaDescription},
		{"meta_keywords", content.MetaKeywords},
		{"headline", content.Headline},
		{"subheadline", content.Subheadline},
		{"jpg_url", jpgURL},
		{"png_url", base + a.PNG},
		{"pdf_url", base + a.PDF},
		{"product_link", productLink},
		{"image_alt", content.Headline},
		{"image_width", strconv.Itoa(d.Width)},
		{"image_height", strconv.Itoa(d.Height)},
		{"body_paragraphs", formatBodyParagraphs(content.BodyParagraphs, false)},
		{"about_sections", formatAboutSections(content.AboutSections, false)},
	}
	return append(phs, contactPlaceholders(r.contacts)...)
}

func (r *Renderer) emailPlaceholders(content *prdoc.Content, folderName string, a Assets, d Dims, opts Options) []placeholder {
	base := r.BaseURL(MonthFolder(content.Date), folderName)

	jpgURL := base + a.JPG
	if opts.ImageURL != "" {
		jpgURL = opts.ImageURL
	}
	productLink := content.ProductLink
	if opts.ProductLink != "" {
		productLink = opts.ProductLink
	}
	subject := opts.Subject
	if subject == "" {
		subject = content.Headline
	}

	first := ""
	remaining := ""
	if len(content.BodyParagraphs) > 0 {
		first = content.BodyParagraphs[0]
	}
	if len(content.BodyParagraphs) > 1 {
		remaining = formatBodyParagraphs(content.BodyParagraphs[1:], true)
	}

	phs := []placeholder{
		{"title", folderName},
		{"subject", subject},
		{"web_version_url", base + folderName + ".html"},
		{"headline", content.Headline},
		{"subheadline", content.Subheadline},
		{"jpg_url", jpgURL},
		{"png_url", base + a.PNG},
		{"pdf_url", base + a.PDF},
		{"product_link", productLink},
		{"image_alt", content.Headline},
		{"image_width", strconv.Itoa(d.Width)},
		{"image_height", strconv.Itoa(d.Height)},
		{"first_paragraph", first},
		{"remaining_paragraphs", remaining},
		{"about_sections_email", formatAboutSections(content.AboutSections, true)},
	}
	return append(phs, contactPlaceholders(r.contacts)...)
}

// BaseURL expands the base URL template. Spaces are percent-encoded inside
// the expanded components only; filenames appended later stay raw.
func (r *Renderer) BaseURL(monthFolder, folderName string) string {
	s := strings.ReplaceAll(r.baseTemplate, "{month_folder}", escapeSpaces(monthFolder))
	return strings.ReplaceAll(s, "{folder_name}", escapeSpaces(folderName))
}

func escapeSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "%20")
}

func contactPlaceholders(c config.Contacts) []placeholder {
	return []placeholder{
		{"contact_marketing_name", c.Marketing.Name},
		{"contact_marketing_company", c.Marketing.Company},
		{"contact_marketing_title", c.Marketing.Title},
		{"contact_marketing_phone", c.Marketing.Phone},
		{"contact_marketing_email", c.Marketing.Email},
		{"contact_press_name", c.Press.Name},
		{"contact_press_company", c.Press.Company},
		{"contact_press_title", c.Press.Title},
		{"contact_press_phone", c.Press.Phone},
		{"contact_press_email", c.Press.Email},
	}
}

const emailParagraphStyle = `font:14px Helvetica, Arial, sans-serif; line-height: 20px;`

// formatBodyParagraphs wraps rendered paragraphs in the format-specific
// markup: indented plain <p> tags for the web page, inline-styled ones for
// email clients.
func formatBodyParagraphs(paragraphs []string, forEmail bool) string {
	lines := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if forEmail {
			lines = append(lines, `<p style="`+emailParagraphStyle+`">`+p+`</p>`)
		} else {
			lines = append(lines, `                    <p>`+p+`</p>`)
		}
	}
	return strings.Join(lines, "\n")
}

// formatAboutSections renders the "About ..." blocks in document order.
func formatAboutSections(sections []prdoc.AboutSection, forEmail bool) string {
	if len(sections) == 0 {
		return ""
	}
	var lines []string
	for _, s := range sections {
		if forEmail {
			lines = append(lines, `<h2 style="font:16px Helvetica, Arial, sans-serif; line-height: 20px; font-weight: bold;"><u>`+s.Title+`</u></h2>`)
			for _, p := range s.Paragraphs {
				lines = append(lines, `<p style="`+emailParagraphStyle+`">`+p+`</p>`)
			}
		} else {
			lines = append(lines, `                    <h1><u>`+s.Title+`</u></h1>`)
			for _, p := range s.Paragraphs {
				lines = append(lines, `                    <p>`+p+`</p>`)
			}
		}
	}
	return strings.Join(lines, "\n")
}
