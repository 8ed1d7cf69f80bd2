package prdoc

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Open parses a .docx file into a Document. The paragraph stream is read
// from word/document.xml; hyperlink relationship ids are resolved against
// word/_rels/document.xml.rels and style ids against word/styles.xml.
// Missing rels or styles parts are tolerated (no links, raw style ids);
// a missing or malformed document.xml is a fatal parse error.
func Open(path string) (*Document, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	rels := map[string]string{}
	styles := map[string]string{}
	for _, f := range r.File {
		switch f.Name {
		case "word/document.xml":
			docFile = f
		case "word/_rels/document.xml.rels":
			if rc, err := f.Open(); err == nil {
				rels = parseRels(rc)
				rc.Close()
			}
		case "word/styles.xml":
			if rc, err := f.Open(); err == nil {
				styles = parseStyles(rc)
				rc.Close()
			}
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	paras, err := parseParagraphs(rc, rels, styles)
	if err != nil {
		return nil, fmt.Errorf("parse document.xml: %w", err)
	}
	return &Document{Path: path, Paragraphs: paras}, nil
}

// parseParagraphs walks the document.xml token stream and rebuilds the
// paragraph sequence with per-run italic flags and resolved hyperlinks.
func parseParagraphs(r io.Reader, rels, styles map[string]string) ([]Paragraph, error) {
	decoder := xml.NewDecoder(r)

	var paras []Paragraph
	var cur Paragraph
	var run Run
	var linkText strings.Builder
	var linkID string

	var inParagraph, inRun, inRunProps, inText, inHyperlink bool
	tableDepth := 0
	styleID := ""

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "p":
				if tableDepth > 0 {
					continue
				}
				inParagraph = true
				cur = Paragraph{}
				styleID = ""
			case "pStyle":
				if inParagraph && !inRun {
					for _, attr := range t.Attr {
						if attr.Name.Local == "val" {
							styleID = attr.Value
						}
					}
				}
			case "r":
				if inParagraph {
					inRun = true
					run = Run{}
				}
			case "rPr":
				if inRun {
					inRunProps = true
				}
			case "i":
				// Direct run formatting only; the rPr under pPr styles the
				// paragraph mark, not the text.
				if inRun && inRunProps {
					run.Italic = boolVal(t)
				}
			case "t":
				if inRun {
					inText = true
				}
			case "tab":
				if inRun {
					run.Text += "\t"
				}
			case "br", "cr":
				if inRun {
					run.Text += "\n"
				}
			case "hyperlink":
				if inParagraph {
					inHyperlink = true
					linkText.Reset()
					linkID = ""
					for _, attr := range t.Attr {
						if attr.Name.Local == "id" {
							linkID = attr.Value
						}
					}
				}
			}

		case xml.CharData:
			if inText {
				run.Text += string(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			case "t":
				inText = false
			case "rPr":
				inRunProps = false
			case "r":
				if inRun {
					inRun = false
					cur.Text += run.Text
					cur.Runs = append(cur.Runs, run)
					if inHyperlink {
						linkText.WriteString(run.Text)
					}
				}
			case "hyperlink":
				if inHyperlink {
					inHyperlink = false
					// Anchor-only links carry no relationship id; a dangling
					// id is a malformed relationship. Both are skipped.
					if url, ok := rels[linkID]; ok && linkText.Len() > 0 {
						cur.Links = append(cur.Links, Hyperlink{Text: linkText.String(), URL: url})
					}
				}
			case "p":
				if inParagraph {
					inParagraph = false
					cur.Style = resolveStyle(styleID, styles)
					paras = append(paras, cur)
				}
			}
		}
	}
	return paras, nil
}

// parseRels maps relationship ids to their targets. Malformed entries are
// skipped; hyperlink extraction never fails on a bad relationship.
func parseRels(r io.Reader) map[string]string {
	rels := map[string]string{}
	decoder := xml.NewDecoder(r)
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		var id, target string
		for _, attr := range se.Attr {
			switch attr.Name.Local {
			case "Id":
				id = attr.Value
			case "Target":
				target = attr.Value
			}
		}
		if id != "" && target != "" {
			rels[id] = target
		}
	}
	return rels
}

// parseStyles maps style ids to their display names, e.g.
// "Heading1" → "heading 1", "Title" → "Title".
func parseStyles(r io.Reader) map[string]string {
	styles := map[string]string{}
	decoder := xml.NewDecoder(r)
	styleID := ""
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "style":
			styleID = ""
			for _, attr := range se.Attr {
				if attr.Name.Local == "styleId" {
					styleID = attr.Value
				}
			}
		case "name":
			if styleID == "" {
				continue
			}
			for _, attr := range se.Attr {
				if attr.Name.Local == "val" && attr.Value != "" {
					styles[styleID] = attr.Value
				}
			}
		}
	}
	return styles
}

// resolveStyle turns a pStyle id into the display name used by the
// classification rules. Paragraphs without an explicit style are "Normal".
func resolveStyle(styleID string, styles map[string]string) string {
	if styleID == "" {
		return "Normal"
	}
	if name, ok := styles[styleID]; ok {
		return name
	}
	return styleID
}

// boolVal reads an OOXML toggle attribute: <w:i/> means on, an explicit
// val of "false"/"0"/"none" means off.
func boolVal(se xml.StartElement) bool {
	for _, attr := range se.Attr {
		if attr.Name.Local == "val" {
			switch strings.ToLower(attr.Value) {
			case "false", "0", "none":
				return false
			}
		}
	}
	return true
}
