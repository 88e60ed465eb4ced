package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/hyperjump/lexsy/internal/models"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// WordprocessingML namespaces, transitional and strict.
const (
	wordNamespace       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	wordStrictNamespace = "http://purl.oclc.org/ooxml/wordprocessingml/main"
)

// partNameRe extracts PartName from Override elements in [Content_Types].xml.
var partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)

// partNameRe2 handles the case where ContentType appears before PartName.
var partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return ""
		}
		if m := partNameRe.FindSubmatch(content); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
		if m := partNameRe2.FindSubmatch(content); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
		return ""
	}
	return ""
}

// readDOCXFile returns the non-blank paragraphs of a .docx file joined with
// newlines.
func readDOCXFile(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", models.Wrap(models.KindDecode, "extract DOCX: not a zip", err)
	}
	defer zr.Close()

	docPath := findDocxMainDocumentPath(&zr.Reader)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	for _, f := range zr.File {
		if f.Name != docPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", models.Wrap(models.KindDecode, fmt.Sprintf("extract DOCX: open %s", f.Name), err)
		}
		defer rc.Close()
		paragraphs, err := docxParagraphs(rc)
		if err != nil {
			return "", models.Wrap(models.KindDecode, fmt.Sprintf("extract DOCX: parse %s", f.Name), err)
		}
		return strings.Join(paragraphs, "\n"), nil
	}
	return "", models.Errorf(models.KindDecode, "extract DOCX: %s not found", docPath)
}

func isWordElement(name xml.Name, local string) bool {
	return name.Local == local && (name.Space == wordNamespace || name.Space == wordStrictNamespace)
}

// docxParagraphs streams document XML and collects the text of each w:p,
// dropping paragraphs that are blank. Nested paragraphs (text boxes) are
// emitted before the paragraph that contains them.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		open       []*strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case isWordElement(t.Name, "p"):
				open = append(open, &strings.Builder{})
			case isWordElement(t.Name, "t"):
				inText = true
			case isWordElement(t.Name, "tab") && len(open) > 0:
				open[len(open)-1].WriteByte('\t')
			case isWordElement(t.Name, "br") && len(open) > 0:
				open[len(open)-1].WriteByte(' ')
			}
		case xml.EndElement:
			switch {
			case isWordElement(t.Name, "t"):
				inText = false
			case isWordElement(t.Name, "p") && len(open) > 0:
				text := open[len(open)-1].String()
				open = open[:len(open)-1]
				if strings.TrimSpace(text) != "" {
					paragraphs = append(paragraphs, text)
				}
			}
		case xml.CharData:
			if inText && len(open) > 0 {
				open[len(open)-1].Write(t)
			}
		}
	}
	return paragraphs, nil
}
