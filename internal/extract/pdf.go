package extract

import (
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/lexsy/internal/models"
)

// readPDFFile returns the plain text of every page joined with newlines.
// The pdf library panics on some malformed inputs; those surface as decode
// errors.
func readPDFFile(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = models.Errorf(models.KindDecode, "malformed PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", models.Wrap(models.KindDecode, "open PDF", err)
	}
	defer f.Close()

	numPages := r.NumPage()
	pages := make([]string, numPages)
	for i := 0; i < numPages; i++ {
		pages[i] = pageText(r, i+1)
	}
	return strings.Join(pages, "\n"), nil
}

// pageText returns "" for pages that are missing or fail to extract.
func pageText(r *pdf.Reader, num int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	page := r.Page(num)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}
