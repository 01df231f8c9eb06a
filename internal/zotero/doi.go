package zotero

import (
	"database/sql"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DOI pattern: 10.XXXX/... where XXXX is 4+ digits.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// backfillDOIs fills in missing DOIs from attachment PDFs. Items that
// already carry a DOI or URL are left alone. Best-effort: extraction
// failures leave the item unchanged.
func backfillDOIs(dataDir string, db *sql.DB, snap *librarySnapshot) {
	pdfs, err := attachmentPDFs(dataDir, db)
	if err != nil {
		return
	}

	for i := range snap.Items {
		data := &snap.Items[i].Data
		if data.DOI != "" || data.URL != "" {
			continue
		}
		path, ok := pdfs[snap.Items[i].Key]
		if !ok {
			continue
		}
		if doi, err := ExtractDOIFromPDF(path); err == nil && doi != "" {
			data.DOI = doi
		}
	}
}

// attachmentPDFs maps parent item keys to the first stored PDF attachment
// path. Zotero stores attachments as "storage:<filename>" under
// <dataDir>/storage/<attachment-key>/.
func attachmentPDFs(dataDir string, db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`
		SELECT p.key, a.key, ia.path
		FROM itemAttachments ia
		JOIN items p ON p.itemID = ia.parentItemID
		JOIN items a ON a.itemID = ia.itemID
		WHERE ia.contentType = 'application/pdf'
		  AND ia.path LIKE 'storage:%'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pdfs := map[string]string{}
	for rows.Next() {
		var parentKey, attachKey, path string
		if err := rows.Scan(&parentKey, &attachKey, &path); err != nil {
			return nil, err
		}
		if _, ok := pdfs[parentKey]; ok {
			continue
		}
		filename := strings.TrimPrefix(path, "storage:")
		pdfs[parentKey] = filepath.Join(dataDir, "storage", attachKey, filename)
	}
	return pdfs, rows.Err()
}

// ExtractDOIFromPDF extracts a DOI from a PDF file. It searches the first
// few pages, where the DOI usually appears.
func ExtractDOIFromPDF(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	maxPages := 3
	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}

	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		if doi := FindDOI(text); doi != "" {
			return doi, nil
		}
	}

	return "", nil // No DOI found (not an error)
}

// FindDOI finds the first valid-looking DOI in text.
func FindDOI(text string) string {
	matches := doiPattern.FindAllString(text, -1)
	for _, match := range matches {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 {
		return false
	}
	if !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	return slashIdx != -1 && slashIdx < len(doi)-1
}
