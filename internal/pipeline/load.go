package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"

	"enrollreport/internal"
	"enrollreport/internal/util"
)

var (
	// ErrNoData marks a terminal load failure: there is no table to work on.
	ErrNoData = errors.New("no data")
	// ErrMissingColumn is returned when a required input column is absent.
	ErrMissingColumn = errors.New("missing required column")
)

// LoadTable reads the export at path into a raw grid. Supported inputs are
// .xlsx workbooks, HTML table exports (.xls, .html, .htm) and .eml messages
// carrying one of those as an attachment.
func LoadTable(path string) (*internal.Table, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	table, err := loadBlob(filepath.Base(path), blob)
	if err != nil {
		return nil, err
	}
	table.Source = path
	return table, nil
}

func loadBlob(name string, blob []byte) (*internal.Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		rows, err = parseXLSX(blob)
	case ".xls":
		// Many LMS "Excel" downloads are HTML tables with an .xls name;
		// real BIFF files are not supported.
		if looksLikeHTML(blob) {
			rows, err = parseHTMLTable(blob)
		} else {
			rows, err = parseXLSX(blob)
		}
	case ".html", ".htm":
		rows, err = parseHTMLTable(blob)
	case ".eml":
		return loadEmail(blob)
	default:
		return nil, fmt.Errorf("%w: unsupported input type %q", ErrNoData, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoData, name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoData, name)
	}
	return &internal.Table{Source: name, Rows: rows}, nil
}

func parseXLSX(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	// Raw values keep dates as serial numbers instead of locale-formatted text.
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func parseHTMLTable(content []byte) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no <table> element")
	}

	out := [][]string{}
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, util.NormalizeSpaces(cell.Text()))
		})
		out = append(out, cells)
	})
	return out, nil
}

func loadEmail(raw []byte) (*internal.Table, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: read message: %v", ErrNoData, err)
	}
	for _, att := range env.Attachments {
		name := strings.TrimSpace(att.FileName)
		if !isSupportedAttachment(name) {
			continue
		}
		table, err := loadBlob(name, att.Content)
		if err != nil {
			return nil, err
		}
		table.Source = name
		return table, nil
	}
	return nil, fmt.Errorf("%w: message %q has no spreadsheet attachment", ErrNoData, env.GetHeader("Subject"))
}

func isSupportedAttachment(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls", ".html", ".htm":
		return true
	}
	return false
}

// IsSupportedInput reports whether LoadTable can read a file with this name.
func IsSupportedInput(name string) bool {
	return isSupportedAttachment(name) || strings.EqualFold(filepath.Ext(name), ".eml")
}

func looksLikeHTML(blob []byte) bool {
	head := blob
	if len(head) > 512 {
		head = head[:512]
	}
	lower := bytes.ToLower(bytes.TrimSpace(head))
	return bytes.HasPrefix(lower, []byte("<")) && (bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("<table")) || bytes.Contains(lower, []byte("<!doctype")))
}
