package service

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// headerAliases maps the labels suppliers actually put on quote sheets onto
// the canonical column set.
var headerAliases = map[string]string{
	"make":         "MAKE",
	"manufacturer": "MAKE",
	"brand":        "BRAND",
	"model":        "MODEL",
	"model no":     "MODEL",
	"model no.":    "MODEL",
	"code":         "CODE",
	"item code":    "CODE",
	"part no":      "CODE",
	"part no.":     "CODE",
	"description":  "DESCRIPTION",
	"item":         "DESCRIPTION",
	"particulars":  "DESCRIPTION",
	"unit":         "UNIT",
	"uom":          "UNIT",
	"qty":          "QTY",
	"quantity":     "QTY",
	"rate":         "RATE",
	"unit price":   "RATE",
	"unit rate":    "RATE",
	"price":        "RATE",
}

// QuoteAnalysis is the result of reading one supplier quotation workbook:
// the detected column layout plus the item rows, ready for the LPO builder.
type QuoteAnalysis struct {
	SheetName       string                   `json:"sheet_name"`
	HeaderRow       int                      `json:"header_row"`
	Columns         []string                 `json:"columns"`
	Items           []map[string]interface{} `json:"items"`
	UnmappedHeaders []string                 `json:"unmapped_headers,omitempty"`
}

// QuoteService turns supplier quotation spreadsheets into LPO item tables.
type QuoteService struct {
	logger *zap.Logger
}

func NewQuoteService(logger *zap.Logger) *QuoteService {
	return &QuoteService{logger: logger}
}

// Analyze reads an xlsx stream, locates the header row on the first sheet
// and extracts the item rows under it.
func (s *QuoteService) Analyze(r io.Reader) (*QuoteAnalysis, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	headerIdx, mapping, unmapped := findHeaderRow(rows)
	if headerIdx < 0 {
		return nil, errors.New("no recognizable header row found")
	}

	columns := make([]string, 0, len(mapping))
	seen := make(map[string]struct{}, len(mapping))
	for _, col := range mapping {
		if col == "" {
			continue
		}
		if _, dup := seen[col]; dup {
			continue
		}
		seen[col] = struct{}{}
		columns = append(columns, col)
	}

	var items []map[string]interface{}
	for _, row := range rows[headerIdx+1:] {
		item := make(map[string]interface{})
		empty := true
		for ci, col := range mapping {
			if col == "" || ci >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[ci])
			if cell == "" {
				continue
			}
			empty = false
			item[col] = cell
		}
		if empty {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, errors.New("no item rows under the header")
	}

	s.logger.Debug("quote analyzed",
		zap.String("sheet", sheet),
		zap.Int("header_row", headerIdx+1),
		zap.Strings("columns", columns),
		zap.Int("items", len(items)))

	return &QuoteAnalysis{
		SheetName:       sheet,
		HeaderRow:       headerIdx + 1,
		Columns:         columns,
		Items:           items,
		UnmappedHeaders: unmapped,
	}, nil
}

// ToCreateRequest seeds an LPO draft request from the analysis. The caller
// fills in project and supplier details before submitting.
func (a *QuoteAnalysis) ToCreateRequest() *CreateLPORequest {
	return &CreateLPORequest{
		ColumnStructure:  a.Columns,
		Items:            a.Items,
		ExtractionMethod: "template",
	}
}

// findHeaderRow scans for the first row where at least two cells map onto
// known column labels. Returns the row index, the per-cell column mapping
// ("" for unmapped cells) and the labels it could not place.
func findHeaderRow(rows [][]string) (int, []string, []string) {
	for ri, row := range rows {
		mapping := make([]string, len(row))
		var unmapped []string
		matches := 0
		for ci, cell := range row {
			label := strings.ToLower(strings.TrimSpace(cell))
			if label == "" {
				continue
			}
			if canonical, ok := headerAliases[label]; ok && entity.IsValidLPOColumn(canonical) {
				mapping[ci] = canonical
				matches++
			} else {
				unmapped = append(unmapped, strings.TrimSpace(cell))
			}
		}
		if matches >= 2 {
			return ri, mapping, unmapped
		}
	}
	return -1, nil, nil
}
