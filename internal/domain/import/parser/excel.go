package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/import/sniffer"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/money"
)

// Sheet names banks and exports commonly use for the statement tab.
var preferredSheets = []string{
	"payments", "transactions", "statement", "extrato", "movimentos", "data", "sheet1",
}

// ParseWorkbook reads an XLSX statement. Column roles are derived from
// the header row, with p.config.Columns overriding detection, and the
// amount dialect is probed from the first data rows.
func (p *Parser) ParseWorkbook(reader io.Reader) (*Result, error) {
	result := &Result{}

	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := statementSheet(f)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	start := p.config.SkipLines
	if start >= len(rows) {
		return result, nil
	}

	cols := *sniffer.SuggestColumns(rows[start])
	overrideColumns(&cols, p.config.Columns)

	rowParser := p.probeWorkbookDialect(rows[start+1:], cols)

	for i := start + 1; i < len(rows); i++ {
		rowNum := i + 1 // 1-indexed sheet row

		result.TotalRows++

		line, rowErr := rowParser.processRecord(rows[i], cols, rowNum)
		switch {
		case rowErr != nil:
			result.Errors = append(result.Errors, *rowErr)
		case line == nil:
			result.SkippedRows++
		default:
			result.Lines = append(result.Lines, *line)
			result.ParsedRows++
		}
	}

	return result, nil
}

// probeWorkbookDialect checks the first data rows for European amount
// formatting, which cell styles can produce even though excelize usually
// renders plain decimals. A confident probe overrides the configured flag.
func (p *Parser) probeWorkbookDialect(dataRows [][]string, cols sniffer.Columns) *Parser {
	probeCol := cols.Amount
	if probeCol < 0 {
		probeCol = cols.Debit
	}
	if probeCol < 0 {
		return p
	}

	sample := dataRows
	if len(sample) > 5 {
		sample = sample[:5]
	}

	dialect := sniffer.ProbeDialect(sample, probeCol)
	if dialect.Confidence > 0.6 && dialect.European != p.config.European {
		cfg := p.config
		cfg.European = dialect.European
		if dialect.CurrencyHint != "" && cfg.Currency == money.USD {
			cfg.Currency = dialect.CurrencyHint
		}
		return NewParser(cfg)
	}
	return p
}

func statementSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}

	for _, preferred := range preferredSheets {
		for _, sheet := range sheets {
			if strings.EqualFold(sheet, preferred) {
				return sheet
			}
		}
	}
	return sheets[0]
}

// overrideColumns applies explicitly configured column roles on top of
// header detection.
func overrideColumns(cols *sniffer.Columns, override sniffer.Columns) {
	if override.Date >= 0 {
		cols.Date = override.Date
	}
	if override.Description >= 0 {
		cols.Description = override.Description
	}
	if override.Amount >= 0 {
		cols.Amount = override.Amount
	}
	if override.Debit >= 0 {
		cols.Debit = override.Debit
	}
	if override.Credit >= 0 {
		cols.Credit = override.Credit
	}
	if override.Category >= 0 {
		cols.Category = override.Category
	}
	cols.DoubleEntry = cols.Debit >= 0 && cols.Credit >= 0
}
