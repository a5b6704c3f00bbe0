// Package parser turns uploaded bank statements (CSV and XLSX) into
// normalized statement lines. Column headers are matched by name via
// gocsv tags, or by explicit column roles when the header names are
// nonstandard.
package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/import/sniffer"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/money"
)

// StatementRow is a raw CSV row unmarshaled by header name. The tag set
// covers the column names seen across bank export languages.
type StatementRow struct {
	Date    string `csv:"date"`
	Data    string `csv:"data"`
	DataMov string `csv:"data mov."`
	Fecha   string `csv:"fecha"`

	Description string `csv:"description"`
	Descricao   string `csv:"descrição"`
	Descricao2  string `csv:"descricao"`
	Merchant    string `csv:"merchant"`
	Payee       string `csv:"payee"`
	Memo        string `csv:"memo"`

	Amount  string `csv:"amount"`
	Valor   string `csv:"valor"`
	Importe string `csv:"importe"`
	Value   string `csv:"value"`

	Debit  string `csv:"debit"`
	Debito string `csv:"débito"`
	Cargo  string `csv:"cargo"`

	Credit  string `csv:"credit"`
	Credito string `csv:"crédito"`
	Abono   string `csv:"abono"`

	Category  string `csv:"category"`
	Categoria string `csv:"categoria"`
	Type      string `csv:"type"`

	Balance string `csv:"balance"`
	Saldo   string `csv:"saldo"`
}

// Line is one normalized statement line.
type Line struct {
	Date        time.Time
	Description string
	AmountCents int64 // negative = charge, positive = refund or income
	Category    string
	Row         int    // source row number for error reporting
	Currency    string // ISO-4217 code when the cell carried a symbol
}

// RowError describes a parse failure on a single row.
type RowError struct {
	Row     int
	Column  string
	Message string
	Raw     string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
}

// Result collects the outcome of parsing one file.
type Result struct {
	Lines       []Line
	Errors      []RowError
	TotalRows   int
	ParsedRows  int
	SkippedRows int
}

// Config controls parsing behavior. Zero values mean auto-detection.
type Config struct {
	Delimiter  rune   // 0 = comma
	SkipLines  int    // metadata lines before the header
	European   bool   // amounts use 1.234,56 grouping
	Currency   string // fallback ISO-4217 code, default USD
	DateFormat string // tried before the built-in format list when set
	Columns    sniffer.Columns
}

// DefaultConfig returns a Config for well-formed comma-separated files.
func DefaultConfig() Config {
	return Config{
		Currency: money.USD,
		Columns:  sniffer.Columns{Date: -1, Description: -1, Amount: -1, Debit: -1, Credit: -1, Category: -1},
	}
}

// Parser parses statement files into Lines.
type Parser struct {
	config Config
}

func NewParser(config Config) *Parser {
	if config.Currency == "" {
		config.Currency = money.USD
	}
	return &Parser{config: config}
}

// Parse reads a CSV statement, matching columns by header name.
func (p *Parser) Parse(reader io.Reader) (*Result, error) {
	result := &Result{}

	if p.config.SkipLines > 0 {
		reader = skipLines(reader, p.config.SkipLines)
	}

	var rows []StatementRow
	if err := gocsv.UnmarshalCSV(p.csvReader(reader), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	result.TotalRows = len(rows)

	for i, row := range rows {
		rowNum := i + p.config.SkipLines + 2 // 1-indexed, after the header

		line, rowErr := p.processRow(row, rowNum)
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

// ParseColumns reads a CSV statement using the column roles from
// p.config.Columns, for files whose headers match no known names.
func (p *Parser) ParseColumns(reader io.Reader) (*Result, error) {
	result := &Result{}

	if p.config.SkipLines > 0 {
		reader = skipLines(reader, p.config.SkipLines)
	}

	csvReader := p.csvReader(reader)
	csvReader.FieldsPerRecord = -1

	// Header row is positional here, discard it.
	if _, err := csvReader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	rowNum := p.config.SkipLines + 2
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Message: err.Error()})
			rowNum++
			continue
		}

		result.TotalRows++

		line, rowErr := p.processRecord(record, p.config.Columns, rowNum)
		switch {
		case rowErr != nil:
			result.Errors = append(result.Errors, *rowErr)
		case line == nil:
			result.SkippedRows++
		default:
			result.Lines = append(result.Lines, *line)
			result.ParsedRows++
		}
		rowNum++
	}

	return result, nil
}

func (p *Parser) csvReader(reader io.Reader) *csv.Reader {
	r := csv.NewReader(reader)
	if p.config.Delimiter != 0 {
		r.Comma = p.config.Delimiter
	}
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r
}

// processRow maps a header-matched row to a Line. Rows without a date
// are skipped silently, they are usually balance or footer rows.
func (p *Parser) processRow(row StatementRow, rowNum int) (*Line, *RowError) {
	dateStr := coalesce(row.Date, row.Data, row.DataMov, row.Fecha)
	if dateStr == "" {
		return nil, nil
	}

	date, err := p.parseDate(dateStr)
	if err != nil {
		return nil, &RowError{Row: rowNum, Column: "date", Message: err.Error(), Raw: dateStr}
	}

	desc := coalesce(row.Description, row.Descricao, row.Descricao2, row.Merchant, row.Payee, row.Memo)
	if desc == "" {
		return nil, &RowError{Row: rowNum, Column: "description", Message: "missing description"}
	}

	var cents int64
	var currency string

	amountStr := coalesce(row.Amount, row.Valor, row.Importe, row.Value)
	if amountStr != "" {
		cents, currency, err = p.parseAmount(amountStr)
		if err != nil {
			return nil, &RowError{Row: rowNum, Column: "amount", Message: err.Error(), Raw: amountStr}
		}
	} else {
		debitStr := coalesce(row.Debit, row.Debito, row.Cargo)
		creditStr := coalesce(row.Credit, row.Credito, row.Abono)
		if debitStr == "" && creditStr == "" {
			return nil, &RowError{Row: rowNum, Column: "amount", Message: "no amount found"}
		}
		cents, currency = p.parseDebitCredit(debitStr, creditStr)
	}

	return &Line{
		Date:        date,
		Description: cleanDescription(desc),
		AmountCents: cents,
		Category:    coalesce(row.Category, row.Categoria, row.Type),
		Row:         rowNum,
		Currency:    currency,
	}, nil
}

// processRecord maps a positional record to a Line using column roles.
func (p *Parser) processRecord(record []string, cols sniffer.Columns, rowNum int) (*Line, *RowError) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	dateStr := cell(cols.Date)
	if dateStr == "" {
		return nil, nil
	}

	date, err := p.parseDate(dateStr)
	if err != nil {
		return nil, &RowError{Row: rowNum, Column: "date", Message: err.Error(), Raw: dateStr}
	}

	desc := cell(cols.Description)
	if desc == "" {
		return nil, &RowError{Row: rowNum, Column: "description", Message: "missing description"}
	}

	var cents int64
	var currency string

	switch {
	case cols.Amount >= 0:
		amountStr := cell(cols.Amount)
		if amountStr == "" {
			return nil, &RowError{Row: rowNum, Column: "amount", Message: "missing amount"}
		}
		cents, currency, err = p.parseAmount(amountStr)
		if err != nil {
			return nil, &RowError{Row: rowNum, Column: "amount", Message: err.Error(), Raw: amountStr}
		}
	case cols.Debit >= 0 || cols.Credit >= 0:
		cents, currency = p.parseDebitCredit(cell(cols.Debit), cell(cols.Credit))
	default:
		return nil, &RowError{Row: rowNum, Column: "amount", Message: "no amount column configured"}
	}

	return &Line{
		Date:        date,
		Description: cleanDescription(desc),
		AmountCents: cents,
		Category:    cell(cols.Category),
		Row:         rowNum,
		Currency:    currency,
	}, nil
}

var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"01-02-2006",
	"2006/01/02",
	"02.01.2006",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04",
}

// parseDate tries the configured format first, then the common bank
// export formats. Day-first forms are tried before month-first, so
// ambiguous dates resolve day-first.
func (p *Parser) parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if p.config.DateFormat != "" {
		if t, err := time.Parse(p.config.DateFormat, s); err == nil {
			return t, nil
		}
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}

// parseAmount parses an amount cell into cents plus the currency code
// detected from any symbol in the cell.
func (p *Parser) parseAmount(s string) (int64, string, error) {
	currency := money.DetectCurrency(s)

	code := p.config.Currency
	if currency != "" {
		code = currency
	}

	m, err := money.ParseAmount(s, code, p.config.European)
	if err != nil {
		return 0, currency, err
	}
	return m.Amount(), currency, nil
}

// parseDebitCredit resolves double-entry columns: debit means money out
// and becomes negative, credit stays positive. Debit wins when both are set.
func (p *Parser) parseDebitCredit(debitStr, creditStr string) (int64, string) {
	if debitStr != "" {
		if cents, currency, err := p.parseAmount(debitStr); err == nil && cents != 0 {
			if cents > 0 {
				cents = -cents
			}
			return cents, currency
		}
	}

	if creditStr != "" {
		if cents, currency, err := p.parseAmount(creditStr); err == nil && cents != 0 {
			if cents < 0 {
				cents = -cents
			}
			return cents, currency
		}
	}

	return 0, ""
}

// coalesce returns the first non-blank value.
func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func cleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// skipLines returns a reader positioned after the first n newlines.
func skipLines(r io.Reader, n int) io.Reader {
	return &lineSkipper{reader: r, skip: n}
}

type lineSkipper struct {
	reader  io.Reader
	skip    int
	skipped bool
}

func (ls *lineSkipper) Read(p []byte) (int, error) {
	if !ls.skipped {
		buf := make([]byte, 1)
		lines := 0
		for lines < ls.skip {
			n, err := ls.reader.Read(buf)
			if err != nil {
				return 0, err
			}
			if n > 0 && buf[0] == '\n' {
				lines++
			}
		}
		ls.skipped = true
	}
	return ls.reader.Read(p)
}
