// Package sniffer detects the shape of uploaded statement files before
// parsing: field delimiter, metadata lines above the header, which column
// plays which role, and the regional amount dialect.
package sniffer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/money"
)

// Header keywords banks commonly use, across the export languages we see.
var headerKeywords = []string{
	// English
	"date", "description", "amount", "debit", "credit", "balance", "category", "merchant", "payee",
	// Portuguese
	"data mov", "descrição", "descricao", "débito", "debito", "crédito", "credito", "valor", "saldo",
	// Spanish
	"fecha", "descripción", "descripcion", "importe", "cargo", "abono",
}

var (
	ErrEmptyFile = errors.New("file is empty")
	ErrNoHeader  = errors.New("could not find a header row")
)

// Shape describes the detected layout of a CSV/TSV statement.
type Shape struct {
	Delimiter  rune
	SkipLines  int
	Headers    []string
	SampleRows [][]string
}

// Columns holds header-derived column role indices, -1 when absent.
type Columns struct {
	Date        int
	Description int
	Amount      int
	Debit       int
	Credit      int
	Category    int
	DoubleEntry bool
}

// Dialect is the inferred regional formatting of amount cells.
type Dialect struct {
	European     bool
	CurrencyHint string
	Confidence   float64
}

const (
	headerSearchLines = 20
	sampleRowCount    = 5
	minDelimiters     = 2
)

// Detect analyzes raw statement bytes and returns the file shape.
// The header row is located by scoring candidate lines on column count
// and known header keywords, which skips bank metadata preambles.
func Detect(data []byte) (*Shape, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")

	delimiter, headerIdx, err := findHeaderRow(lines)
	if err != nil {
		return nil, err
	}

	headerLine := cleanLine(lines[headerIdx], headerIdx == 0)
	reader := csv.NewReader(strings.NewReader(headerLine))
	reader.Comma = delimiter
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	return &Shape{
		Delimiter:  delimiter,
		SkipLines:  headerIdx,
		Headers:    headers,
		SampleRows: sampleRows(data, delimiter, headerIdx+1, sampleRowCount),
	}, nil
}

// SuggestColumns maps header names to column roles.
func SuggestColumns(headers []string) *Columns {
	cols := &Columns{Date: -1, Description: -1, Amount: -1, Debit: -1, Credit: -1, Category: -1}

	for i, header := range headers {
		h := strings.ToLower(strings.TrimSpace(header))

		switch {
		case cols.Date == -1 && (strings.Contains(h, "data mov") || strings.Contains(h, "date") ||
			strings.Contains(h, "fecha") || h == "data"):
			cols.Date = i
		case cols.Description == -1 && (strings.Contains(h, "descri") || strings.Contains(h, "merchant") ||
			strings.Contains(h, "payee") || h == "memo" || h == "name" || h == "nome"):
			cols.Description = i
		case cols.Debit == -1 && (strings.Contains(h, "débito") || strings.Contains(h, "debito") ||
			strings.Contains(h, "debit") || strings.Contains(h, "cargo")):
			cols.Debit = i
		case cols.Credit == -1 && (strings.Contains(h, "crédito") || strings.Contains(h, "credito") ||
			strings.Contains(h, "credit") || strings.Contains(h, "abono")):
			cols.Credit = i
		case cols.Amount == -1 && (h == "amount" || h == "valor" || h == "importe" || h == "montante" ||
			h == "value"):
			cols.Amount = i
		case cols.Category == -1 && (strings.Contains(h, "categ") || h == "tipo" || h == "type"):
			cols.Category = i
		}
	}

	cols.DoubleEntry = cols.Debit != -1 && cols.Credit != -1
	return cols
}

// ProbeDialect votes on the regional amount format using the sample rows.
// Amount cells with "1.234,56" grouping and EUR/BRL symbols vote European,
// "1,234.56" grouping and USD/GBP symbols vote American.
func ProbeDialect(rows [][]string, amountIdx int) *Dialect {
	dialect := &Dialect{Confidence: 0.5}

	european, american := 0, 0
	for _, row := range rows {
		if amountIdx >= 0 && amountIdx < len(row) && row[amountIdx] != "" {
			switch amountFormatVote(row[amountIdx]) {
			case 1:
				european++
			case -1:
				american++
			}
		}

		for _, cell := range row {
			switch code := money.DetectCurrency(cell); code {
			case money.EUR, money.BRL:
				european++
				dialect.CurrencyHint = code
			case money.USD, money.GBP:
				american++
				if dialect.CurrencyHint == "" {
					dialect.CurrencyHint = code
				}
			}
		}
	}

	dialect.European = european > american
	if total := european + american; total > 0 {
		winning := european
		if american > european {
			winning = american
		}
		dialect.Confidence = float64(winning) / float64(total)
	}

	return dialect
}

// amountFormatVote returns 1 for European formatting, -1 for American,
// 0 when the cell is ambiguous.
func amountFormatVote(val string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' {
			return r
		}
		return -1
	}, val)
	if cleaned == "" {
		return 0
	}

	comma := strings.LastIndex(cleaned, ",")
	dot := strings.LastIndex(cleaned, ".")

	switch {
	case comma >= 0 && dot >= 0:
		// Both present: the later separator is the decimal one.
		if comma > dot {
			return 1
		}
		return -1
	case comma >= 0:
		if len(cleaned)-comma-1 <= 2 {
			return 1
		}
		return 0
	case dot >= 0:
		if len(cleaned)-dot-1 <= 2 {
			return -1
		}
		return 0
	}
	return 0
}

func findHeaderRow(lines []string) (rune, int, error) {
	bestKeyword := -1
	bestKeywordScore := 0
	var bestKeywordDelim rune

	bestFallback := -1
	bestFallbackCols := 0
	var bestFallbackDelim rune

	for i, line := range lines {
		if i >= headerSearchLines {
			break
		}

		line = cleanLine(line, i == 0)
		if line == "" {
			continue
		}

		delimiter, count := detectDelimiter(line)
		if count < minDelimiters {
			continue
		}

		keywords := 0
		lower := strings.ToLower(line)
		for _, kw := range headerKeywords {
			if strings.Contains(lower, kw) {
				keywords++
			}
		}

		if keywords > 0 {
			score := keywords*10 + count
			if score > bestKeywordScore {
				bestKeywordScore = score
				bestKeyword = i
				bestKeywordDelim = delimiter
			}
		} else if count > bestFallbackCols {
			bestFallbackCols = count
			bestFallback = i
			bestFallbackDelim = delimiter
		}
	}

	if bestKeyword >= 0 {
		return bestKeywordDelim, bestKeyword, nil
	}
	if bestFallback >= 0 {
		return bestFallbackDelim, bestFallback, nil
	}
	return 0, 0, ErrNoHeader
}

func cleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return strings.TrimSpace(line)
}

func detectDelimiter(line string) (rune, int) {
	best := rune(0)
	bestCount := 0
	for _, d := range []rune{';', '\t', ',', '|'} {
		if count := strings.Count(line, string(d)); count > bestCount {
			bestCount = count
			best = d
		}
	}
	return best, bestCount
}

// sampleRows returns up to maxRows data rows following the header.
func sampleRows(data []byte, delimiter rune, startLine, maxRows int) [][]string {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	lineNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if lineNum >= startLine {
			rows = append(rows, record)
			if len(rows) >= maxRows {
				break
			}
		}
		lineNum++
	}
	return rows
}
