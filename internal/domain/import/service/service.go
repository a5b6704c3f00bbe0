// Package service orchestrates statement imports: detect the file layout,
// parse rows, match merchants against the user's subscriptions and record
// the matched charges as payments.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/import/normalizer"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/import/parser"
	importrepo "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/import/repository"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/import/sniffer"
	subsrepo "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/repository"
)

var (
	// ErrUnsupportedFile means the upload has a file extension no parser handles.
	ErrUnsupportedFile = errors.New("unsupported file format")
	// ErrUnreadableFile means the file could not be parsed as a statement.
	ErrUnreadableFile = errors.New("could not read statement")
)

// maxSummaryErrors caps how many row errors the summary reports back.
const maxSummaryErrors = 20

// SubscriptionLister provides the subscriptions to match statement rows
// against.
type SubscriptionLister interface {
	ListByUserID(ctx context.Context, userID uuid.UUID, statusFilter *subsrepo.Status) ([]*subsrepo.Subscription, error)
}

// ImportSummary reports what happened to one uploaded statement.
type ImportSummary struct {
	FileName          string `json:"file_name"`
	RowsTotal         int    `json:"rows_total"`
	RowsParsed        int    `json:"rows_parsed"`
	RowsSkipped       int    `json:"rows_skipped"`
	RowsFailed        int    `json:"rows_failed"`
	PaymentsImported  int    `json:"payments_imported"`
	DuplicatesSkipped int    `json:"duplicates_skipped"`
	UnmatchedRows     int    `json:"unmatched_rows"`

	// Recurring merchants found in the statement with no matching
	// subscription, candidates for the user to start tracking.
	SuggestedSubscriptions []string `json:"suggested_subscriptions,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// ImportService turns uploaded bank statements into payment records.
type ImportService struct {
	repo       importrepo.ImportRepository
	subs       SubscriptionLister
	normalizer *normalizer.Normalizer
	logger     *slog.Logger
}

// NewImportService creates a new import service.
func NewImportService(repo importrepo.ImportRepository, subs SubscriptionLister, logger *slog.Logger) *ImportService {
	return &ImportService{
		repo:       repo,
		subs:       subs,
		normalizer: normalizer.New(),
		logger:     logger,
	}
}

// ImportStatement parses an uploaded statement and stores every row that
// matches one of the user's subscriptions as a payment. Rows that match
// nothing are counted, and recurring merchants among them are surfaced as
// subscription suggestions.
func (s *ImportService) ImportStatement(ctx context.Context, userID uuid.UUID, fileName string, reader io.Reader) (*ImportSummary, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	result, err := s.parseFile(fileName, data)
	if err != nil {
		return nil, err
	}

	subs, err := s.subs.ListByUserID(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	matcher := NewSubscriptionMatcher(subs)

	summary := &ImportSummary{
		FileName:    fileName,
		RowsTotal:   result.TotalRows,
		RowsParsed:  result.ParsedRows,
		RowsSkipped: result.SkippedRows,
		RowsFailed:  len(result.Errors),
	}

	// Statements that sign their amounts list charges as negatives. When
	// nothing is negative the file is an expense-only export and every
	// amount is a charge.
	hasCharges := false
	for _, line := range result.Lines {
		if line.AmountCents < 0 {
			hasCharges = true
			break
		}
	}

	suggested := make(map[string]bool)
	var payments []*importrepo.Payment
	for _, line := range result.Lines {
		if line.AmountCents == 0 {
			summary.RowsSkipped++
			continue
		}
		if hasCharges && line.AmountCents > 0 {
			// Credits are refunds or income, not subscription charges.
			summary.RowsSkipped++
			continue
		}

		norm := s.normalizer.Normalize(line.Description)
		subID, ok := matcher.Match(norm.Name)
		if !ok {
			summary.UnmatchedRows++
			if norm.Recurring {
				suggested[norm.Name] = true
			}
			continue
		}

		cents := line.AmountCents
		if cents < 0 {
			cents = -cents
		}
		payments = append(payments, &importrepo.Payment{
			UserID:         userID,
			SubscriptionID: subID,
			Amount:         float64(cents) / 100,
			PaidAt:         line.Date,
		})
	}

	stats, err := s.repo.InsertPayments(ctx, payments)
	if err != nil {
		return nil, fmt.Errorf("failed to store payments: %w", err)
	}
	summary.PaymentsImported = stats.Inserted
	summary.DuplicatesSkipped = stats.Duplicates

	for name := range suggested {
		summary.SuggestedSubscriptions = append(summary.SuggestedSubscriptions, name)
	}
	sort.Strings(summary.SuggestedSubscriptions)

	for i, rowErr := range result.Errors {
		if i == maxSummaryErrors {
			summary.Errors = append(summary.Errors, fmt.Sprintf("and %d more rows failed", len(result.Errors)-maxSummaryErrors))
			break
		}
		summary.Errors = append(summary.Errors, rowErr.Error())
	}

	s.logger.Info("statement import complete",
		slog.String("user_id", userID.String()),
		slog.String("file", fileName),
		slog.Int("parsed", summary.RowsParsed),
		slog.Int("imported", summary.PaymentsImported),
		slog.Int("duplicates", summary.DuplicatesSkipped),
		slog.Int("unmatched", summary.UnmatchedRows))

	return summary, nil
}

// parseFile routes the upload to the CSV or workbook parser by extension.
func (s *ImportService) parseFile(fileName string, data []byte) (*parser.Result, error) {
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".csv", ".tsv", ".txt":
		return s.parseCSV(data)
	case ".xlsx", ".xlsm":
		result, err := parser.NewParser(parser.DefaultConfig()).ParseWorkbook(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
}

// parseCSV sniffs the file shape, infers the column layout and amount
// dialect and parses with whichever strategy the headers support.
func (s *ImportService) parseCSV(data []byte) (*parser.Result, error) {
	shape, err := sniffer.Detect(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	cols := sniffer.SuggestColumns(shape.Headers)

	probeCol := cols.Amount
	if probeCol < 0 {
		probeCol = cols.Debit
	}
	dialect := sniffer.ProbeDialect(shape.SampleRows, probeCol)

	config := parser.DefaultConfig()
	config.Delimiter = shape.Delimiter
	config.SkipLines = shape.SkipLines
	config.European = dialect.European
	if dialect.CurrencyHint != "" {
		config.Currency = dialect.CurrencyHint
	}
	config.Columns = *cols

	p := parser.NewParser(config)

	var result *parser.Result
	if cols.Date >= 0 && (cols.Amount >= 0 || cols.Debit >= 0 || cols.Credit >= 0) {
		result, err = p.ParseColumns(bytes.NewReader(data))
	} else {
		result, err = p.Parse(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	return result, nil
}
