package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/analytics"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/httputil"
)

// exportMonthRow is one line of the monthly totals section of a report.
type exportMonthRow struct {
	Month string  `csv:"month"`
	Total float64 `csv:"total"`
}

// exportScoreRow is one line of the value scores section of a report.
type exportScoreRow struct {
	Subscription string  `csv:"subscription"`
	Price        float64 `csv:"price"`
	Score        int     `csv:"score"`
	Tier         string  `csv:"tier"`
	CostPerUse   float64 `csv:"cost_per_use"`
}

// Export downloads the monthly totals and value scores as a CSV or XLSX
// report.
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid as_of date")
		return
	}
	months := httputil.QueryInt(r, "months", analytics.DefaultReportMonths, 1, maxWindowMonths)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		httputil.Error(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}

	report, err := h.svc.MonthlyReport(r.Context(), userID, months, asOf)
	if err != nil {
		h.logger.Error("failed to build monthly report", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	scores, err := h.svc.ValueScores(r.Context(), userID, asOf)
	if err != nil {
		h.logger.Error("failed to compute value scores", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	monthRows := make([]exportMonthRow, 0, len(report))
	for _, b := range report {
		monthRows = append(monthRows, exportMonthRow{Month: b.Label, Total: b.Total})
	}
	scoreRows := make([]exportScoreRow, 0, len(scores))
	for _, s := range scores {
		scoreRows = append(scoreRows, exportScoreRow{
			Subscription: s.Subscription.Name,
			Price:        s.Subscription.Price,
			Score:        s.Score,
			Tier:         string(s.Tier),
			CostPerUse:   s.CostPerUse,
		})
	}

	if format == "xlsx" {
		h.exportXLSX(w, monthRows, scoreRows)
		return
	}
	h.exportCSV(w, monthRows, scoreRows)
}

// exportCSV writes both report sections into one CSV download, separated
// by a blank line.
func (h *AnalyticsHandler) exportCSV(w http.ResponseWriter, months []exportMonthRow, scores []exportScoreRow) {
	var buf bytes.Buffer
	if err := gocsv.Marshal(&months, &buf); err != nil {
		h.logger.Error("failed to encode csv report", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	buf.WriteString("\n")
	if err := gocsv.Marshal(&scores, &buf); err != nil {
		h.logger.Error("failed to encode csv report", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="spending-report.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

const (
	monthSheet = "Monthly Totals"
	scoreSheet = "Value Scores"
)

func (h *AnalyticsHandler) exportXLSX(w http.ResponseWriter, months []exportMonthRow, scores []exportScoreRow) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", monthSheet); err != nil {
		h.logger.Error("failed to build xlsx report", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	f.SetCellValue(monthSheet, "A1", "Month")
	f.SetCellValue(monthSheet, "B1", "Total")
	for i, row := range months {
		f.SetCellValue(monthSheet, fmt.Sprintf("A%d", i+2), row.Month)
		f.SetCellValue(monthSheet, fmt.Sprintf("B%d", i+2), row.Total)
	}

	if _, err := f.NewSheet(scoreSheet); err != nil {
		h.logger.Error("failed to build xlsx report", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	f.SetCellValue(scoreSheet, "A1", "Subscription")
	f.SetCellValue(scoreSheet, "B1", "Price")
	f.SetCellValue(scoreSheet, "C1", "Score")
	f.SetCellValue(scoreSheet, "D1", "Tier")
	f.SetCellValue(scoreSheet, "E1", "Cost Per Use")
	for i, row := range scores {
		f.SetCellValue(scoreSheet, fmt.Sprintf("A%d", i+2), row.Subscription)
		f.SetCellValue(scoreSheet, fmt.Sprintf("B%d", i+2), row.Price)
		f.SetCellValue(scoreSheet, fmt.Sprintf("C%d", i+2), row.Score)
		f.SetCellValue(scoreSheet, fmt.Sprintf("D%d", i+2), row.Tier)
		f.SetCellValue(scoreSheet, fmt.Sprintf("E%d", i+2), row.CostPerUse)
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="spending-report.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		h.logger.Error("failed to write xlsx report", slog.Any("error", err))
	}
}
