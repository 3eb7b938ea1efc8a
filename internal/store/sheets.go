// Package store persists scholarship records in a Google Sheets
// worksheet.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	worksheetTitle = "Scholarships"
	readRange      = worksheetTitle + "!A:G"
	appendRange    = worksheetTitle + "!A1"

	bootstrapRows = 1000
	bootstrapCols = 10
)

// SheetsStore reads and appends records in one spreadsheet.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	logger        *zap.Logger
}

// New builds a SheetsStore authenticated with a service-account key.
func New(ctx context.Context, credentialsJSON []byte, spreadsheetID string, logger *zap.Logger) (*SheetsStore, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("sheets credentials are required")
	}
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger,
	}, nil
}

// EnsureSheet creates the Scholarships worksheet with its header row if
// it does not exist yet.
func (s *SheetsStore) EnsureSheet(ctx context.Context) error {
	spreadsheet, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == worksheetTitle {
			return nil
		}
	}

	addSheet := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: worksheetTitle,
					GridProperties: &sheets.GridProperties{
						RowCount:    bootstrapRows,
						ColumnCount: bootstrapCols,
					},
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, addSheet).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add worksheet %q: %w", worksheetTitle, err)
	}

	headerRow := make([]any, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := s.appendRow(ctx, headerRow); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	s.logger.Info("created worksheet", zap.String("title", worksheetTitle))
	return nil
}

// Append adds one record as a new row.
func (s *SheetsStore) Append(ctx context.Context, rec Record) error {
	if err := s.appendRow(ctx, rec.row()); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	s.logger.Info("saved record", zap.String("program_name", rec.ProgramName))
	return nil
}

// ReadAll returns every stored record, skipping the header row.
func (s *SheetsStore) ReadAll(ctx context.Context) ([]Record, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	records := make([]Record, 0, len(resp.Values))
	for i, row := range resp.Values {
		if i == 0 && isHeaderRow(row) {
			continue
		}
		if len(row) == 0 {
			continue
		}
		records = append(records, recordFromRow(row))
	}
	return records, nil
}

func (s *SheetsStore) appendRow(ctx context.Context, row []any) error {
	vr := &sheets.ValueRange{Values: [][]any{row}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, appendRange, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
