package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var ErrSheetEmpty = errors.New("sheet has no rows")

// SheetRowSource returns the raw "key | value" rows of the pricing spreadsheet
type SheetRowSource interface {
	Name() string
	Rows(ctx context.Context) ([][]string, error)
}

// GoogleSheetsRuleSource reads the pricing spreadsheet with a service account
type GoogleSheetsRuleSource struct {
	client        *sheets.Service
	spreadsheetID string
	readRange     string
}

// NewGoogleSheetsRuleSource creates a source from a service account credentials file
func NewGoogleSheetsRuleSource(ctx context.Context, credentialsPath, spreadsheetID, readRange string) (*GoogleSheetsRuleSource, error) {
	client, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &GoogleSheetsRuleSource{
		client:        client,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
	}, nil
}

func (s *GoogleSheetsRuleSource) Name() string {
	return "sheets:" + s.spreadsheetID + "!" + s.readRange
}

// Rows reads displayed values so a percent-formatted cell arrives as "3%" the same way the
// XLSX source reports it. The sheet must use a locale with a dot decimal separator.
func (s *GoogleSheetsRuleSource) Rows(ctx context.Context) ([][]string, error) {
	resp, err := s.client.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet values: %w", err)
	}
	if len(resp.Values) == 0 {
		return nil, ErrSheetEmpty
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// XLSXRuleSource reads the pricing rows from a local workbook
type XLSXRuleSource struct {
	path  string
	sheet string
}

func NewXLSXRuleSource(path, sheet string) *XLSXRuleSource {
	return &XLSXRuleSource{path: path, sheet: sheet}
}

func (s *XLSXRuleSource) Name() string {
	return "xlsx:" + s.path + "#" + s.sheet
}

func (s *XLSXRuleSource) Rows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrSheetEmpty
	}
	return rows, nil
}
