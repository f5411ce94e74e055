package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	f.SetSheetName(f.GetSheetName(0), sheet)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}

	path := filepath.Join(t.TempDir(), "pricing.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXRuleSourceRows(t *testing.T) {
	path := writeWorkbook(t, "Pricing", [][]any{
		{"key", "value"},
		{"base:200x100", 1170},
		{"startup_discount", 25},
	})
	src := NewXLSXRuleSource(path, "Pricing")

	rows, err := src.Rows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"key", "value"},
		{"base:200x100", "1170"},
		{"startup_discount", "25"},
	}, rows)
	assert.Contains(t, src.Name(), "Pricing")
}

func TestXLSXRuleSourceErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewXLSXRuleSource(filepath.Join(t.TempDir(), "missing.xlsx"), "Pricing").Rows(ctx)
	assert.Error(t, err)

	path := writeWorkbook(t, "Pricing", [][]any{{"key", "value"}})
	_, err = NewXLSXRuleSource(path, "Other").Rows(ctx)
	assert.Error(t, err)

	empty := writeWorkbook(t, "Pricing", nil)
	_, err = NewXLSXRuleSource(empty, "").Rows(ctx)
	assert.ErrorIs(t, err, ErrSheetEmpty)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewXLSXRuleSource(path, "Pricing").Rows(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}
