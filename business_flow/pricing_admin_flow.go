package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/inox-pricing/app/dto"
	"github.com/amirphl/inox-pricing/pricing"
	"github.com/amirphl/inox-pricing/utils"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// PricingAdminFlow defines privileged operations on the pricing rules
type PricingAdminFlow interface {
	ReloadRuleSet(ctx context.Context) (*dto.ReloadRuleSetResponse, error)
	RefreshSheetRules(ctx context.Context) (*dto.RefreshSheetRulesResponse, error)
	ExportPriceList(ctx context.Context) (filename string, content []byte, err error)
}

type PricingAdminFlowImpl struct {
	provider pricing.RuleSetProvider
	sheet    SheetRulesProvider
	logger   *zap.Logger
}

func NewPricingAdminFlow(provider pricing.RuleSetProvider, sheet SheetRulesProvider, logger *zap.Logger) PricingAdminFlow {
	return &PricingAdminFlowImpl{provider: provider, sheet: sheet, logger: logger}
}

// ReloadRuleSet re-reads the rule source. On failure the previous fingerprint is kept and
// the next quote retries the source.
func (f *PricingAdminFlowImpl) ReloadRuleSet(ctx context.Context) (*dto.ReloadRuleSetResponse, error) {
	previous := f.provider.Fingerprint()

	rules, err := f.provider.Reload(ctx)
	ruleSetReloadsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		f.logger.Error("Rule set reload failed",
			zap.String("active_fingerprint", f.provider.Fingerprint()),
			zap.String("request_id", utils.RequestIDFromContext(ctx)),
			zap.Error(err))
		return nil, NewBusinessError(CodePricingConfigUnavailable, "Rule set reload failed", err)
	}

	current := rules.Fingerprint()
	f.logger.Info("Rule set reloaded",
		zap.String("version", rules.Version),
		zap.String("previous_fingerprint", previous),
		zap.String("fingerprint", current),
		zap.String("request_id", utils.RequestIDFromContext(ctx)))

	return &dto.ReloadRuleSetResponse{
		Message:             "Rule set reloaded successfully",
		Version:             rules.Version,
		Fingerprint:         current,
		PreviousFingerprint: previous,
		Changed:             previous != current,
	}, nil
}

// RefreshSheetRules drops the cached spreadsheet rules
func (f *PricingAdminFlowImpl) RefreshSheetRules(ctx context.Context) (*dto.RefreshSheetRulesResponse, error) {
	if f.sheet == nil || !f.sheet.Enabled() {
		return &dto.RefreshSheetRulesResponse{
			Message: "Spreadsheet pricing is not enabled",
			Enabled: false,
		}, nil
	}
	if err := f.sheet.Invalidate(ctx); err != nil {
		if !errors.Is(err, ErrCacheNotAvailable) {
			return nil, NewBusinessError(CodeSheetRulesUnavailable, "Failed to refresh spreadsheet rules", err)
		}
		// The in-process cache is already cleared; other replicas catch up when their TTL ends.
		f.logger.Warn("Shared spreadsheet cache could not be cleared", zap.Error(err))
	}
	f.logger.Info("Spreadsheet rule cache cleared", zap.String("request_id", utils.RequestIDFromContext(ctx)))

	return &dto.RefreshSheetRulesResponse{
		Message: "Spreadsheet rules will be fetched on the next quote",
		Enabled: true,
	}, nil
}

// ExportPriceList renders the unit price of one table for every configuration into a workbook
func (f *PricingAdminFlowImpl) ExportPriceList(ctx context.Context) (string, []byte, error) {
	rules, err := f.provider.Load(ctx)
	if err != nil {
		return "", nil, pricingError(err, CodePricingConfigUnavailable)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	const pricesSheet = "Unit prices"
	xl.SetSheetName(xl.GetSheetName(0), pricesSheet)

	header := []any{"product_type", "dimension", "advance_payment"}
	for _, d := range pricing.DeliveryTiers() {
		header = append(header, fmt.Sprintf("delivery_%d_days", d.Days()))
	}
	if err := xl.SetSheetRow(pricesSheet, "A1", &header); err != nil {
		return "", nil, NewBusinessError(CodePriceListExportFailed, "Failed to write price list", err)
	}
	if style, err := xl.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = xl.SetCellStyle(pricesSheet, "A1", last, style)
	}

	row := 2
	for _, cfg := range priceListConfigurations(rules) {
		for _, advance := range pricing.AdvanceTiers() {
			record := []any{cfg.ProductType.String(), cfg.Dimension, advance.String()}
			for _, delivery := range pricing.DeliveryTiers() {
				order := cfg
				order.AdvanceTier = advance
				order.DeliveryTier = delivery
				breakdown, err := pricing.ComputePrice(order, rules)
				if err != nil {
					return "", nil, NewBusinessError(CodePriceListExportFailed, "Failed to compute price list", err)
				}
				record = append(record, breakdown.Unit)
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := xl.SetSheetRow(pricesSheet, cell, &record); err != nil {
				return "", nil, NewBusinessError(CodePriceListExportFailed, "Failed to write price list", err)
			}
			row++
		}
	}

	const infoSheet = "Rule set"
	if _, err := xl.NewSheet(infoSheet); err != nil {
		return "", nil, NewBusinessError(CodePriceListExportFailed, "Failed to write price list", err)
	}
	info := [][]any{
		{"version", rules.Version},
		{"fingerprint", rules.Fingerprint()},
		{"currency", rules.Currency},
		{"bulk_discount_per_pair", rules.BulkDiscountPerPair},
		{"generated_at", utils.UTCNow().Format(time.RFC3339)},
	}
	for i, r := range info {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := xl.SetSheetRow(infoSheet, cell, &r); err != nil {
			return "", nil, NewBusinessError(CodePriceListExportFailed, "Failed to write price list", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError(CodePriceListExportFailed, "Failed to write price list", err)
	}
	return priceListFilename(rules.Version), buf.Bytes(), nil
}

// priceListConfigurations lists one single-table order per offered product
func priceListConfigurations(rules *pricing.RuleSet) []pricing.OrderConfiguration {
	var out []pricing.OrderConfiguration
	for _, dim := range rules.DimensionKeys() {
		out = append(out, pricing.OrderConfiguration{ProductType: pricing.ProductDimensioned, Dimension: dim, Quantity: 1})
	}
	out = append(out,
		pricing.OrderConfiguration{ProductType: pricing.ProductTableOnly, Quantity: 1},
		pricing.OrderConfiguration{ProductType: pricing.ProductAllInOne, Quantity: 1},
	)
	return out
}

func priceListFilename(version string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, version)
	if safe == "" {
		safe = "current"
	}
	return "price-list-" + safe + ".xlsx"
}
