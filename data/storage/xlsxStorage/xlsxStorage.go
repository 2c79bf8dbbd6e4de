package xlsxStorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"github.com/yuchenglin/investool/config"
	"github.com/yuchenglin/investool/internal/model"
	"github.com/yuchenglin/investool/utils"
)

const sheetName = "Portfolio"

var header = []any{
	"Category", "Asset_Type", "Ticker", "Quantity", "Avg_Cost",
	"Currency", "Manual_Price", "Last_Update", "Account_ID",
}

// XLSXStorage persists holdings in a portfolio workbook. Legacy workbooks
// carry a single "Type" column mixing category and asset type; the mapping to
// the typed schema happens here, once, at the persistence boundary.
type XLSXStorage struct {
	cfg *config.Config
}

func New(cfg *config.Config) *XLSXStorage {
	return &XLSXStorage{cfg: cfg}
}

func (s *XLSXStorage) LoadHoldings(ctx context.Context) ([]model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXStorage.LoadHoldings"

	slog.Debug("LoadHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.String("file", s.cfg.Storage.PortfolioFile))

	f, err := excelize.OpenFile(s.cfg.Storage.PortfolioFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("portfolio file not found, starting empty", slog.String("rqID", rqID), slog.String("op", op))
			return []model.Holding{}, nil
		}
		slog.Error("failed to open portfolio file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	sheet := sheetName
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		slog.Error("failed to read rows", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if len(rows) < 2 {
		return []model.Holding{}, nil
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[name] = i
	}

	holdings := make([]model.Holding, 0, len(rows)-1)
	for _, row := range rows[1:] {
		holding, err := parseRow(columns, row)
		if err != nil {
			slog.Warn("skipping invalid holding row", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			continue
		}
		holdings = append(holdings, holding)
	}

	slog.Info("holdings loaded", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(holdings)))

	return holdings, nil
}

func (s *XLSXStorage) SaveHoldings(ctx context.Context, holdings []model.Holding) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXStorage.SaveHoldings"

	slog.Debug("SaveHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(holdings)))

	f, err := s.buildWorkbook(ctx, holdings)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := f.SaveAs(s.cfg.Storage.PortfolioFile); err != nil {
		slog.Error("failed to save portfolio file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SaveHoldings completed", slog.String("rqID", rqID), slog.String("op", op))

	return nil
}

// Workbook renders holdings into workbook bytes, for backup upload.
func (s *XLSXStorage) Workbook(ctx context.Context, holdings []model.Holding) ([]byte, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXStorage.Workbook"

	f, err := s.buildWorkbook(ctx, holdings)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return buf.Bytes(), nil
}

func (s *XLSXStorage) buildWorkbook(ctx context.Context, holdings []model.Holding) (*excelize.File, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXStorage.buildWorkbook"

	f := excelize.NewFile()

	if _, err := f.NewSheet(sheetName); err != nil {
		slog.Error("failed to create sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, err
	}

	for i, holding := range holdings {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{
			string(holding.Category),
			holding.AssetType,
			holding.Symbol,
			holding.Quantity.String(),
			holding.AvgCost.String(),
			holding.Currency,
			holding.ManualPrice.String(),
			holding.LastUpdate,
			holding.AccountID,
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return f, nil
}

func parseRow(columns map[string]int, row []string) (model.Holding, error) {
	cell := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	symbol := cell("Ticker")
	if symbol == "" {
		return model.Holding{}, errors.New("missing ticker")
	}

	holding := model.Holding{
		Symbol:      symbol,
		AssetType:   cell("Asset_Type"),
		Currency:    cell("Currency"),
		LastUpdate:  cell("Last_Update"),
		AccountID:   cell("Account_ID"),
		Quantity:    parseDecimal(cell("Quantity")),
		AvgCost:     parseDecimal(cell("Avg_Cost")),
		ManualPrice: parseDecimal(cell("Manual_Price")),
	}

	category := cell("Category")
	if category == "" {
		// Legacy schema: the "Type" column carried the asset type, with
		// cash and liability categories encoded as special type values.
		legacyType := cell("Type")
		holding.AssetType = legacyType
		category = string(legacyCategory(legacyType))
	}

	switch model.Category(category) {
	case model.CategoryInvestment, model.CategoryCash, model.CategoryLiability:
		holding.Category = model.Category(category)
	default:
		return model.Holding{}, fmt.Errorf("unknown category %q for %s", category, symbol)
	}

	if holding.Currency == "" {
		holding.Currency = "USD"
	}
	if holding.LastUpdate == "" {
		holding.LastUpdate = model.LastUpdateUnset
	}
	if holding.AccountID == "" {
		holding.AccountID = "default_main"
	}

	if holding.Quantity.IsNegative() || holding.AvgCost.IsNegative() {
		return model.Holding{}, fmt.Errorf("negative quantity or cost for %s", symbol)
	}

	return holding, nil
}

func legacyCategory(legacyType string) model.Category {
	switch legacyType {
	case "現金", "Cash":
		return model.CategoryCash
	case "負債", "Liability":
		return model.CategoryLiability
	default:
		return model.CategoryInvestment
	}
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" || s == "N/A" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
