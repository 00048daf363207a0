package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/xuri/excelize/v2"

	"certsync/internal/product/models"
)

// CSVHeader lists every stored column under its raw name.
var CSVHeader = []string{
	"cid", "brand", "product", "model_number", "date_certified", "category",
	"frequency_band", "wifi_support_list", "wifi_n", "wifi_ac", "wifi_6", "wifi_7",
}

// SheetHeader is the curated, human-facing column set of the spreadsheet.
var SheetHeader = []string{
	"CID", "Brand", "Product", "Model Number", "Date Certified", "Category",
	"Frequency Band", "Wi-Fi Support List",
}

const sheetName = "Products"

// WriteCSV encodes products with a header row.
func WriteCSV(w io.Writer, products []models.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range products {
		record := []string{
			p.ID, p.Brand, p.Name, p.ModelNumber, p.CertifiedOn.String(), p.Category,
			p.FrequencyBand, p.SupportList(),
			strconv.FormatBool(p.Has(models.CapabilityN)),
			strconv.FormatBool(p.Has(models.CapabilityAC)),
			strconv.FormatBool(p.Has(models.Capability6)),
			strconv.FormatBool(p.Has(models.Capability7)),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSVIDs returns the set of cid values in a CSV written by WriteCSV.
func ReadCSVIDs(r io.Reader) (map[string]struct{}, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := slices.Index(header, CSVHeader[0])
	if col < 0 {
		return nil, errors.New("csv has no cid column")
	}
	ids := make(map[string]struct{})
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return ids, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		ids[record[col]] = struct{}{}
	}
}

// WriteXLSX encodes products as a single-sheet workbook with a bold,
// frozen header row.
func WriteXLSX(w io.Writer, products []models.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(SheetHeader))
	for i, h := range SheetHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write sheet header: %w", err)
	}

	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			p.ID, p.Brand, p.Name, p.ModelNumber, p.CertifiedOn.String(),
			p.Category, p.FrequencyBand, p.SupportList(),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write sheet row %s: %w", p.ID, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(SheetHeader), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("encode xlsx: %w", err)
	}
	return nil
}
