// Package excel genera y lee planillas XLSX de conteo físico: el sistema
// exporta las líneas de la sesión, el equipo cuenta en piso sobre la planilla
// y el archivo diligenciado se importa de vuelta como cantidades físicas.
package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

const sheetName = "Conteo"

var sheetHeaders = []string{"product_id", "sku", "product_name", "system_quantity", "physical_quantity"}

// Alias aceptados al importar (encabezados escritos a mano o traducidos).
var headerAliases = map[string]string{
	"product_id":        "product_id",
	"producto":          "product_id",
	"id producto":       "product_id",
	"sku":               "sku",
	"product_name":      "product_name",
	"nombre":            "product_name",
	"system_quantity":   "system_quantity",
	"cantidad sistema":  "system_quantity",
	"physical_quantity": "physical_quantity",
	"cantidad física":   "physical_quantity",
	"cantidad fisica":   "physical_quantity",
	"conteo":            "physical_quantity",
}

// WriteCountSheet escribe la planilla de una sesión de conteo. La columna de
// cantidad física se deja vacía para diligenciar en piso.
func WriteCountSheet(w io.Writer, count *entity.InventoryCount, items []*entity.InventoryCountItem, products map[string]*entity.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	for col, h := range sheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for row, item := range items {
		name, sku := "", ""
		if p, ok := products[item.ProductID]; ok {
			name, sku = p.Name, p.SKU
		}
		values := []any{item.ProductID, sku, name, item.SystemQuantity.String(), nil}
		for col, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row+2, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// CountedRow una fila diligenciada de la planilla.
type CountedRow struct {
	ProductID        string
	PhysicalQuantity decimal.Decimal
}

// ParseCountSheet lee una planilla diligenciada. Las filas sin cantidad
// física se omiten (línea aún sin contar); una cantidad no numérica es error.
func ParseCountSheet(reader io.Reader) ([]CountedRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("el archivo no tiene hojas")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("el archivo está vacío")
	}

	colMap := mapColumns(rows[0])
	idCol, ok := colMap["product_id"]
	if !ok {
		return nil, fmt.Errorf("falta la columna product_id")
	}
	qtyCol, ok := colMap["physical_quantity"]
	if !ok {
		return nil, fmt.Errorf("falta la columna physical_quantity")
	}

	var out []CountedRow
	for i, row := range rows[1:] {
		id := cellAt(row, idCol)
		qty := cellAt(row, qtyCol)
		if id == "" || qty == "" {
			continue
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(qty, ",", "."))
		if err != nil {
			return nil, fmt.Errorf("fila %d: cantidad inválida %q", i+2, qty)
		}
		out = append(out, CountedRow{ProductID: id, PhysicalQuantity: d})
	}
	return out, nil
}

func mapColumns(header []string) map[string]int {
	m := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if canonical, ok := headerAliases[key]; ok {
			if _, dup := m[canonical]; !dup {
				m[canonical] = i
			}
		}
	}
	return m
}

func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
