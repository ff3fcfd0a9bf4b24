// Package legacy lee exportaciones de sistemas anteriores. Los productos importados solo
// traen el contador agregado de stock; la reconciliación crea después su capa de ajuste.
package legacy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/inventario-fifo/internal/application/dto"
)

// Charsets soportados para el archivo de entrada.
const (
	CharsetUTF8   = "utf-8"
	CharsetLatin1 = "iso-8859-1"
)

// RowError línea del archivo que no pudo interpretarse.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("línea %d: %v", e.Line, e.Err) }
func (e *RowError) Unwrap() error { return e.Err }

// ParseProducts lee un CSV separado por ';' con columnas sku;nombre;costo;stock.
// La primera fila se omite si es encabezado. Costos con coma decimal ("1234,50") se aceptan.
// Devuelve las filas válidas y los errores por fila; un error de lectura aborta.
func ParseProducts(r io.Reader, charset string) ([]dto.CreateProductRequest, []error, error) {
	switch strings.ToLower(strings.ReplaceAll(charset, "_", "-")) {
	case "", CharsetUTF8, "utf8":
	case CharsetLatin1, "iso8859-1", "latin1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	default:
		return nil, nil, fmt.Errorf("charset no soportado: %s", charset)
	}

	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		out     []dto.CreateProductRequest
		rowErrs []error
		line    int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("leer CSV: %w", err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}
		p, err := parseRow(rec)
		if err != nil {
			rowErrs = append(rowErrs, &RowError{Line: line, Err: err})
			continue
		}
		out = append(out, p)
	}
	return out, rowErrs, nil
}

func isHeader(rec []string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "sku")
}

func parseRow(rec []string) (dto.CreateProductRequest, error) {
	if len(rec) < 4 {
		return dto.CreateProductRequest{}, fmt.Errorf("se esperaban 4 columnas, hay %d", len(rec))
	}
	sku := strings.TrimSpace(rec[0])
	name := strings.TrimSpace(rec[1])
	if sku == "" || name == "" {
		return dto.CreateProductRequest{}, errors.New("sku y nombre son requeridos")
	}
	cost, err := parseCost(rec[2])
	if err != nil {
		return dto.CreateProductRequest{}, err
	}
	stock, err := strconv.Atoi(strings.TrimSpace(rec[3]))
	if err != nil || stock < 0 {
		return dto.CreateProductRequest{}, fmt.Errorf("stock inválido %q", rec[3])
	}
	return dto.CreateProductRequest{SKU: sku, Name: name, Cost: cost, InitialStock: stock}, nil
}

func parseCost(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("costo inválido %q", s)
	}
	return d, nil
}
