package eod

// loader.go — carga los CSV de datos end-of-day a memoria.
//
// El chain crudo trae headers con corchetes ([QUOTE_DATE], [C_BID], ...)
// que aquí se normalizan. Los campos de precio vacíos o no numéricos se
// cargan como NaN en vez de fallar la fila: el pipeline original los
// trataba igual y el engine sabe saltárselos.

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/voltrader/internal/domain"
)

// dateLayouts son los formatos de fecha aceptados en los CSV.
var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "01/02/2006"}

// LoadQuotes lee el CSV del chain de opciones y construye la QuoteTable.
func LoadQuotes(path string) (*domain.QuoteTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eod.LoadQuotes: open %q: %w", path, err)
	}
	defer f.Close()

	quotes, err := parseQuotes(f)
	if err != nil {
		return nil, fmt.Errorf("eod.LoadQuotes: %q: %w", path, err)
	}
	return domain.NewQuoteTable(quotes), nil
}

func parseQuotes(r io.Reader) ([]domain.OptionQuote, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)

	for _, required := range []string{"QUOTE_DATE", "EXPIRE_DATE", "STRIKE", "UNDERLYING_LAST"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %s", required)
		}
	}

	var quotes []domain.OptionQuote
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		quoteDate, err := parseDate(field(record, cols, "QUOTE_DATE"))
		if err != nil {
			return nil, fmt.Errorf("line %d: quote date: %w", line, err)
		}
		expireDate, err := parseDate(field(record, cols, "EXPIRE_DATE"))
		if err != nil {
			return nil, fmt.Errorf("line %d: expire date: %w", line, err)
		}
		strike, err := strconv.ParseFloat(field(record, cols, "STRIKE"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: strike: %w", line, err)
		}

		quotes = append(quotes, domain.OptionQuote{
			QuoteDate:       quoteDate,
			ExpireDate:      expireDate,
			Strike:          strike,
			UnderlyingPrice: floatOrNaN(field(record, cols, "UNDERLYING_PRICE")),
			UnderlyingLast:  floatOrNaN(field(record, cols, "UNDERLYING_LAST")),
			CallBid:         floatOrNaN(field(record, cols, "C_BID")),
			CallAsk:         floatOrNaN(field(record, cols, "C_ASK")),
			PutBid:          floatOrNaN(field(record, cols, "P_BID")),
			PutAsk:          floatOrNaN(field(record, cols, "P_ASK")),
		})
	}
	return quotes, nil
}

// LoadSignals lee el CSV de señales de mispricing.
// Las filas malformadas se saltan y se cuentan, no abortan la carga.
func LoadSignals(path string) ([]domain.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eod.LoadSignals: open %q: %w", path, err)
	}
	defer f.Close()

	signals, skipped, err := parseSignals(f)
	if err != nil {
		return nil, fmt.Errorf("eod.LoadSignals: %q: %w", path, err)
	}
	if skipped > 0 {
		slog.Warn("skipped malformed signal rows", "rows", skipped, "path", path)
	}
	return signals, nil
}

func parseSignals(r io.Reader) ([]domain.Signal, int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)

	for _, required := range []string{"QUOTE_DATE", "EXPIRE_DATE", "STRIKE", "ACTION", "POSITION_TYPE"} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("missing column %s", required)
		}
	}

	var signals []domain.Signal
	skipped := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		quoteDate, err1 := parseDate(field(record, cols, "QUOTE_DATE"))
		expireDate, err2 := parseDate(field(record, cols, "EXPIRE_DATE"))
		strike, err3 := strconv.ParseFloat(field(record, cols, "STRIKE"), 64)
		action, err4 := domain.ParseAction(field(record, cols, "ACTION"))
		posType, err5 := domain.ParsePositionType(field(record, cols, "POSITION_TYPE"))
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			skipped++
			continue
		}

		signals = append(signals, domain.Signal{
			QuoteDate:    quoteDate,
			ExpireDate:   expireDate,
			Strike:       strike,
			Action:       action,
			PositionType: posType,
			Confidence:   floatOrNaN(field(record, cols, "CONFIDENCE")),
		})
	}
	return signals, skipped, nil
}

// indexColumns mapea nombre de columna (normalizado, sin corchetes,
// mayúsculas) a su índice.
func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToUpper(strings.TrimSpace(name))
		name = strings.ReplaceAll(name, "[", "")
		name = strings.ReplaceAll(name, "]", "")
		cols[name] = i
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// floatOrNaN parsea un float, devolviendo NaN para vacío o basura.
func floatOrNaN(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
