package dataset

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"
)

// Kind is the storage medium behind a Source.
type Kind string

const (
	KindCSV     Kind = "csv"
	KindXLSX    Kind = "xlsx"
	KindParquet Kind = "parquet"
	KindHTTP    Kind = "http"
	KindSQLite  Kind = "sqlite"
)

// Source describes where a table is read from. Its String form is the
// identity used for caching.
type Source struct {
	Kind     Kind
	Location string // file path or URL
	Table    string // sqlite only
}

// ParseSource classifies a source descriptor:
//
//	sales.csv, sales.xlsx, sales.parquet, https://host/sales.csv, sqlite://sales.db?table=orders
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, errors.New("empty source")
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"):
		return Source{Kind: KindHTTP, Location: raw}, nil
	case strings.HasPrefix(lower, "sqlite://"):
		u, err := url.Parse(raw)
		if err != nil {
			return Source{}, fmt.Errorf("parse sqlite source: %w", err)
		}
		path := u.Host + u.Path
		table := u.Query().Get("table")
		if path == "" || table == "" {
			return Source{}, fmt.Errorf("sqlite source needs a path and ?table=: %q", raw)
		}
		return Source{Kind: KindSQLite, Location: path, Table: table}, nil
	}
	switch strings.ToLower(filepath.Ext(raw)) {
	case ".xlsx", ".xlsm":
		return Source{Kind: KindXLSX, Location: raw}, nil
	case ".parquet":
		return Source{Kind: KindParquet, Location: raw}, nil
	default:
		return Source{Kind: KindCSV, Location: raw}, nil
	}
}

func (s Source) String() string {
	if s.Kind == KindSQLite {
		return "sqlite://" + s.Location + "?table=" + s.Table
	}
	return s.Location
}

// readTable returns the header and data rows of a source, untouched.
func readTable(ctx context.Context, src Source, timeout time.Duration) ([]string, [][]string, error) {
	switch src.Kind {
	case KindCSV:
		f, err := os.Open(src.Location)
		if err != nil {
			return nil, nil, fmt.Errorf("open file: %w", err)
		}
		defer f.Close()
		return readCSV(f)
	case KindXLSX:
		return readXLSX(src.Location)
	case KindParquet:
		return readParquet(src.Location)
	case KindHTTP:
		body, err := fetch(ctx, src.Location, timeout)
		if err != nil {
			return nil, nil, err
		}
		return readCSV(bytes.NewReader(body))
	case KindSQLite:
		return readSQLite(ctx, src, timeout)
	default:
		return nil, nil, fmt.Errorf("unsupported source kind %q", src.Kind)
	}
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, errors.New("no header row")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read rows: %w", err)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// readXLSX reads the first sheet with raw cell values so number formats do
// not leak into parsing. Cells styled with a date format hold serial numbers
// and are rewritten as ISO dates.
func readXLSX(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("no sheets")
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, errors.New("no header row")
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	dateStyles := map[int]bool{}
	for r := 1; r < len(rows); r++ {
		for c, v := range rows[r] {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, nil, fmt.Errorf("cell name: %w", err)
			}
			styleID, err := f.GetCellStyle(sheet, cell)
			if err != nil || styleID == 0 {
				continue
			}
			isDate, seen := dateStyles[styleID]
			if !seen {
				isDate = isDateStyle(f, styleID)
				dateStyles[styleID] = isDate
			}
			if !isDate {
				continue
			}
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, date1904)
			if err != nil {
				continue
			}
			rows[r][c] = formatCellTime(t)
		}
	}
	return rows[0], rows[1:], nil
}

// builtinDateFormats are the built-in number format ids that render a date.
// Time-only formats are left as serials.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

func isDateStyle(f *excelize.File, styleID int) bool {
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	return builtinDateFormats[style.NumFmt]
}

// isDateFormatCode reports whether a custom format code has a year or day
// token outside quoted literals and bracketed sections.
func isDateFormatCode(code string) bool {
	var quoted, bracket bool
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracket = true
		case r == ']':
			bracket = false
		case bracket:
		case r == 'y' || r == 'd':
			return true
		}
	}
	return false
}

func formatCellTime(t time.Time) string {
	t = t.Round(time.Second)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// readParquet reads a flat parquet file. Columns follow schema field order;
// nulls become empty cells.
func readParquet(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat file: %w", err)
	}
	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet file: %w", err)
	}

	var header []string
	for _, field := range pf.Schema().Fields() {
		header = append(header, field.Name())
	}
	if len(header) == 0 {
		return nil, nil, errors.New("no columns in schema")
	}

	reader := parquet.NewReader(pf)
	defer reader.Close()

	var rows [][]string
	for {
		record := map[string]any{}
		if err := reader.Read(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read rows: %w", err)
		}
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = parquetCell(record[col])
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func parquetCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float32:
		return formatNumber(float64(x))
	case float64:
		return formatNumber(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

var httpClient = &http.Client{}

// fetch downloads a remote table, retrying transport errors and 5xx
// responses until timeout elapses. 4xx responses are not retried.
func fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	log := componentLog().WithField("url", rawURL)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = timeout

	var body []byte
	operation := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			log.WithError(err).Warn("fetch failed, retrying")
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode >= 500:
			log.WithField("status", resp.StatusCode).Warn("server error, retrying")
			return fmt.Errorf("server error: %s", resp.Status)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("unexpected status: %s", resp.Status))
		}
		body = data
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return body, nil
}

func readSQLite(ctx context.Context, src Source, timeout time.Duration) ([]string, [][]string, error) {
	if _, err := os.Stat(src.Location); err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db, err := sql.Open("sqlite", src.Location)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT * FROM "%s"`, strings.ReplaceAll(src.Table, `"`, `""`))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query table %s: %w", src.Table, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	var out [][]string
	cells := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]string, len(header))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return header, out, nil
}
