package snapshot

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/COG-GTM/devin-hhs/db"
	"github.com/COG-GTM/devin-hhs/money"
)

var spendingColumns = []string{
	"billing_provider_npi",
	"servicing_provider_npi",
	"hcpcs_code",
	"claim_month",
	"total_unique_beneficiaries",
	"total_claims",
	"total_paid",
}

// SpendingReader streams the HHS provider spending CSV one row at a time.
// Columns are located by header name, so extra columns and any column order
// are accepted.
type SpendingReader struct {
	file   *os.File
	csv    *csv.Reader
	rowNum int64
	colIdx map[string]int
}

func NewSpendingReader(path string) (*SpendingReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	bufReader := bufio.NewReaderSize(file, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	r := &SpendingReader{file: file, csv: reader, colIdx: make(map[string]int)}
	if err := r.readHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

func (r *SpendingReader) readHeader() error {
	header, err := r.csv.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	r.rowNum++
	for i, h := range header {
		r.colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, col := range spendingColumns {
		if _, ok := r.colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Next returns the next data row. Returns io.EOF when done.
func (r *SpendingReader) Next() (db.SpendingRow, error) {
	for {
		row, err := r.csv.Read()
		if err != nil {
			return db.SpendingRow{}, err
		}
		r.rowNum++

		// Skip empty rows
		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			continue
		}

		out, err := r.parse(row)
		if err != nil {
			return db.SpendingRow{}, fmt.Errorf("row %d: %w", r.rowNum, err)
		}
		return out, nil
	}
}

func (r *SpendingReader) parse(row []string) (db.SpendingRow, error) {
	out := db.SpendingRow{
		BillingNPI:   r.val(row, "billing_provider_npi"),
		ServicingNPI: r.val(row, "servicing_provider_npi"),
		HCPCSCode:    strings.ToUpper(r.val(row, "hcpcs_code")),
		ClaimMonth:   claimMonth(r.val(row, "claim_month")),
	}
	if out.BillingNPI == "" {
		return out, errors.New("empty billing_provider_npi")
	}
	if out.ServicingNPI == "" {
		out.ServicingNPI = out.BillingNPI
	}

	var err error
	if out.Beneficiaries, err = r.count(row, "total_unique_beneficiaries"); err != nil {
		return out, err
	}
	if out.Claims, err = r.count(row, "total_claims"); err != nil {
		return out, err
	}
	paid := r.val(row, "total_paid")
	if paid == "" {
		paid = "0"
	}
	if out.Paid, err = money.Parse(paid); err != nil {
		return out, fmt.Errorf("total_paid: %w", err)
	}
	return out, nil
}

func (r *SpendingReader) val(row []string, col string) string {
	if i, ok := r.colIdx[col]; ok && i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func (r *SpendingReader) count(row []string, col string) (int64, error) {
	s := r.val(row, col)
	if s == "" {
		return 0, nil
	}
	// Some exports write counts as "12.0".
	s = strings.TrimSuffix(s, ".0")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", col, err)
	}
	return n, nil
}

// claimMonth reduces "2024-01-01" style dates to "2024-01".
func claimMonth(s string) string {
	if len(s) > 7 && s[4] == '-' && s[7] == '-' {
		return s[:7]
	}
	return s
}

// RowNum returns the current CSV row number (1-based, header included).
func (r *SpendingReader) RowNum() int64 {
	return r.rowNum
}

func (r *SpendingReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
