package snapshot

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/COG-GTM/devin-hhs/analysis"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snap")
	in := analysis.Inputs{
		Providers: []analysis.ProviderAggregate{
			{NPI: "1417262056", TotalSpending: 7181659427.5, TotalClaims: 1200000, Beneficiaries: 90000, UniqueCodes: 14},
			{NPI: "1699703827", TotalSpending: 1234.56, TotalClaims: 12, Beneficiaries: 3},
		},
		HCPCS: []analysis.HCPCSAggregate{
			{Code: "T1019", TotalSpending: 1e10, TotalClaims: 5e6, Beneficiaries: 4e5, ProviderCount: 9000},
		},
		Prices: []analysis.HCPCSPriceAggregate{
			{Code: "T1019", Providers: 9000, MinPrice: 0.01, MaxPrice: 412.5, AvgPrice: 21.3, StdDevPrice: 8.75},
		},
	}

	if Exists(dir) {
		t.Fatal("Exists before Save")
	}
	if err := Save(dir, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !Exists(dir) {
		t.Fatal("Exists after Save = false")
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Providers) != 2 {
		t.Fatalf("Expected 2 providers, got %d", len(got.Providers))
	}
	if got.Providers[0] != in.Providers[0] {
		t.Errorf("provider = %+v, want %+v", got.Providers[0], in.Providers[0])
	}
	if len(got.HCPCS) != 1 || got.HCPCS[0] != in.HCPCS[0] {
		t.Errorf("hcpcs = %+v, want %+v", got.HCPCS, in.HCPCS)
	}
	if len(got.Prices) != 1 || got.Prices[0] != in.Prices[0] {
		t.Errorf("prices = %+v, want %+v", got.Prices, in.Prices)
	}
	if len(got.Mismatches) != 0 {
		t.Errorf("Expected no mismatches, got %d", len(got.Mismatches))
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFile(filepath.Join(dir, ProvidersFile), []analysis.ProviderAggregate{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Expected error for incomplete snapshot")
	}
}

func TestWriterCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.parquet")
	w, err := NewWriter[analysis.MismatchAggregate](path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	rows := []analysis.MismatchAggregate{
		{BillingNPI: "1922467554", ServicingNPI: "1300000000", Spending: 10, Claims: 200, UniqueCodes: 3},
		{BillingNPI: "1922467554", ServicingNPI: "1300000001", Spending: 20, Claims: 300, UniqueCodes: 1},
	}
	if err := w.Write(rows...); err != nil {
		t.Fatalf("write: %v", err)
	}
	if w.Count() != 2 {
		t.Errorf("Expected count 2, got %d", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadFile[analysis.MismatchAggregate](path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[1] != rows[1] {
		t.Errorf("rows = %+v", got)
	}
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spending.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write CSV: %v", err)
	}
	return path
}

func TestSpendingReader(t *testing.T) {
	path := writeCSV(t, "\ufeffBILLING_PROVIDER_NPI,servicing_provider_npi,hcpcs_code,claim_month,total_unique_beneficiaries,total_claims,total_paid,extra\n"+
		"1417262056,1417262056,t1019,2024-01-01,12,340.0,10234.50,x\n"+
		"\n"+
		"1699703827,,99213,2024-02,3,7,\n")

	r, err := NewSpendingReader(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	first, err := r.Next()
	if err != nil {
		t.Fatalf("first row: %v", err)
	}
	if first.HCPCSCode != "T1019" || first.ClaimMonth != "2024-01" || first.Claims != 340 || first.Beneficiaries != 12 {
		t.Errorf("first = %+v", first)
	}
	if first.Paid.String() != "10234.50" {
		t.Errorf("paid = %s, want 10234.50", first.Paid)
	}

	second, err := r.Next()
	if err != nil {
		t.Fatalf("second row: %v", err)
	}
	if second.ServicingNPI != "1699703827" {
		t.Errorf("servicing = %q, want billing NPI", second.ServicingNPI)
	}
	if !second.Paid.IsZero() {
		t.Errorf("paid = %s, want 0", second.Paid)
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
	if r.RowNum() != 3 {
		t.Errorf("RowNum = %d, want 3", r.RowNum())
	}
}

func TestSpendingReaderErrors(t *testing.T) {
	if _, err := NewSpendingReader(writeCSV(t, "billing_provider_npi,hcpcs_code\n1,2\n")); err == nil {
		t.Error("Expected missing column error")
	}

	path := writeCSV(t, "billing_provider_npi,servicing_provider_npi,hcpcs_code,claim_month,total_unique_beneficiaries,total_claims,total_paid\n"+
		"1417262056,1417262056,T1019,2024-01,abc,1,1\n")
	r, err := NewSpendingReader(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	if _, err := r.Next(); err == nil {
		t.Error("Expected parse error for non-numeric beneficiaries")
	}
}
