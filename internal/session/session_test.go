package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"sales-dashboard-go/internal/dataset"
	"sales-dashboard-go/internal/filter"
	"sales-dashboard-go/internal/resolver"
)

const superstoreCSV = "Order Date,Category,Region,Sales,Profit\n" +
	"2023-01-05,Furniture,West,100,20\n" +
	"2023-01-20,Technology,East,250,-10\n" +
	"2023-02-10,Furniture,East,50,5\n"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newStore() *Store {
	return NewStore(time.Second)
}

func TestCreateCachesDataset(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	s, err := store.Create(ctx, Settings{Source: writeCSV(t, superstoreCSV)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := s.State(ctx); err != nil {
			t.Fatalf("State: %v", err)
		}
	}
	if s.Loads() != 1 {
		t.Errorf("expected a single load, got %d", s.Loads())
	}
	if got, err := store.Get(s.ID); err != nil || got != s {
		t.Errorf("Get returned %v, %v", got, err)
	}
}

func TestHeuristicSessionDerivesMonth(t *testing.T) {
	ctx := context.Background()
	s, err := newStore().Create(ctx, Settings{Source: writeCSV(t, superstoreCSV)})
	if err != nil {
		t.Fatal(err)
	}
	st, _ := s.State(ctx)

	if col, _ := st.Binding.Column(resolver.OrderDate); col != "Order Date" {
		t.Errorf("expected Order Date bound, got %q", col)
	}
	if v, _ := st.Dataset.Value(2, dataset.MonthColumn); v != "2023-02" {
		t.Errorf("expected Month 2023-02, got %q", v)
	}
	if !reflect.DeepEqual(st.Selection[resolver.Region], []string{"West", "East"}) {
		t.Errorf("unexpected default region selection %v", st.Selection[resolver.Region])
	}
}

func TestInvalidateReloadsChangedSource(t *testing.T) {
	ctx := context.Background()
	path := writeCSV(t, superstoreCSV)
	s, err := newStore().Create(ctx, Settings{Source: path})
	if err != nil {
		t.Fatal(err)
	}

	extra := superstoreCSV + "2023-03-01,Office Supplies,South,75,9\n"
	if err := os.WriteFile(path, []byte(extra), 0o644); err != nil {
		t.Fatal(err)
	}
	st, _ := s.State(ctx)
	if st.Dataset.Len() != 3 {
		t.Fatalf("cached dataset should be served until invalidated, got %d rows", st.Dataset.Len())
	}

	s.Invalidate()
	st, err = s.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Dataset.Len() != 4 || s.Loads() != 2 {
		t.Errorf("expected reload with 4 rows, got %d rows after %d loads", st.Dataset.Len(), s.Loads())
	}
}

func TestReloadResetsSelection(t *testing.T) {
	ctx := context.Background()
	s, err := newStore().Create(ctx, Settings{Source: writeCSV(t, superstoreCSV)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Select(ctx, filter.Selection{resolver.Region: {"West"}}); err != nil {
		t.Fatal(err)
	}
	st, err := s.Reload(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Selection[resolver.Region]) != 2 {
		t.Errorf("reload should restore default selection, got %v", st.Selection[resolver.Region])
	}
}

func TestSelectMergesOntoDefaults(t *testing.T) {
	ctx := context.Background()
	s, err := newStore().Create(ctx, Settings{Source: writeCSV(t, superstoreCSV)})
	if err != nil {
		t.Fatal(err)
	}
	st, err := s.Select(ctx, filter.Selection{resolver.Region: {"East"}})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(st.Selection[resolver.Region], []string{"East"}) {
		t.Errorf("unexpected region %v", st.Selection[resolver.Region])
	}
	if !reflect.DeepEqual(st.Selection[resolver.Category], []string{"Furniture", "Technology"}) {
		t.Errorf("category should keep defaults, got %v", st.Selection[resolver.Category])
	}

	again, _ := s.State(ctx)
	if !reflect.DeepEqual(again.Selection, st.Selection) {
		t.Errorf("selection should persist, got %v", again.Selection)
	}
}

func TestCreateLoadErrorIsNotStored(t *testing.T) {
	store := newStore()
	_, err := store.Create(context.Background(), Settings{Source: filepath.Join(t.TempDir(), "missing.csv")})
	if !errors.Is(err, dataset.ErrLoad) {
		t.Fatalf("expected a load error, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("failed session should not be stored")
	}

	if _, err := store.Create(context.Background(), Settings{}); !errors.Is(err, dataset.ErrLoad) {
		t.Errorf("empty source should be a load error, got %v", err)
	}
}

func TestDerivedVariantUsesEcommerceNames(t *testing.T) {
	csv := "Date,Product_Category,Price,Units_Sold,Discount,Customer_Segment\n" +
		"2024-01-03,Toys,10,5,20,Retail\n"
	s, err := newStore().Create(context.Background(), Settings{
		Source:   writeCSV(t, csv),
		Variant:  dataset.VariantDerived,
		Strategy: resolver.Exact,
	})
	if err != nil {
		t.Fatal(err)
	}
	st, _ := s.State(context.Background())
	for role, want := range map[resolver.Role]string{
		resolver.OrderDate: "Date",
		resolver.Sales:     "Sales",
		resolver.Category:  "Product_Category",
		resolver.Segment:   "Customer_Segment",
	} {
		if got, _ := st.Binding.Column(role); got != want {
			t.Errorf("%s: expected %q, got %q", role, want, got)
		}
	}
}

func TestStoreRulesApplyToNewSessions(t *testing.T) {
	csv := "Ship Date,Territory,Turnover\n2023-01-05,West,10\n"
	rules, err := resolver.ParseRules([]byte("keywords:\n  - role: sales\n    keywords: [turnover]\n  - role: region\n    keywords: [territory]\n"))
	if err != nil {
		t.Fatal(err)
	}
	s, err := newStore().WithRules(rules).Create(context.Background(), Settings{Source: writeCSV(t, csv)})
	if err != nil {
		t.Fatal(err)
	}
	st, _ := s.State(context.Background())
	if col, _ := st.Binding.Column(resolver.Sales); col != "Turnover" {
		t.Errorf("expected Turnover bound to sales, got %q", col)
	}
	if col, _ := st.Binding.Column(resolver.Region); col != "Territory" {
		t.Errorf("expected Territory bound to region, got %q", col)
	}
	if st.Binding.Bound(resolver.OrderDate) {
		t.Error("order date has no rule and should stay unbound")
	}
}

func TestDeleteAndNotFound(t *testing.T) {
	store := newStore()
	s, err := store.Create(context.Background(), Settings{Source: writeCSV(t, superstoreCSV)})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestConcurrentAccessOnOneSession(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	calls := 0
	store := newStore().WithLoader(func(ctx context.Context, src dataset.Source, opts dataset.Options) (*dataset.Dataset, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return dataset.Load(ctx, src, opts)
	})
	s, err := store.Create(ctx, Settings{Source: writeCSV(t, superstoreCSV)})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = s.Select(ctx, filter.Selection{resolver.Region: {"East"}})
			} else {
				_, _ = s.State(ctx)
			}
		}(i)
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected one load, got %d", calls)
	}
}
