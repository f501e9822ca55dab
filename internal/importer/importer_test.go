package importer

import (
	"context"
	"strings"
	"testing"

	"lean-commerce/internal/domain"
)

type stubProductRepo struct {
	items      []domain.Product
	categories map[int64][]string
}

func (s *stubProductRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	p.ID = int64(len(s.items) + 1)
	s.items = append(s.items, p)
	return &p, nil
}

func (s *stubProductRepo) SetCategories(_ context.Context, productID int64, slugs []string) error {
	if s.categories == nil {
		s.categories = map[int64][]string{}
	}
	s.categories[productID] = slugs
	return nil
}

type stubCategories struct {
	calls int
}

func (s *stubCategories) Ensure(_ context.Context, names []string) ([]domain.Category, error) {
	s.calls++
	out := make([]domain.Category, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Category{Slug: strings.ToLower(n), Name: n})
	}
	return out, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `type,sku,parent_sku,name,description,price,currency,categories,attributes,status
simple,MUG-1,,Mug,Ceramic mug,12.5,eur,Mugs;Kitchen,,
variable,TEE,,Tee,,,,Clothing,,
variation,TEE-RED,TEE,Tee (red),,19.99,,,color=red|size = L,
,TEE-BLUE,TEE,Tee (blue),,19.99,,,color=blue,draft
,,,,,,,,,
`
	repo := &stubProductRepo{}
	cats := &stubCategories{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo, cats, "usd", nil)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 products imported, got %d", count)
	}

	mug := repo.items[0]
	if mug.Type != domain.ProductSimple || mug.PriceCents != 1250 || mug.Currency != "EUR" {
		t.Fatalf("unexpected simple product: %+v", mug)
	}
	if got := repo.categories[1]; len(got) != 2 || got[0] != "mugs" {
		t.Fatalf("expected mug categories, got %v", got)
	}

	tee := repo.items[1]
	if tee.Type != domain.ProductVariable || tee.PriceCents != 0 || tee.Currency != "USD" {
		t.Fatalf("unexpected variable product: %+v", tee)
	}

	red := repo.items[2]
	if red.ParentID != 2 || red.PriceCents != 1999 || red.Attributes["size"] != "L" || red.Attributes["color"] != "red" {
		t.Fatalf("unexpected variation: %+v", red)
	}

	blue := repo.items[3]
	if blue.Type != domain.ProductVariation || blue.Status != "draft" {
		t.Fatalf("expected type inferred from parent_sku, got %+v", blue)
	}
	if cats.calls != 2 {
		t.Fatalf("expected 2 category ensures, got %d", cats.calls)
	}
}

func TestCSVImporter_RejectsOrphanVariation(t *testing.T) {
	csvData := `type,sku,parent_sku,name,price
variation,TEE-RED,TEE,Tee (red),19.99
`
	imp := NewCSVImporter(strings.NewReader(csvData), &stubProductRepo{}, nil, "USD", nil)
	if _, err := imp.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "parent sku") {
		t.Fatalf("expected parent sku error, got %v", err)
	}
}

func TestCSVImporter_RowErrors(t *testing.T) {
	cases := map[string]string{
		"bad price":    "type,sku,name,price\nsimple,A,Thing,abc\n",
		"no price":     "type,sku,name,price\nsimple,A,Thing,\n",
		"no name":      "type,sku,name,price\nsimple,A,,1.00\n",
		"unknown type": "type,sku,name,price\nbundle,A,Thing,1.00\n",
		"no sku col":   "type,name,price\nsimple,Thing,1.00\n",
	}
	for name, data := range cases {
		imp := NewCSVImporter(strings.NewReader(data), &stubProductRepo{}, nil, "USD", nil)
		if _, err := imp.Run(context.Background()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
