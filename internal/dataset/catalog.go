package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/example/bookshop/tools/eventgen/internal/sampler"
)

// ErrEmptyCatalog is returned when a selector is built over zero items.
// An empty catalog is not an error for the pipeline as a whole; callers
// skip item-context assignment instead.
var ErrEmptyCatalog = errors.New("dataset: catalog is empty")

// Item is one catalog row. PurchaseWeight defaults to 1 when the source
// file has no weight column.
type Item struct {
	ID             string
	Title          string
	Price          float64
	Category       string
	PurchaseWeight float64
}

// ItemSnapshot is the per-session copy of a selected item, attached to the
// walk state as the current item context.
type ItemSnapshot struct {
	ID       string
	Title    string
	Price    float64
	Category string
}

// catalogColumns lists accepted header spellings per field. The source
// catalogs carry locale-specific headers, so each field has alternatives.
var catalogColumns = map[string][]string{
	"id":       {"id", "ID", "Id"},
	"title":    {"title", "제목"},
	"price":    {"price", "가격"},
	"category": {"category", "카테고리"},
}

// LoadCatalog reads the catalog CSV. A missing file yields an empty catalog
// with a warning rather than an error; item-dependent states then simply
// omit item properties. A present file without a purchase_weight column
// gets weight 1 everywhere, also with a warning.
func LoadCatalog(path string, warnf func(format string, args ...any)) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			if warnf != nil {
				warnf("catalog %s not found; sessions will carry no item properties", path)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("dataset: opening catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: reading catalog header: %w", err)
	}

	cols := columnIndex(header)
	find := func(field string) (int, bool) {
		for _, name := range catalogColumns[field] {
			if i, ok := cols[name]; ok {
				return i, true
			}
		}
		return 0, false
	}

	idCol, hasID := find("id")
	titleCol, hasTitle := find("title")
	priceCol, hasPrice := find("price")
	categoryCol, hasCategory := find("category")

	weightCol, hasWeight := cols["purchase_weight"]
	if !hasWeight && warnf != nil {
		warnf("catalog %s has no purchase_weight column; defaulting all weights to 1", path)
	}

	var items []Item
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: catalog line %d: %w", line, err)
		}

		item := Item{PurchaseWeight: 1}
		if hasID {
			item.ID = record[idCol]
		}
		if hasTitle {
			item.Title = record[titleCol]
		}
		if hasCategory {
			item.Category = record[categoryCol]
		}
		if hasPrice {
			if price, err := strconv.ParseFloat(record[priceCol], 64); err == nil {
				item.Price = price
			}
		}
		if hasWeight {
			w, err := strconv.ParseFloat(record[weightCol], 64)
			if err != nil || w < 0 {
				return nil, fmt.Errorf("dataset: catalog line %d: bad purchase_weight %q", line, record[weightCol])
			}
			item.PurchaseWeight = w
		}

		items = append(items, item)
	}

	return items, nil
}

// ItemSelector draws one item per item-view transition with probability
// proportional to its purchase weight, with replacement.
type ItemSelector struct {
	items []Item
	index *sampler.Index
}

// NewItemSelector builds a selector over the catalog. A zero weight sum
// falls back to uniform selection with a warning, matching the pipeline's
// degenerate-weight rule.
func NewItemSelector(items []Item, warnf func(format string, args ...any)) (*ItemSelector, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCatalog
	}

	raw := make([]float64, len(items))
	for i, item := range items {
		raw[i] = item.PurchaseWeight
	}

	weights, fellBack := sampler.Normalize(raw)
	if fellBack && warnf != nil {
		warnf("all purchase weights are zero; falling back to uniform selection over %d items", len(items))
	}

	index, err := sampler.NewIndex(weights)
	if err != nil {
		return nil, fmt.Errorf("dataset: item weights: %w", err)
	}

	return &ItemSelector{items: items, index: index}, nil
}

// Pick draws one item snapshot.
func (s *ItemSelector) Pick(rng *rand.Rand) ItemSnapshot {
	item := s.items[s.index.Draw(rng)]
	return ItemSnapshot{
		ID:       item.ID,
		Title:    item.Title,
		Price:    item.Price,
		Category: item.Category,
	}
}

// Bestseller weighting constants.
const (
	// DefaultBestsellerCount is how many items are promoted to bestsellers.
	DefaultBestsellerCount = 30
	// BestsellerWeight is the purchase weight assigned to bestsellers.
	BestsellerWeight = 50
	// DefaultPurchaseWeight is the weight of an ordinary item.
	DefaultPurchaseWeight = 1
)

// AssignBestsellerWeights resets every item to the default purchase weight
// and promotes count randomly chosen items to the bestseller weight. When
// the catalog holds fewer than count items, all of them become bestsellers.
func AssignBestsellerWeights(rng *rand.Rand, items []Item, count int) {
	if count > len(items) {
		count = len(items)
	}

	for i := range items {
		items[i].PurchaseWeight = DefaultPurchaseWeight
	}

	perm := rng.Perm(len(items))
	for _, idx := range perm[:count] {
		items[idx].PurchaseWeight = BestsellerWeight
	}
}
