package model

import (
	"fmt"
	"sort"
	"time"

	"coach-storefront/internal/domain"
)

type ProductType string

const (
	ProductTypeCourse ProductType = "course"
	ProductTypeEbook  ProductType = "ebook"
)

// Product is a catalog entry. Courses are sold per duration variant; ebooks have one price.
type Product struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Type      ProductType   `json:"type"`
	Price     int64         `json:"price"`              // ebook price, or the shortest course variant
	Durations map[int]int64 `json:"durations,omitempty"` // months -> price, courses only
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"created_at"`
}

func (p *Product) IsZero() bool { return p == nil || p.ID == "" }

// DurationOptions returns the available course durations in ascending order.
func (p *Product) DurationOptions() []int {
	out := make([]int, 0, len(p.Durations))
	for m := range p.Durations {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// Snapshot freezes the product into a line item. durationMonths is required for
// courses and ignored for ebooks.
func (p *Product) Snapshot(durationMonths int) (LineItem, error) {
	if p.IsZero() || !p.Active {
		return LineItem{}, domain.NewValidationError("productId")
	}
	switch p.Type {
	case ProductTypeEbook:
		return LineItem{ProductID: p.ID, Title: p.Title, Price: p.Price, ProductType: p.Type}, nil
	case ProductTypeCourse:
		if durationMonths == 0 {
			if opts := p.DurationOptions(); len(opts) > 0 {
				durationMonths = opts[0]
			}
		}
		price, ok := p.Durations[durationMonths]
		if !ok {
			return LineItem{}, domain.NewValidationError("durationMonths")
		}
		return LineItem{
			ProductID:      p.ID,
			Title:          p.Title,
			Price:          price,
			DurationMonths: durationMonths,
			ProductType:    p.Type,
		}, nil
	}
	return LineItem{}, domain.NewValidationError("productId")
}

// LineItem is the purchase-time snapshot embedded in an order.
type LineItem struct {
	ProductID      string      `json:"product_id"`
	Title          string      `json:"title"`
	Price          int64       `json:"price"`
	DurationMonths int         `json:"duration_months,omitempty"`
	ProductType    ProductType `json:"product_type"`
}

func (li LineItem) Validate() error {
	if li.ProductID == "" || li.Title == "" || li.Price <= 0 {
		return domain.ErrInvalidArgument
	}
	switch li.ProductType {
	case ProductTypeEbook:
	case ProductTypeCourse:
		if li.DurationMonths <= 0 {
			return domain.ErrInvalidArgument
		}
	default:
		return domain.ErrInvalidArgument
	}
	return nil
}

func (li LineItem) Label() string {
	if li.ProductType == ProductTypeCourse {
		return fmt.Sprintf("%s (%d months)", li.Title, li.DurationMonths)
	}
	return li.Title
}

func TotalOf(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Price
	}
	return total
}
