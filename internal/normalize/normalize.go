// Package normalize maps the heterogeneous payload shapes the backends emit
// into the canonical model types. Every call site that decodes a product,
// order or history payload goes through here, so the field fallback chains
// live in exactly one place.
//
// All functions are pure: no I/O, no logging, no mutation of the input.
// Missing optional fields default (numerics to 0, strings to empty); fields
// that are present but malformed fail with a ValidationError. Normalizing an
// already-canonical record yields the same record.
package normalize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/storefront-client/internal/model"
)

// Unwrap decodes a response body, peeling the {data, message} envelope when
// present. Endpoints are inconsistent about the envelope, so callers never
// need to know which shape a given endpoint uses.
func Unwrap(body []byte) (payload any, message string, err error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return decoded, "", nil
	}
	inner, ok := m["data"]
	if !ok {
		return m, "", nil
	}
	msg, _ := m["message"].(string)
	return inner, msg, nil
}

// Product normalizes a raw product payload. The input may be a decoded JSON
// object or an already-canonical model.Product.
func Product(raw any) (model.Product, error) {
	switch v := raw.(type) {
	case model.Product:
		return v, nil
	case map[string]any:
		return productFromMap(v)
	default:
		return model.Product{}, fmt.Errorf("product: %w", ErrNotObject)
	}
}

func productFromMap(m map[string]any) (model.Product, error) {
	id, err := resolveID(m, "id", "_id")
	if err != nil {
		return model.Product{}, err
	}

	price, _, err := floatField(m, "price", "amount")
	if err != nil {
		return model.Product{}, err
	}
	if price < 0 {
		return model.Product{}, invalid("price", "negative price %v", price)
	}

	rating, _, err := floatField(m, "rating")
	if err != nil {
		return model.Product{}, err
	}
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}

	reviews, _, err := intField(m, "review_count", "reviews")
	if err != nil {
		return model.Product{}, err
	}
	if reviews < 0 {
		return model.Product{}, invalid("review_count", "negative count %d", reviews)
	}

	inStock, ok := boolField(m, "in_stock", "inStock")
	if !ok {
		stock, _, err := intField(m, "stock_quantity", "stock")
		if err != nil {
			return model.Product{}, err
		}
		inStock = stock > 0
	}

	return model.Product{
		ID:          id,
		Title:       stringField(m, "title", "name"),
		Price:       price,
		Image:       stringField(m, "image", "image_url", "imageUrl"),
		Rating:      rating,
		ReviewCount: reviews,
		Description: stringField(m, "description", "desc"),
		Category:    stringField(m, "category"),
		InStock:     inStock,
	}, nil
}

// ProductList normalizes a product collection. Records that fail validation
// are dropped and reported in the returned error slice; one bad product never
// blanks the whole list. Recommendation entries wrapping the product under a
// "product" key are unwrapped first.
func ProductList(raw any) ([]model.Product, []error) {
	items, err := listPayload(raw, "products", "recommendations")
	if err != nil {
		return nil, []error{err}
	}

	products := make([]model.Product, 0, len(items))
	var errs []error
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			if inner, ok := m["product"].(map[string]any); ok {
				item = inner
			}
		}
		p, err := Product(item)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		products = append(products, p)
	}
	return products, errs
}

// Order normalizes a raw order payload. Orders are read-only projections: a
// malformed item invalidates the whole order record.
func Order(raw any) (model.Order, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return model.Order{}, fmt.Errorf("order: %w", ErrNotObject)
	}

	id, err := resolveID(m, "id", "_id")
	if err != nil {
		return model.Order{}, err
	}

	createdAt, err := timeField(m, "created_at", "date")
	if err != nil {
		return model.Order{}, err
	}

	status, err := orderStatus(m)
	if err != nil {
		return model.Order{}, err
	}

	total, _, err := floatField(m, "total_amount", "total")
	if err != nil {
		return model.Order{}, err
	}
	if total < 0 {
		return model.Order{}, invalid("total_amount", "negative total %v", total)
	}

	items, err := orderItems(m["items"])
	if err != nil {
		return model.Order{}, err
	}

	return model.Order{
		ID:          id,
		CreatedAt:   createdAt,
		Status:      status,
		Items:       items,
		TotalAmount: total,
	}, nil
}

// OrderList normalizes an order collection with per-record containment.
func OrderList(raw any) ([]model.Order, []error) {
	items, err := listPayload(raw, "orders")
	if err != nil {
		return nil, []error{err}
	}

	orders := make([]model.Order, 0, len(items))
	var errs []error
	for i, item := range items {
		o, err := Order(item)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		orders = append(orders, o)
	}
	return orders, errs
}

// ViewHistory normalizes a view-history payload, dropping malformed entries.
// Entries may embed the viewed product; a malformed embedded product drops
// only the embed, not the entry.
func ViewHistory(raw any) ([]model.ViewRecord, []error) {
	items, err := listPayload(raw, "history")
	if err != nil {
		return nil, []error{err}
	}

	records := make([]model.ViewRecord, 0, len(items))
	var errs []error
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Errorf("record %d: %w", i, ErrNotObject))
			continue
		}

		productID, err := resolveID(m, "product_id")
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		viewedAt, err := timeField(m, "viewed_at")
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		duration, _, err := intField(m, "view_duration")
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}

		rec := model.ViewRecord{
			ProductID:       productID,
			ViewedAt:        viewedAt,
			DurationSeconds: duration,
		}
		if inner, ok := m["product"].(map[string]any); ok {
			if p, err := Product(inner); err == nil {
				rec.Product = &p
			} else {
				errs = append(errs, fmt.Errorf("record %d: product: %w", i, err))
			}
		}
		records = append(records, rec)
	}
	return records, errs
}

var orderStatuses = map[string]bool{
	model.StatusPending:    true,
	model.StatusProcessing: true,
	model.StatusShipped:    true,
	model.StatusDelivered:  true,
	model.StatusCancelled:  true,
}

func orderStatus(m map[string]any) (string, error) {
	s := stringField(m, "status")
	if s == "" {
		return model.StatusPending, nil
	}
	if !orderStatuses[s] {
		return "", invalid("status", "unknown status %q", s)
	}
	return s, nil
}

func orderItems(raw any) ([]model.OrderItem, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, invalid("items", "expected list, got %T", raw)
	}

	items := make([]model.OrderItem, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, invalid("items", "item %d is not an object", i)
		}
		id, err := resolveID(m, "product_id")
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		qty, _, err := intField(m, "quantity")
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if qty < 0 {
			return nil, invalid("quantity", "item %d: negative quantity %d", i, qty)
		}
		price, _, err := floatField(m, "price", "unit_price")
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, model.OrderItem{
			ProductID: id,
			Title:     stringField(m, "product_name", "title"),
			Quantity:  qty,
			UnitPrice: price,
		})
	}
	return items, nil
}

// listPayload extracts the element slice from a list payload: either a bare
// array or an object carrying the array under one of the given keys.
func listPayload(raw any, keys ...string) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, k := range keys {
			if list, ok := v[k].([]any); ok {
				return list, nil
			}
		}
		return nil, fmt.Errorf("object has none of %v: %w", keys, ErrNotList)
	default:
		return nil, ErrNotList
	}
}

// timeFormats covers the timestamp flavors the backends emit: RFC 3339 with
// and without sub-second precision, naive ISO 8601, and bare dates.
var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func timeField(m map[string]any, keys ...string) (time.Time, error) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return time.Time{}, invalid(k, "expected timestamp string, got %T", v)
		}
		for _, layout := range timeFormats {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, invalid(k, "cannot parse timestamp %q", s)
	}
	return time.Time{}, nil
}
