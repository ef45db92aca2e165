package estimate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"cityinit.org/internal/ids"
)

// ErrInvalidItem marks an estimate line that cannot be accepted.
var ErrInvalidItem = errors.New("invalid resource item")

// Item is one line of a project estimate.
//
// On input the legacy spellings are accepted: "resource" takes precedence over
// "name", and the price falls back from "unitPrice" to "basePrice" to
// "estimatedCost". Output always carries the canonical fields together with the
// legacy aliases so older clients keep rendering.
type Item struct {
	ID        string
	Name      string
	Category  string
	Quantity  float64
	Unit      string
	UnitPrice float64
}

// Cost is quantity times unit price.
func (it Item) Cost() float64 {
	return it.Quantity * it.UnitPrice
}

// Validate rejects negative or non-finite amounts and nameless lines.
func (it Item) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if !finite(it.Quantity) || it.Quantity < 0 {
		return fmt.Errorf("%w: quantity of %q must be >= 0", ErrInvalidItem, it.Name)
	}
	if !finite(it.UnitPrice) || it.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price of %q must be >= 0", ErrInvalidItem, it.Name)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

type itemJSON struct {
	ID            string   `json:"id,omitempty"`
	Name          *string  `json:"name,omitempty"`
	Resource      *string  `json:"resource,omitempty"`
	Category      string   `json:"category,omitempty"`
	Quantity      float64  `json:"quantity"`
	Unit          string   `json:"unit,omitempty"`
	UnitPrice     *float64 `json:"unitPrice,omitempty"`
	BasePrice     *float64 `json:"basePrice,omitempty"`
	EstimatedCost *float64 `json:"estimatedCost,omitempty"`
}

// UnmarshalJSON accepts both canonical and legacy field names.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*it = Item{
		ID:       strings.TrimSpace(raw.ID),
		Category: raw.Category,
		Quantity: raw.Quantity,
		Unit:     raw.Unit,
	}
	switch {
	case raw.Resource != nil:
		it.Name = *raw.Resource
	case raw.Name != nil:
		it.Name = *raw.Name
	}
	switch {
	case raw.UnitPrice != nil:
		it.UnitPrice = *raw.UnitPrice
	case raw.BasePrice != nil:
		it.UnitPrice = *raw.BasePrice
	case raw.EstimatedCost != nil:
		it.UnitPrice = *raw.EstimatedCost
	}
	return nil
}

// MarshalJSON writes the canonical fields plus the legacy aliases.
func (it Item) MarshalJSON() ([]byte, error) {
	name := it.Name
	price := it.UnitPrice
	return json.Marshal(struct {
		ID            string  `json:"id"`
		Name          string  `json:"name"`
		Resource      string  `json:"resource"`
		Category      string  `json:"category"`
		Quantity      float64 `json:"quantity"`
		Unit          string  `json:"unit"`
		UnitPrice     float64 `json:"unitPrice"`
		BasePrice     float64 `json:"basePrice"`
		EstimatedCost float64 `json:"estimatedCost"`
	}{
		ID:            it.ID,
		Name:          name,
		Resource:      name,
		Category:      it.Category,
		Quantity:      it.Quantity,
		Unit:          it.Unit,
		UnitPrice:     price,
		BasePrice:     price,
		EstimatedCost: price,
	})
}

// Ledger is an ordered list of estimate lines.
type Ledger []Item

// Total is Σ quantity × unit price.
func (l Ledger) Total() float64 {
	var sum float64
	for _, it := range l {
		sum += it.Cost()
	}
	return sum
}

// Validate checks every line.
func (l Ledger) Validate() error {
	for _, it := range l {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Normalize trims names and assigns identifiers to lines that have none.
// Duplicate identifiers get a fresh one so edits stay addressable.
func (l Ledger) Normalize() Ledger {
	out := make(Ledger, 0, len(l))
	seen := make(map[string]struct{}, len(l))
	for _, it := range l {
		it.Name = strings.TrimSpace(it.Name)
		it.Category = strings.TrimSpace(it.Category)
		it.Unit = strings.TrimSpace(it.Unit)
		if _, dup := seen[it.ID]; it.ID == "" || dup {
			it.ID = ids.New()
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Clone returns an independent copy.
func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}

// DisplayBudget is the stored budget when positive, otherwise the estimate total.
func DisplayBudget(budget float64, items Ledger) float64 {
	if budget > 0 {
		return budget
	}
	return items.Total()
}
