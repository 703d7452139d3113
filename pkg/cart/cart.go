// Package cart accumulates line items before checkout. A Cart is rehydrated
// once from its Store and written back on every mutation.
package cart

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrInvalidQuantity is returned when a quantity below one is set.
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")
	// ErrInvalidItem is returned when an item has no product id.
	ErrInvalidItem = errors.New("cart: item id is required")
)

// Item is one cart line. Its JSON form is the checkout line format.
type Item struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
}

// Cart is safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	items []Item
	store Store
	key   string
	log   *zap.Logger
}

// New loads the cart saved under key. Absent or corrupt state yields an
// empty cart.
func New(store Store, key string, log *zap.Logger) *Cart {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cart{store: store, key: key, log: log}
	c.items = c.load()
	return c
}

func (c *Cart) load() []Item {
	data, err := c.store.Load(c.key)
	if err != nil {
		if !errors.Is(err, ErrSlotNotFound) {
			c.log.Warn("failed to load cart, starting empty", zap.String("key", c.key), zap.Error(err))
		}
		return nil
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		c.log.Warn("corrupt cart state, starting empty", zap.String("key", c.key), zap.Error(err))
		return nil
	}

	valid := items[:0]
	for _, it := range items {
		if it.ID == "" || it.Quantity < 1 {
			c.log.Warn("dropping invalid cart line", zap.String("key", c.key), zap.String("id", it.ID))
			continue
		}
		valid = append(valid, it)
	}
	return valid
}

// commit writes next to the store and adopts it as the cart's lines only
// when the write succeeds. It must be called with c.mu held.
func (c *Cart) commit(next []Item) error {
	if next == nil {
		next = []Item{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if err := c.store.Save(c.key, data); err != nil {
		c.log.Error("failed to save cart", zap.String("key", c.key), zap.Error(err))
		return err
	}
	c.items = next
	return nil
}

// lines returns a copy of the current lines. It must be called with c.mu held.
func (c *Cart) lines() []Item {
	return append([]Item{}, c.items...)
}

func indexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// Add appends item, or adds its quantity to the line with the same id.
// A quantity below one counts as one.
func (c *Cart) Add(item Item) error {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return ErrInvalidItem
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.lines()
	if i := indexOf(next, item.ID); i >= 0 {
		next[i].Quantity += item.Quantity
	} else {
		next = append(next, item)
	}
	return c.commit(next)
}

// Remove drops the line for id. Removing an absent id is a no-op.
func (c *Cart) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.lines()
	i := indexOf(next, id)
	if i < 0 {
		return nil
	}
	return c.commit(append(next[:i], next[i+1:]...))
}

// SetQuantity replaces the quantity of the line for id.
func (c *Cart) SetQuantity(id string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.lines()
	i := indexOf(next, id)
	if i < 0 {
		return nil
	}
	next[i].Quantity = qty
	return c.commit(next)
}

// Clear empties the cart.
func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commit(nil)
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item{}, c.items...)
}

// Total is the sum of price times quantity over every line.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// Count is the number of units across every line.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}
