package checkout

import (
	"sync"

	"github.com/cloudpos/possync/internal/models"
)

// Cart is the in-memory register cart. Adding a product already in the cart
// merges quantities; dropping a quantity to zero removes the line.
type Cart struct {
	mu    sync.Mutex
	items []models.SaleItem
}

func NewCart() *Cart {
	return &Cart{}
}

func (c *Cart) AddItem(item models.SaleItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == item.ProductID {
			c.items[i].Quantity += item.Quantity
			return
		}
	}
	c.items = append(c.items, item)
}

func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(productID)
}

// UpdateQuantity sets the quantity for a line. Zero or negative removes it.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		c.remove(productID)
		return
	}
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items[i].Quantity = quantity
			return
		}
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns a copy of the current cart lines.
func (c *Cart) Items() []models.SaleItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]models.SaleItem, len(c.items))
	copy(items, c.items)
	return items
}

func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sum float64
	for _, it := range c.items {
		sum += it.UnitPrice * float64(it.Quantity)
	}
	return sum
}

// remove assumes c.mu is held.
func (c *Cart) remove(productID string) {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}
