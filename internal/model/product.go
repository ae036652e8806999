package model

// ProductStock is the inventory view of a catalog product.
type ProductStock struct {
	ID         int64  `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	Stock      int    `json:"stock" db:"stock"`
	SalesCount int    `json:"salesCount" db:"sales_count"`
}

// StockLine is a quantity of one product to take out of inventory.
type StockLine struct {
	ProductID int64
	Quantity  int
}
