package model

import "time"

// Sale is an item listing in the shop. The listed items are held by the sale,
// not by the seller's inventory.
type Sale struct {
	ID       string    `json:"id"`
	Seller   string    `json:"seller"`
	Item     string    `json:"item"`
	Amount   int       `json:"amount"`
	Price    int64     `json:"price"`
	ListedAt time.Time `json:"listed_at"`
}
