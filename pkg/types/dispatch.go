package types

import "time"

// DispatchInfo captures the seller's shipping metadata on an order.
type DispatchInfo struct {
	Time     time.Time `json:"time"`
	Method   string    `json:"method"`
	ImageURL *string   `json:"image_url,omitempty"`
}

// ReviewSnapshot is the denormalized copy of a buyer review kept on the order.
type ReviewSnapshot struct {
	Comment string `json:"comment"`
	Rating  int    `json:"rating"`
}
