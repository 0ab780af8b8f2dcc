package model

// Attraction is a sightseeing spot that can be booked for a day trip.
type Attraction struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Transport   string   `json:"transport"`
	MRT         *string  `json:"mrt"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Images      []string `json:"images"`
}

// AttractionSummary is the slice of an attraction embedded in bookings and orders.
type AttractionSummary struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Image   string `json:"image"`
}
