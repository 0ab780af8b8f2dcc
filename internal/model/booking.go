package model

// Time slots a day trip can be booked for.
const (
	SlotMorning   = "morning"
	SlotAfternoon = "afternoon"
)

// ValidSlot reports whether s is a bookable time slot.
func ValidSlot(s string) bool { return s == SlotMorning || s == SlotAfternoon }

// Booking is a user's single staged, not yet paid reservation.  There is
// at most one row per user in the `booking` table.
//
// Fields:
//  UserID       – owner; also the primary key of the row.
//  AttractionID – attraction being booked.
//  Date         – trip date, YYYY-MM-DD.
//  TimeSlot     – morning or afternoon.
//  Price        – quoted price in TWD.
type Booking struct {
	UserID       uint64 // booking.user_id
	AttractionID uint64 // booking.attraction_id
	Date         string // booking.date
	TimeSlot     string // booking.time
	Price        int    // booking.price
}

// BookingView is the response body of GET /api/booking.
type BookingView struct {
	Attraction AttractionSummary `json:"attraction"`
	Date       string            `json:"date"`
	Time       string            `json:"time"`
	Price      int               `json:"price"`
}
