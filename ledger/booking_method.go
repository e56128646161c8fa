package ledger

import "fmt"

// Booking identifies the lot-matching policy an account uses when a posting
// reduces its inventory. It is a closed enum rather than subclass
// polymorphism per the Design Notes' "Booking method dispatch" guidance —
// reduceLots below match-dispatches on it directly.
type Booking int

const (
	// BookingUnset means the account did not declare a method. Such accounts
	// are booked as FIFO; the booking_method option (Config.Booking) is not
	// applied to them.
	BookingUnset Booking = iota
	BookingStrict
	BookingStrictWithSize
	BookingNone
	BookingAverage
	BookingFIFO
	BookingLIFO
	BookingHIFO
)

func (b Booking) String() string {
	switch b {
	case BookingStrict:
		return "STRICT"
	case BookingStrictWithSize:
		return "STRICT_WITH_SIZE"
	case BookingNone:
		return "NONE"
	case BookingAverage:
		return "AVERAGE"
	case BookingFIFO:
		return "FIFO"
	case BookingLIFO:
		return "LIFO"
	case BookingHIFO:
		return "HIFO"
	default:
		return "UNSET"
	}
}

// ParseBooking parses the textual booking method used in `open` directives
// and the `booking_method` option.
func ParseBooking(s string) (Booking, error) {
	switch s {
	case "", "UNSET":
		return BookingUnset, nil
	case "STRICT":
		return BookingStrict, nil
	case "STRICT_WITH_SIZE":
		return BookingStrictWithSize, nil
	case "NONE":
		return BookingNone, nil
	case "AVERAGE":
		return BookingAverage, nil
	case "FIFO":
		return BookingFIFO, nil
	case "LIFO":
		return BookingLIFO, nil
	case "HIFO":
		return BookingHIFO, nil
	default:
		return BookingUnset, fmt.Errorf("unknown booking method %q", s)
	}
}
