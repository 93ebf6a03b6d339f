package booking

import (
	bookingRepo "sessionbook/database/repository/booking"
	"sessionbook/models"
)

func bookingListAll() bookingRepo.ListFilter {
	return bookingRepo.ListFilter{}
}

func matchAny() bookingRepo.Match {
	return bookingRepo.Match{}
}

func patchStatus(s models.BookingStatus) bookingRepo.Patch {
	return bookingRepo.Patch{Status: &s}
}
