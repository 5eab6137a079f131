package bookings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatus(t *testing.T) {
	assert.Equal(t, StatusPending, (&Booking{Active: true}).Status())
	assert.Equal(t, StatusApproved, (&Booking{Active: true, Agreed: true}).Status())
	assert.Equal(t, StatusRejected, (&Booking{}).Status())
}

func TestFilterByStatus(t *testing.T) {
	list := []Booking{
		{ID: 1, Active: true},
		{ID: 2, Active: true, Agreed: true},
		{ID: 3},
		{ID: 4, Active: true},
	}

	pending := FilterByStatus(list, StatusPending)
	assert.Len(t, pending, 2)
	assert.Equal(t, int64(4), pending[1].ID)

	assert.Empty(t, FilterByStatus(nil, StatusApproved))
	assert.True(t, StatusRejected.Valid())
	assert.False(t, Status("cancelled").Valid())
}
