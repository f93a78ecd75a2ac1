package receptionist

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posentia/posentia/internal/domain"
)

var now = time.Date(2024, 1, 15, 14, 5, 0, 0, time.UTC)

func TestMockCall_Script(t *testing.T) {
	call := MockCall(domain.BusinessProfile{Name: "Bright Smile Dental"}, now)

	require.Len(t, call.Lines, 11)
	assert.Equal(t, "Hi, thanks for calling Bright Smile Dental. This is your AI receptionist. How can I help you today?", call.Lines[0].Text)
	assert.Equal(t, "You're welcome! Have a great day!", call.Lines[10].Text)

	for i, line := range call.Lines {
		want := RoleAgent
		if i%2 == 1 {
			want = RoleUser
		}
		assert.Equal(t, want, line.Role, "line %d", i)
		assert.Equal(t, time.Second+time.Duration(i)*2*time.Second, line.At, "line %d", i)
		assert.Equal(t, line.At.Milliseconds(), line.OffsetMS)
	}
}

func TestMockCall_Timing(t *testing.T) {
	call := MockCall(domain.BusinessProfile{Name: "X"}, now)

	assert.Equal(t, time.Second, call.ConnectedAt)
	assert.Equal(t, 22*time.Second, call.EndedAt)
	assert.Equal(t, 21*time.Second, call.Duration())
	assert.Equal(t, int64(22000), call.EndedMS)
}

func TestMockCall_LeadAndBooking(t *testing.T) {
	call := MockCall(domain.BusinessProfile{Name: "X"}, now)

	assert.Equal(t, "John Smith", call.Lead.Name)
	assert.Equal(t, "(555) 123-4567", call.Lead.Phone)
	assert.Equal(t, "Appointment request", call.Lead.Reason)
	assert.Equal(t, "Normal", call.Lead.Urgency)
	assert.Equal(t, now, call.Lead.Timestamp)

	assert.Equal(t, now.AddDate(0, 0, 7), call.Booking.Date)
	assert.Equal(t, "John Smith - (555) 123-4567", call.Booking.Customer)
	assert.Equal(t, "Confirmed via SMS", call.Booking.Status)
}

func TestMockCall_UnnamedBusiness(t *testing.T) {
	call := MockCall(domain.BusinessProfile{}, now)

	assert.Equal(t, "Demo Business", call.Business)
	assert.True(t, strings.HasPrefix(call.Lines[0].Text, "Hi, thanks for calling Demo Business."))
}
