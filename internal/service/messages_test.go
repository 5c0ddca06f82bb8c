package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/models"
)

func TestNewTextMessage(t *testing.T) {
	f := NewMessageFactory(fixedClock{t: testTime})

	msg := f.NewTextMessage("bob", "  hi  ")
	assert.Equal(t, models.KindText, msg.Kind)
	assert.Equal(t, "bob", msg.UserName)
	assert.Equal(t, "  hi  ", msg.Text)
	assert.Empty(t, msg.URL)
	assert.Equal(t, int64(1700000000123), msg.CreatedAt)
}

func TestNewLocationMessage(t *testing.T) {
	f := NewMessageFactory(fixedClock{t: testTime})

	tests := []struct {
		lat, lng float64
		want     string
	}{
		{lat: 1.5, lng: 2.5, want: "https://google.com/maps?q=1.5,2.5"},
		{lat: 0, lng: 0, want: "https://google.com/maps?q=0,0"},
		{lat: -33.8688, lng: 151.2093, want: "https://google.com/maps?q=-33.8688,151.2093"},
		{lat: 200, lng: -500, want: "https://google.com/maps?q=200,-500"},
	}
	for _, tt := range tests {
		msg := f.NewLocationMessage("amy", tt.lat, tt.lng)
		assert.Equal(t, models.KindLocation, msg.Kind)
		assert.Equal(t, "amy", msg.UserName)
		assert.Equal(t, tt.want, msg.URL)
		assert.Empty(t, msg.Text)
	}
}

func TestSystemClock(t *testing.T) {
	before := time.Now().UnixMilli()
	msg := NewMessageFactory(nil).NewTextMessage("Admin", "Welcome")
	assert.GreaterOrEqual(t, msg.CreatedAt, before)
}
