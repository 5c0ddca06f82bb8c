package repo

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddUser(t *testing.T) {
	r := NewRegistry()

	user, err := r.AddUser("c1", "  Alice ", " General ")
	require.NoError(t, err)
	assert.Equal(t, "c1", user.ConnectionId)
	assert.Equal(t, "Alice", user.UserName)
	assert.Equal(t, "general", user.Room)

	got, ok := r.GetUser("c1")
	require.True(t, ok)
	assert.Equal(t, user, got)
}

func TestAddUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		room     string
	}{
		{name: "empty username", username: "", room: "r"},
		{name: "blank username", username: "   ", room: "r"},
		{name: "empty room", username: "alice", room: ""},
		{name: "blank room", username: "alice", room: "\t\n"},
		{name: "both empty", username: "", room: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()

			_, err := r.AddUser("c1", tt.username, tt.room)
			assert.ErrorIs(t, err, ErrInvalidUser)

			_, ok := r.GetUser("c1")
			assert.False(t, ok)
			assert.Zero(t, r.Count())
		})
	}
}

func TestAddUserDuplicateName(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddUser("c1", "Alice", "R")
	require.NoError(t, err)

	_, err = r.AddUser("c2", "Alice", "R")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = r.AddUser("c3", " alice ", "r")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	// 別のルームなら同じ名前でも参加できる
	_, err = r.AddUser("c4", "Alice", "other")
	assert.NoError(t, err)

	assert.Equal(t, []string{"Alice"}, r.GetUsersInRoom("R"))
}

func TestAddUserSameConnectionTwice(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddUser("c1", "Alice", "R")
	require.NoError(t, err)

	_, err = r.AddUser("c1", "Bob", "other")
	assert.ErrorIs(t, err, ErrConnectionTaken)
	assert.Equal(t, 1, r.Count())
}

func TestNameIsReusableAfterRemove(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddUser("c1", "Alice", "R")
	require.NoError(t, err)

	removed, ok := r.RemoveUser("c1")
	require.True(t, ok)
	assert.Equal(t, "Alice", removed.UserName)

	_, ok = r.GetUser("c1")
	assert.False(t, ok)

	_, err = r.AddUser("c2", "ALICE", "R")
	assert.NoError(t, err)
}

func TestRemoveUnknownUser(t *testing.T) {
	r := NewRegistry()

	_, ok := r.RemoveUser("missing")
	assert.False(t, ok)

	_, err := r.AddUser("c1", "Alice", "R")
	require.NoError(t, err)
	_, ok = r.RemoveUser("c1")
	require.True(t, ok)
	_, ok = r.RemoveUser("c1")
	assert.False(t, ok)
}

func TestRosterOrder(t *testing.T) {
	r := NewRegistry()
	for i, name := range []string{"A", "B", "C"} {
		_, err := r.AddUser(fmt.Sprintf("c%d", i), name, "R")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"A", "B", "C"}, r.GetUsersInRoom("R"))
	assert.Equal(t, []string{"c0", "c1", "c2"}, r.ConnectionsInRoom("r"))

	_, ok := r.RemoveUser("c1")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "C"}, r.GetUsersInRoom("R"))

	_, err := r.AddUser("c3", "B", "R")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, r.GetUsersInRoom("R"))
}

func TestRoomVanishesWithLastMember(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddUser("c1", "Alice", "R")
	require.NoError(t, err)
	_, err = r.AddUser("c2", "Bob", "S")
	require.NoError(t, err)

	rooms := r.Rooms()
	require.Len(t, rooms, 2)
	assert.Equal(t, "r", rooms[0].Room)
	assert.Equal(t, 1, rooms[0].Users)

	r.RemoveUser("c1")
	rooms = r.Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, "s", rooms[0].Room)
	assert.Empty(t, r.GetUsersInRoom("R"))
	assert.Empty(t, r.ConnectionsInRoom("R"))
}

func TestConnectionsInRoomReturnsCopy(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddUser("c1", "Alice", "R")
	require.NoError(t, err)

	ids := r.ConnectionsInRoom("R")
	ids[0] = "mutated"

	assert.Equal(t, []string{"c1"}, r.ConnectionsInRoom("R"))
}

func TestConcurrentSameNameJoins(t *testing.T) {
	r := NewRegistry()
	const attempts = 64

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// 大文字小文字違いで同じ名前を奪い合う
			name := "alice"
			if i%2 == 0 {
				name = "ALICE"
			}
			if _, err := r.AddUser(fmt.Sprintf("c%d", i), name, "room"); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Len(t, r.GetUsersInRoom("room"), 1)
}

func TestConcurrentJoinAndLeave(t *testing.T) {
	r := NewRegistry()
	const workers = 32

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			name := fmt.Sprintf("user%d", i)
			for j := 0; j < 50; j++ {
				if _, err := r.AddUser(id, name, "lobby"); err != nil {
					t.Errorf("AddUser(%s) error: %v", id, err)
					return
				}
				_ = r.GetUsersInRoom("lobby")
				if _, ok := r.RemoveUser(id); !ok {
					t.Errorf("RemoveUser(%s) missing", id)
					return
				}
			}
			// 最後に1回だけ残す
			if _, err := r.AddUser(id, name, "lobby"); err != nil {
				t.Errorf("AddUser(%s) error: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, workers, r.Count())
	assert.Len(t, r.GetUsersInRoom("lobby"), workers)
	assert.Len(t, r.ConnectionsInRoom("lobby"), workers)
}
