package presence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinIsIdempotentPerUser(t *testing.T) {
	tr := NewTracker()

	require.True(t, tr.Join("lobby", "alice"))
	// Second connection for the same user: still online, not newly online.
	require.False(t, tr.Join("lobby", "alice"))
	require.Equal(t, 1, tr.OnlineCount("lobby", ""))
}

func TestLeaveOnlyOnLastConnection(t *testing.T) {
	tr := NewTracker()
	tr.Join("lobby", "alice")
	tr.Join("lobby", "alice")

	require.False(t, tr.Leave("lobby", "alice"))
	require.Equal(t, 1, tr.OnlineCount("lobby", ""))

	require.True(t, tr.Leave("lobby", "alice"))
	require.Equal(t, 0, tr.OnlineCount("lobby", ""))
}

func TestLeaveUntrackedIsNoop(t *testing.T) {
	tr := NewTracker()
	require.False(t, tr.Leave("lobby", "ghost"))

	tr.Join("lobby", "alice")
	require.False(t, tr.Leave("lobby", "ghost"))
	require.Equal(t, 1, tr.OnlineCount("lobby", ""))
}

func TestUnknownRoomIsNoop(t *testing.T) {
	tr := NewTracker()
	require.False(t, tr.Leave("nowhere", "alice"))
	require.Equal(t, 0, tr.OnlineCount("nowhere", "alice"))
}

func TestOnlineCountExcludesViewer(t *testing.T) {
	tr := NewTracker()
	tr.Join("lobby", "alice")
	tr.Join("lobby", "bob")
	tr.Join("lobby", "carol")

	require.Equal(t, 2, tr.OnlineCount("lobby", "alice"))
	require.Equal(t, 3, tr.OnlineCount("lobby", "dave"))
}

func TestRoomsAreIndependent(t *testing.T) {
	tr := NewTracker()
	tr.Join("lobby", "alice")
	tr.Join("dev", "alice")

	require.True(t, tr.Leave("lobby", "alice"))
	require.Equal(t, 1, tr.OnlineCount("dev", ""))
}
