package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventEnvelopeRoundTrip(t *testing.T) {
	events := []Event{
		NewMessage{MessageID: "m1"},
		StatusChanged{MessageID: "m1", Status: StatusRead},
		OccupancyChanged{Count: 3},
	}

	for _, ev := range events {
		payload, err := EncodeEvent("origin-1", "lobby", ev)
		require.NoError(t, err)

		env, got, err := DecodeEvent(payload)
		require.NoError(t, err)
		require.Equal(t, "origin-1", env.Origin)
		require.Equal(t, "lobby", env.Room)
		require.Equal(t, ev, got)
	}
}

func TestDecodeEventRejectsUnknownType(t *testing.T) {
	_, _, err := DecodeEvent([]byte(`{"origin":"o","room":"r","type":"bogus"}`))
	require.Error(t, err)

	_, _, err = DecodeEvent([]byte(`not json`))
	require.Error(t, err)
}
