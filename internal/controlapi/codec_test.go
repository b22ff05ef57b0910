package controlapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sample struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Active bool       `json:"active"`
	At     *time.Time `json:"at,omitempty"`
}

func TestToStruct_Decode(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := sample{ID: 7, Name: "lobby", Active: true, At: &at}

	s, err := ToStruct(in)
	require.NoError(t, err)
	require.Equal(t, "lobby", s.Fields["name"].GetStringValue())
	require.Equal(t, float64(7), s.Fields["id"].GetNumberValue())

	var out sample
	require.NoError(t, Decode(s, &out))
	require.Equal(t, in.ID, out.ID)
	require.True(t, out.At.Equal(at))
}

func TestToList(t *testing.T) {
	l, err := ToList([]sample{{ID: 1}, {ID: 2}})
	require.NoError(t, err)
	require.Len(t, l.Values, 2)

	var out []sample
	require.NoError(t, Decode(l, &out))
	require.Equal(t, int64(2), out[1].ID)
}

func TestToStruct_RejectsNonObject(t *testing.T) {
	_, err := ToStruct([]int{1, 2})
	require.Error(t, err)

	_, err = ToStruct(func() {})
	require.ErrorContains(t, err, "marshal")
}

func TestPretty(t *testing.T) {
	s, err := ToStruct(map[string]any{"ok": true})
	require.NoError(t, err)
	out := Pretty(s)
	require.Contains(t, out, `"ok"`)
	require.Contains(t, out, "true")
}
