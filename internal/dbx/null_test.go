package dbx

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimePtr(t *testing.T) {
	require.Nil(t, TimePtr(sql.NullTime{}))

	loc := time.FixedZone("EET", 2*3600)
	in := time.Date(2026, 5, 1, 10, 0, 0, 0, loc)
	got := TimePtr(sql.NullTime{Time: in, Valid: true})
	require.NotNil(t, got)
	require.True(t, got.Equal(in))
	require.Equal(t, time.UTC, got.Location())
}

func TestNullTime(t *testing.T) {
	require.False(t, NullTime(nil).Valid)
	now := time.Now()
	nt := NullTime(&now)
	require.True(t, nt.Valid)
	require.Equal(t, now, nt.Time)
}

func TestNullString(t *testing.T) {
	require.False(t, NullString("").Valid)
	require.Equal(t, sql.NullString{String: "10.0.0.5", Valid: true}, NullString("10.0.0.5"))
}
