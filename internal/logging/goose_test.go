package logging

import (
	"context"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ goose.Logger = (*GooseLogger)(nil)

func TestGooseLogger_Printf(t *testing.T) {
	log, buf := newTestLogger(t)
	g := NewGooseLogger(context.Background(), log)

	g.Printf("OK   %s (%s)\n", "00001_init.sql", "12.3ms")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, `msg="OK   00001_init.sql (12.3ms)"`)
	assert.Contains(t, out, "module=migrations")
}

func TestGooseLogger_FatalfLogsAndExits(t *testing.T) {
	code := -1
	old := exit
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = old })

	log, buf := newTestLogger(t)
	NewGooseLogger(context.Background(), log).Fatalf("failed to open DB: %v", "boom")

	require.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), `msg="failed to open DB: boom"`)
}
