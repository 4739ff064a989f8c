package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Allowed(t *testing.T) {
	p := NewPolicy(10<<20, []string{"png", ".JPG", " jpeg ", "gif", ""})

	cases := map[string]bool{
		"a.png":      true,
		"A.PNG":      true,
		"photo.jpg":  true,
		"photo.JPeG": true,
		"x.tar.gif":  true,
		"evil.exe":   false,
		"noext":      false,
		"trailing.":  false,
		".png":       true,
		"":           false,
	}
	for name, want := range cases {
		assert.Equal(t, want, p.Allowed(name), name)
	}
}

func TestPolicy_Check(t *testing.T) {
	p := NewPolicy(1024, []string{"png"})

	require.NoError(t, p.Check("a.png", 100))
	require.NoError(t, p.Check("a.png", -1))
	assert.ErrorIs(t, p.Check("", 100), ErrNoFile)
	assert.ErrorIs(t, p.Check("a.bmp", 100), ErrExtNotAllowed)

	// 大小优先于其它校验
	err := p.Check("", 2048)
	assert.True(t, errors.Is(err, ErrTooLarge))

	unlimited := NewPolicy(0, []string{"png"})
	require.NoError(t, unlimited.Check("a.png", 1<<40))
}

func TestUniqueName(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 30, 15, 123456789, time.Local)

	a := UniqueName("score", `C:\Users\me\my work.png`, now)
	b := UniqueName("score", `C:\Users\me\my work.png`, now)

	assert.True(t, strings.HasPrefix(a, "score_20260101083015_123456_"), a)
	assert.True(t, strings.HasSuffix(a, "_my_work.png"), a)
	assert.NotContains(t, a, "/")
	assert.NotEqual(t, a, b)
	require.NoError(t, validName(a))
}

func TestTimestamp(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 30, 0, 1000, time.UTC)
	assert.Equal(t, "20261019153000_000001", Timestamp(now))
}

func TestPolicy_Extensions(t *testing.T) {
	p := NewPolicy(1, []string{"png", "JPG", "gif"})
	assert.Equal(t, []string{"gif", "jpg", "png"}, p.Extensions())
}
