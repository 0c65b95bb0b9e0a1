package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageAndUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := New(Upstream, "GET ", "https://example.test/a").Base(inner)

	assert.Equal(t, "[upstream] GET https://example.test/a > connection reset", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, Upstream, err.Kind())
}

func TestKindOf_WrappedByFmt(t *testing.T) {
	err := fmt.Errorf("load album: %w", New(InvalidReference, "bad path"))

	assert.Equal(t, InvalidReference, KindOf(err))
	assert.True(t, IsKind(err, InvalidReference))
	assert.True(t, IsPermanent(err))
}

func TestKindOf_PlainError(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, Unknown, KindOf(err))
	assert.False(t, IsPermanent(err))
	assert.False(t, IsKind(nil, Unknown))
}

func TestKind_Permanent(t *testing.T) {
	cases := map[Kind]bool{
		InvalidReference: true,
		Configuration:    true,
		Upstream:         false,
		Parse:            false,
		Storage:          false,
	}
	for k, want := range cases {
		assert.Equal(t, want, k.Permanent(), k.String())
	}
}
