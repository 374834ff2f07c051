package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomy(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")

	assert.True(t, IsValidation(Validation("bad link %q", "x")))
	assert.True(t, IsTransient(Transient(cause, "link", "l")))
	assert.ErrorIs(t, Transient(cause), cause)
	assert.True(t, IsPermanent(Permanent("missing key")))
	assert.True(t, IsConnection(Connection(cause)))
	assert.ErrorIs(t, Connection(cause), cause)

	assert.Nil(t, Transient(nil))
	assert.Nil(t, Connection(nil))
}

func TestClassify(t *testing.T) {
	v := Validation("bad")
	assert.Equal(t, v, Classify(v))
	assert.True(t, IsValidation(Classify(v)))
	assert.False(t, IsTransient(Classify(v)))
	assert.True(t, IsTransient(Classify(stderrors.New("boom"))))
	assert.Nil(t, Classify(nil))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.False(t, IsTimeout(stderrors.New("x")))
}
