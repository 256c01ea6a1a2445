package simerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"spicecore/pkg/simerr"
)

func TestClassifyRoundTrips(t *testing.T) {
	err := simerr.New(simerr.KindSingularMatrix, "matrix is singular")
	assert.Equal(t, simerr.KindSingularMatrix, simerr.Classify(err))
}

func TestClassifyUnclassifiedErrorIsNone(t *testing.T) {
	assert.Equal(t, simerr.KindNone, simerr.Classify(errors.New("plain error")))
}

func TestWrapPreservesCauseAndKind(t *testing.T) {
	cause := errors.New("factorization failed")
	wrapped := simerr.Wrap(simerr.KindSingularMatrix, cause, "solving step")

	assert.Equal(t, simerr.KindSingularMatrix, simerr.Classify(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "solving step")
	assert.Contains(t, wrapped.Error(), "factorization failed")
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, simerr.Wrap(simerr.KindLcpFailure, nil, "unused"))
}

func TestWrapfFormatsMessage(t *testing.T) {
	cause := errors.New("boom")
	err := simerr.Wrapf(simerr.KindBadNetlist, cause, "stamping %s", "R1")
	assert.Contains(t, err.Error(), "stamping R1")
	assert.Equal(t, simerr.KindBadNetlist, simerr.Classify(err))
}

func TestRecoverableKinds(t *testing.T) {
	assert.True(t, simerr.KindSingularMatrix.Recoverable())
	assert.True(t, simerr.KindLcpFailure.Recoverable())
	assert.False(t, simerr.KindStepTooSmall.Recoverable())
	assert.False(t, simerr.KindNonFinite.Recoverable())
	assert.False(t, simerr.KindBadNetlist.Recoverable())
	assert.False(t, simerr.KindCancelled.Recoverable())
}

func TestKindStringer(t *testing.T) {
	cases := map[simerr.Kind]string{
		simerr.KindNone:           "None",
		simerr.KindBadNetlist:     "BadNetlist",
		simerr.KindSingularMatrix: "SingularMatrix",
		simerr.KindLcpFailure:     "LcpFailure",
		simerr.KindStepTooSmall:   "StepTooSmall",
		simerr.KindNonFinite:      "NonFinite",
		simerr.KindCancelled:      "Cancelled",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
