package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := Validationf(CodeInvalidAmount, "amount must be greater than zero")
	assert.Equal(t, "InvalidAmount: amount must be greater than zero", err.Error())

	wrapped := Upstreamf(CodeChainUnavailable, errors.New("dial tcp: refused"), "eth_gasPrice failed")
	assert.Contains(t, wrapped.Error(), "ChainUnavailable")
	assert.Contains(t, wrapped.Error(), "refused")

	mismatch := Mismatch("value", "deposit value does not match")
	assert.Equal(t, "OnChainMismatch{value}: deposit value does not match", mismatch.Error())
}

func TestCodeOfUnwrapsThroughFmt(t *testing.T) {
	inner := Preconditionf(CodeIllegalTransition, "locked")
	outer := fmt.Errorf("while releasing: %w", inner)

	assert.Equal(t, CodeIllegalTransition, CodeOf(outer))
	assert.Equal(t, Precondition, KindOf(outer))
	assert.True(t, Is(outer, CodeIllegalTransition))
	assert.False(t, Is(outer, CodeBadHash))
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(Upstreamf(CodeChainUnavailable, nil, "down")))
	assert.True(t, Transient(Upstreamf(CodeReceiptTimeout, nil, "slow")))
	assert.True(t, Transient(Upstreamf(CodeSignerUnavailable, nil, "down")))
	assert.False(t, Transient(Preconditionf(CodeIllegalTransition, "no")))
	assert.False(t, Transient(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validationf(CodeBadHash, "bad")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Preconditionf(CodeAlreadyFinalized, "done")))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(Upstreamf(CodeChainUnavailable, nil, "down")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
