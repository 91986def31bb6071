package errors

import (
	"context"
	"fmt"
	"github.com/stretchr/testify/assert"
	"io"
	"net/http"
	"testing"
)

func TestWrapKeepsInnerKind(t *testing.T) {
	inner := Wrap(KindInput, "decode", "not an image", io.ErrUnexpectedEOF)
	outer := Wrap(KindInternal, "convert", "conversion failed", fmt.Errorf("stage: %w", inner))

	assert.Equal(t, KindInput, KindOf(outer))
	assert.Equal(t, "not an image", Message(outer))
	assert.ErrorIs(t, outer, io.ErrUnexpectedEOF)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(KindInternal, "op", "msg", nil))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{name: "typed", err: New(KindParams, "kernel", "even size"), kind: KindParams},
		{name: "plain", err: io.EOF, kind: KindInternal},
		{name: "cancelled", err: fmt.Errorf("copy: %w", context.Canceled), kind: KindUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, kind: KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.True(t, IsKind(tt.err, tt.kind))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindInput))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindParams))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(KindUnavailable))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindInternal))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Kind("other")))
}

func TestErrorString(t *testing.T) {
	err := New(KindParams, "format", "unsupported format .xyz")
	assert.Equal(t, "[invalid_params:format] unsupported format .xyz", err.Error())
}
