package http

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_Classification(t *testing.T) {
	tests := []struct {
		code                                  int
		ok, fail, redirect, client, serverErr bool
	}{
		{code: 0, fail: true},
		{code: 100, fail: true},
		{code: 200, ok: true},
		{code: 204, ok: true},
		{code: 299, ok: true},
		{code: 301, fail: true, redirect: true},
		{code: 404, fail: true, client: true},
		{code: 503, fail: true, serverErr: true},
	}

	for _, tt := range tests {
		r := NewResponse()
		r.Code = tt.code
		assert.Equal(t, tt.ok, r.IsOk(), "IsOk(%d)", tt.code)
		assert.Equal(t, tt.fail, r.IsFail(), "IsFail(%d)", tt.code)
		assert.Equal(t, tt.redirect, r.IsRedirect(), "IsRedirect(%d)", tt.code)
		assert.Equal(t, tt.client, r.IsClientError(), "IsClientError(%d)", tt.code)
		assert.Equal(t, tt.serverErr, r.IsServerError(), "IsServerError(%d)", tt.code)
		assert.False(t, r.IsError(), "IsError(%d)", tt.code)
	}
}

func TestResponse_IsErrorIndependentOfStatus(t *testing.T) {
	r := NewResponse()
	r.Code = 200
	r.fail(NewTransportError(CodeRecvError, errReset))

	assert.True(t, r.IsOk())
	assert.True(t, r.IsError())
	assert.Equal(t, errReset.Error(), r.Error)
}

func TestResponse_Parse(t *testing.T) {
	r := NewResponse()
	r.Body = []byte("a,b,c")

	split := ParserFunc(func(raw []byte) (interface{}, error) {
		return strings.Split(string(raw), ","), nil
	})
	upper := ParserFunc(func(raw []byte) (interface{}, error) {
		return strings.ToUpper(string(raw)), nil
	})

	data, err := r.Parse(split)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, data)
	assert.Equal(t, data, r.Data)

	// Parsing again starts from the untouched body
	data, err = r.Parse(upper)
	require.NoError(t, err)
	assert.Equal(t, "A,B,C", data)
	assert.Equal(t, "a,b,c", r.BodyString())
}

func TestResponse_ParseNil(t *testing.T) {
	r := NewResponse()
	_, err := r.Parse(nil)
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestResponse_ParseError(t *testing.T) {
	r := NewResponse()
	r.Data = "previous"
	boom := errors.New("boom")

	_, err := r.Parse(ParserFunc(func([]byte) (interface{}, error) { return nil, boom }))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "previous", r.Data)
}

func TestResponse_DecodeJSON(t *testing.T) {
	r := NewResponse()
	r.Body = []byte(`{"id":7}`)

	var v struct {
		ID int `json:"id"`
	}
	require.NoError(t, r.DecodeJSON(&v))
	assert.Equal(t, 7, v.ID)
}

func TestResponse_GetResponseTimeMillis(t *testing.T) {
	r := NewResponse()
	r.Info.Timing.TotalTime = 1500 * time.Millisecond
	assert.Equal(t, int64(1500), r.GetResponseTimeMillis())
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Not Found", StatusText(404))
	assert.Equal(t, "Bandwidth Limit Exceeded", StatusText(StatusBandwidthLimitExceeded))
	assert.Equal(t, 4, StatusClass(404))
}
