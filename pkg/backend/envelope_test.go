package backend

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrap(t *testing.T) {
	assert.JSONEq(t, `{"id":"p1"}`, string(Unwrap([]byte(`{"data":{"id":"p1"}}`))))
	assert.JSONEq(t, `{"items":[]}`, string(Unwrap([]byte(`{"data":{"items":[]}}`))))
	assert.JSONEq(t, `{"id":"p1"}`, string(Unwrap([]byte(`{"id":"p1"}`))))
	assert.JSONEq(t, `[1,2]`, string(Unwrap([]byte(` [1,2] `))))
	assert.Empty(t, Unwrap(nil))
}

func TestDecodeToleratesEmptyBodies(t *testing.T) {
	var out map[string]any
	require.NoError(t, Decode(nil, &out))
	require.NoError(t, Decode([]byte(`{"data":null}`), &out))
	require.NoError(t, Decode([]byte(`{}`), nil))
	assert.Nil(t, out)
}

func TestDecodeRejectsMismatchedPayload(t *testing.T) {
	var out struct {
		Count int `json:"count"`
	}
	require.Error(t, Decode([]byte(`{"data":{"count":"many"}}`), &out))
}

func TestExtractMessage(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"message":"Invalid credentials"}`, "Invalid credentials"},
		{`{"message":["email must be an email","password too short"]}`, "email must be an email, password too short"},
		{`{"error":"Forbidden resource"}`, "Forbidden resource"},
		{`{"error":{"message":"nested"}}`, "nested"},
		{`{"errors":[{"message":"first"},{"message":"second"}]}`, "first"},
		{`not json`, "Bad Request"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractMessage([]byte(tc.body), http.StatusBadRequest), tc.body)
	}
	assert.Equal(t, "backend status 599", ExtractMessage(nil, 599))
}
