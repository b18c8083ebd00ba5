package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsMarshalJSON(t *testing.T) {
	f := Fields{
		{Key: "zeta", Value: 1},
		{Key: "alpha", Value: []string{"a"}},
		{Key: "nothing", Value: nil},
	}

	raw, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":["a"],"nothing":null}`, string(raw))

	raw, err = json.Marshal(Fields{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(raw))
}

func TestFieldsMarshalJSONError(t *testing.T) {
	_, err := json.Marshal(Fields{{Key: "bad", Value: make(chan int)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{
			name:    "ordered fields",
			payload: Fields{{Key: "b", Value: 2}, {Key: "a", Value: 1}},
			want:    `{"creator":"me","b":2,"a":1}`,
		},
		{
			name:    "payload creator keeps first position",
			payload: Fields{{Key: "x", Value: true}, {Key: "creator", Value: "someone else"}},
			want:    `{"creator":"someone else","x":true}`,
		},
		{
			name:    "map keys are sorted",
			payload: map[string]any{"b": 2, "a": 1},
			want:    `{"creator":"me","a":1,"b":2}`,
		},
		{
			name:    "empty mapping",
			payload: Fields{},
			want:    `{"creator":"me"}`,
		},
		{
			name:    "scalar",
			payload: 42,
			want:    `{"creator":"me","data":42}`,
		},
		{
			name:    "list",
			payload: []string{"a", "b"},
			want:    `{"creator":"me","data":["a","b"]}`,
		},
		{
			name:    "nil",
			payload: nil,
			want:    `{"creator":"me","data":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(Normalize("me", tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	payload := Fields{{Key: "results", Value: []int{1, 2}}, {Key: "total", Value: 2}}

	once := Normalize("me", payload)
	twice := Normalize("me", once)
	assert.Equal(t, once, twice)
}

func TestNormalizeDoesNotMutate(t *testing.T) {
	payload := Fields{{Key: "creator", Value: "other"}, {Key: "a", Value: 1}}
	Normalize("me", payload)
	assert.Equal(t, Fields{{Key: "creator", Value: "other"}, {Key: "a", Value: 1}}, payload)
}

func TestFieldsGet(t *testing.T) {
	f := Fields{{Key: "a", Value: 1}}

	v, ok := f.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = f.Get("b")
	assert.False(t, ok)
}
