package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	msgs, err := Encode([]Event{
		{Key: "cat", Value: map[string]int{"hits": 2}},
		{Key: "dog", Value: []int{1, 2}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "cat", string(msgs[0].Key))
	assert.JSONEq(t, `{"hits":2}`, string(msgs[0].Value))
	assert.JSONEq(t, `[1,2]`, string(msgs[1].Value))
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := Encode([]Event{{Key: "bad", Value: make(chan int)}})
	var unsupported *json.UnsupportedTypeError
	assert.ErrorAs(t, err, &unsupported)
}
