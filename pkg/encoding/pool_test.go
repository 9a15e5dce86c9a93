package encoding

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJSON(t *testing.T) {
	out, err := EncodeJSON(map[string]string{"offer": "10gb & 5 sms <promo>"})
	require.NoError(t, err)
	assert.Equal(t, "{\"offer\":\"10gb & 5 sms <promo>\"}\n", string(out))
}

func TestEncodeJSON_Error(t *testing.T) {
	_, err := EncodeJSON(map[string]interface{}{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteJSON(&sb, struct {
		Success bool `json:"success"`
	}{true}))
	assert.Equal(t, "{\"success\":true}\n", sb.String())

	var empty strings.Builder
	assert.Error(t, WriteJSON(&empty, func() {}))
	assert.Zero(t, empty.Len())
}

func TestPutBuffer_DropsLargeBuffers(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, 0, maxPooledBuffer+1))
	PutBuffer(buf)

	got := GetBuffer()
	assert.Zero(t, got.Len())
}
