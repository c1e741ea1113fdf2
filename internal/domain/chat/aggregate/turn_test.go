package aggregate

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentDecode(t *testing.T) {
	raw := []byte("hello")
	enc := base64.StdEncoding.EncodeToString(raw)

	got, err := Attachment{Data: enc}.Decode()
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = Attachment{Data: "data:text/plain;base64," + enc}.Decode()
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = Attachment{Data: "%%%"}.Decode()
	assert.Error(t, err)
}

func TestAttachmentIsImage(t *testing.T) {
	assert.True(t, Attachment{MimeType: "IMAGE/PNG"}.IsImage())
	assert.False(t, Attachment{MimeType: "application/pdf"}.IsImage())
}
