package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeContentEmptyBlobIsEmptyHistory(t *testing.T) {
	ms, err := DecodeContent("")
	require.NoError(t, err)
	require.NotNil(t, ms)
	assert.Len(t, ms, 0)
}

func TestDecodeContentNullIsEmptyHistory(t *testing.T) {
	ms, err := DecodeContent("null")
	require.NoError(t, err)
	require.NotNil(t, ms)
	assert.Len(t, ms, 0)
}

func TestDecodeContentRejectsGarbage(t *testing.T) {
	_, err := DecodeContent("{not json")
	require.Error(t, err)
}

func TestEncodeContentRoundTrip(t *testing.T) {
	ms := Messages{
		NewMessage(RoleUser, "hello"),
		NewMessage(RoleAssistant, "hi there"),
	}
	blob, err := ms.EncodeContent()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"user","content":"hello"},{"role":"assistant","content":"hi there"}]`, blob)

	decoded, err := DecodeContent(blob)
	require.NoError(t, err)
	assert.Equal(t, ms, decoded)
}

func TestEncodeContentNilEncodesToEmptyList(t *testing.T) {
	var ms Messages
	blob, err := ms.EncodeContent()
	require.NoError(t, err)
	assert.Equal(t, "[]", blob)
}

func TestAppendDoesNotMutateOriginal(t *testing.T) {
	base := Messages{NewMessage(RoleUser, "a")}
	extended := base.Append(NewMessage(RoleAssistant, "b"))

	require.Len(t, base, 1)
	require.Len(t, extended, 2)
	assert.Equal(t, RoleAssistant, extended[1].Role)
}
