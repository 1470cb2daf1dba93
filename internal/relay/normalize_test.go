package relay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_KnownShapes(t *testing.T) {
	for _, body := range []string{
		`{"response":"x"}`,
		`{"output":"x"}`,
		`{"message":"x"}`,
		`{"text":"x"}`,
		`"x"`,
		`[{"output":"x"}]`,
	} {
		got, err := Normalize([]byte(body))
		assert.NoError(t, err, body)
		assert.Equal(t, "x", got, body)
	}
}

func TestNormalize_FieldPriority(t *testing.T) {
	got, err := Normalize([]byte(`{"text":"t","message":"m","output":"o","response":"r"}`))
	assert.NoError(t, err)
	assert.Equal(t, "r", got)

	got, err = Normalize([]byte(`{"response":"","output":"o"}`))
	assert.NoError(t, err)
	assert.Equal(t, "o", got, "empty field is skipped")
}

func TestNormalize_FallsBackToRawPayload(t *testing.T) {
	got, err := Normalize([]byte(` {"answer":42} `))
	assert.NoError(t, err)
	assert.Equal(t, `{"answer":42}`, got)

	got, err = Normalize([]byte(`{"output":{"a":1}}`))
	assert.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)
}

func TestNormalize_ArrayWithoutReplyFieldIsRaw(t *testing.T) {
	for _, body := range []string{`[]`, `[{"answer":42}]`, `["a","b"]`} {
		got, err := Normalize([]byte(body))
		assert.NoError(t, err, body)
		assert.Equal(t, body, got)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	for _, body := range []string{"", "   ", "not json", `""`, "null"} {
		_, err := Normalize([]byte(body))
		assert.True(t, errors.Is(err, ErrMalformedReply), "body %q: %v", body, err)
	}
}
