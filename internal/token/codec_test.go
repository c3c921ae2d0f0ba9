package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	codec := NewCodec("test-secret", "sartia-test")

	raw, issued, err := codec.Issue("42", "a@x.com", PurposeSession, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.NotEmpty(t, issued.ID)

	claims, err := codec.Verify(raw, PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestVerifyExpired(t *testing.T) {
	codec := NewCodec("test-secret", "sartia-test")

	raw, _, err := codec.Issue("42", "", PurposeSession, time.Minute)
	require.NoError(t, err)

	codec.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = codec.Verify(raw, PurposeSession)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyTampered(t *testing.T) {
	codec := NewCodec("test-secret", "sartia-test")

	raw, _, err := codec.Issue("42", "", PurposeSession, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	parts[2] = "AAAA" + parts[2][4:]
	_, err = codec.Verify(strings.Join(parts, "."), PurposeSession)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyWrongSecret(t *testing.T) {
	raw, _, err := NewCodec("secret-one", "sartia-test").Issue("42", "", PurposeSession, time.Hour)
	require.NoError(t, err)

	_, err = NewCodec("secret-two", "sartia-test").Verify(raw, PurposeSession)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyGarbage(t *testing.T) {
	codec := NewCodec("test-secret", "sartia-test")

	for _, raw := range []string{"", "garbage", "a.b.c", strings.Repeat("x", 4096)} {
		_, err := codec.Verify(raw, PurposeSession)
		assert.ErrorIs(t, err, ErrInvalid, "input %q", raw)
	}
}

func TestVerifyPurposeMismatch(t *testing.T) {
	codec := NewCodec("test-secret", "sartia-test")

	raw, _, err := codec.Issue("42", "a@x.com", PurposeReset, 24*time.Hour)
	require.NoError(t, err)

	_, err = codec.Verify(raw, PurposeSession)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = codec.Verify(raw, PurposeReset)
	assert.NoError(t, err)
}

func TestRemaining(t *testing.T) {
	codec := NewCodec("test-secret", "sartia-test")

	_, claims, err := codec.Issue("42", "", PurposeSession, time.Hour)
	require.NoError(t, err)

	remaining := codec.Remaining(claims)
	assert.Greater(t, remaining, 59*time.Minute)
	assert.LessOrEqual(t, remaining, time.Hour)

	codec.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, time.Duration(0), codec.Remaining(claims))
	assert.Equal(t, time.Duration(0), codec.Remaining(nil))
}
