package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	sig, err := Sign(priv, []byte("reveal result payload"))
	require.NoError(t, err)
	require.True(t, sig.Verify(pub, []byte("reveal result payload")))
	require.False(t, sig.Verify(pub, []byte("tampered payload")))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, priv, err := GenerateKeyPair()
	require.NoError(t, err)
	otherPub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	sig, err := Sign(priv, []byte("payload"))
	require.NoError(t, err)
	require.False(t, sig.Verify(otherPub, []byte("payload")))
}

func TestPublicKeyRoundTrip(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	parsed, err := NewPublicKeyFromString(pub.String())
	require.NoError(t, err)
	require.True(t, pub.Equal(parsed))

	derived, err := priv.PublicKey()
	require.NoError(t, err)
	require.True(t, pub.Equal(derived))
}

func TestNewPublicKeyFromStringRejectsBadInput(t *testing.T) {
	_, err := NewPublicKeyFromString("not hex")
	require.Error(t, err)

	_, err = NewPublicKeyFromString("abcd")
	require.Error(t, err)
}
