package cryptoutils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hushh-labs/consent-core/interfaces"
)

func testKey(tb testing.TB, fill byte) []byte {
	tb.Helper()
	key := make([]byte, VaultKeySize)
	for i := range key {
		key[i] = fill
	}
	return key
}

// TestEncryptDecryptRoundTrip covers the blob shapes the vault actually
// stores: master keys, JSON domain blobs, and binary data.
func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t, 0x42)

	testCases := []struct {
		name string
		data []byte
	}{
		{
			name: "Simple string",
			data: []byte("This is a secret message"),
		},
		{
			name: "JSON data",
			data: []byte(`{"risk_profile":"moderate","accounts":3}`),
		},
		{
			name: "Binary data",
			data: []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD},
		},
		{
			name: "Empty data",
			data: []byte{},
		},
		{
			name: "Master key sized",
			data: make([]byte, VaultKeySize),
		},
		{
			name: "Long data",
			data: make([]byte, 4096),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			blob, err := EncryptBlob(tc.data, key)
			require.NoError(t, err)
			require.Equal(t, interfaces.BlobAlgorithmAESGCM, blob.Algorithm)
			require.Len(t, blob.IV, 12)
			require.Len(t, blob.AuthTag, 16)
			require.Len(t, blob.Ciphertext, len(tc.data))

			plaintext, err := DecryptBlob(blob, key)
			require.NoError(t, err)
			require.Equal(t, tc.data, plaintext)
		})
	}
}

// TestEncryptGeneratesFreshIV verifies the nonce-reuse guard: encrypting the
// same plaintext twice under the same key never repeats an IV or ciphertext.
func TestEncryptGeneratesFreshIV(t *testing.T) {
	key := testKey(t, 0x42)
	plaintext := []byte("same plaintext, two calls")

	blob1, err := EncryptBlob(plaintext, key)
	require.NoError(t, err)
	blob2, err := EncryptBlob(plaintext, key)
	require.NoError(t, err)

	require.NotEqual(t, blob1.IV, blob2.IV)
	require.NotEqual(t, blob1.Ciphertext, blob2.Ciphertext)
}

func TestDecryptWithWrongKey(t *testing.T) {
	blob, err := EncryptBlob([]byte("secret"), testKey(t, 0x42))
	require.NoError(t, err)

	_, err = DecryptBlob(blob, testKey(t, 0x43))
	require.ErrorIs(t, err, interfaces.ErrCiphertextAuth)
}

// TestTamperDetection flips one byte in each ciphertext component and
// expects the same authentication error every time, never garbage plaintext.
func TestTamperDetection(t *testing.T) {
	key := testKey(t, 0x42)

	corruptions := []struct {
		name    string
		corrupt func(*interfaces.EncryptedBlob)
	}{
		{
			name:    "ciphertext byte flipped",
			corrupt: func(b *interfaces.EncryptedBlob) { b.Ciphertext[0] ^= 0x01 },
		},
		{
			name:    "last ciphertext byte flipped",
			corrupt: func(b *interfaces.EncryptedBlob) { b.Ciphertext[len(b.Ciphertext)-1] ^= 0x80 },
		},
		{
			name:    "auth tag byte flipped",
			corrupt: func(b *interfaces.EncryptedBlob) { b.AuthTag[0] ^= 0x01 },
		},
		{
			name:    "iv byte flipped",
			corrupt: func(b *interfaces.EncryptedBlob) { b.IV[11] ^= 0x01 },
		},
	}

	for _, tc := range corruptions {
		t.Run(tc.name, func(t *testing.T) {
			blob, err := EncryptBlob([]byte("tamper target payload"), key)
			require.NoError(t, err)

			tc.corrupt(&blob)

			plaintext, err := DecryptBlob(blob, key)
			require.ErrorIs(t, err, interfaces.ErrCiphertextAuth)
			require.Nil(t, plaintext)
		})
	}
}

func TestDecryptMalformedBlob(t *testing.T) {
	key := testKey(t, 0x42)
	blob, err := EncryptBlob([]byte("payload"), key)
	require.NoError(t, err)

	short := blob
	short.IV = blob.IV[:8]
	_, err = DecryptBlob(short, key)
	require.ErrorIs(t, err, interfaces.ErrMalformedCiphertext)

	truncated := blob
	truncated.AuthTag = blob.AuthTag[:15]
	_, err = DecryptBlob(truncated, key)
	require.ErrorIs(t, err, interfaces.ErrMalformedCiphertext)

	foreign := blob
	foreign.Algorithm = "AES-256-CBC"
	_, err = DecryptBlob(foreign, key)
	require.ErrorIs(t, err, interfaces.ErrMalformedCiphertext)
}

func TestKeyLengthEnforced(t *testing.T) {
	_, err := EncryptBlob([]byte("x"), make([]byte, 16))
	require.Error(t, err)

	blob, err := EncryptBlob([]byte("x"), testKey(t, 0x01))
	require.NoError(t, err)

	_, err = DecryptBlob(blob, make([]byte, 31))
	require.Error(t, err)
}

// FuzzEncryptDecrypt checks the seal/open round trip over arbitrary inputs.
func FuzzEncryptDecrypt(f *testing.F) {
	f.Add([]byte(""))
	f.Add([]byte("hello vault"))
	f.Add([]byte{0xff, 0x00, 0xff})

	key := make([]byte, VaultKeySize)
	for i := range key {
		key[i] = byte(i * 7)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		blob, err := EncryptBlob(data, key)
		if err != nil {
			t.Fatalf("encrypt failed: %v", err)
		}

		plaintext, err := DecryptBlob(blob, key)
		if err != nil {
			t.Fatalf("decrypt failed: %v", err)
		}
		require.Equal(t, data, plaintext)
	})
}
