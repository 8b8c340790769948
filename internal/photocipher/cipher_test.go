package photocipher

import (
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat(string([]byte{b}), 32)))
}

func newCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := New(testKey('k'))
	require.NoError(t, err)
	return c
}

func TestNew_KeyForms(t *testing.T) {
	raw := []byte("0123456789abcdef0123456789abcdef")
	cases := map[string]string{
		"std":        base64.StdEncoding.EncodeToString(raw),
		"url":        base64.URLEncoding.EncodeToString(raw),
		"raw std":    base64.RawStdEncoding.EncodeToString(raw),
		"aes128":     base64.StdEncoding.EncodeToString(raw[:16]),
		"aes192":     base64.StdEncoding.EncodeToString(raw[:24]),
		"whitespace": "  " + base64.StdEncoding.EncodeToString(raw) + "\n",
	}
	for name, key := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(key)
			assert.NoError(t, err)
		})
	}
}

func TestNew_InvalidKey(t *testing.T) {
	for _, key := range []string{"", "not base64 !!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		_, err := New(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestEncryptPayload_RoundTrip(t *testing.T) {
	c := newCipher(t)
	img := []byte("\xff\xd8\xff fake jpeg bytes")
	body := base64.StdEncoding.EncodeToString(img)

	token, err := c.EncryptPayload(body)
	require.NoError(t, err)
	assert.NotContains(t, token, body)

	got, err := c.Open(token)
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestEncryptPayload_StripsDataURLPrefix(t *testing.T) {
	c := newCipher(t)

	token, err := c.EncryptPayload("data:image/jpeg;base64,/9j/4AAQ")
	require.NoError(t, err)

	got, err := c.Open(token)
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,/9j/4AAQ", DataURL("", got))
}

func TestEncryptPayload_Rejects(t *testing.T) {
	c := newCipher(t)
	for _, p := range []string{"", "data:image/png;base64,", "not*base64"} {
		_, err := c.EncryptPayload(p)
		assert.ErrorIs(t, err, ErrEncryption, p)
	}
}

func TestSeal_NonceIsRandom(t *testing.T) {
	c := newCipher(t)
	a, err := c.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := c.Seal([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpen_TamperedTokenFails(t *testing.T) {
	c := newCipher(t)
	token, err := c.Seal([]byte("payload"))
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)

	for i := range raw {
		mut := append([]byte(nil), raw...)
		mut[i] ^= 0x01
		_, err := c.Open(base64.StdEncoding.EncodeToString(mut))
		assert.ErrorIs(t, err, ErrDecryption, "byte %d", i)
	}
}

func TestOpen_WrongKeyFails(t *testing.T) {
	a := newCipher(t)
	b, err := New(testKey('z'))
	require.NoError(t, err)

	token, err := a.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = b.Open(token)
	assert.True(t, errors.Is(err, ErrDecryption))
}

func TestOpen_Malformed(t *testing.T) {
	c := newCipher(t)
	for _, tok := range []string{"", "%%%", base64.StdEncoding.EncodeToString([]byte("tiny"))} {
		_, err := c.Open(tok)
		assert.ErrorIs(t, err, ErrDecryption, tok)
	}
}

func TestGenerate(t *testing.T) {
	c, key, err := Generate()
	require.NoError(t, err)

	again, err := New(key)
	require.NoError(t, err)

	token, err := c.Seal([]byte("x"))
	require.NoError(t, err)
	pt, err := again.Open(token)
	require.NoError(t, err)
	assert.Equal(t, "x", string(pt))
}

func TestStripDataURL(t *testing.T) {
	assert.Equal(t, "AAAA", StripDataURL("AAAA"))
	assert.Equal(t, "AAAA", StripDataURL("data:image/png;base64,AAAA"))
	assert.Equal(t, "AAAA", StripDataURL(",AAAA"))
}

func TestCipher_ConcurrentUse(t *testing.T) {
	c := newCipher(t)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := c.EncryptPayload("QUJD")
			if !assert.NoError(t, err) {
				return
			}
			got, err := c.Open(tok)
			assert.NoError(t, err)
			assert.Equal(t, "ABC", string(got))
		}()
	}
	wg.Wait()
}
