package photocipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrEncryption = errors.New("encryption failed")
	ErrDecryption = errors.New("decryption failed")
	ErrInvalidKey = errors.New("invalid encryption key")
)

const DefaultMIME = "image/jpeg"

// Cipher: AES-GCM による写真ペイロードの認証付き暗号。プロセス内で共有し、並行利用してよい
type Cipher struct {
	aead cipher.AEAD
}

// New: base64 (std/url, padding 有無) で表された 16/24/32 byte の鍵から生成
func New(key string) (*Cipher, error) {
	raw, err := decodeKey(strings.TrimSpace(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return newFromBytes(raw)
}

// Generate: 一時鍵を生成する。再起動で復号不能になるので、呼び出し側で警告を出すこと
func Generate() (*Cipher, string, error) {
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, "", fmt.Errorf("generate key: %w", err)
	}
	c, err := newFromBytes(raw)
	if err != nil {
		return nil, "", err
	}
	return c, base64.StdEncoding.EncodeToString(raw), nil
}

func newFromBytes(raw []byte) (*Cipher, error) {
	switch len(raw) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: key must be 16, 24 or 32 bytes, got %d", ErrInvalidKey, len(raw))
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Cipher{aead: aead}, nil
}

func decodeKey(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty key")
	}
	encs := []*base64.Encoding{
		base64.StdEncoding, base64.URLEncoding,
		base64.RawStdEncoding, base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encs {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// StripDataURL: data URL なら最初のカンマまでを取り除き、base64 本体だけを返す
func StripDataURL(payload string) string {
	if i := strings.IndexByte(payload, ','); i >= 0 {
		return payload[i+1:]
	}
	return payload
}

// EncryptPayload: 写真ペイロード（data URL 可）を base64 デコードしてから暗号化する
func (c *Cipher) EncryptPayload(payload string) (string, error) {
	body := strings.TrimSpace(StripDataURL(payload))
	if body == "" {
		return "", fmt.Errorf("%w: empty payload", ErrEncryption)
	}
	img, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return "", fmt.Errorf("%w: payload is not base64: %v", ErrEncryption, err)
	}
	return c.Seal(img)
}

// Seal: nonce||ciphertext を標準 base64 で返す
func (c *Cipher) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrEncryption, err)
	}
	out := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open: Seal の逆。改ざん・鍵違い・形式不正はすべて ErrDecryption
func (c *Cipher) Open(token string) ([]byte, error) {
	raw, err := base64.StdEncoding.Strict().DecodeString(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed token", ErrDecryption)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: token too short", ErrDecryption)
	}
	pt, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrDecryption)
	}
	return pt, nil
}

// DataURL: 画像バイト列を data URL にする
func DataURL(mime string, img []byte) string {
	if mime == "" {
		mime = DefaultMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img)
}
