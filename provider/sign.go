package provider

import (
	"crypto"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

func hmacSHA256(key, data []byte) []byte {
	m := hmac.New(sha256.New, key)
	m.Write(data)
	return m.Sum(nil)
}

func hmacSHA1(key, data []byte) []byte {
	m := hmac.New(sha1.New, key)
	m.Write(data)
	return m.Sum(nil)
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func basicCredentials(id, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(id + ":" + secret))
}

// urlEncode escapes like a form encoder but with %20 for spaces, as the
// signing platforms expect.
func urlEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// dingTalkSignature returns urlencode(base64(HMAC-SHA256(secret, timestamp))).
func dingTalkSignature(secret, timestamp string) string {
	sig := hmacSHA256([]byte(secret), []byte(timestamp))
	return urlEncode(base64.StdEncoding.EncodeToString(sig))
}

// jdSign returns the upper-case MD5 of secret, the sorted non-empty key/value
// pairs concatenated, and secret again.
func jdSign(secret string, params map[string]string) string {
	var b strings.Builder
	b.WriteString(secret)
	for _, k := range sortedKeys(params) {
		if k == "" || params[k] == "" {
			continue
		}
		b.WriteString(k)
		b.WriteString(params[k])
	}
	b.WriteString(secret)
	return strings.ToUpper(md5Hex([]byte(b.String())))
}

// elemeSignature signs an Eleme JSON-RPC call: the upper-case MD5 of action,
// token, the sorted "key=<json value>" pairs (app_key and timestamp included)
// and secret.
func elemeSignature(appKey, secret string, timestamp int64, action, token string, params map[string]any) string {
	sorted := make(map[string]any, len(params)+2)
	for k, v := range params {
		sorted[k] = v
	}
	sorted["app_key"] = appKey
	sorted["timestamp"] = timestamp

	var b strings.Builder
	b.WriteString(action)
	b.WriteString(token)
	for _, k := range sortedKeys(sorted) {
		raw, _ := json.Marshal(sorted[k])
		b.WriteString(k)
		b.WriteByte('=')
		b.Write(raw)
	}
	b.WriteString(secret)
	return strings.ToUpper(md5Hex([]byte(b.String())))
}

// ximalayaSignature returns md5hex(HMAC-SHA1(secret, base64(sorted "k=v&..."))).
func ximalayaSignature(params map[string]string, secret string) string {
	pairs := make([]string, 0, len(params))
	for _, k := range sortedKeys(params) {
		pairs = append(pairs, k+"="+params[k])
	}
	base := base64.StdEncoding.EncodeToString([]byte(strings.Join(pairs, "&")))
	return md5Hex(hmacSHA1([]byte(secret), []byte(base)))
}

// alipayContent renders the sorted "k=v&..." string Alipay signs, skipping
// empty values and the sign itself.
func alipayContent(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" || params.Get(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params.Get(k))
	}
	return strings.Join(pairs, "&")
}

// alipaySign signs content with RSA-SHA256 (Alipay "RSA2") using a PKCS#8 key
// given either as PEM or as bare base64.
func alipaySign(privateKey, content string) (string, error) {
	key, err := parsePKCS8(privateKey)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256([]byte(content))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign request: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func parsePKCS8(privateKey string) (*rsa.PrivateKey, error) {
	var der []byte
	if block, _ := pem.Decode([]byte(privateKey)); block != nil {
		der = block.Bytes
	} else {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(privateKey))
		if err != nil {
			return nil, fmt.Errorf("failed to decode private key: %w", err)
		}
		der = raw
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}
