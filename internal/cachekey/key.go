// Package cachekey maps a request identity (method + URL) to the fixed-width
// key under which its response is stored. Inputs are hashed exactly as seen on
// the wire: query order, trailing slashes and host case are all significant.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Size 是十六进制 key 的固定长度（SHA-256 → 64 个字符）。
const Size = sha256.Size * 2

// Key 是请求身份的十六进制 SHA-256 摘要。
type Key string

// Derive 对 "METHOD:URL" 做 SHA-256，返回小写十六进制 key。
func Derive(method, url string) Key {
	sum := sha256.Sum256([]byte(method + ":" + url))
	return Key(hex.EncodeToString(sum[:]))
}

// ParseKey 校验外部来源（文件名、数据库行）的 key 是否合法。
func ParseKey(raw string) (Key, error) {
	key := Key(raw)
	if !key.Valid() {
		return "", fmt.Errorf("invalid cache key %q", raw)
	}
	return key, nil
}

func (k Key) String() string {
	return string(k)
}

// Valid reports whether k is a 64 character lowercase hex string.
func (k Key) Valid() bool {
	if len(k) != Size {
		return false
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
