package tiktok

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// 不参与签名的参数
const (
	paramSign        = "sign"
	paramAccessToken = "access_token"
)

// Signer 请求签名器
// 签名串格式: secret + path + 排序后的 key+value + body + secret
// 平台强制要求首尾包裹 secret，任何改动都会导致签名校验失败
type Signer struct {
	secret string
}

// NewSigner 创建签名器，secret 为空视为配置错误
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingAppSecret
	}
	return &Signer{secret: secret}, nil
}

// Sign 计算签名
// path: 请求路径 (不含 host)
// params: query 参数，sign / access_token 会被忽略
// body: 原始请求体，GET 请求传 nil
func (s *Signer) Sign(path string, params map[string]string, body []byte) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == paramSign || k == paramAccessToken {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(s.secret)
	builder.WriteString(path)
	for _, k := range keys {
		builder.WriteString(k)
		builder.WriteString(params[k])
	}
	builder.Write(body)
	builder.WriteString(s.secret)

	h := hmac.New(sha256.New, []byte(s.secret))
	h.Write([]byte(builder.String()))
	return hex.EncodeToString(h.Sum(nil))
}
