package tiktok

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
)

func TestNewSigner_EmptySecret(t *testing.T) {
	_, err := NewSigner("")
	if !errors.Is(err, ErrMissingAppSecret) {
		t.Fatalf("期望 ErrMissingAppSecret, 实际: %v", err)
	}
}

func TestSigner_Deterministic(t *testing.T) {
	s, _ := NewSigner("s3cr3t")
	params := map[string]string{"app_key": "k1", "timestamp": "1700000000", "shop_cipher": "ROW_abc"}
	body := []byte(`{"create_time_ge":1}`)

	first := s.Sign("/order/202309/orders/search", params, body)
	second := s.Sign("/order/202309/orders/search", params, body)
	if first != second {
		t.Fatalf("相同输入签名不一致: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("签名长度应为 64, 实际 %d", len(first))
	}
}

func TestSigner_ParamSensitivity(t *testing.T) {
	s, _ := NewSigner("s3cr3t")
	base := map[string]string{"app_key": "k1", "timestamp": "1700000000", "shop_cipher": "ROW_abc"}
	want := s.Sign("/p", base, nil)

	for key := range base {
		changed := map[string]string{}
		for k, v := range base {
			changed[k] = v
		}
		changed[key] = base[key] + "x"
		if got := s.Sign("/p", changed, nil); got == want {
			t.Errorf("修改参数 %s 后签名未变化", key)
		}
	}

	if got := s.Sign("/p", base, []byte("{}")); got == want {
		t.Error("body 变化后签名未变化")
	}
	if got := s.Sign("/q", base, nil); got == want {
		t.Error("path 变化后签名未变化")
	}
}

func TestSigner_IgnoresSignAndAccessToken(t *testing.T) {
	s, _ := NewSigner("s3cr3t")
	base := map[string]string{"app_key": "k1", "timestamp": "1"}
	withExtra := map[string]string{"app_key": "k1", "timestamp": "1", "sign": "old", "access_token": "tok"}

	if s.Sign("/p", base, nil) != s.Sign("/p", withExtra, nil) {
		t.Fatal("sign / access_token 不应参与签名")
	}
}

func TestSigner_WireFormat(t *testing.T) {
	s, _ := NewSigner("sec")
	params := map[string]string{"timestamp": "2", "app_key": "a"}
	body := []byte(`{"x":1}`)

	// 参数按 key 排序：app_key 在 timestamp 之前
	msg := "sec" + "/api/test" + "app_key" + "a" + "timestamp" + "2" + `{"x":1}` + "sec"
	h := hmac.New(sha256.New, []byte("sec"))
	h.Write([]byte(msg))
	want := hex.EncodeToString(h.Sum(nil))

	if got := s.Sign("/api/test", params, body); got != want {
		t.Fatalf("签名格式不符\n期望: %s\n实际: %s", want, got)
	}
}
