package app

import (
	"testing"
	"time"
)

func TestTokenManager_GenerateAndParse(t *testing.T) {
	cfg := TokenConfig{
		SecretKey: "user-secret",
		Expiry:    24 * time.Hour,
		Issuer:    "user-issuer",
	}
	tm := NewTokenManager(cfg)

	uid := int64(1001)
	userID := "a1b2c3d4-e5f6-7890-abcd-ef1234567890"
	username := "testuser"
	ip := "127.0.0.1"

	// 1. 测试生成和解析
	token, err := tm.Generate(uid, userID, username, ip)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if claims.UID != uid {
		t.Errorf("Expected UID %d, got %d", uid, claims.UID)
	}
	if claims.UserID != userID {
		t.Errorf("Expected UserID %s, got %s", userID, claims.UserID)
	}
	if claims.Username != username {
		t.Errorf("Expected Username %s, got %s", username, claims.Username)
	}
	if claims.Issuer != cfg.Issuer {
		t.Errorf("Expected Issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	// 验证 ExpiresAt (由于只存了秒级 Unix 戳，允许 1 秒内的误差)
	expectedExp := time.Now().Add(cfg.Expiry)
	if claims.ExpiresAt.Unix() < expectedExp.Unix()-1 || claims.ExpiresAt.Unix() > expectedExp.Unix()+1 {
		t.Errorf("Expected ExpiresAt around %v, got %v", expectedExp, claims.ExpiresAt)
	}

	// 2. 测试错误的密钥
	wrongKeyCfg := cfg
	wrongKeyCfg.SecretKey = "wrong-secret"
	tmWrongKey := NewTokenManager(wrongKeyCfg)

	wrongToken, _ := tmWrongKey.Generate(uid, userID, username, ip)
	if _, err = tm.Parse(wrongToken); err == nil {
		t.Error("Expected error when parsing token with wrong secret key, but got nil")
	}

	// 3. 测试篡改后的 Token
	tamperedToken := token + "tampered"
	if _, err = tm.Parse(tamperedToken); err == nil {
		t.Error("Expected error for tampered token, but got nil")
	}
}

func TestTokenManager_Validate(t *testing.T) {
	tm := NewTokenManager(TokenConfig{SecretKey: "user-secret"})

	token, err := tm.Generate(1, "user-id-1", "alice", "10.0.0.1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if err := tm.Validate(token); err != nil {
		t.Errorf("Validate failed for fresh token: %v", err)
	}
	if err := tm.Validate("garbage"); err == nil {
		t.Error("Expected error for garbage token, but got nil")
	}
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	tm := NewTokenManager(TokenConfig{
		SecretKey: "user-secret",
		Expiry:    -time.Hour,
	})

	token, err := tm.Generate(1, "user-id-1", "alice", "10.0.0.1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := tm.Parse(token); err == nil {
		t.Error("Expected error for expired token, but got nil")
	}
}
