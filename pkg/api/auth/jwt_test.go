package auth

import (
	"testing"
	"time"
)

const testSecret = "test-secret-key-must-be-32-chars!"

func testService(t *testing.T) *JWTService {
	t.Helper()
	service, err := NewJWTService(JWTConfig{
		Secret:               testSecret,
		Issuer:               "test-issuer",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return service
}

func TestNewJWTService_ShortSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{Secret: "short"})
	if err == nil {
		t.Fatal("Expected error for short secret")
	}
}

func TestGenerateTokenPair(t *testing.T) {
	service := testService(t)

	pair, err := service.GenerateTokenPair(Identity{
		Username: "alice",
		Groups:   []string{"team-analytics", "data-admins"},
		Role:     "user",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("Expected non-empty tokens")
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("Expected Bearer token type, got: %s", pair.TokenType)
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("Unexpected expires_in: %d", pair.ExpiresIn)
	}
}

func TestValidateAccessToken(t *testing.T) {
	service := testService(t)

	pair, err := service.GenerateTokenPair(Identity{
		Username: "alice",
		Groups:   []string{"team-analytics"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	claims, err := service.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("Expected valid access token, got: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("Expected username alice, got: %s", claims.Username)
	}
	if !claims.HasGroup("team-analytics") {
		t.Error("Expected group team-analytics in claims")
	}
	if !claims.IsAccessToken() {
		t.Error("Expected access token type")
	}
}

func TestValidateAccessToken_RejectsRefreshToken(t *testing.T) {
	service := testService(t)

	pair, err := service.GenerateTokenPair(Identity{Username: "alice"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := service.ValidateAccessToken(pair.RefreshToken); err != ErrInvalidTokenType {
		t.Fatalf("Expected ErrInvalidTokenType, got: %v", err)
	}
}

func TestValidateRefreshToken(t *testing.T) {
	service := testService(t)

	pair, err := service.GenerateTokenPair(Identity{Username: "alice"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	claims, err := service.ValidateRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Expected valid refresh token, got: %v", err)
	}
	if !claims.IsRefreshToken() {
		t.Error("Expected refresh token type")
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	service := testService(t)

	other, err := NewJWTService(JWTConfig{Secret: "another-secret-key-also-32-chars!!"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	pair, err := other.GenerateTokenPair(Identity{Username: "alice"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := service.ValidateToken(pair.AccessToken); err != ErrInvalidToken {
		t.Fatalf("Expected ErrInvalidToken, got: %v", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	service, err := NewJWTService(JWTConfig{
		Secret:              testSecret,
		AccessTokenDuration: -time.Minute,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	pair, err := service.GenerateTokenPair(Identity{Username: "alice"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := service.ValidateToken(pair.AccessToken); err != ErrExpiredToken {
		t.Fatalf("Expected ErrExpiredToken, got: %v", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	service := testService(t)

	if _, err := service.ValidateToken("not-a-token"); err != ErrInvalidToken {
		t.Fatalf("Expected ErrInvalidToken, got: %v", err)
	}
}
