package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/config"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "courierline",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testConfig()
	now := time.Now().UTC()
	userID := uuid.New()
	storeID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID:  userID,
		Role:    enums.ActorRoleStoreManager,
		StoreID: &storeID,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.StoreID == nil || *claims.StoreID != storeID {
		t.Fatalf("store id not preserved")
	}
	if claims.Role != enums.ActorRoleStoreManager {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != 30*time.Minute {
		t.Fatalf("unexpected ttl %s", got)
	}
}

func TestMintAccessTokenValidatesPayload(t *testing.T) {
	cfg := testConfig()
	now := time.Now()

	cases := map[string]AccessTokenPayload{
		"unknown role":       {UserID: uuid.New(), Role: enums.ActorRole("owner")},
		"system role":        {UserID: uuid.New(), Role: enums.ActorRoleSystem},
		"manager sans store": {UserID: uuid.New(), Role: enums.ActorRoleStoreManager},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := MintAccessToken(cfg, now, payload); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := MintAccessToken(config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, now, AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleAdmin}); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.ActorRoleCustomer,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestParseAccessTokenRejectsWrongSecretOrIssuer(t *testing.T) {
	cfg := testConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleRider})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Secret = "other"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected signature failure")
	}

	other = cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil || !strings.Contains(err.Error(), "issuer") {
		t.Fatalf("expected issuer failure, got %v", err)
	}
}

func TestParseAccessTokenClassifiesFailures(t *testing.T) {
	cfg := testConfig()
	expired, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleCustomer})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if _, err := ParseAccessToken(cfg, "not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseAccessTokenToleratesSkewWithinLeeway(t *testing.T) {
	cfg := testConfig()
	cfg.LeewaySeconds = 30
	// issued by a node whose clock runs 10s ahead
	token, err := MintAccessToken(cfg, time.Now().Add(10*time.Second), AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleRider})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err != nil {
		t.Fatalf("expected token within leeway to parse, got %v", err)
	}

	cfg.LeewaySeconds = 0
	if _, err := ParseAccessToken(cfg, token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected not-yet-valid token to fail without leeway, got %v", err)
	}
}

func TestParseAccessTokenRejectsSubjectMismatch(t *testing.T) {
	cfg := testConfig()
	now := time.Now()
	claims := AccessTokenClaims{
		UserID: uuid.New(),
		Role:   enums.ActorRoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected subject mismatch to be invalid, got %v", err)
	}
}
