package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func serveAdmin(t *testing.T, secret, authHeader string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	var adminID string
	AdminJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		adminID = AdminIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec, adminID
}

func TestAdminJWT(t *testing.T) {
	valid := signedAdminToken(t, "secret", jwt.SigningMethodHS256, time.Now().Add(5*time.Minute))
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{name: "missing secret", secret: "", header: "Bearer " + valid, want: http.StatusUnauthorized},
		{name: "missing header", secret: "secret", want: http.StatusUnauthorized},
		{name: "not bearer", secret: "secret", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "wrong secret", secret: "secret", header: "Bearer " + signedAdminToken(t, "wrong", jwt.SigningMethodHS256, time.Now().Add(time.Minute)), want: http.StatusUnauthorized},
		{name: "expired", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", jwt.SigningMethodHS256, time.Now().Add(-time.Minute)), want: http.StatusUnauthorized},
		{name: "other hmac alg", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", jwt.SigningMethodHS512, time.Now().Add(time.Minute)), want: http.StatusUnauthorized},
		{name: "valid", secret: "secret", header: "Bearer " + valid, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := serveAdmin(t, tt.secret, tt.header)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAdminJWTExposesAdminID(t *testing.T) {
	rec, adminID := serveAdmin(t, "secret", "Bearer "+signedAdminToken(t, "secret", jwt.SigningMethodHS256, time.Now().Add(time.Minute)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-user", adminID)
}

func signedAdminToken(t *testing.T, secret string, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "admin-user",
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
