package apihandlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	jwthandling "github.com/Rupe88/japan-project/pkg/jwt-handling"
	"github.com/Rupe88/japan-project/pkg/tokens"
	"github.com/Rupe88/japan-project/pkg/user-management/pwhash"
	userTypes "github.com/Rupe88/japan-project/pkg/user-management/types"
)

const testTokenSignKey = "auth-api-test-key"

type mockUserStore struct {
	usersByEmail map[string]userTypes.User
	usersByID    map[string]userTypes.User

	verifiedIDs     []string
	passwordUpdates map[string]string
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		usersByEmail:    map[string]userTypes.User{},
		usersByID:       map[string]userTypes.User{},
		passwordUpdates: map[string]string{},
	}
}

func (m *mockUserStore) add(user userTypes.User) userTypes.User {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID.Hex()] = user
	return user
}

func (m *mockUserStore) AddUser(user userTypes.User) (string, error) {
	added := m.add(user)
	return added.ID.Hex(), nil
}

func (m *mockUserStore) GetUserByEmail(email string) (userTypes.User, error) {
	user, ok := m.usersByEmail[email]
	if !ok {
		return userTypes.User{}, tokens.ErrAccountNotFound
	}
	return user, nil
}

func (m *mockUserStore) GetUser(userID string) (userTypes.User, error) {
	user, ok := m.usersByID[userID]
	if !ok {
		return userTypes.User{}, tokens.ErrAccountNotFound
	}
	return user, nil
}

func (m *mockUserStore) MarkUserEmailVerified(userID string) error {
	user, ok := m.usersByID[userID]
	if !ok {
		return tokens.ErrAccountNotFound
	}
	user.EmailVerified = true
	m.usersByID[userID] = user
	m.usersByEmail[user.Email] = user
	m.verifiedIDs = append(m.verifiedIDs, userID)
	return nil
}

func (m *mockUserStore) UpdateUserLastLogin(userID string) error { return nil }

func (m *mockUserStore) UpdateUserPassword(userID string, passwordHash string) error {
	m.passwordUpdates[userID] = passwordHash
	return nil
}

type mockCodeStore struct {
	created []userTypes.VerificationCode
	// keyed by accountID + "|" + code + "|" + kind
	consumable map[string]userTypes.VerificationCode
}

func newMockCodeStore() *mockCodeStore {
	return &mockCodeStore{consumable: map[string]userTypes.VerificationCode{}}
}

func codeKey(accountID string, code string, kind userTypes.VerificationCodeKind) string {
	return accountID + "|" + code + "|" + string(kind)
}

func (m *mockCodeStore) addConsumable(vc userTypes.VerificationCode) {
	m.consumable[codeKey(vc.AccountID, vc.Code, vc.Kind)] = vc
}

func (m *mockCodeStore) CreateVerificationCode(code userTypes.VerificationCode) error {
	m.created = append(m.created, code)
	return nil
}

func (m *mockCodeStore) ConsumeVerificationCode(accountID string, code string, kind userTypes.VerificationCodeKind) (userTypes.VerificationCode, error) {
	key := codeKey(accountID, code, kind)
	vc, ok := m.consumable[key]
	if !ok {
		return userTypes.VerificationCode{}, errors.New("verification code not found")
	}
	delete(m.consumable, key)
	return vc, nil
}

type mockTokenService struct {
	issueCalls   int
	revokeCalls  []string
	revokeAllFor []string
	rotateErr    error
}

func (m *mockTokenService) Issue(accountID string, email string) (tokens.TokenPair, error) {
	m.issueCalls++
	return tokens.TokenPair{AccessToken: "issued-access", RefreshToken: "issued-refresh"}, nil
}

func (m *mockTokenService) Rotate(presentedToken string) (tokens.TokenPair, error) {
	if m.rotateErr != nil {
		return tokens.TokenPair{}, m.rotateErr
	}
	return tokens.TokenPair{AccessToken: "rotated-access", RefreshToken: "rotated-refresh"}, nil
}

func (m *mockTokenService) Revoke(presentedToken string) error {
	m.revokeCalls = append(m.revokeCalls, presentedToken)
	return nil
}

func (m *mockTokenService) RevokeAll(accountID string) (int64, error) {
	m.revokeAllFor = append(m.revokeAllFor, accountID)
	return 2, nil
}

func (m *mockTokenService) VerifyAccess(tokenString string) (*jwthandling.UserClaims, error) {
	claims, valid, err := jwthandling.ValidateUserToken(tokenString, testTokenSignKey)
	if err != nil || !valid {
		return nil, tokens.ErrTokenMalformed
	}
	return claims, nil
}

type handlerTestEnv struct {
	router       *gin.Engine
	userStore    *mockUserStore
	codeStore    *mockCodeStore
	tokenService *mockTokenService
}

func setupHandlerTest(t *testing.T) *handlerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	pwhash.InitArgonParams(16*1024, 2, 1)
	randomWait = func(minTimeSec int, maxTimeSec int) {}

	env := &handlerTestEnv{
		userStore:    newMockUserStore(),
		codeStore:    newMockCodeStore(),
		tokenService: &mockTokenService{},
	}

	h := NewHTTPHandler(
		testTokenSignKey,
		env.tokenService,
		env.userStore,
		env.codeStore,
		15*time.Minute,
	)

	env.router = gin.New()
	v1 := env.router.Group("/v1")
	h.AddAuthAPI(v1)
	h.AddPasswordResetAPI(v1)
	return env
}

func (env *handlerTestEnv) postJSON(t *testing.T, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	env.router.ServeHTTP(w, req)
	return w
}

func (env *handlerTestEnv) addVerifiedUser(t *testing.T, email string, password string) userTypes.User {
	t.Helper()
	hash, err := pwhash.HashPassword(password)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return env.userStore.add(userTypes.User{
		Email:         email,
		Password:      hash,
		EmailVerified: true,
	})
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("creates account", func(t *testing.T) {
		env := setupHandlerTest(t)
		w := env.postJSON(t, "/v1/auth/register", gin.H{
			"email":    "new@test.com",
			"password": "Str0ngPassword!",
		})
		if w.Code != http.StatusCreated {
			t.Errorf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		if _, err := env.userStore.GetUserByEmail("new@test.com"); err != nil {
			t.Errorf("account was not stored: %v", err)
		}
	})

	t.Run("existing email conflicts", func(t *testing.T) {
		env := setupHandlerTest(t)
		env.addVerifiedUser(t, "taken@test.com", "Str0ngPassword!")
		w := env.postJSON(t, "/v1/auth/register", gin.H{
			"email":    "taken@test.com",
			"password": "Str0ngPassword!",
		})
		if w.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), ERROR_CODE_ACCOUNT_EXISTS) {
			t.Errorf("expected %s, got %s", ERROR_CODE_ACCOUNT_EXISTS, w.Body.String())
		}
	})

	t.Run("weak password rejected", func(t *testing.T) {
		env := setupHandlerTest(t)
		w := env.postJSON(t, "/v1/auth/register", gin.H{
			"email":    "new@test.com",
			"password": "short",
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("bad email rejected", func(t *testing.T) {
		env := setupHandlerTest(t)
		w := env.postJSON(t, "/v1/auth/register", gin.H{
			"email":    "not-an-email",
			"password": "Str0ngPassword!",
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Run("valid credentials issue a pair", func(t *testing.T) {
		env := setupHandlerTest(t)
		env.addVerifiedUser(t, "user@test.com", "Str0ngPassword!")
		w := env.postJSON(t, "/v1/auth/login", gin.H{
			"email":    "user@test.com",
			"password": "Str0ngPassword!",
		})
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "issued-access") {
			t.Errorf("expected access token in response: %s", w.Body.String())
		}
		if env.tokenService.issueCalls != 1 {
			t.Errorf("expected 1 issue call, got %d", env.tokenService.issueCalls)
		}
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		env := setupHandlerTest(t)
		env.addVerifiedUser(t, "user@test.com", "Str0ngPassword!")

		wUnknown := env.postJSON(t, "/v1/auth/login", gin.H{
			"email":    "nobody@test.com",
			"password": "Str0ngPassword!",
		})
		wWrongPw := env.postJSON(t, "/v1/auth/login", gin.H{
			"email":    "user@test.com",
			"password": "WrongPassword1!",
		})

		if wUnknown.Code != http.StatusUnauthorized || wWrongPw.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for both, got %d and %d", wUnknown.Code, wWrongPw.Code)
		}
		if wUnknown.Body.String() != wWrongPw.Body.String() {
			t.Errorf("failure bodies differ: %s vs %s", wUnknown.Body.String(), wWrongPw.Body.String())
		}
	})

	t.Run("unverified email issues no tokens", func(t *testing.T) {
		env := setupHandlerTest(t)
		hash, err := pwhash.HashPassword("Str0ngPassword!")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		env.userStore.add(userTypes.User{
			Email:    "fresh@test.com",
			Password: hash,
		})

		w := env.postJSON(t, "/v1/auth/login", gin.H{
			"email":    "fresh@test.com",
			"password": "Str0ngPassword!",
		})
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), ERROR_CODE_EMAIL_NOT_VERIFIED) {
			t.Errorf("expected %s, got %s", ERROR_CODE_EMAIL_NOT_VERIFIED, w.Body.String())
		}
		if env.tokenService.issueCalls != 0 {
			t.Errorf("no pair may be issued for unverified accounts, got %d calls", env.tokenService.issueCalls)
		}
	})
}

func TestRefreshEndpoint(t *testing.T) {
	testCases := []struct {
		name       string
		rotateErr  error
		wantStatus int
		wantCode   string
	}{
		{"success", nil, http.StatusOK, ""},
		{"invalid token", tokens.ErrRefreshInvalid, http.StatusUnauthorized, ERROR_CODE_REFRESH_INVALID},
		{"expired token", tokens.ErrRefreshExpired, http.StatusUnauthorized, ERROR_CODE_REFRESH_EXPIRED},
		{"account invalid", tokens.ErrAccountInvalid, http.StatusUnauthorized, ERROR_CODE_ACCOUNT_INVALID},
		{"store failure", errors.New("connection lost"), http.StatusInternalServerError, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupHandlerTest(t)
			env.tokenService.rotateErr = tc.rotateErr

			w := env.postJSON(t, "/v1/auth/refresh", gin.H{"refreshToken": "some-token"})
			if w.Code != tc.wantStatus {
				t.Errorf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if tc.wantCode != "" && !strings.Contains(w.Body.String(), tc.wantCode) {
				t.Errorf("expected code %s, got %s", tc.wantCode, w.Body.String())
			}
			if tc.name == "store failure" && strings.Contains(w.Body.String(), "connection lost") {
				t.Errorf("internal error detail leaked: %s", w.Body.String())
			}
		})
	}
}

func TestLogoutEndpoint(t *testing.T) {
	env := setupHandlerTest(t)

	first := env.postJSON(t, "/v1/auth/logout", gin.H{"refreshToken": "gone-token"})
	second := env.postJSON(t, "/v1/auth/logout", gin.H{"refreshToken": "gone-token"})

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Errorf("logout must always succeed, got %d and %d", first.Code, second.Code)
	}
	if len(env.tokenService.revokeCalls) != 2 {
		t.Errorf("expected 2 revoke calls, got %d", len(env.tokenService.revokeCalls))
	}
}

func TestValidateEndpoint(t *testing.T) {
	env := setupHandlerTest(t)

	t.Run("without token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/v1/auth/validate", nil)
		env.router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("with valid token", func(t *testing.T) {
		token, err := jwthandling.GenerateNewUserToken(time.Minute, "account-1", "user@test.com", testTokenSignKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/v1/auth/validate", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		env.router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "account-1") {
			t.Errorf("expected claims in response: %s", w.Body.String())
		}
	})
}

func TestVerifyEmailEndpoint(t *testing.T) {
	t.Run("valid code verifies and issues pair", func(t *testing.T) {
		env := setupHandlerTest(t)
		hash, _ := pwhash.HashPassword("Str0ngPassword!")
		user := env.userStore.add(userTypes.User{Email: "fresh@test.com", Password: hash})
		env.codeStore.addConsumable(userTypes.VerificationCode{
			AccountID: user.ID.Hex(),
			Email:     user.Email,
			Code:      "123456",
			Kind:      userTypes.VERIFICATION_CODE_KIND_EMAIL_VERIFY,
		})

		w := env.postJSON(t, "/v1/auth/verify-email", gin.H{
			"email": "fresh@test.com",
			"code":  "123456",
		})
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if len(env.userStore.verifiedIDs) != 1 {
			t.Errorf("account was not marked verified")
		}
		if env.tokenService.issueCalls != 1 {
			t.Errorf("expected a token pair to be issued, got %d calls", env.tokenService.issueCalls)
		}
	})

	t.Run("code cannot be used twice", func(t *testing.T) {
		env := setupHandlerTest(t)
		hash, _ := pwhash.HashPassword("Str0ngPassword!")
		user := env.userStore.add(userTypes.User{Email: "fresh@test.com", Password: hash})
		env.codeStore.addConsumable(userTypes.VerificationCode{
			AccountID: user.ID.Hex(),
			Code:      "123456",
			Kind:      userTypes.VERIFICATION_CODE_KIND_EMAIL_VERIFY,
		})

		first := env.postJSON(t, "/v1/auth/verify-email", gin.H{"email": "fresh@test.com", "code": "123456"})
		second := env.postJSON(t, "/v1/auth/verify-email", gin.H{"email": "fresh@test.com", "code": "123456"})

		if first.Code != http.StatusOK {
			t.Errorf("first use should succeed, got %d", first.Code)
		}
		if second.Code != http.StatusBadRequest {
			t.Errorf("second use should fail, got %d", second.Code)
		}
		if !strings.Contains(second.Body.String(), ERROR_CODE_CODE_INVALID_OR_EXPIRED) {
			t.Errorf("expected %s, got %s", ERROR_CODE_CODE_INVALID_OR_EXPIRED, second.Body.String())
		}
	})

	t.Run("wrong code rejected", func(t *testing.T) {
		env := setupHandlerTest(t)
		hash, _ := pwhash.HashPassword("Str0ngPassword!")
		env.userStore.add(userTypes.User{Email: "fresh@test.com", Password: hash})

		w := env.postJSON(t, "/v1/auth/verify-email", gin.H{"email": "fresh@test.com", "code": "999999"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestPasswordResetFlow(t *testing.T) {
	t.Run("request always succeeds", func(t *testing.T) {
		env := setupHandlerTest(t)
		env.addVerifiedUser(t, "user@test.com", "Str0ngPassword!")

		known := env.postJSON(t, "/v1/auth/password-reset/request", gin.H{"email": "user@test.com"})
		unknown := env.postJSON(t, "/v1/auth/password-reset/request", gin.H{"email": "nobody@test.com"})

		if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
			t.Errorf("expected 200 for both, got %d and %d", known.Code, unknown.Code)
		}
		if known.Body.String() != unknown.Body.String() {
			t.Errorf("responses must not reveal account existence: %s vs %s", known.Body.String(), unknown.Body.String())
		}
	})

	t.Run("verify updates password and revokes all sessions", func(t *testing.T) {
		env := setupHandlerTest(t)
		user := env.addVerifiedUser(t, "user@test.com", "Str0ngPassword!")
		env.codeStore.addConsumable(userTypes.VerificationCode{
			AccountID: user.ID.Hex(),
			Code:      "654321",
			Kind:      userTypes.VERIFICATION_CODE_KIND_PASSWORD_RESET,
		})

		w := env.postJSON(t, "/v1/auth/password-reset/verify", gin.H{
			"email":       "user@test.com",
			"code":        "654321",
			"newPassword": "N3wPassword!!",
		})
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if _, ok := env.userStore.passwordUpdates[user.ID.Hex()]; !ok {
			t.Error("password hash was not replaced")
		}
		if len(env.tokenService.revokeAllFor) != 1 || env.tokenService.revokeAllFor[0] != user.ID.Hex() {
			t.Errorf("expected RevokeAll for the account, got %v", env.tokenService.revokeAllFor)
		}
	})

	t.Run("verify with wrong code changes nothing", func(t *testing.T) {
		env := setupHandlerTest(t)
		user := env.addVerifiedUser(t, "user@test.com", "Str0ngPassword!")

		w := env.postJSON(t, "/v1/auth/password-reset/verify", gin.H{
			"email":       "user@test.com",
			"code":        "000000",
			"newPassword": "N3wPassword!!",
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		if len(env.userStore.passwordUpdates) != 0 {
			t.Error("password must not change on invalid code")
		}
		if len(env.tokenService.revokeAllFor) != 0 {
			t.Errorf("no sessions may be revoked, got %v", env.tokenService.revokeAllFor)
		}
		_ = user
	})
}

func TestLogoutAllEndpoint(t *testing.T) {
	env := setupHandlerTest(t)
	token, err := jwthandling.GenerateNewUserToken(time.Minute, "account-1", "user@test.com", testTokenSignKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/auth/logout-all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.tokenService.revokeAllFor) != 1 || env.tokenService.revokeAllFor[0] != "account-1" {
		t.Errorf("expected RevokeAll for account-1, got %v", env.tokenService.revokeAllFor)
	}
}
