package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"food-delivery-platform/auth/internal/identity/domain"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *fixture) router() *gin.Engine {
	r := gin.New()
	f.http.Register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func TestHTTP_SignUpLoginMe(t *testing.T) {
	f := newFixture(t)
	r := f.router()

	code, env := do(t, r, http.MethodPost, "/auth/signup", "", gin.H{"email": "alice@example.com", "password": testPassword})
	if code != http.StatusCreated || !env.Success {
		t.Fatalf("signup = %d %+v", code, env)
	}
	code, env = do(t, r, http.MethodPost, "/auth/signup", "", gin.H{"email": "alice@example.com", "password": testPassword})
	if code != http.StatusConflict {
		t.Errorf("duplicate signup = %d, want 409", code)
	}
	code, env = do(t, r, http.MethodPost, "/auth/signup", "", gin.H{"email": "boss@example.com", "password": testPassword, "role": "admin"})
	if code != http.StatusForbidden {
		t.Errorf("admin signup = %d, want 403", code)
	}
	code, _ = do(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.com"})
	if code != http.StatusBadRequest {
		t.Errorf("login without password = %d, want 400", code)
	}

	code, env = do(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.com", "password": testPassword, "device_id": "dev-1"})
	if code != http.StatusOK {
		t.Fatalf("login = %d %+v", code, env)
	}
	var tok struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		UserID       string `json:"user_id"`
	}
	if err := json.Unmarshal(env.Data, &tok); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}

	code, env = do(t, r, http.MethodGet, "/auth/me", tok.AccessToken, nil)
	if code != http.StatusOK {
		t.Fatalf("me = %d %+v", code, env)
	}
	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.ID != tok.UserID || me.Email != "alice@example.com" || me.Role != "user" {
		t.Errorf("me = %+v", me)
	}
	if bytes.Contains(env.Data, []byte("password")) {
		t.Errorf("me leaks password hash: %s", env.Data)
	}

	code, env = do(t, r, http.MethodGet, "/auth/me", "", nil)
	if code != http.StatusUnauthorized || env.Message != "Invalid or expired token" {
		t.Errorf("me without token = %d %+v", code, env)
	}
}

func TestHTTP_LoginFailuresIndistinguishable(t *testing.T) {
	f := newFixture(t)
	r := f.router()
	f.seed(t, "alice@example.com", domain.RoleUser)

	raw := func(body gin.H) (int, string) {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/auth/login", &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code, w.Body.String()
	}
	wrongCode, wrongBody := raw(gin.H{"email": "alice@example.com", "password": "Wrong0rd!", "device_id": "dev-1"})
	unknownCode, unknownBody := raw(gin.H{"email": "nobody@example.com", "password": testPassword, "device_id": "dev-1"})
	if wrongCode != http.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", wrongCode)
	}
	if unknownCode != wrongCode || unknownBody != wrongBody {
		t.Errorf("unknown email = %d %s, wrong password = %d %s; want identical", unknownCode, unknownBody, wrongCode, wrongBody)
	}
}

func TestHTTP_RefreshLogoutSessions(t *testing.T) {
	f := newFixture(t)
	r := f.router()
	f.seed(t, "alice@example.com", domain.RoleUser)
	phone := f.login(t, "alice@example.com", "phone")
	f.login(t, "alice@example.com", "laptop")

	code, env := do(t, r, http.MethodGet, "/auth/sessions", phone.AccessToken, nil)
	if code != http.StatusOK {
		t.Fatalf("sessions = %d %+v", code, env)
	}
	var list []struct {
		DeviceID string `json:"device_id"`
		Current  bool   `json:"current"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("sessions = %d, want 2", len(list))
	}
	for _, s := range list {
		if s.Current != (s.DeviceID == "phone") {
			t.Errorf("session %q current = %v", s.DeviceID, s.Current)
		}
	}

	code, _ = do(t, r, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": phone.RefreshToken, "device_id": "laptop"})
	if code != http.StatusUnauthorized {
		t.Errorf("refresh on wrong device = %d, want 401", code)
	}
	code, _ = do(t, r, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": phone.RefreshToken, "device_id": "phone"})
	if code != http.StatusOK {
		t.Errorf("refresh = %d, want 200", code)
	}

	code, _ = do(t, r, http.MethodDelete, "/auth/sessions/laptop", phone.AccessToken, nil)
	if code != http.StatusOK {
		t.Errorf("revoke laptop = %d, want 200", code)
	}
	code, _ = do(t, r, http.MethodPost, "/auth/logout", phone.AccessToken, nil)
	if code != http.StatusOK {
		t.Errorf("logout = %d, want 200", code)
	}
	code, env = do(t, r, http.MethodPost, "/auth/logout-all", phone.AccessToken, nil)
	if code != http.StatusOK || string(env.Data) != `{"revoked":0}` {
		t.Errorf("logout-all = %d %s", code, env.Data)
	}
}

func TestHTTP_AdminDeactivate(t *testing.T) {
	f := newFixture(t)
	r := f.router()
	alice := f.seed(t, "alice@example.com", domain.RoleUser)
	f.seed(t, "admin@example.com", domain.RoleAdmin)
	aliceTok := f.login(t, "alice@example.com", "phone")
	adminTok := f.login(t, "admin@example.com", "desk")

	code, _ := do(t, r, http.MethodPost, "/admin/users/"+alice.ID+"/deactivate", aliceTok.AccessToken, nil)
	if code != http.StatusForbidden {
		t.Errorf("deactivate as user = %d, want 403", code)
	}
	code, _ = do(t, r, http.MethodPost, "/admin/users/"+alice.ID+"/deactivate", adminTok.AccessToken, nil)
	if code != http.StatusOK {
		t.Fatalf("deactivate as admin = %d, want 200", code)
	}
	code, _ = do(t, r, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": aliceTok.RefreshToken, "device_id": "phone"})
	if code != http.StatusUnauthorized {
		t.Errorf("refresh after deactivate = %d, want 401", code)
	}
}

func TestHTTP_Verification(t *testing.T) {
	f := newFixture(t)
	r := f.router()
	f.seed(t, "alice@example.com", domain.RoleUser)

	code, env := do(t, r, http.MethodPost, "/auth/verify/request", "", gin.H{"email": "alice@example.com"})
	if code != http.StatusOK {
		t.Fatalf("verify/request = %d %+v", code, env)
	}
	var data struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Code == "" {
		t.Fatalf("dev code missing: %s (%v)", env.Data, err)
	}
	code, _ = do(t, r, http.MethodPost, "/auth/verify/confirm", "", gin.H{"email": "alice@example.com", "code": data.Code})
	if code != http.StatusOK {
		t.Errorf("verify/confirm = %d, want 200", code)
	}
}
