package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/maccoykevin921-crypto/vino-membership-api/internal/api/handler"
	"github.com/maccoykevin921-crypto/vino-membership-api/internal/core/service"
	"github.com/maccoykevin921-crypto/vino-membership-api/internal/infrastructure/db/filestore"
	"github.com/maccoykevin921-crypto/vino-membership-api/pkg/password"
)

type testServer struct {
	e    *echo.Echo
	path string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	repo := filestore.NewMemberRepository(path, nil)

	hasher, err := password.New(password.AlgorithmBcrypt, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	reg := prometheus.NewRegistry()
	e := NewRouter(Options{
		Members:    service.NewMemberService(repo, hasher, zerolog.Nop()),
		Checks:     map[string]handler.Checker{"storage": repo},
		Logger:     zerolog.Nop(),
		Registerer: reg,
		Gatherer:   reg,
	})
	return &testServer{e: e, path: path}
}

func (s *testServer) post(t *testing.T, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s: invalid json %q: %v", path, rec.Body.String(), err)
	}
	return rec.Code, resp
}

func (s *testServer) stored(t *testing.T) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("read storage: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("decode storage: %v", err)
	}
	return records
}

func expect(t *testing.T, gotCode int, got map[string]any, wantCode int, key string, want any) {
	t.Helper()
	if gotCode != wantCode {
		t.Fatalf("expected %d, got %d (%v)", wantCode, gotCode, got)
	}
	if got[key] != want {
		t.Fatalf("expected %s=%v, got %v", key, want, got)
	}
}

func TestMembershipLifecycle(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.post(t, "/register", `{"email":"a@x.com","password":"p1"}`)
	expect(t, code, resp, http.StatusOK, "success", true)

	code, resp = s.post(t, "/login", `{"email":"a@x.com","password":"p1"}`)
	expect(t, code, resp, http.StatusOK, "success", true)
	user := resp["user"].(map[string]any)
	if user["email"] != "a@x.com" || user["active"] != false {
		t.Fatalf("unexpected user: %v", user)
	}
	if _, ok := user["name"]; ok {
		t.Fatalf("name must be absent when not registered: %v", user)
	}

	code, resp = s.post(t, "/activate", `{"email":"a@x.com"}`)
	expect(t, code, resp, http.StatusOK, "success", true)

	code, resp = s.post(t, "/activate", `{"email":"a@x.com"}`)
	expect(t, code, resp, http.StatusOK, "success", true)

	code, resp = s.post(t, "/login", `{"email":"a@x.com","password":"p1"}`)
	expect(t, code, resp, http.StatusOK, "success", true)
	if resp["user"].(map[string]any)["active"] != true {
		t.Fatalf("expected active member after activation: %v", resp)
	}
}

func TestRegister_RejectsDuplicateAndKeepsOneRecord(t *testing.T) {
	s := newTestServer(t)

	s.post(t, "/register", `{"email":"a@x.com","name":"Ada","password":"p1"}`)
	code, resp := s.post(t, "/register", `{"email":"a@x.com","password":"other"}`)
	expect(t, code, resp, http.StatusConflict, "error", "User already exists")

	records := s.stored(t)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0]["name"] != "Ada" {
		t.Fatalf("original record must be untouched: %v", records[0])
	}
}

func TestRegister_MissingFields(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{`{"email":"a@x.com"}`, `{"password":"p1"}`, `{}`} {
		code, resp := s.post(t, "/register", body)
		expect(t, code, resp, http.StatusBadRequest, "error", "Missing fields")
	}
	if _, err := os.Stat(s.path); !os.IsNotExist(err) {
		t.Fatalf("rejected registrations must not write storage")
	}
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "/register", `{"email":"a@x.com","name":"Ada","password":"p1"}`)

	rec := s.stored(t)[0]
	hash, _ := rec["password"].(string)
	if hash == "" || hash == "p1" {
		t.Fatalf("expected a hash, got %q", hash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("p1")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
	if rec["active"] != false || rec["email"] != "a@x.com" || rec["name"] != "Ada" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if registered, _ := rec["registered"].(string); !strings.HasSuffix(registered, "Z") {
		t.Fatalf("expected UTC ISO timestamp, got %q", registered)
	}
}

func TestLogin_Errors(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "/register", `{"email":"a@x.com","password":"p1"}`)

	code, resp := s.post(t, "/login", `{"email":"ghost@x.com","password":"p1"}`)
	expect(t, code, resp, http.StatusNotFound, "error", "User not found")

	code, resp = s.post(t, "/login", `{"email":"a@x.com","password":"p2"}`)
	expect(t, code, resp, http.StatusForbidden, "error", "Invalid password")

	code, resp = s.post(t, "/login", `{"email":"A@X.COM","password":"p1"}`)
	expect(t, code, resp, http.StatusNotFound, "error", "User not found")
}

func TestActivate_UnknownLeavesCollectionUnchanged(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "/register", `{"email":"a@x.com","password":"p1"}`)
	before, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("read storage: %v", err)
	}

	code, resp := s.post(t, "/activate", `{"email":"ghost@x.com"}`)
	expect(t, code, resp, http.StatusNotFound, "error", "User not found")

	after, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("read storage: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("storage changed after failed activation")
	}
}

func TestFace_AlwaysSucceeds(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.post(t, "/face", `{"email":"nobody@x.com"}`)
	expect(t, code, resp, http.StatusOK, "success", true)

	if _, err := os.Stat(s.path); !os.IsNotExist(err) {
		t.Fatalf("face verification must not touch storage")
	}
}

func TestMalformedStorageIsInternalError(t *testing.T) {
	s := newTestServer(t)
	if err := os.WriteFile(s.path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("write storage: %v", err)
	}

	code, resp := s.post(t, "/login", `{"email":"a@x.com","password":"p1"}`)
	expect(t, code, resp, http.StatusInternalServerError, "error", "internal server error")
}

func TestInvalidJSONIsBadRequest(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.post(t, "/register", `{"email":`)
	expect(t, code, resp, http.StatusBadRequest, "error", "invalid payload")
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.post(t, "/unknown", `{}`)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if _, ok := resp["error"]; !ok {
		t.Fatalf("expected error envelope, got %v", resp)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/register", nil)
	req.Header.Set(echo.HeaderOrigin, "https://vino.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func TestRegisterAndLogin_LongPassword(t *testing.T) {
	s := newTestServer(t)
	long := strings.Repeat("x", 80)

	code, resp := s.post(t, "/register", `{"email":"a@x.com","password":"`+long+`"}`)
	expect(t, code, resp, http.StatusOK, "success", true)

	code, resp = s.post(t, "/login", `{"email":"a@x.com","password":"`+long+`"}`)
	expect(t, code, resp, http.StatusOK, "success", true)

	code, resp = s.post(t, "/login", `{"email":"a@x.com","password":"`+long[:71]+`"}`)
	expect(t, code, resp, http.StatusForbidden, "error", "Invalid password")
}

func TestRegisterAndLogin_EmptyNameIsKept(t *testing.T) {
	s := newTestServer(t)

	s.post(t, "/register", `{"email":"a@x.com","name":"","password":"p1"}`)
	code, resp := s.post(t, "/login", `{"email":"a@x.com","password":"p1"}`)
	expect(t, code, resp, http.StatusOK, "success", true)

	name, ok := resp["user"].(map[string]any)["name"]
	if !ok || name != "" {
		t.Fatalf("expected empty name in login response, got %v", resp["user"])
	}
}

func TestFace_NonJSONBodySucceeds(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/face", strings.NewReader("selfie"))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestMetrics_RecordWrittenStatus(t *testing.T) {
	s := newTestServer(t)

	s.post(t, "/register", `{"email":"a@x.com","password":"p1"}`)
	s.post(t, "/register", `{"email":"a@x.com","password":"p1"}`)
	s.post(t, "/activate", `{"email":"ghost@x.com"}`)
	s.post(t, "/login", `{"email":"a@x.com","password":"nope"}`)
	s.post(t, "/login", `{"email":"a@x.com"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	for _, tc := range []struct {
		code string
		url  string
	}{
		{"200", "/register"},
		{"409", "/register"},
		{"404", "/activate"},
		{"403", "/login"},
		{"400", "/login"},
	} {
		if !hasRequestSample(rec.Body.String(), tc.code, tc.url) {
			t.Fatalf("expected a %s sample for %s in:\n%s", tc.code, tc.url, rec.Body.String())
		}
	}
	if hasRequestSample(rec.Body.String(), "500", "/activate") {
		t.Fatalf("client errors must not be counted as 500")
	}
}

func hasRequestSample(body, code, url string) bool {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "membership_requests_total{") &&
			strings.Contains(line, `code="`+code+`"`) &&
			strings.Contains(line, `url="`+url+`"`) {
			return true
		}
	}
	return false
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.post(t, "/register", `{"email":"a@x.com","password":"p1"}`)

	for _, tc := range []struct {
		path string
		want string
	}{
		{"/health", `"status":"ok"`},
		{"/health/ready", `"storage":{"status":"ok"}`},
		{"/metrics", "membership_requests_total"},
	} {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), tc.want) {
			t.Fatalf("%s: expected body to contain %q, got %s", tc.path, tc.want, rec.Body.String())
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	if len(rec.Header().Get(echo.HeaderXRequestID)) != 36 {
		t.Fatalf("expected a uuid request id, got %q", rec.Header().Get(echo.HeaderXRequestID))
	}
}

func TestNewHTTPErrorHandler_SkipsCommittedResponses(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = c.String(http.StatusTeapot, "already written")

	NewHTTPErrorHandler(zerolog.Nop())(context.Canceled, c)

	if rec.Code != http.StatusTeapot || rec.Body.String() != "already written" {
		t.Fatalf("committed response was modified: %d %q", rec.Code, rec.Body.String())
	}
}
