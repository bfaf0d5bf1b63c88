package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/widgetdeck/control-plane/internal/api/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, path string, header map[string]string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	auth := middleware.NewAPIKeyAuth(nil)
	if auth.Enabled() {
		t.Error("Expected auth to be disabled when no keys are configured")
	}

	if code := serve(auth.Middleware(okHandler()), "/api/v1/widgets", nil); code != http.StatusOK {
		t.Errorf("Disabled auth: status = %d, want %d", code, http.StatusOK)
	}
}

func TestAPIKeyAuth_BlankKeysIgnored(t *testing.T) {
	auth := middleware.NewAPIKeyAuth([]string{"", "  "})
	if auth.Enabled() {
		t.Error("Blank keys should not enable auth")
	}
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	auth := middleware.NewAPIKeyAuth([]string{"test-key-1", " test-key-2 "})
	if !auth.Enabled() {
		t.Fatal("Expected auth to be enabled")
	}
	h := auth.Middleware(okHandler())

	if code := serve(h, "/api/v1/widgets", map[string]string{"Authorization": "Bearer test-key-1"}); code != http.StatusOK {
		t.Errorf("Valid Bearer key: status = %d, want %d", code, http.StatusOK)
	}
	if code := serve(h, "/api/v1/widgets", map[string]string{"X-API-Key": "test-key-2"}); code != http.StatusOK {
		t.Errorf("Valid X-API-Key: status = %d, want %d", code, http.StatusOK)
	}
}

func TestAPIKeyAuth_InvalidOrMissingKey(t *testing.T) {
	h := middleware.NewAPIKeyAuth([]string{"valid-key"}).Middleware(okHandler())

	if code := serve(h, "/api/v1/recipes", map[string]string{"Authorization": "Bearer wrong-key"}); code != http.StatusUnauthorized {
		t.Errorf("Invalid key: status = %d, want %d", code, http.StatusUnauthorized)
	}
	if code := serve(h, "/api/v1/recipes", nil); code != http.StatusUnauthorized {
		t.Errorf("Missing key: status = %d, want %d", code, http.StatusUnauthorized)
	}
}

func TestAPIKeyAuth_PublicPaths(t *testing.T) {
	h := middleware.NewAPIKeyAuth([]string{"valid-key"}).Middleware(okHandler())

	for _, path := range []string{"/health", "/version", "/metrics"} {
		if code := serve(h, path, nil); code != http.StatusOK {
			t.Errorf("Public path %q: status = %d, want %d", path, code, http.StatusOK)
		}
	}
}

func TestAPIKeyAuth_AddRemoveKey(t *testing.T) {
	auth := middleware.NewAPIKeyAuth(nil)

	auth.AddKey("runtime-key")
	if !auth.Enabled() {
		t.Error("Should be enabled after AddKey")
	}

	h := auth.Middleware(okHandler())
	if code := serve(h, "/api/v1/widgets", map[string]string{"X-API-Key": "runtime-key"}); code != http.StatusOK {
		t.Errorf("Runtime key: status = %d, want %d", code, http.StatusOK)
	}

	auth.RemoveKey("runtime-key")
	if auth.Enabled() {
		t.Error("Should be disabled after removing last key")
	}
}
