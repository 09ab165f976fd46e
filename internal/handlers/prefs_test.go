package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/zuccone/super-lunch-buddies/internal/middleware"
	"github.com/zuccone/super-lunch-buddies/internal/prefs"
	"github.com/zuccone/super-lunch-buddies/internal/store"
)

func setupPrefsRouter(handler *PrefsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.DeviceIdentity())
	r.GET("/prefs/:key", handler.Get)
	r.PUT("/prefs/:key", handler.Set)
	return r
}

func TestPrefsRoundTrip(t *testing.T) {
	handler := NewPrefsHandler(prefs.New(store.NewMemory()))
	router := setupPrefsRouter(handler)

	body := bytes.NewBufferString(`{"value":"ana","ttl_days":30}`)
	req := httptest.NewRequest(http.MethodPut, "/prefs/lunchTrackerName", body)
	req.Header.Set("X-Device-Id", "dev-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/prefs/lunchTrackerName", nil)
	req.Header.Set("X-Device-Id", "dev-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Value string `json:"value"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ana", resp.Value)
}

func TestPrefsUnsetKey(t *testing.T) {
	handler := NewPrefsHandler(prefs.New(store.NewMemory()))
	router := setupPrefsRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/prefs/lunchTrackerTheme", nil)
	req.Header.Set("X-Device-Id", "dev-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrefsScopedPerDevice(t *testing.T) {
	handler := NewPrefsHandler(prefs.New(store.NewMemory()))
	router := setupPrefsRouter(handler)

	body := bytes.NewBufferString(`{"value":"g1","ttl_days":365}`)
	req := httptest.NewRequest(http.MethodPut, "/prefs/selectedGroupId", body)
	req.Header.Set("X-Device-Id", "dev-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/prefs/selectedGroupId", nil)
	req.Header.Set("X-Device-Id", "dev-2")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeviceIdentityMintsID(t *testing.T) {
	handler := NewPrefsHandler(prefs.New(store.NewMemory()))
	router := setupPrefsRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/prefs/lunchTrackerName", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.NotEmpty(t, rec.Header().Get("X-Device-Id"))
}
