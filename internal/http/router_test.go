package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/campaign-vault/backend/internal/config"
	"github.com/campaign-vault/backend/internal/encryption"
	"github.com/campaign-vault/backend/internal/events"
	"github.com/campaign-vault/backend/internal/http/handlers"
	"github.com/campaign-vault/backend/internal/ingest"
	"github.com/campaign-vault/backend/internal/mapping"
	"github.com/campaign-vault/backend/internal/repositories/sqlite"
	"github.com/campaign-vault/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testPassword  = "open sesame"
	testMaxUpload = 512
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	log := zap.NewNop()

	cfg := &config.Config{
		AccessPassword: testPassword,
		JWTSecret:      "test-secret",
		JWTExpiration:  time.Hour,
		AuthRateLimit:  10,
		MaxUploadBytes: testMaxUpload,
	}

	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "http.db"), log)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	codec, err := encryption.NewCodec(bytes.Repeat([]byte{3}, encryption.KeySize))
	require.NoError(t, err)
	mapper := mapping.NewMapper(nil)
	bus := events.NewLocalBus(log)

	pipeline := ingest.NewPipeline(store, codec, mapper, bus, ingest.Options{MaxBytes: testMaxUpload}, log)
	app := fiber.New()
	SetupRouter(app, cfg, log, nil,
		handlers.NewAuthHandler(cfg, log),
		handlers.NewCampaignHandler(services.NewCampaignService(store, bus, log), pipeline, cfg.MaxUploadBytes, log),
		handlers.NewContactHandler(services.NewContactService(store, codec, log), log),
		handlers.NewMetaHandler(mapper),
		handlers.NewWSHub(cfg.JWTSecret, bus, log),
	)
	return app
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(body) > 0 && body[0] == '{' {
		require.NoError(t, json.Unmarshal(body, &env), string(body))
	}
	return resp.StatusCode, env
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth", strings.NewReader(`{"password":"`+testPassword+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func authed(method, target string, body io.Reader, token string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func uploadRequest(t *testing.T, target, token string, fields map[string]string, csv string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", "contacts.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := authed(http.MethodPost, target, &buf, token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const sampleCSV = "First,Last,Email,Company\n" +
	"Ann,Lee,ann@acme.io,Acme\n" +
	"Bob,Ray,bob@globex.com,Globex\n" +
	"Cy,Ng,cy@acme.io,Acme\n"

const sampleMapping = `{"firstName":"First","lastName":"Last","email":"Email","company":"Company"}`

func TestHealthAndMetricsArePublic(t *testing.T) {
	app := newTestApp(t)

	code, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, code)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	app := newTestApp(t)

	code, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil))
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, app, authed(http.MethodGet, "/api/v1/campaigns", nil, "garbage"))
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth", strings.NewReader(`{"password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	code, _ := do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, code)

	token := login(t, app)
	code, env := do(t, app, authed(http.MethodGet, "/api/v1/session", nil, token))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "session_id")
}

func TestCampaignLifecycle(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app)

	code, env := do(t, app, uploadRequest(t, "/api/v1/campaigns", token,
		map[string]string{"name": "Q3 outreach", "mapping": sampleMapping}, sampleCSV))
	require.Equal(t, http.StatusCreated, code, env.Error)

	var created struct {
		Campaign struct {
			ID           int64 `json:"id"`
			ContactCount int   `json:"contact_count"`
		} `json:"campaign"`
		Rows int `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, 3, created.Rows)
	id := created.Campaign.ID

	// same name again
	code, _ = do(t, app, uploadRequest(t, "/api/v1/campaigns", token,
		map[string]string{"name": "Q3 outreach", "mapping": sampleMapping}, sampleCSV))
	assert.Equal(t, http.StatusConflict, code)

	code, env = do(t, app, authed(http.MethodGet, fmt.Sprintf("/api/v1/campaigns/%d/contacts?limit=2&offset=1", id), nil, token))
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Contacts []struct {
			Email string `json:"email"`
		} `json:"contacts"`
		Total int `json:"total"`
		Limit int `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Contacts, 2)
	assert.Equal(t, "bob@globex.com", page.Contacts[0].Email)

	code, env = do(t, app, authed(http.MethodGet, fmt.Sprintf("/api/v1/campaigns/%d/contacts/search?q=ACME", id), nil, token))
	require.Equal(t, http.StatusOK, code)
	var found struct {
		Contacts  []json.RawMessage `json:"contacts"`
		Truncated bool              `json:"truncated"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &found))
	assert.Len(t, found.Contacts, 2)
	assert.False(t, found.Truncated)

	// the endpoint trims the query box before searching
	code, env = do(t, app, authed(http.MethodGet, fmt.Sprintf("/api/v1/campaigns/%d/contacts/search?q=%%20%%20acme%%20", id), nil, token))
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &found))
	assert.Len(t, found.Contacts, 2)

	code, _ = do(t, app, authed(http.MethodDelete, fmt.Sprintf("/api/v1/campaigns/%d", id), nil, token))
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, app, authed(http.MethodGet, fmt.Sprintf("/api/v1/campaigns/%d", id), nil, token))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreateCampaignErrors(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app)

	tests := []struct {
		name   string
		fields map[string]string
		csv    string
		want   int
	}{
		{"missing mapping", map[string]string{"name": "a"}, sampleCSV, http.StatusBadRequest},
		{"mapping not json", map[string]string{"name": "a", "mapping": "email=Email"}, sampleCSV, http.StatusBadRequest},
		{"required field unmapped", map[string]string{"name": "a", "mapping": `{"email":"Email"}`}, sampleCSV, http.StatusBadRequest},
		{"header not in file", map[string]string{"name": "a", "mapping": `{"firstName":"First","lastName":"Last","email":"Mail"}`}, sampleCSV, http.StatusBadRequest},
		{"blank name", map[string]string{"name": " ", "mapping": sampleMapping}, sampleCSV, http.StatusBadRequest},
		{"too large", map[string]string{"name": "a", "mapping": sampleMapping}, sampleCSV + strings.Repeat("Dee,Fox,dee@x.io,X\n", 40), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, app, uploadRequest(t, "/api/v1/campaigns", token, tt.fields, tt.csv))
			assert.Equal(t, tt.want, code, env.Error)
			assert.NotEmpty(t, env.Error)
		})
	}

	code, env := do(t, app, authed(http.MethodGet, "/api/v1/campaigns", nil, token))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "[]", string(env.Data))
}

func TestPreviewAndFields(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app)

	code, env := do(t, app, uploadRequest(t, "/api/v1/campaigns/preview", token, nil, sampleCSV))
	require.Equal(t, http.StatusOK, code, env.Error)
	var preview struct {
		Proposed map[string]string `json:"proposed_mapping"`
		Rows     int               `json:"row_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.Equal(t, "Email", preview.Proposed["email"])
	assert.Equal(t, 3, preview.Rows)

	code, env = do(t, app, authed(http.MethodGet, "/api/v1/mapping/fields", nil, token))
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"id":"linkedinUrl"`)
}

func TestInvalidCampaignID(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app)

	for _, path := range []string{"/api/v1/campaigns/abc", "/api/v1/campaigns/0/contacts", "/api/v1/campaigns/-4/contacts/search"} {
		code, _ := do(t, app, authed(http.MethodGet, path, nil, token))
		assert.Equal(t, http.StatusBadRequest, code, path)
	}

	code, _ := do(t, app, authed(http.MethodGet, "/api/v1/campaigns/999/contacts", nil, token))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestWebsocketRouteNeedsUpgrade(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws?token=x", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
