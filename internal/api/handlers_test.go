package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/zapponejosh/ganzhi-api/internal/config"
	"github.com/zapponejosh/ganzhi-api/internal/database"
)

// =============================================================================
// TEST SETUP HELPERS
// =============================================================================

// testEnv sets up a complete test environment with database, config, and router
type testEnv struct {
	db       *database.DB
	cfg      *config.Config
	handlers *Handlers
	router   http.Handler
	apiKey   string
}

// setupTest creates a fresh test environment
func setupTest(t *testing.T) *testEnv {
	t.Helper()

	dbCfg := database.Config{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Quiet during tests
	}))

	db, err := database.Open(dbCfg, log)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	apiKey := "test-key-for-reference-writes"
	cfg := &config.Config{
		Port:         8080,
		Env:          config.EnvStaging,
		DatabasePath: ":memory:",
		APIKey:       apiKey,
		LogLevel:     "error",
		LogFormat:    "text",
		ZiHourRule:   config.ZiKeep,
		MaxRangeDays: 31,
	}

	handlers := NewHandlers(db, cfg, log)

	return &testEnv{
		db:       db,
		cfg:      cfg,
		handlers: handlers,
		router:   SetupRoutes(handlers, cfg, log),
		apiKey:   apiKey,
	}
}

// do sends a request through the full router.
func (env *testEnv) do(t *testing.T, method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// envelope mirrors Response with raw data for per-test decoding.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorInfo      `json:"error"`
}

// parseResponse parses the JSON envelope and decodes data into v.
func parseResponse(t *testing.T, rr *httptest.ResponseRecorder, v any) envelope {
	t.Helper()

	var env envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v, body: %s", err, rr.Body.String())
	}
	if v != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, v); err != nil {
			t.Fatalf("decode data: %v, data: %s", err, env.Data)
		}
	}
	return env
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	if rr.Code != status {
		t.Errorf("Status = %d, want %d, body: %s", rr.Code, status, rr.Body.String())
	}
	resp := parseResponse(t, rr, nil)
	if resp.Success {
		t.Error("Success = true, want false")
	}
	if resp.Error == nil || resp.Error.Code != code {
		t.Errorf("Error = %+v, want code %s", resp.Error, code)
	}
}

type chartData struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Chart    string `json:"chart"`
	Year     string `json:"year"`
	Month    string `json:"month"`
	Day      string `json:"day"`
	Hour     string `json:"hour"`
	Zodiac   string `json:"zodiac"`
	Lunar    string `json:"lunar_date"`
	ZiRule   string `json:"zi_rule"`
	Degraded bool   `json:"degraded"`
	Term     struct {
		Name string `json:"name"`
	} `json:"solar_term"`
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		cfg        config.Config
		key        string
		wantStatus int
	}{
		{"valid key", config.Config{Env: config.EnvProduction, APIKey: "k"}, "k", http.StatusOK},
		{"missing key", config.Config{Env: config.EnvProduction, APIKey: "k"}, "", http.StatusUnauthorized},
		{"wrong key", config.Config{Env: config.EnvProduction, APIKey: "k"}, "x", http.StatusUnauthorized},
		{"development without key", config.Config{Env: config.EnvDevelopment}, "", http.StatusOK},
		{"development with key set", config.Config{Env: config.EnvDevelopment, APIKey: "k"}, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			handler := AuthMiddleware(&cfg, slog.Default())(ok)

			req := httptest.NewRequest("POST", "/test", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	env := setupTest(t)

	rr := env.do(t, "GET", "/health", nil, "")
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("response has no X-Request-ID")
	}

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got != "client-supplied" {
		t.Errorf("X-Request-ID = %q, want client-supplied", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}),
	)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	expectError(t, rr, http.StatusInternalServerError, CodeInternal)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	env := setupTest(t)

	rr := env.do(t, "OPTIONS", "/api/v1/references", nil, "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing Access-Control-Allow-Origin")
	}
}

// =============================================================================
// CALENDAR ENDPOINT TESTS
// =============================================================================

func TestHealthCheck(t *testing.T) {
	env := setupTest(t)

	rr := env.do(t, "GET", "/health", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rr.Code, http.StatusOK)
	}

	var data map[string]string
	parseResponse(t, rr, &data)
	if data["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", data["status"])
	}
	if data["schema_version"] != "2" {
		t.Errorf("schema_version = %q, want 2", data["schema_version"])
	}
}

func TestHealthCheck_MissingTable(t *testing.T) {
	env := setupTest(t)

	if _, err := env.db.Exec("DROP TABLE validation_results"); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	rr := env.do(t, "GET", "/health", nil, "")
	expectError(t, rr, http.StatusServiceUnavailable, "HEALTH_CHECK_FAILED")
}

func TestGetDate(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name      string
		path      string
		wantChart string
		wantZi    string
	}{
		{"1991 fixture", "/api/v1/ganzhi/date/1991-09-07?time=14:30", "辛未年 丙申月 庚辰日 癸未时", "keep"},
		{"2001 fixture", "/api/v1/ganzhi/date/2001-12-10?time=09:28", "辛巳年 庚子月 丁未日 乙巳时", "keep"},
		{"late zi keep", "/api/v1/ganzhi/date/2025-02-25?time=23:30", "乙巳年 戊寅月 乙丑日 戊子时", "keep"},
		{"late zi advance", "/api/v1/ganzhi/date/2025-02-25?time=23:30&zi=advance", "乙巳年 戊寅月 丙寅日 戊子时", "advance"},
		{"date only", "/api/v1/ganzhi/date/1900-01-31", "庚子年 己丑月 甲辰日", "keep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "GET", tt.path, nil, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("Status = %d, want %d, body: %s", rr.Code, http.StatusOK, rr.Body.String())
			}

			var data chartData
			resp := parseResponse(t, rr, &data)
			if !resp.Success {
				t.Error("Success = false, want true")
			}
			if data.Chart != tt.wantChart {
				t.Errorf("chart = %s, want %s", data.Chart, tt.wantChart)
			}
			if data.ZiRule != tt.wantZi {
				t.Errorf("zi_rule = %s, want %s", data.ZiRule, tt.wantZi)
			}
		})
	}
}

func TestGetDate_Details(t *testing.T) {
	env := setupTest(t)

	rr := env.do(t, "GET", "/api/v1/ganzhi/date/2025-02-25?time=14:00", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var data chartData
	parseResponse(t, rr, &data)

	if data.Date != "2025-02-25" || data.Time != "14:00" {
		t.Errorf("date/time = %s %s, want 2025-02-25 14:00", data.Date, data.Time)
	}
	if data.Year != "乙巳" || data.Month != "戊寅" || data.Day != "乙丑" || data.Hour != "癸未" {
		t.Errorf("pillars = %s %s %s %s", data.Year, data.Month, data.Day, data.Hour)
	}
	if data.Zodiac != "蛇" {
		t.Errorf("zodiac = %s, want 蛇", data.Zodiac)
	}
	if data.Lunar != "二〇二五年正月廿八" {
		t.Errorf("lunar_date = %s", data.Lunar)
	}
	if data.Term.Name != "雨水" {
		t.Errorf("solar_term = %s, want 雨水", data.Term.Name)
	}
	if data.Degraded {
		t.Error("degraded = true, want false")
	}
}

func TestGetDate_Errors(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"bad date format", "/api/v1/ganzhi/date/2025-2-25", http.StatusBadRequest, CodeBadRequest},
		{"bad time", "/api/v1/ganzhi/date/2025-02-25?time=25:00", http.StatusBadRequest, CodeBadRequest},
		{"unknown zi rule", "/api/v1/ganzhi/date/2025-02-25?zi=split", http.StatusBadRequest, CodeBadRequest},
		{"before epoch", "/api/v1/ganzhi/date/1900-01-30", http.StatusBadRequest, CodeOutOfRange},
		{"after table", "/api/v1/ganzhi/date/2101-01-29", http.StatusBadRequest, CodeOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "GET", tt.path, nil, "")
			expectError(t, rr, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestGetToday(t *testing.T) {
	env := setupTest(t)
	env.handlers.now = func() time.Time {
		// 15:30 UTC is 23:30 in UTC+8.
		return time.Date(2025, time.February, 25, 15, 30, 0, 0, time.UTC)
	}

	rr := env.do(t, "GET", "/api/v1/ganzhi/today?zi=advance", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var data chartData
	parseResponse(t, rr, &data)
	if data.Chart != "乙巳年 戊寅月 丙寅日 戊子时" {
		t.Errorf("chart = %s, want 乙巳年 戊寅月 丙寅日 戊子时", data.Chart)
	}
	if data.Date != "2025-02-25" || data.Time != "23:30" {
		t.Errorf("date/time = %s %s, want 2025-02-25 23:30", data.Date, data.Time)
	}
}

func TestGetDayHours(t *testing.T) {
	env := setupTest(t)

	rr := env.do(t, "GET", "/api/v1/ganzhi/date/2025-02-25/hours", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var data struct {
		Day   string `json:"day"`
		Hours []struct {
			Pillar string `json:"pillar"`
			Range  string `json:"range"`
		} `json:"hours"`
	}
	parseResponse(t, rr, &data)

	if data.Day != "乙丑" {
		t.Errorf("day = %s, want 乙丑", data.Day)
	}
	if len(data.Hours) != 13 {
		t.Fatalf("len(hours) = %d, want 13", len(data.Hours))
	}
	if data.Hours[0].Pillar != "丙子" || data.Hours[12].Pillar != "戊子" {
		t.Errorf("first/last = %s/%s, want 丙子/戊子", data.Hours[0].Pillar, data.Hours[12].Pillar)
	}
}

func TestGetRange(t *testing.T) {
	env := setupTest(t)

	rr := env.do(t, "GET", "/api/v1/ganzhi/range?start=2025-01-27&end=2025-02-04", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var data struct {
		Charts []chartData `json:"charts"`
	}
	parseResponse(t, rr, &data)

	if len(data.Charts) != 9 {
		t.Fatalf("len(charts) = %d, want 9", len(data.Charts))
	}
	if data.Charts[0].Date != "2025-01-27" || data.Charts[8].Date != "2025-02-04" {
		t.Errorf("range = %s..%s", data.Charts[0].Date, data.Charts[8].Date)
	}
	// Lunar new year falls on 2025-01-29.
	if data.Charts[1].Year != "甲辰" || data.Charts[2].Year != "乙巳" {
		t.Errorf("years around new year = %s, %s", data.Charts[1].Year, data.Charts[2].Year)
	}
	for i := 1; i < len(data.Charts); i++ {
		if data.Charts[i].Day == data.Charts[i-1].Day {
			t.Errorf("day pillar repeated on %s", data.Charts[i].Date)
		}
	}
}

func TestGetRange_Errors(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing end", "/api/v1/ganzhi/range?start=2025-01-01", CodeBadRequest},
		{"bad start", "/api/v1/ganzhi/range?start=x&end=2025-01-01", CodeBadRequest},
		{"reversed", "/api/v1/ganzhi/range?start=2025-02-01&end=2025-01-01", CodeBadRequest},
		{"too long", "/api/v1/ganzhi/range?start=2025-01-01&end=2025-02-01", CodeBadRequest},
		{"out of range", "/api/v1/ganzhi/range?start=1900-01-25&end=1900-02-02", CodeOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "GET", tt.path, nil, "")
			expectError(t, rr, http.StatusBadRequest, tt.code)
		})
	}
}

func TestGetLunar(t *testing.T) {
	env := setupTest(t)

	rr := env.do(t, "GET", "/api/v1/lunar/2025-07-25", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var data struct {
		Lunar struct {
			Year   int  `json:"year"`
			Month  int  `json:"month"`
			Day    int  `json:"day"`
			IsLeap bool `json:"is_leap"`
		} `json:"lunar"`
		Display string `json:"display"`
		Zodiac  string `json:"zodiac"`
		Year    string `json:"year"`
	}
	parseResponse(t, rr, &data)

	if data.Lunar.Year != 2025 || data.Lunar.Month != 6 || data.Lunar.Day != 1 || !data.Lunar.IsLeap {
		t.Errorf("lunar = %+v, want 2025 leap 6/1", data.Lunar)
	}
	if data.Display != "二〇二五年闰六月初一" {
		t.Errorf("display = %s", data.Display)
	}
	if data.Year != "乙巳" || data.Zodiac != "蛇" {
		t.Errorf("year/zodiac = %s/%s, want 乙巳/蛇", data.Year, data.Zodiac)
	}
}

func TestGetSolarTerms(t *testing.T) {
	env := setupTest(t)

	rr := env.do(t, "GET", "/api/v1/solarterms/2025", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var data struct {
		Year  int `json:"year"`
		Terms []struct {
			Index   int       `json:"index"`
			Name    string    `json:"name"`
			Date    string    `json:"date"`
			Instant time.Time `json:"instant"`
			IsJie   bool      `json:"is_jie"`
		} `json:"terms"`
		Degraded bool `json:"degraded"`
	}
	parseResponse(t, rr, &data)

	if len(data.Terms) != 24 {
		t.Fatalf("len(terms) = %d, want 24", len(data.Terms))
	}
	spring := data.Terms[2]
	if spring.Name != "立春" || spring.Date != "2025-02-03" || !spring.IsJie {
		t.Errorf("terms[2] = %+v, want 立春 on 2025-02-03", spring)
	}
	if _, offset := spring.Instant.Zone(); offset != 8*3600 {
		t.Errorf("instant offset = %d, want +08:00", offset)
	}
	if data.Degraded {
		t.Error("degraded = true, want false")
	}

	expectError(t, env.do(t, "GET", "/api/v1/solarterms/abc", nil, ""), http.StatusBadRequest, CodeBadRequest)
	expectError(t, env.do(t, "GET", "/api/v1/solarterms/2101", nil, ""), http.StatusBadRequest, CodeOutOfRange)
}

func TestValidate(t *testing.T) {
	env := setupTest(t)

	body := map[string]string{
		"date":     "2025-02-25",
		"time":     "23:30",
		"expected": "乙巳年 戊寅月 丙寅日 戊子时",
		"zi":       "advance",
	}
	rr := env.do(t, "POST", "/api/v1/validate", body, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var data struct {
		IsValid bool `json:"is_valid"`
		Checks  []struct {
			Pillar string `json:"pillar"`
			Match  bool   `json:"match"`
		} `json:"checks"`
	}
	parseResponse(t, rr, &data)
	if !data.IsValid || len(data.Checks) != 4 {
		t.Errorf("validation = %+v, want valid with 4 checks", data)
	}

	// Same reference under the default keep rule: the day pillar differs.
	delete(body, "zi")
	rr = env.do(t, "POST", "/api/v1/validate", body, "")
	parseResponse(t, rr, &data)
	if data.IsValid {
		t.Error("is_valid = true under keep rule, want false")
	}
	if data.Checks[2].Pillar != "day" || data.Checks[2].Match {
		t.Errorf("day check = %+v, want mismatch", data.Checks[2])
	}
}

func TestValidate_Errors(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed reference",
			body:       map[string]string{"date": "1991-09-07", "time": "14:30", "expected": "辛未 丙申 庚辰 癸未"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeMalformedReference,
		},
		{
			name:       "missing time",
			body:       map[string]string{"date": "1991-09-07", "expected": "辛未年 丙申月 庚辰日 癸未时"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeBadRequest,
		},
		{
			name:       "unknown field",
			body:       map[string]string{"date": "1991-09-07", "time": "14:30", "expected": "x", "tz": "UTC"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeBadRequest,
		},
		{
			name:       "out of range",
			body:       map[string]string{"date": "2150-01-01", "time": "14:30", "expected": "辛未年 丙申月 庚辰日 癸未时"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "POST", "/api/v1/validate", tt.body, "")
			expectError(t, rr, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	env := setupTest(t)

	expectError(t, env.do(t, "GET", "/api/v1/nothing", nil, ""), http.StatusNotFound, CodeNotFound)
	expectError(t, env.do(t, "PUT", "/api/v1/validate", nil, ""), http.StatusMethodNotAllowed, CodeMethodNotAllowed)
}

// =============================================================================
// REFERENCE ENDPOINT TESTS
// =============================================================================

func TestReferences_Lifecycle(t *testing.T) {
	env := setupTest(t)

	fixture := map[string]string{
		"label":    "1991 afternoon",
		"date":     "1991-09-07",
		"time":     "14:30",
		"expected": "辛未年 丙申月 庚辰日 癸未时",
	}

	// Writes need the key.
	expectError(t, env.do(t, "POST", "/api/v1/references", fixture, ""), http.StatusUnauthorized, CodeUnauthorized)

	rr := env.do(t, "POST", "/api/v1/references", fixture, env.apiKey)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create Status = %d, body: %s", rr.Code, rr.Body.String())
	}
	var created database.ReferenceChart
	parseResponse(t, rr, &created)
	if created.ID == 0 || created.ZiRule != "keep" {
		t.Errorf("created = %+v", created)
	}

	expectError(t, env.do(t, "POST", "/api/v1/references", fixture, env.apiKey), http.StatusConflict, CodeDuplicate)

	bad := map[string]string{
		"date":     "2025-02-25",
		"time":     "23:30",
		"zi":       "advance",
		"expected": "乙巳年 戊寅月 乙丑日 戊子时",
	}
	if rr := env.do(t, "POST", "/api/v1/references", bad, env.apiKey); rr.Code != http.StatusCreated {
		t.Fatalf("create second Status = %d, body: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, "GET", "/api/v1/references", nil, "")
	var list struct {
		References []database.ReferenceChart `json:"references"`
		Count      int                       `json:"count"`
	}
	parseResponse(t, rr, &list)
	if list.Count != 2 || len(list.References) != 2 {
		t.Fatalf("list = %+v, want 2 charts", list)
	}

	expectError(t, env.do(t, "GET", "/api/v1/references/runs/latest", nil, ""), http.StatusNotFound, CodeNotFound)

	rr = env.do(t, "POST", "/api/v1/references/check", nil, env.apiKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("check Status = %d, body: %s", rr.Code, rr.Body.String())
	}
	var summary database.RunSummary
	parseResponse(t, rr, &summary)
	if summary.Run.Total != 2 || summary.Run.Passed != 1 || summary.Run.Failed != 1 {
		t.Errorf("run = %+v, want 1 passed and 1 failed", summary.Run)
	}

	rr = env.do(t, "GET", "/api/v1/references/runs/latest", nil, "")
	var latest database.RunSummary
	parseResponse(t, rr, &latest)
	if latest.Run.ID != summary.Run.ID || len(latest.Results) != 2 {
		t.Errorf("latest = %+v, want run %d with 2 results", latest.Run, summary.Run.ID)
	}

	path := "/api/v1/references/" + strconv.FormatInt(created.ID, 10)
	if rr := env.do(t, "DELETE", path, nil, env.apiKey); rr.Code != http.StatusOK {
		t.Errorf("delete Status = %d, body: %s", rr.Code, rr.Body.String())
	}
	expectError(t, env.do(t, "DELETE", path, nil, env.apiKey), http.StatusNotFound, CodeNotFound)
	expectError(t, env.do(t, "DELETE", "/api/v1/references/abc", nil, env.apiKey), http.StatusBadRequest, CodeBadRequest)
}

func TestCreateReference_Invalid(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name string
		body map[string]string
		code string
	}{
		{"missing time", map[string]string{"date": "1991-09-07", "expected": "辛未年 丙申月 庚辰日 癸未时"}, CodeBadRequest},
		{"malformed expected", map[string]string{"date": "1991-09-07", "time": "14:30", "expected": "辛未年"}, CodeMalformedReference},
		{"bad date", map[string]string{"date": "1991-13-07", "time": "14:30", "expected": "辛未年 丙申月 庚辰日 癸未时"}, CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "POST", "/api/v1/references", tt.body, env.apiKey)
			expectError(t, rr, http.StatusBadRequest, tt.code)
		})
	}
}
