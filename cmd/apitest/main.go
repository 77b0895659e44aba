package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// =============================================================================
// Response Types - Match the actual API response structure
// =============================================================================

type APIResponse struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ChartResponse is the response for /ganzhi/date/{date} and /ganzhi/today
type ChartResponse struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Chart     string `json:"chart"`
	Year      string `json:"year"`
	Month     string `json:"month"`
	Day       string `json:"day"`
	Hour      string `json:"hour"`
	LunarDate string `json:"lunar_date"`
	Zodiac    string `json:"zodiac"`
	ZiRule    string `json:"zi_rule"`
	Degraded  bool   `json:"degraded"`
	SolarTerm struct {
		Name string `json:"name"`
	} `json:"solar_term"`
}

// RangeResponse is the response for /ganzhi/range
type RangeResponse struct {
	Start  string          `json:"start"`
	End    string          `json:"end"`
	Charts []ChartResponse `json:"charts"`
}

// SolarTermsResponse is the response for /solarterms/{year}
type SolarTermsResponse struct {
	Year  int `json:"year"`
	Terms []struct {
		Name  string `json:"name"`
		Date  string `json:"date"`
		IsJie bool   `json:"is_jie"`
	} `json:"terms"`
	Degraded bool `json:"degraded"`
}

// ValidationResponse is the response for POST /validate
type ValidationResponse struct {
	IsValid bool   `json:"is_valid"`
	Actual  string `json:"actual"`
	Checks  []struct {
		Pillar   string `json:"pillar"`
		Expected string `json:"expected"`
		Actual   string `json:"actual"`
		Match    bool   `json:"match"`
	} `json:"checks"`
}

// HealthResponse is the response for /health
type HealthResponse struct {
	Status string `json:"status"`
}

// =============================================================================
// Test Runner
// =============================================================================

type TestRunner struct {
	baseURL      string
	client       *http.Client
	verbose      bool
	successCount int
	errorCount   int
	errors       []string
}

func NewTestRunner(baseURL string, verbose bool) *TestRunner {
	return &TestRunner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		verbose: verbose,
	}
}

func (tr *TestRunner) Run() {
	fmt.Println("==============================================")
	fmt.Println("GanZhi API Test Suite")
	fmt.Println("==============================================")
	fmt.Printf("Base URL: %s\n", tr.baseURL)
	fmt.Println()

	// Run test groups
	tr.testHealth()
	tr.testToday()
	tr.testReferenceCharts()
	tr.testLunarNewYear()
	tr.testDateRange()
	tr.testSolarTerms()
	tr.testValidate()
	tr.testEdgeCases()

	// Print summary
	tr.printSummary()
}

// =============================================================================
// Test Groups
// =============================================================================

func (tr *TestRunner) testHealth() {
	tr.printSection("Health Check")

	resp, err := tr.get("/health")
	if err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	var health HealthResponse
	if err := tr.parseDataAs(resp, &health); err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	if health.Status == "healthy" {
		tr.recordSuccess("Health check passed")
	} else {
		tr.recordError("Health", fmt.Sprintf("Unexpected status: %s", health.Status))
	}
}

func (tr *TestRunner) testToday() {
	tr.printSection("Today's Chart")

	resp, err := tr.get("/api/v1/ganzhi/today")
	if err != nil {
		tr.recordError("Today", err.Error())
		return
	}

	var data ChartResponse
	if err := tr.parseDataAs(resp, &data); err != nil {
		tr.recordError("Today", err.Error())
		return
	}

	if data.Hour == "" {
		tr.recordError("Today", "Missing hour pillar")
		return
	}
	tr.recordSuccess(fmt.Sprintf("Today (%s %s): %s", data.Date, data.Time, data.Chart))
	tr.printChartDetail(data)
}

func (tr *TestRunner) testReferenceCharts() {
	tr.printSection("Reference Charts")

	testCases := []struct {
		date     string
		time     string
		zi       string
		expected string
	}{
		{"1991-09-07", "14:30", "", "辛未年 丙申月 庚辰日 癸未时"},
		{"2001-12-10", "09:28", "", "辛巳年 庚子月 丁未日 乙巳时"},
		{"2025-02-25", "23:30", "advance", "乙巳年 戊寅月 丙寅日 戊子时"},
		{"2025-02-25", "23:30", "keep", "乙巳年 戊寅月 乙丑日 戊子时"},
	}

	for _, tc := range testCases {
		path := fmt.Sprintf("/api/v1/ganzhi/date/%s?time=%s", tc.date, tc.time)
		if tc.zi != "" {
			path += "&zi=" + tc.zi
		}
		name := strings.TrimSpace(tc.date + " " + tc.time + " " + tc.zi)

		resp, err := tr.get(path)
		if err != nil {
			tr.recordError(name, err.Error())
			continue
		}

		var data ChartResponse
		if err := tr.parseDataAs(resp, &data); err != nil {
			tr.recordError(name, err.Error())
			continue
		}

		if data.Chart == tc.expected {
			tr.recordSuccess(fmt.Sprintf("%s: %s", name, data.Chart))
		} else {
			tr.recordError(name, fmt.Sprintf("Expected '%s', got '%s'", tc.expected, data.Chart))
		}

		if tr.verbose {
			tr.printChartDetail(data)
		}
	}

	// Epoch day
	resp, err := tr.get("/api/v1/ganzhi/date/1900-01-31")
	if err != nil {
		tr.recordError("Epoch", err.Error())
		return
	}
	var epoch ChartResponse
	if err := tr.parseDataAs(resp, &epoch); err != nil {
		tr.recordError("Epoch", err.Error())
		return
	}
	if epoch.Day == "甲辰" {
		tr.recordSuccess("Epoch 1900-01-31 is 甲辰 day")
	} else {
		tr.recordError("Epoch", fmt.Sprintf("Expected day 甲辰, got %s", epoch.Day))
	}
}

func (tr *TestRunner) testLunarNewYear() {
	tr.printSection("Lunar New Year Boundary (2025)")

	testCases := []struct {
		date  string
		year  string
		month string
	}{
		{"2025-01-28", "甲辰", "丁丑"},
		{"2025-01-29", "乙巳", "己丑"},
		{"2025-02-02", "乙巳", "己丑"},
		{"2025-02-03", "乙巳", "戊寅"},
	}

	for _, tc := range testCases {
		resp, err := tr.get("/api/v1/ganzhi/date/" + tc.date)
		if err != nil {
			tr.recordError(tc.date, err.Error())
			continue
		}

		var data ChartResponse
		if err := tr.parseDataAs(resp, &data); err != nil {
			tr.recordError(tc.date, err.Error())
			continue
		}

		if data.Year == tc.year && data.Month == tc.month {
			tr.recordSuccess(fmt.Sprintf("%s: %s年 %s月 (%s)", tc.date, data.Year, data.Month, data.LunarDate))
		} else {
			tr.recordError(tc.date, fmt.Sprintf("Expected %s/%s, got %s/%s", tc.year, tc.month, data.Year, data.Month))
		}
	}
}

func (tr *TestRunner) testDateRange() {
	tr.printSection("Date Range Tests")

	// Test a week range
	resp, err := tr.get("/api/v1/ganzhi/range?start=2025-12-21&end=2025-12-27")
	if err != nil {
		tr.recordError("Range (week)", err.Error())
		return
	}

	var rangeData RangeResponse
	if err := tr.parseDataAs(resp, &rangeData); err != nil {
		tr.recordError("Range (week)", err.Error())
		return
	}

	if len(rangeData.Charts) == 7 {
		tr.recordSuccess(fmt.Sprintf("Week range returned %d days", len(rangeData.Charts)))
	} else {
		tr.recordError("Range (week)", fmt.Sprintf("Expected 7 days, got %d", len(rangeData.Charts)))
	}

	// Test range limit (should reject a full year with the default limit)
	resp2, _ := tr.getRaw("/api/v1/ganzhi/range?start=2025-01-01&end=2025-12-31")
	if resp2 != nil && resp2.StatusCode == 400 {
		tr.recordSuccess("Range limit enforced (full year rejected)")
	} else {
		tr.recordError("Range limit", "Should reject ranges over the configured limit")
	}

	// Test invalid range (end before start)
	resp3, _ := tr.getRaw("/api/v1/ganzhi/range?start=2025-12-31&end=2025-01-01")
	if resp3 != nil && resp3.StatusCode == 400 {
		tr.recordSuccess("Invalid range rejected (end before start)")
	} else {
		tr.recordError("Invalid range", "Should reject end < start")
	}
}

func (tr *TestRunner) testSolarTerms() {
	tr.printSection("Solar Terms 2025")

	resp, err := tr.get("/api/v1/solarterms/2025")
	if err != nil {
		tr.recordError("Solar terms", err.Error())
		return
	}

	var data SolarTermsResponse
	if err := tr.parseDataAs(resp, &data); err != nil {
		tr.recordError("Solar terms", err.Error())
		return
	}

	if len(data.Terms) != 24 {
		tr.recordError("Solar terms", fmt.Sprintf("Expected 24 terms, got %d", len(data.Terms)))
		return
	}
	tr.recordSuccess("24 terms returned")

	if data.Terms[2].Name == "立春" && data.Terms[2].Date == "2025-02-03" {
		tr.recordSuccess("立春 falls on 2025-02-03")
	} else {
		tr.recordError("立春", fmt.Sprintf("Got %s on %s", data.Terms[2].Name, data.Terms[2].Date))
	}

	if data.Degraded {
		tr.recordError("Solar terms", "Response is degraded")
	}

	if tr.verbose {
		for _, t := range data.Terms {
			marker := " "
			if t.IsJie {
				marker = "*"
			}
			fmt.Printf("    %s %s %s\n", marker, t.Date, t.Name)
		}
		fmt.Println()
	}
}

func (tr *TestRunner) testValidate() {
	tr.printSection("Validation")

	body := map[string]string{
		"date":     "1991-09-07",
		"time":     "14:30",
		"expected": "辛未年 丙申月 庚辰日 癸未时",
	}
	resp, err := tr.post("/api/v1/validate", body)
	if err != nil {
		tr.recordError("Validate (match)", err.Error())
	} else {
		var v ValidationResponse
		if err := tr.parseDataAs(resp, &v); err != nil {
			tr.recordError("Validate (match)", err.Error())
		} else if v.IsValid {
			tr.recordSuccess("Matching reference accepted")
		} else {
			tr.recordError("Validate (match)", fmt.Sprintf("Rejected, actual %s", v.Actual))
		}
	}

	body["expected"] = "辛未年 丙申月 辛巳日 癸未时"
	resp, err = tr.post("/api/v1/validate", body)
	if err != nil {
		tr.recordError("Validate (mismatch)", err.Error())
	} else {
		var v ValidationResponse
		if err := tr.parseDataAs(resp, &v); err != nil {
			tr.recordError("Validate (mismatch)", err.Error())
		} else if !v.IsValid && len(v.Checks) == 4 && !v.Checks[2].Match {
			tr.recordSuccess("Day pillar mismatch reported")
		} else {
			tr.recordError("Validate (mismatch)", "Expected a day pillar mismatch")
		}
	}

	body["expected"] = "辛未 丙申 庚辰 癸未"
	raw, _ := tr.postRaw("/api/v1/validate", body)
	if raw != nil && raw.StatusCode == 400 {
		tr.recordSuccess("Malformed reference rejected")
	} else {
		tr.recordError("Malformed reference", "Should return 400")
	}
}

func (tr *TestRunner) testEdgeCases() {
	tr.printSection("Edge Cases")

	// Invalid date format
	resp, _ := tr.getRaw("/api/v1/ganzhi/date/invalid")
	if resp != nil && resp.StatusCode == 400 {
		tr.recordSuccess("Invalid date format rejected")
	} else {
		tr.recordError("Invalid date", "Should return 400")
	}

	// Before the lunar table epoch
	resp2, _ := tr.getRaw("/api/v1/ganzhi/date/1900-01-30")
	if resp2 != nil && resp2.StatusCode == 400 {
		tr.recordSuccess("Date before 1900-01-31 rejected")
	} else {
		tr.recordError("Before epoch", "Should return 400")
	}

	// Past the end of the table
	resp3, _ := tr.getRaw("/api/v1/ganzhi/date/2101-06-01")
	if resp3 != nil && resp3.StatusCode == 400 {
		tr.recordSuccess("Date after 2100 lunar year rejected")
	} else {
		tr.recordError("After table", "Should return 400")
	}

	// Leap year date
	if _, err := tr.get("/api/v1/ganzhi/date/2024-02-29"); err != nil {
		tr.recordError("Leap year", err.Error())
	} else {
		tr.recordSuccess("Leap year date (2024-02-29) handled")
	}

	// Unknown zi rule
	resp4, _ := tr.getRaw("/api/v1/ganzhi/date/2025-02-25?zi=split")
	if resp4 != nil && resp4.StatusCode == 400 {
		tr.recordSuccess("Unknown zi rule rejected")
	} else {
		tr.recordError("Zi rule", "Should return 400")
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

func (tr *TestRunner) get(path string) (*APIResponse, error) {
	resp, err := tr.getRaw(path)
	if err != nil {
		return nil, err
	}
	return tr.decode(resp)
}

func (tr *TestRunner) post(path string, body any) (*APIResponse, error) {
	resp, err := tr.postRaw(path, body)
	if err != nil {
		return nil, err
	}
	return tr.decode(resp)
}

func (tr *TestRunner) decode(resp *http.Response) (*APIResponse, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	if !apiResp.Success {
		errMsg := "unknown error"
		if apiResp.Error != nil {
			errMsg = apiResp.Error.Message
		}
		return nil, fmt.Errorf("API error: %s", errMsg)
	}

	return &apiResp, nil
}

func (tr *TestRunner) getRaw(path string) (*http.Response, error) {
	url := tr.baseURL + path
	return tr.client.Get(url)
}

func (tr *TestRunner) postRaw(path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return tr.client.Post(tr.baseURL+path, "application/json", bytes.NewReader(data))
}

func (tr *TestRunner) parseDataAs(resp *APIResponse, target any) error {
	// Re-marshal and unmarshal to convert map to struct
	dataBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	return json.Unmarshal(dataBytes, target)
}

func (tr *TestRunner) printSection(name string) {
	fmt.Println()
	fmt.Printf("--- %s ---\n", name)
	fmt.Println()
}

func (tr *TestRunner) printChartDetail(c ChartResponse) {
	fmt.Printf("    Lunar:      %s (%s)\n", c.LunarDate, c.Zodiac)
	fmt.Printf("    Solar term: %s\n", c.SolarTerm.Name)
	fmt.Printf("    Zi rule:    %s\n", c.ZiRule)
	if c.Degraded {
		fmt.Println("    (degraded)")
	}
	fmt.Println()
}

func (tr *TestRunner) recordSuccess(msg string) {
	tr.successCount++
	fmt.Printf("  ✓ %s\n", msg)
}

func (tr *TestRunner) recordError(context, msg string) {
	tr.errorCount++
	errStr := fmt.Sprintf("%s: %s", context, msg)
	tr.errors = append(tr.errors, errStr)
	fmt.Printf("  ✗ %s\n", errStr)
}

func (tr *TestRunner) printSummary() {
	fmt.Println()
	fmt.Println("==============================================")
	fmt.Println("Summary")
	fmt.Println("==============================================")
	fmt.Printf("  Passed: %d\n", tr.successCount)
	fmt.Printf("  Failed: %d\n", tr.errorCount)
	fmt.Println()

	if tr.errorCount > 0 {
		fmt.Println("Failures:")
		for _, err := range tr.errors {
			fmt.Printf("  • %s\n", err)
		}
		fmt.Println()
	}

	if tr.errorCount == 0 {
		fmt.Println("All tests passed! ✓")
	} else {
		fmt.Printf("Tests completed with %d failure(s)\n", tr.errorCount)
	}
}

// =============================================================================
// Main
// =============================================================================

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API")
	verbose := flag.Bool("v", false, "Verbose output (show chart details)")
	flag.Parse()

	// Check if server is reachable
	client := &http.Client{Timeout: 2 * time.Second}
	_, err := client.Get(*baseURL + "/health")
	if err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the API server is running.")
		os.Exit(1)
	}

	runner := NewTestRunner(*baseURL, *verbose)
	runner.Run()

	// Exit with error code if tests failed
	if runner.errorCount > 0 {
		os.Exit(1)
	}
}
