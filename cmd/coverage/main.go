// Command coverage sweeps whole years through the running API and checks
// that consecutive charts are continuous: the day pillar steps once through
// the sexagenary cycle, the month pillar changes only on days a Jie term
// begins, and the year pillar changes only on lunar new year.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"
)

// APIResponse matches the API response structure
type APIResponse struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type RangeResponse struct {
	Charts []Chart `json:"charts"`
}

type Chart struct {
	Date  string `json:"date"`
	Year  string `json:"year"`
	Month string `json:"month"`
	Day   string `json:"day"`
	Lunar struct {
		Month  int  `json:"month"`
		Day    int  `json:"day"`
		IsLeap bool `json:"is_leap"`
	} `json:"lunar"`
	Term struct {
		Index   int       `json:"index"`
		Name    string    `json:"name"`
		Instant time.Time `json:"instant"`
	} `json:"solar_term"`
	Degraded bool `json:"degraded"`
}

// TestResult holds the result for a single date
type TestResult struct {
	Date    string `json:"date"`
	Check   string `json:"check"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CheckStats tracks statistics for each continuity check
type CheckStats struct {
	Check       string   `json:"check"`
	TotalDays   int      `json:"total_days"`
	FailedDays  int      `json:"failed_days"`
	FailedDates []string `json:"failed_dates,omitempty"`
}

const (
	checkFetch    = "fetch"
	checkDay      = "day pillar continuity"
	checkMonth    = "month pillar on Jie days"
	checkYear     = "year pillar on lunar new year"
	checkDegraded = "term precision"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API")
	startYear := flag.Int("start", 2024, "Start year")
	years := flag.Int("years", 2, "Number of years to test")
	chunk := flag.Int("chunk", 90, "Days per range request (must not exceed the server's MAX_RANGE_DAYS)")
	verbose := flag.Bool("v", false, "Verbose output (show each date)")
	outputFile := flag.String("o", "", "Output results to JSON file")
	flag.Parse()

	endYear := *startYear + *years - 1

	fmt.Println("================================================================")
	fmt.Println("GanZhi API - Continuity Sweep")
	fmt.Println("================================================================")
	fmt.Printf("Base URL:    %s\n", *baseURL)
	fmt.Printf("Date Range:  %d-01-01 to %d-12-31\n", *startYear, endYear)
	fmt.Printf("Total Years: %d\n", *years)
	fmt.Println()

	// Check if server is reachable
	client := &http.Client{Timeout: 30 * time.Second}
	if _, err := client.Get(*baseURL + "/health"); err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the API server is running.")
		os.Exit(1)
	}

	start := time.Date(*startYear, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(endYear, 12, 31, 0, 0, 0, 0, time.UTC)

	charts, results := fetchCharts(client, *baseURL, start, end, *chunk)
	results = append(results, checkContinuity(charts, *verbose)...)

	analysis := analyzeResults(results, len(charts))
	printSummary(analysis)
	printFailures(analysis)

	if *outputFile != "" {
		saveResults(*outputFile, analysis)
	}

	// Exit with error code if there were failures
	if analysis.TotalFailed > 0 {
		os.Exit(1)
	}
}

// fetchCharts walks [start, end] in chunks through /api/v1/ganzhi/range.
func fetchCharts(client *http.Client, baseURL string, start, end time.Time, chunk int) ([]Chart, []TestResult) {
	var charts []Chart
	var results []TestResult

	if chunk < 1 {
		chunk = 1
	}

	totalDays := int(end.Sub(start).Hours()/24) + 1
	fmt.Printf("Fetching %d days...\n\n", totalDays)

	for from := start; !from.After(end); from = from.AddDate(0, 0, chunk) {
		to := from.AddDate(0, 0, chunk-1)
		if to.After(end) {
			to = end
		}

		batch, err := fetchRange(client, baseURL, from, to)
		if err != nil {
			results = append(results, TestResult{
				Date:  from.Format("2006-01-02"),
				Check: checkFetch,
				Error: err.Error(),
			})
			// Placeholder so the next chunk is not compared across the gap.
			charts = append(charts, Chart{})
			continue
		}
		charts = append(charts, batch...)

		fmt.Printf("  Progress: %d/%d days\n", len(charts), totalDays)
	}

	fmt.Println()
	return charts, results
}

func fetchRange(client *http.Client, baseURL string, from, to time.Time) ([]Chart, error) {
	url := fmt.Sprintf("%s/api/v1/ganzhi/range?start=%s&end=%s",
		baseURL, from.Format("2006-01-02"), to.Format("2006-01-02"))

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}
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

	dataBytes, _ := json.Marshal(apiResp.Data)
	var data RangeResponse
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return nil, fmt.Errorf("data parse error: %w", err)
	}
	return data.Charts, nil
}

// checkContinuity compares each chart with the one before it.
func checkContinuity(charts []Chart, verbose bool) []TestResult {
	var results []TestResult

	for i := range charts {
		cur := charts[i]
		if cur.Date == "" {
			continue
		}

		if cur.Degraded {
			results = append(results, fail(cur.Date, checkDegraded, "solar term instant is approximate"))
		}

		if i == 0 || charts[i-1].Date == "" {
			continue
		}
		prev := charts[i-1]

		// Day pillar
		p, c := cycleIndex(prev.Day), cycleIndex(cur.Day)
		if p < 0 || c < 0 || (p+1)%60 != c {
			results = append(results, fail(cur.Date, checkDay,
				fmt.Sprintf("%s follows %s", cur.Day, prev.Day)))
		} else {
			results = append(results, pass(cur.Date, checkDay))
		}

		// Month pillar
		jieToday := cur.Term.Index%2 == 0 &&
			cur.Term.Instant.Format("2006-01-02") == cur.Date
		monthChanged := cur.Month != prev.Month
		switch {
		case monthChanged && !jieToday && prev.Year == cur.Year:
			results = append(results, fail(cur.Date, checkMonth,
				fmt.Sprintf("month changed %s -> %s without a Jie term", prev.Month, cur.Month)))
		case jieToday && !monthChanged && prev.Year == cur.Year:
			results = append(results, fail(cur.Date, checkMonth,
				fmt.Sprintf("%s begins but month stayed %s", cur.Term.Name, cur.Month)))
		default:
			results = append(results, pass(cur.Date, checkMonth))
		}

		// Year pillar
		newYear := cur.Lunar.Month == 1 && cur.Lunar.Day == 1 && !cur.Lunar.IsLeap
		if (cur.Year != prev.Year) != newYear {
			results = append(results, fail(cur.Date, checkYear,
				fmt.Sprintf("year %s -> %s, lunar %d/%d", prev.Year, cur.Year, cur.Lunar.Month, cur.Lunar.Day)))
		} else {
			results = append(results, pass(cur.Date, checkYear))
		}

		if verbose {
			fmt.Printf("  %s: %s年 %s月 %s日 [%s]\n", cur.Date, cur.Year, cur.Month, cur.Day, cur.Term.Name)
		}
	}

	return results
}

const (
	stems    = "甲乙丙丁戊己庚辛壬癸"
	branches = "子丑寅卯辰巳午未申酉戌亥"
)

// cycleIndex returns the sexagenary position of a two-character pillar, or
// -1 if it is not one.
func cycleIndex(gz string) int {
	r := []rune(gz)
	if len(r) != 2 {
		return -1
	}
	s, b := indexRune(stems, r[0]), indexRune(branches, r[1])
	if s < 0 || b < 0 || s%2 != b%2 {
		return -1
	}
	for k := 0; k < 60; k++ {
		if k%10 == s && k%12 == b {
			return k
		}
	}
	return -1
}

func indexRune(set string, r rune) int {
	for i, c := range []rune(set) {
		if c == r {
			return i
		}
	}
	return -1
}

func pass(date, check string) TestResult {
	return TestResult{Date: date, Check: check, Success: true}
}

func fail(date, check, msg string) TestResult {
	return TestResult{Date: date, Check: check, Error: msg}
}

// Analysis holds the analyzed results
type Analysis struct {
	TotalDays   int                    `json:"total_days"`
	TotalChecks int                    `json:"total_checks"`
	TotalFailed int                    `json:"total_failed"`
	ByCheck     map[string]*CheckStats `json:"by_check"`
	AllFailures []TestResult           `json:"failures"`
}

func analyzeResults(results []TestResult, days int) *Analysis {
	analysis := &Analysis{
		TotalDays: days,
		ByCheck:   make(map[string]*CheckStats),
	}

	for _, r := range results {
		analysis.TotalChecks++

		if _, ok := analysis.ByCheck[r.Check]; !ok {
			analysis.ByCheck[r.Check] = &CheckStats{Check: r.Check}
		}
		stats := analysis.ByCheck[r.Check]
		stats.TotalDays++

		if !r.Success {
			analysis.TotalFailed++
			stats.FailedDays++
			stats.FailedDates = append(stats.FailedDates, r.Date)
			analysis.AllFailures = append(analysis.AllFailures, r)
		}
	}

	return analysis
}

func printSummary(analysis *Analysis) {
	fmt.Println("================================================================")
	fmt.Println("SUMMARY")
	fmt.Println("================================================================")
	fmt.Printf("Days Fetched:  %d\n", analysis.TotalDays)
	fmt.Printf("Checks Run:    %d\n", analysis.TotalChecks)
	fmt.Printf("Failed:        %d\n", analysis.TotalFailed)
	fmt.Println()

	var checks []*CheckStats
	for _, stats := range analysis.ByCheck {
		checks = append(checks, stats)
	}
	sort.Slice(checks, func(i, j int) bool {
		return checks[i].Check < checks[j].Check
	})

	fmt.Println("By Check:")
	for _, stats := range checks {
		status := "✓"
		if stats.FailedDays > 0 {
			status = "✗"
		}
		fmt.Printf("  %s %s: %d/%d\n", status, stats.Check, stats.TotalDays-stats.FailedDays, stats.TotalDays)
	}
	fmt.Println()
}

func printFailures(analysis *Analysis) {
	if analysis.TotalFailed == 0 {
		fmt.Println("No failures!")
		return
	}

	fmt.Println("================================================================")
	fmt.Println("FAILURES (Date | Check | Error)")
	fmt.Println("================================================================")

	for i, f := range analysis.AllFailures {
		if i >= 50 {
			fmt.Printf("  ... and %d more\n", len(analysis.AllFailures)-50)
			break
		}
		fmt.Printf("  %s | %s | %s\n", f.Date, f.Check, f.Error)
	}
	fmt.Println()
}

func saveResults(filename string, analysis *Analysis) {
	output := struct {
		GeneratedAt string `json:"generated_at"`
		*Analysis
	}{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Analysis:    analysis,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling results: %v\n", err)
		return
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		fmt.Printf("Error writing file: %v\n", err)
		return
	}

	fmt.Printf("Results saved to: %s\n", filename)
}
