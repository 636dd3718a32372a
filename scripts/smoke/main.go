// Smoke replays the site's route table against a running server and checks
// every response status, optionally under concurrent load.
//
// Usage:
//
//	go run ./scripts/smoke -url http://localhost:8080
//	go run ./scripts/smoke -url http://localhost:8080 -rounds 200 -concurrency 20 -out summary.json
//
// Exit codes:
//
//	0 - every response had the expected status
//	1 - invalid flags or output file errors
//	2 - at least one unexpected status or transport error
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/angeloszaimis/orbitview/internal/handler"
)

// Check is one request and the status it must produce.
type Check struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Status int    `json:"status"`
}

// PathStats summarises the results for one check.
type PathStats struct {
	Count    int           `json:"count"`
	Failures int           `json:"failures"`
	Statuses map[int]int   `json:"statuses"`
	P50      time.Duration `json:"p50"`
	P95      time.Duration `json:"p95"`
	Max      time.Duration `json:"max"`

	latencies []time.Duration
}

// Summary aggregates the results of one smoke run.
type Summary struct {
	Target   string                `json:"target"`
	Total    int                   `json:"total"`
	Failures int                   `json:"failures"`
	Duration time.Duration         `json:"duration"`
	Paths    map[string]*PathStats `json:"paths"`
}

// DefaultChecks covers every page route plus a few paths that must fall
// through to the 404 page.
func DefaultChecks() []Check {
	var checks []Check
	for _, route := range handler.Routes {
		checks = append(checks,
			Check{Method: http.MethodGet, Path: route.Path, Status: http.StatusOK},
			Check{Method: http.MethodPost, Path: route.Path, Status: http.StatusNotFound},
		)
	}

	return append(checks,
		Check{Method: http.MethodGet, Path: "/nonexistent", Status: http.StatusNotFound},
		Check{Method: http.MethodGet, Path: "/models/", Status: http.StatusNotFound},
		Check{Method: http.MethodGet, Path: "/static/js/main.js", Status: http.StatusOK},
		Check{Method: http.MethodGet, Path: "/static/js/missing.js", Status: http.StatusNotFound},
	)
}

func (c Check) key() string {
	return c.Method + " " + c.Path
}

// Run sends every check rounds times using concurrency workers.
func Run(ctx context.Context, client *http.Client, baseURL string, checks []Check, rounds, concurrency int) *Summary {
	baseURL = strings.TrimSuffix(baseURL, "/")

	summary := &Summary{
		Target: baseURL,
		Paths:  make(map[string]*PathStats, len(checks)),
	}
	for _, c := range checks {
		summary.Paths[c.key()] = &PathStats{Statuses: make(map[int]int)}
	}

	jobs := make(chan Check)
	var mu sync.Mutex
	var wg sync.WaitGroup

	start := time.Now()

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				status, dur, err := fetch(ctx, client, baseURL, c)

				mu.Lock()
				ps := summary.Paths[c.key()]
				ps.Count++
				ps.latencies = append(ps.latencies, dur)
				summary.Total++
				if err != nil || status != c.Status {
					ps.Failures++
					summary.Failures++
				}
				if err == nil {
					ps.Statuses[status]++
				}
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(jobs)
		for r := 0; r < rounds; r++ {
			for _, c := range checks {
				select {
				case jobs <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	wg.Wait()
	summary.Duration = time.Since(start)

	for _, ps := range summary.Paths {
		ps.summarise()
	}

	return summary
}

func fetch(ctx context.Context, client *http.Client, baseURL string, c Check) (int, time.Duration, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, c.Method, baseURL+c.Path, nil)
	if err != nil {
		return 0, 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, time.Since(start), err
	}
	defer resp.Body.Close()

	_, err = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, time.Since(start), err
}

func (ps *PathStats) summarise() {
	if len(ps.latencies) == 0 {
		return
	}

	sorted := make([]time.Duration, len(ps.latencies))
	copy(sorted, ps.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	pick := func(p float64) time.Duration {
		return sorted[int(float64(len(sorted)-1)*p)]
	}
	ps.P50 = pick(0.50)
	ps.P95 = pick(0.95)
	ps.Max = sorted[len(sorted)-1]
}

func (r *Summary) print(w io.Writer) {
	fmt.Fprintln(w, "--- Smoke Test Summary ---")
	fmt.Fprintf(w, "Target: %s\n", r.Target)
	fmt.Fprintf(w, "Requests: %d  Failures: %d  Duration: %v\n\n", r.Total, r.Failures, r.Duration)

	keys := make([]string, 0, len(r.Paths))
	for k := range r.Paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		ps := r.Paths[k]
		fmt.Fprintf(w, "  %-32s count=%d failures=%d statuses=%v p50=%v p95=%v max=%v\n",
			k, ps.Count, ps.Failures, ps.Statuses, ps.P50, ps.P95, ps.Max)
	}
}

// writeJSON stores the summary at path, reporting Close errors as well.
func writeJSON(path string, s *Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		return fmt.Errorf("encoding summary: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}

	return nil
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080", "Base URL of the running server")
		rounds      = flag.Int("rounds", 1, "How many times to replay the route table")
		concurrency = flag.Int("concurrency", 4, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", 10*time.Second, "Per-request timeout")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
	)
	flag.Parse()

	if *rounds < 1 || *concurrency < 1 {
		fmt.Fprintln(os.Stderr, "rounds and concurrency must be at least 1")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client := &http.Client{Timeout: *timeout}
	summary := Run(ctx, client, *url, DefaultChecks(), *rounds, *concurrency)
	summary.print(os.Stdout)

	if *outJSON != "" {
		if err := writeJSON(*outJSON, summary); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write json summary: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if summary.Failures > 0 {
		os.Exit(2)
	}
}
