// Command loadtest drives paced, concurrent keyword queries against the search
// service and reports throughput, latency percentiles, cache hits, zero-result
// answers and status codes.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/executor"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Rate        float64
	K           int
	Queries     []string
}

// Outcome is one finished request as the recorder sees it.
type Outcome struct {
	Query    string
	Latency  time.Duration
	Status   int
	CacheHit bool
	Results  int
	Err      error
}

// Recorder collects outcomes from all workers.
type Recorder struct {
	mu         sync.Mutex
	latencies  []time.Duration
	byStatus   map[int]int64
	zeroByTerm map[string]int64
	transport  int64
	cacheHits  int64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byStatus:   make(map[int]int64),
		zeroByTerm: make(map[string]int64),
	}
}

func (r *Recorder) Record(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.Err != nil {
		r.transport++
		return
	}
	r.latencies = append(r.latencies, o.Latency)
	r.byStatus[o.Status]++
	if o.CacheHit {
		r.cacheHits++
	}
	if o.Status == http.StatusOK && o.Results == 0 {
		r.zeroByTerm[o.Query]++
	}
}

// Summary is the report of a finished run. It marshals as the -json output.
type Summary struct {
	Requests        int64            `json:"requests"`
	Succeeded       int64            `json:"succeeded"`
	Failed          int64            `json:"failed"`
	TransportErrors int64            `json:"transport_errors"`
	CacheHits       int64            `json:"cache_hits"`
	ZeroResults     map[string]int64 `json:"zero_results,omitempty"`
	RequestsPerSec  float64          `json:"requests_per_sec"`
	Min             time.Duration    `json:"min_ns"`
	Mean            time.Duration    `json:"mean_ns"`
	StdDev          time.Duration    `json:"stddev_ns"`
	P50             time.Duration    `json:"p50_ns"`
	P90             time.Duration    `json:"p90_ns"`
	P99             time.Duration    `json:"p99_ns"`
	Max             time.Duration    `json:"max_ns"`
	StatusCodes     map[int]int64    `json:"status_codes"`
}

// Summarize computes the report over elapsed wall time.
func (r *Recorder) Summarize(elapsed time.Duration) Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		TransportErrors: r.transport,
		CacheHits:       r.cacheHits,
		StatusCodes:     make(map[int]int64, len(r.byStatus)),
	}
	for code, n := range r.byStatus {
		s.StatusCodes[code] = n
		if code >= 200 && code < 300 {
			s.Succeeded += n
		} else {
			s.Failed += n
		}
	}
	if len(r.zeroByTerm) > 0 {
		s.ZeroResults = make(map[string]int64, len(r.zeroByTerm))
		for q, n := range r.zeroByTerm {
			s.ZeroResults[q] = n
		}
	}
	s.Requests = s.Succeeded + s.Failed + s.TransportErrors
	if elapsed > 0 {
		s.RequestsPerSec = float64(s.Requests) / elapsed.Seconds()
	}

	if len(r.latencies) == 0 {
		return s
	}
	sorted := slices.Clone(r.latencies)
	slices.Sort(sorted)
	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	s.Mean = sum / time.Duration(len(sorted))
	var sq float64
	for _, l := range sorted {
		d := float64(l - s.Mean)
		sq += d * d
	}
	s.StdDev = time.Duration(math.Sqrt(sq / float64(len(sorted))))
	s.Min, s.Max = sorted[0], sorted[len(sorted)-1]
	s.P50 = percentile(sorted, 50)
	s.P90 = percentile(sorted, 90)
	s.P99 = percentile(sorted, 99)
	return s
}

var defaultQueries = []string{
	"alice",
	"rabbit",
	"alice rabbit",
	"queen OR king",
	"hatter",
	"tea OR time",
	"cat",
	"wonderland",
	"turtle OR gryphon",
	"caterpillar",
	"the",
	"door key",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	rps := flag.Float64("rate", 0, "total requests per second across workers, 0 for unpaced")
	k := flag.Int("k", 5, "documents requested per query")
	queriesFile := flag.String("queries", "", "file with one query per line")
	asJSON := flag.Bool("json", false, "print the summary as JSON")
	flag.Parse()

	queries := defaultQueries
	if *queriesFile != "" {
		loaded, err := readQueries(*queriesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read queries: %v\n", err)
			os.Exit(1)
		}
		queries = loaded
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: max(1, *concurrency),
		Duration:    *duration,
		Rate:        *rps,
		K:           *k,
		Queries:     queries,
	}
	fmt.Fprintf(os.Stderr, "load testing %s: %d workers for %s, %d distinct queries\n",
		cfg.BaseURL, cfg.Concurrency, cfg.Duration, len(cfg.Queries))

	start := time.Now()
	rec, err := runLoadTest(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}
	summary := rec.Summarize(time.Since(start))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(os.Stderr, "encoding summary: %v\n", err)
			os.Exit(1)
		}
	} else {
		writeReport(os.Stdout, summary)
	}
	if summary.Requests == summary.TransportErrors {
		fmt.Fprintln(os.Stderr, "no request reached the service; is it running?")
		os.Exit(1)
	}
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" && !strings.HasPrefix(q, "#") {
			out = append(out, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no queries in " + path)
	}
	return out, nil
}

func searchURL(base, query string, k int) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("k", strconv.Itoa(k))
	return base + "/api/v1/search?" + v.Encode()
}

// runLoadTest keeps cfg.Concurrency workers issuing queries, round robin from
// a per-worker offset, until cfg.Duration passes or parent ends.
func runLoadTest(parent context.Context, cfg Config) (*Recorder, error) {
	rec := NewRecorder()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: cfg.Concurrency,
			IdleConnTimeout:     30 * time.Second,
		},
	}
	defer client.CloseIdleConnections()

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	limiter := rate.NewLimiter(limit, max(1, cfg.Concurrency))

	ctx, cancel := context.WithTimeout(parent, cfg.Duration)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for w := range cfg.Concurrency {
		g.Go(func() error {
			for i := w; ; i++ {
				if limiter.Wait(gctx) != nil {
					return nil
				}
				q := cfg.Queries[i%len(cfg.Queries)]
				o, err := query(gctx, client, searchURL(cfg.BaseURL, q, cfg.K))
				if err != nil {
					return err
				}
				if gctx.Err() != nil {
					return nil
				}
				o.Query = q
				rec.Record(o)
			}
		})
	}
	return rec, g.Wait()
}

// query runs one search. Only a malformed request is returned as an error;
// transport failures are part of the Outcome.
func query(ctx context.Context, client *http.Client, target string) (Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("creating request: %w", err)
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Outcome{Latency: time.Since(start), Err: err}, nil
	}
	defer resp.Body.Close()

	o := Outcome{
		Status:   resp.StatusCode,
		CacheHit: resp.Header.Get("X-Cache") == "true",
	}
	if resp.StatusCode == http.StatusOK {
		var res executor.SearchResult
		if err := json.NewDecoder(resp.Body).Decode(&res); err == nil {
			o.Results = len(res.Results)
		}
	}
	io.Copy(io.Discard, resp.Body)
	o.Latency = time.Since(start)
	return o, nil
}

func writeReport(w io.Writer, s Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "requests\t%d\t(%.1f/s)\n", s.Requests, s.RequestsPerSec)
	fmt.Fprintf(tw, "succeeded\t%d\n", s.Succeeded)
	fmt.Fprintf(tw, "failed\t%d\n", s.Failed)
	fmt.Fprintf(tw, "transport errors\t%d\n", s.TransportErrors)
	fmt.Fprintf(tw, "cache hits\t%d\n", s.CacheHits)
	fmt.Fprintf(tw, "latency\tmin %s\tmean %s\tstddev %s\n", s.Min, s.Mean, s.StdDev)
	fmt.Fprintf(tw, "\tp50 %s\tp90 %s\tp99 %s\tmax %s\n", s.P50, s.P90, s.P99, s.Max)

	codes := make([]int, 0, len(s.StatusCodes))
	for c := range s.StatusCodes {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	for _, c := range codes {
		fmt.Fprintf(tw, "status %d\t%d\n", c, s.StatusCodes[c])
	}

	zero := make([]string, 0, len(s.ZeroResults))
	for q := range s.ZeroResults {
		zero = append(zero, q)
	}
	slices.Sort(zero)
	for _, q := range zero {
		fmt.Fprintf(tw, "no documents\t%q\t%d\n", q, s.ZeroResults[q])
	}
	tw.Flush()
}

// percentile uses the nearest-rank method over sorted.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
