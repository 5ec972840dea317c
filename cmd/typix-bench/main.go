// typix-bench measures correction backend latency: single-request, fixed
// concurrency, and a ramp across concurrency levels.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/typixhq/typix/pkg/config"
	"github.com/typixhq/typix/pkg/model"
)

// testSentences carry typical errors so the backend does real work.
var testSentences = []string{
	"I cant beleive how much this extention has helped me with my writting.",
	"Its been a lifesaver for my dayly work and comunication.",
	"I use to make alot of mistakes but now im more confidant.",
	"Thier going to be suprised when they see the improvment.",
	"This sentance has a few erors that need to be fixed.",
	"The wether is beautifull today and I want to go outsde.",
	"Please recieve this messge and respond as soon as posible.",
	"I definitly recomend this tool to anyone who writes alot.",
	"Your absolutly right about that, I totaly agree with you.",
	"Lets schedul a meeting for tommorow afternoon if your availible.",
}

type requestResult struct {
	latency time.Duration
	err     error
}

func main() {
	single := flag.Bool("single", false, "single request test only (5 runs)")
	concurrent := flag.Int("concurrent", 0, "test a specific concurrency level")
	ramp := flag.Bool("ramp", false, "ramp up test (10, 20, 30, 40, 50)")
	total := flag.Int("n", 50, "total requests per concurrency level")
	configPath := flag.String("config", "", "config file path (default ~/.typix/config.yaml)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	client := model.NewClientWithOptions(cfg.Backend.APIKey, cfg.Backend.BaseURL, cfg.Backend.Model, model.ClientOptions{
		Timeout: cfg.Backend.Timeout,
		// Benchmarks must hit the service directly, not the client limiter.
		RateLimit: 1000,
		Burst:     1000,
	})

	ctx := context.Background()
	switch {
	case *single:
		runSingle(ctx, client)
	case *concurrent > 0:
		results := runConcurrent(ctx, client, *concurrent, *total)
		printStats(fmt.Sprintf("concurrency %d", *concurrent), results)
	case *ramp:
		for _, c := range []int{10, 20, 30, 40, 50} {
			results := runConcurrent(ctx, client, c, *total)
			printStats(fmt.Sprintf("concurrency %d", c), results)
		}
	default:
		runSingle(ctx, client)
		for _, c := range []int{10, 20, 30, 40, 50} {
			results := runConcurrent(ctx, client, c, *total)
			printStats(fmt.Sprintf("concurrency %d", c), results)
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func runSingle(ctx context.Context, client *model.Client) {
	const runs = 5
	results := make([]requestResult, 0, runs)
	for i := 0; i < runs; i++ {
		results = append(results, makeRequest(ctx, client, testSentences[i%len(testSentences)]))
	}
	printStats("single request", results)
}

func runConcurrent(ctx context.Context, client *model.Client, concurrency, total int) []requestResult {
	results := make([]requestResult, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := 0; i < total; i++ {
		g.Go(func() error {
			results[i] = makeRequest(gctx, client, testSentences[i%len(testSentences)])
			return nil
		})
	}
	g.Wait()
	return results
}

func makeRequest(ctx context.Context, client *model.Client, sentence string) requestResult {
	start := time.Now()
	_, err := client.Correct(ctx, model.CorrectionRequest{Text: sentence})
	return requestResult{latency: time.Since(start), err: err}
}

func printStats(label string, results []requestResult) {
	var latencies []time.Duration
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			continue
		}
		latencies = append(latencies, r.latency)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "== %s ==\n", label)
	if len(latencies) == 0 {
		fmt.Fprintf(w, "no successful requests (%d failed)\n", failed)
		return
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	fmt.Fprintf(w, "requests\t%d\n", len(results))
	fmt.Fprintf(w, "failed\t%d\n", failed)
	fmt.Fprintf(w, "mean\t%s\n", sum/time.Duration(len(latencies)))
	fmt.Fprintf(w, "min\t%s\n", latencies[0])
	fmt.Fprintf(w, "p50\t%s\n", percentile(latencies, 0.50))
	fmt.Fprintf(w, "p95\t%s\n", percentile(latencies, 0.95))
	fmt.Fprintf(w, "p99\t%s\n", percentile(latencies, 0.99))
	fmt.Fprintf(w, "max\t%s\n", latencies[len(latencies)-1])
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
