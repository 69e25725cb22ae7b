// Replay tool for checking Heron's PCOS scoring against labelled survey data.
//
// Usage:
//
//	go run ./cmd/replay -csv /path/to/pcos_survey.csv -url http://localhost:8080
//
// This tool:
//  1. Reads survey rows with a diagnosis label
//  2. Sends each row to POST /assess/pcos
//  3. Treats a tier at or above -positive as a predicted diagnosis
//  4. Prints the confusion matrix with precision, recall and F1
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/opensource-health/heron/internal/domain"
)

func main() {
	csvPath := flag.String("csv", "", "Path to the labelled PCOS survey CSV")
	baseURL := flag.String("url", "http://localhost:8080", "Heron base URL")
	userID := flag.String("user", "replay", "User ID for requests")
	labelCol := flag.String("label", "diagnosis", "Column holding the yes/no diagnosis")
	positive := flag.String("positive", string(domain.TierHigh), "Lowest tier counted as a positive prediction")
	limit := flag.Int("limit", 0, "Maximum rows to replay (0 = all)")
	workers := flag.Int("workers", 8, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each row result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: replay -csv /path/to/pcos_survey.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	threshold, err := domain.ParseRiskTier(*positive)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	client := newClient(*baseURL, *userID)
	if err := checkHealth(client); err != nil {
		fmt.Printf("ERROR: Heron not reachable at %s: %v\n", *baseURL, err)
		os.Exit(1)
	}
	fmt.Println("Heron is healthy")

	f, err := os.Open(*csvPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	rows, err := ReadSurvey(f, *labelCol, *limit)
	f.Close()
	if err != nil {
		fmt.Printf("ERROR: failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d rows from %s\n", len(rows), *csvPath)

	start := time.Now()
	m := replay(client, rows, threshold, *workers, *verbose)
	m.Print(os.Stdout, time.Since(start))
}

func newClient(baseURL, userID string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-User-ID", userID)
}

func checkHealth(client *resty.Client) error {
	resp, err := client.R().Get("/health")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode())
	}
	return nil
}

func assess(client *resty.Client, obs domain.Observations) (*domain.Assessment, error) {
	var result domain.Assessment
	resp, err := client.R().
		SetBody(map[string]any{"observations": obs}).
		SetResult(&result).
		Post("/assess/pcos")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	return &result, nil
}

func replay(client *resty.Client, rows []SurveyRow, threshold domain.RiskTier, numWorkers int, verbose bool) *Metrics {
	m := &Metrics{}
	work := make(chan SurveyRow, 100)
	var wg sync.WaitGroup

	for range max(numWorkers, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range work {
				start := time.Now()
				a, err := assess(client, row.Observations)
				if err != nil {
					m.RecordError(time.Since(start))
					if verbose {
						fmt.Printf("ERROR: line %d -> %v\n", row.Line, err)
					}
					continue
				}

				predicted := a.RiskLevel.Rank() >= threshold.Rank()
				m.Record(predicted, row.Diagnosed, time.Since(start))

				if verbose {
					mark := "ok"
					if predicted != row.Diagnosed {
						mark = "MISS"
					}
					fmt.Printf("%-4s line %-6d | score %2d | %-8s | diagnosed %v\n",
						mark, row.Line, a.Score, a.RiskLevel, row.Diagnosed)
				}
			}
		}()
	}

	for _, row := range rows {
		work <- row
	}
	close(work)
	wg.Wait()

	return m
}
