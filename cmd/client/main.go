package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"gitlab.com/dirk.krummacker/central-contacts/pkg/model"
)

// Usage example on the command line:
// > go run main.go -url=http://localhost:8080 -workers=8
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the contacts service")
	workers := flag.Int("workers", 1, "number of concurrent clients")
	flag.Parse()

	if err := measure(context.Background(), *baseURL, *workers); err != nil {
		fmt.Println()
		fmt.Println(err)
		os.Exit(1)
	}
}

func measure(ctx context.Context, baseURL string, workers int) error {
	jsonBody := []byte(`{
		"name": "Marcus Antonius",
		"phone": "+39 999 777 555",
		"email": "marcus@example.com"
	}`)

	fmt.Println()
	fmt.Println("  Elements      POST       GET    Listed ")
	fmt.Println("-----------------------------------------")
	sizes := []int{1000, 5000, 10000, 50000}
	for _, loops := range sizes {
		fmt.Printf("%10d", loops)

		// POST requests, spread over the workers
		postDuration, err := inParallel(ctx, workers, loops, func(ctx context.Context) (time.Duration, error) {
			_, d, err := sendPostRequest(ctx, baseURL, bytes.NewReader(jsonBody))
			return d, err
		})
		if err != nil {
			return err
		}
		fmt.Printf("%10d", postDuration.Microseconds()/int64(loops))

		// GET requests of the full list, which grows with every round
		const gets = 10
		var getDuration time.Duration
		var listed int
		for i := 0; i < gets; i++ {
			n, d, err := sendGetRequest(ctx, baseURL)
			if err != nil {
				return err
			}
			getDuration += d
			listed = n
		}
		fmt.Printf("%10d", getDuration.Microseconds()/gets)
		fmt.Printf("%10d", listed)
		fmt.Println()
	}
	return nil
}

// inParallel calls f loops times with at most workers calls in flight and returns the summed
// durations reported by f. The first error cancels the remaining calls.
func inParallel(ctx context.Context, workers, loops int, f func(context.Context) (time.Duration, error)) (time.Duration, error) {
	if workers < 1 {
		workers = 1
	}
	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < loops; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			d, err := f(gctx)
			if err != nil {
				return err
			}
			total.Add(int64(d))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return time.Duration(total.Load()), nil
}

func sendPostRequest(ctx context.Context, baseURL string, bodyReader io.Reader) (int64, time.Duration, error) {
	resBody, duration, err := sendRequest(ctx, http.MethodPost, baseURL+"/contacts", bodyReader, http.StatusCreated)
	if err != nil {
		return 0, 0, err
	}
	var contact model.Contact
	if err := json.Unmarshal(resBody, &contact); err != nil {
		return 0, 0, fmt.Errorf("could not unmarshal JSON: %w", err)
	}
	return contact.Id, duration, nil
}

func sendGetRequest(ctx context.Context, baseURL string) (int, time.Duration, error) {
	resBody, duration, err := sendRequest(ctx, http.MethodGet, baseURL+"/contacts", nil, http.StatusOK)
	if err != nil {
		return 0, 0, err
	}
	var contacts []model.Contact
	if err := json.Unmarshal(resBody, &contacts); err != nil {
		return 0, 0, fmt.Errorf("could not unmarshal JSON: %w", err)
	}
	return len(contacts), duration, nil
}

func sendRequest(ctx context.Context, method, requestURL string, bodyReader io.Reader, want int) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	before := time.Now()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error making http request: %w", err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("could not read response body: %w", err)
	}
	if res.StatusCode != want {
		return nil, 0, fmt.Errorf("%s %s: unexpected status %s", method, requestURL, res.Status)
	}
	return resBody, time.Since(before), nil
}
