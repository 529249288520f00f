package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"maps"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/caarlos0/env/v11"
)

const apologyPrefix = "We apologize, but we encountered an issue with our AI service"

func main() {
	ctx := context.Background()

	cfg, err := env.ParseAs[benchConfig]()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var results []BenchResult
	for _, format := range cfg.Formats {
		dataPath := filepath.Join(cfg.DataDir, format)

		images, _ := os.ReadDir(dataPath)

		for _, img := range images {
			if img.IsDir() {
				continue
			}
			filePath := filepath.Join(dataPath, img.Name())
			res := benchmarkImage(ctx, cfg, filePath, format)

			if res.Err != nil {
				log.Println("ERR:", res.Err)
			} else {
				log.Printf("OK %s %v", res.File, res.Duration)
			}

			results = append(results, res)
		}
	}

	printMarkdown(os.Stdout, results)
}

func benchmarkImage(ctx context.Context, cfg benchConfig, filePath, format string) BenchResult {
	start := time.Now()

	fileRaw, err := os.ReadFile(filePath)
	if err != nil {
		return BenchResult{File: filePath, Err: err}
	}

	resp, err := upload(ctx, cfg.Endpoint, filepath.Base(filePath), fileRaw, cfg.Query)

	res := BenchResult{
		File:     filepath.Base(filePath),
		Format:   format,
		Duration: time.Since(start),
		Err:      err,
		Size:     int64(len(fileRaw)),
	}
	if resp != nil {
		res.Chars = len(resp.Analysis) + len(resp.Recommendations)
		res.Degraded = strings.HasPrefix(resp.Analysis, apologyPrefix) ||
			strings.HasPrefix(resp.Recommendations, apologyPrefix)
	}
	return res
}

func upload(ctx context.Context, endpoint, fileName string, data []byte, query string) (*AdviceResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("image", fileName)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.WriteField("query", query); err != nil {
		return nil, fmt.Errorf("write query: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var e ErrorResponse
		if err := sonic.Unmarshal(raw, &e); err == nil && e.Detail != "" {
			return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, e.Detail)
		}
		return nil, fmt.Errorf("bad status %d: %s",
			resp.StatusCode,
			strings.TrimSpace(string(raw)),
		)
	}

	var advice AdviceResponse
	if err := sonic.Unmarshal(raw, &advice); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &advice, nil
}

func aggregate(results []BenchResult) map[string]Agg {
	m := map[string]Agg{}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		a := m[r.Format]
		a.Count++
		if r.Degraded {
			a.Degraded++
		}
		a.TotalBytes += r.Size
		a.Total += r.Duration
		m[r.Format] = a
	}
	return m
}

func printMarkdown(w io.Writer, results []BenchResult) {
	fmt.Fprintln(w, "\n## Benchmark Results")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Format | Requests | Degraded | Avg Time | Total Time | Avg File Size |")
	fmt.Fprintln(w, "|--------|----------|----------|----------|------------|---------------|")

	agg := aggregate(results)

	var all Agg
	for _, format := range slices.Sorted(maps.Keys(agg)) {
		a := agg[format]
		fmt.Fprintln(w, a.row(format))
		all = all.merge(a)
	}

	if all.Count > 0 {
		fmt.Fprintln(w, all.row("**ALL**"))
	}
}

func (a Agg) merge(other Agg) Agg {
	return Agg{
		Count:      a.Count + other.Count,
		Degraded:   a.Degraded + other.Degraded,
		Total:      a.Total + other.Total,
		TotalBytes: a.TotalBytes + other.TotalBytes,
	}
}

func (a Agg) row(label string) string {
	avg := a.Total / time.Duration(a.Count)
	avgSize := a.TotalBytes / int64(a.Count)
	return fmt.Sprintf("| %s | %d | %d | %v | %v | %s |",
		label,
		a.Count,
		a.Degraded,
		avg.Round(time.Millisecond),
		a.Total.Round(time.Millisecond),
		humanBytes(avgSize),
	)
}

var byteUnits = []string{"KB", "MB", "GB"}

func humanBytes(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size) / 1024
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, byteUnits[unit])
}
