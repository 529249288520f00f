package main

import "time"

type benchConfig struct {
	Endpoint string   `env:"BENCH_ENDPOINT" envDefault:"http://localhost:8000/upload_and_query"`
	DataDir  string   `env:"BENCH_DATA_DIR" envDefault:"./data"`
	Query    string   `env:"BENCH_QUERY" envDefault:"What is my skin type and what routine should I follow?"`
	Formats  []string `env:"BENCH_FORMATS" envSeparator:"," envDefault:"jpg,png,webp,gif"`
}

type AdviceResponse struct {
	Analysis        string `json:"analysis"`
	Recommendations string `json:"recommendations"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type BenchResult struct {
	File     string
	Format   string
	Duration time.Duration
	Chars    int
	Degraded bool
	Err      error
	Size     int64
}

type Agg struct {
	Count      int
	Degraded   int
	Total      time.Duration
	TotalBytes int64
}
