// Command coupon-ingest bulk-loads coupon codes from gzipped line-delimited
// exports. Files are scanned concurrently; a bloom filter dedupes codes
// across files before they are written in batches.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/rohn21/e-commerce-webapp/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	minCodeLen    = 4
	maxCodeLen    = 32
	batchSize     = 5_000
)

func main() {
	var (
		dataDir     string
		databaseURL string
		ttl         time.Duration
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.gz code exports")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.DurationVar(&ttl, "ttl", 90*24*time.Hour, "validity window for imported coupons")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, ttl); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, ttl time.Duration) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "glob data dir")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.gz files under %s", dataDir)
	}

	slog.Info("scanning code exports", slog.Int("files", len(files)))

	codes, err := collectCodes(ctx, files)
	if err != nil {
		return errors.Wrap(err, "collect codes")
	}
	slog.Info("unique codes collected", slog.Int("count", len(codes)))
	if len(codes) == 0 {
		return nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeCoupons(ctx, pool, codes, time.Now().Add(ttl))
}

// collectCodes scans every file concurrently. The shared bloom filter
// answers "seen before" cheaply; the map confirms, so false positives cost
// one map lookup rather than a dropped code.
func collectCodes(ctx context.Context, files []string) ([]string, error) {
	var (
		mu     sync.Mutex
		seen   = bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		unique = make(map[string]struct{})
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, file := range files {
		g.Go(func() error {
			return scanFile(ctx, file, func(code string) {
				mu.Lock()
				defer mu.Unlock()
				if seen.TestAndAddString(code) {
					// Probably a duplicate; the map settles it.
					if _, ok := unique[code]; ok {
						return
					}
				}
				unique[code] = struct{}{}
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(unique))
	for code := range unique {
		codes = append(codes, code)
	}
	return codes, nil
}

// scanFile streams one gzipped export line by line.
func scanFile(ctx context.Context, path string, emit func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	zr, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip %s", path)
	}
	defer zr.Close()

	var n int
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		if n++; n%1_000_000 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		code := strings.ToUpper(strings.TrimSpace(sc.Text()))
		if len(code) < minCodeLen || len(code) > maxCodeLen {
			continue
		}
		emit(code)
	}
	return errors.Wrapf(sc.Err(), "scan %s", path)
}

// writeCoupons inserts codes in batches with a default 10% rule; existing
// codes are left untouched.
func writeCoupons(ctx context.Context, pool *pgxpool.Pool, codes []string, expiresAt time.Time) error {
	const insertSQL = `INSERT INTO coupons (code, discount_type, discount_value, expires_at, active)
		VALUES ($1, 'percentage', 0.10, $2, TRUE)
		ON CONFLICT (code) DO NOTHING`

	for start := 0; start < len(codes); start += batchSize {
		end := min(start+batchSize, len(codes))

		batch := &pgx.Batch{}
		for _, code := range codes[start:end] {
			batch.Queue(insertSQL, code, expiresAt)
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrapf(err, "insert batch at %d", start)
		}

		slog.Info("batch written", slog.Int("done", end), slog.Int("total", len(codes)))
	}
	return nil
}
