// README: Smoke cases for the POS flow: register, counter and table orders, delivery quotes, races and throughput.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"yoake/internal/infra"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// state shared between sequential cases
	products []string
	orderID  string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := infra.NewDB(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		if client, err := infra.NewRedis(ctx, r.cfg.RedisAddr); err == nil {
			r.redis = client
		}
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: statusFail, Note: "db not reachable"}
			}
			return Result{Status: statusPass}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: statusFail, Note: "redis not reachable"}
			}
			return Result{Status: statusPass}
		}},
		{Name: "Migration: apply (optional)", Run: func(ctx context.Context, r *Runner) Result {
			if !r.cfg.ApplyMigration {
				return Result{Status: statusSkip, Note: "apply-migration=false"}
			}
			if err := infra.Migrate(r.cfg.MigrationsDir, r.cfg.DSN); err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			return Result{Status: statusPass}
		}},
		{Name: "Migration: tables exist", Run: checkTables},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, "/health", nil, nil, http.StatusOK)
		}},

		{Name: "Register: open (or already open)", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodPost, "/api/cash-register/open", map[string]any{"opening_balance": "100.00"}, nil,
				http.StatusCreated, http.StatusConflict)
		}},
		{Name: "Catalog: list products", Run: listProducts},

		{Name: "Order: counter create", Run: func(ctx context.Context, r *Runner) Result {
			id, res := r.createCounterOrder(ctx)
			r.orderID = id
			return res
		}},
		{Name: "Order: advance to Concluído", Run: func(ctx context.Context, r *Runner) Result {
			if r.orderID == "" {
				return Result{Status: statusSkip, Note: "no order"}
			}
			var o struct {
				Status string `json:"status"`
			}
			for i := 0; i < 3; i++ {
				if res := r.expect(ctx, http.MethodPost, "/api/orders/"+r.orderID+"/advance", nil, &o, http.StatusOK); res.Status != statusPass {
					return res
				}
			}
			if o.Status != "Concluído" {
				return Result{Status: statusFail, Note: "status=" + o.Status}
			}
			return Result{Status: statusPass}
		}},
		{Name: "Order: completed cannot be cancelled", Run: func(ctx context.Context, r *Runner) Result {
			if r.orderID == "" {
				return Result{Status: statusSkip, Note: "no order"}
			}
			return r.expect(ctx, http.MethodPost, "/api/orders/"+r.orderID+"/cancel", nil, nil, http.StatusConflict)
		}},
		{Name: "Order: missing items -> 400", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodPost, "/api/orders", map[string]any{"type": "balcao", "channel": "Balcão"}, nil, http.StatusBadRequest)
		}},

		{Name: "Geo: extract from link", Run: func(ctx context.Context, r *Runner) Result {
			var out struct {
				Found bool `json:"found"`
			}
			res := r.expect(ctx, http.MethodPost, "/api/geo/extract",
				map[string]any{"text": "https://maps.google.com/?q=-23.5614,-46.6559"}, &out, http.StatusOK)
			if res.Status == statusPass && !out.Found {
				return Result{Status: statusFail, Note: "coordinates not found"}
			}
			return res
		}},
		{Name: "Geo: quote (200, or 422 without company location)", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodPost, "/api/delivery/quote",
				map[string]any{"lat": "-23.5614", "lng": "-46.6559"}, nil, http.StatusOK, http.StatusUnprocessableEntity)
		}},

		{Name: "Cart: table submit creates then appends", Run: tableFlow},

		{Name: "Concurrency: parallel pay same order", Run: concurrentPay},

		{Name: "Register: status reports totals", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, "/api/cash-register/status", nil, nil, http.StatusOK)
		}},

		{Name: "Perf: counter order throughput", Run: perfLoad},
	}
}

// call sends a JSON request and decodes a JSON response into out when non-nil.
func (r *Runner) call(ctx context.Context, method, path string, body, out any) (int, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	latency := time.Since(start)
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, latency, err
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, latency, nil
}

func (r *Runner) expect(ctx context.Context, method, path string, body, out any, ok ...int) Result {
	code, latency, err := r.call(ctx, method, path, body, out)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if contains(ok, code) {
		return Result{Status: statusPass, Latency: latency, Note: fmt.Sprintf("status=%d", code)}
	}
	return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", code)}
}

func (r *Runner) lines() []map[string]any {
	out := make([]map[string]any, 0, 2)
	for i, id := range r.products {
		if i == 2 {
			break
		}
		out = append(out, map[string]any{"product_id": id, "quantity": i + 1})
	}
	return out
}

func (r *Runner) createCounterOrder(ctx context.Context) (string, Result) {
	if len(r.products) == 0 {
		return "", Result{Status: statusSkip, Note: "no products"}
	}
	var o struct {
		ID         string `json:"id"`
		ReadableID string `json:"readable_id"`
	}
	res := r.expect(ctx, http.MethodPost, "/api/orders", map[string]any{
		"type":    "balcao",
		"channel": "Balcão",
		"items":   r.lines(),
	}, &o, http.StatusCreated)
	if res.Status == statusPass {
		res.Note = o.ReadableID
	}
	return o.ID, res
}

func listProducts(ctx context.Context, r *Runner) Result {
	var products []struct {
		ID string `json:"id"`
	}
	res := r.expect(ctx, http.MethodGet, "/api/products", nil, &products, http.StatusOK)
	if res.Status != statusPass {
		return res
	}
	for _, p := range products {
		r.products = append(r.products, p.ID)
	}
	if len(r.products) == 0 {
		return Result{Status: statusFail, Note: "catalog is empty"}
	}
	res.Note = fmt.Sprintf("products=%d", len(r.products))
	return res
}

func tableFlow(ctx context.Context, r *Runner) Result {
	if len(r.products) == 0 {
		return Result{Status: statusSkip, Note: "no products"}
	}
	var t struct {
		ID string `json:"id"`
	}
	number := fmt.Sprintf("B%d", time.Now().UnixNano()%100000)
	if res := r.expect(ctx, http.MethodPost, "/api/tables", map[string]any{"number": number, "seats": 4}, &t, http.StatusCreated); res.Status != statusPass {
		return res
	}

	terminal := "/api/carts/bench-" + number
	submit := func(want int) (bool, Result) {
		if res := r.expect(ctx, http.MethodPost, terminal+"/items", map[string]any{"product_id": r.products[0]}, nil, http.StatusOK); res.Status != statusPass {
			return false, res
		}
		var out struct {
			Appended bool `json:"appended"`
		}
		res := r.expect(ctx, http.MethodPost, terminal+"/submit", map[string]any{
			"type":     "mesa",
			"channel":  "Balcão",
			"table_id": t.ID,
		}, &out, want)
		return out.Appended, res
	}

	if appended, res := submit(http.StatusCreated); res.Status != statusPass || appended {
		res.Status = statusFail
		return res
	}
	appended, res := submit(http.StatusOK)
	if res.Status == statusPass && !appended {
		return Result{Status: statusFail, Note: "second submit did not append"}
	}
	return res
}

func concurrentPay(ctx context.Context, r *Runner) Result {
	id, res := r.createCounterOrder(ctx)
	if res.Status != statusPass {
		return res
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	codes := map[int]int{}
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, _, err := r.call(ctx, http.MethodPost, "/api/orders/"+id+"/pay",
				map[string]any{"payment_method": "Pix", "payment_account": "PIX"}, nil)
			if err != nil {
				return
			}
			mu.Lock()
			codes[code]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if codes[http.StatusOK] == 1 {
		return Result{Status: statusPass, Note: fmt.Sprintf("codes=%v", codes)}
	}
	return Result{Status: statusFail, Note: fmt.Sprintf("codes=%v", codes)}
}

func perfLoad(ctx context.Context, r *Runner) Result {
	if len(r.products) == 0 {
		return Result{Status: statusSkip, Note: "no products"}
	}
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				_, res := r.createCounterOrder(ctx)
				mu.Lock()
				if res.Status == statusPass {
					count++
				} else {
					errCount++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no orders created"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("orders/s=%.1f errors=%d", rps, errCount)}
}

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not reachable"}
	}
	tables, err := extractTables(r.cfg.MigrationsDir)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
			t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: statusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("tables=%d", len(tables))}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

var createTable = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

// extractTables lists the tables the up migrations in dir create.
func extractTables(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		for _, m := range createTable.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	return tables, nil
}
