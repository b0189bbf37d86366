package oms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"vinpipe/config"
	"vinpipe/metrics"
	"vinpipe/utils"
)

const (
	modelLinePath = "/sales/modelline"
	sellDaysPath  = "/sales/selldays"
	source        = "oms"
)

// cookieDomains are the hosts every session cookie is set for.
var cookieDomains = []string{"oms-b.nnanet.com", ".nnanet.com"}

var (
	// ErrNoCookie is returned for a store without a <NAME>_COOKIE value.
	ErrNoCookie = errors.New("no session cookie configured")
	// ErrLoginPage is returned when OMS answers with its sign-in page.
	ErrLoginPage = errors.New("got login page, session unauthenticated or expired")
)

// Job is one store export to download.
type Job struct {
	Dealer string
	Name   string
}

// Result is the outcome of one Job.
type Result struct {
	Job  Job
	Path string
	Err  error
}

// JobsFromStores builds a Job per configured store.
func JobsFromStores(stores []config.StoreSource) []Job {
	jobs := make([]Job, 0, len(stores))
	for _, s := range stores {
		jobs = append(jobs, Job{Dealer: s.DealerCode, Name: s.Name})
	}
	return jobs
}

// Downloader fetches "sales by model line" exports from OMS using each
// store's session cookie in its own headless browser.
type Downloader struct {
	cfg    *config.Config
	logger *utils.Logger
	pool   *utils.WorkerPool
	retry  *utils.RetryConfig

	cookieFor func(name string) string
	now       func() time.Time
}

// New creates a ready-to-use Downloader.
func New(cfg *config.Config, logger *utils.Logger) *Downloader {
	return &Downloader{
		cfg:    cfg,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		cookieFor: config.CookieFor,
		now:       time.Now,
	}
}

// Download runs every job and returns one Result per job in job order. A
// failed store does not stop the others; the returned error counts failures.
func (d *Downloader) Download(ctx context.Context, jobs []Job) ([]Result, error) {
	if err := os.MkdirAll(d.cfg.ExportDir, 0755); err != nil {
		return nil, fmt.Errorf("oms: create output dir: %w", err)
	}

	chromeBin := d.cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	d.logger.Info("[oms] Downloading %d exports, browser binary: %s", len(jobs), chromeBin)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(chromeBin)...)
	defer cancelAlloc()

	results := make([]Result, len(jobs))
	var mu sync.Mutex
	for i, job := range jobs {
		i, job := i, job
		d.pool.Submit(func() {
			path, err := d.downloadOne(allocCtx, job)
			metrics.RecordDownload(source, job.Name, err)
			if err != nil {
				d.logger.Error("[oms] %s: %v", job.Name, err)
			} else {
				d.logger.Info("[oms] %s: saved %s", job.Name, path)
			}
			mu.Lock()
			results[i] = Result{Job: job, Path: path, Err: err}
			mu.Unlock()
		})
	}
	d.pool.Wait()

	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
		}
	}
	if failures > 0 {
		return results, fmt.Errorf("oms: %d of %d downloads failed", failures, len(jobs))
	}
	return results, nil
}

func (d *Downloader) downloadOne(allocCtx context.Context, job Job) (string, error) {
	header := d.cookieFor(job.Name)
	if strings.TrimSpace(header) == "" {
		return "", fmt.Errorf("%w: set %s_COOKIE", ErrNoCookie, strings.ToUpper(job.Name))
	}
	cookies := ParseCookieHeader(header)
	d.logger.Info("[oms] %s: using cookie %s", job.Name, ShortCookieID(header))

	// a browser per store keeps the cookie jars apart
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	ctx, cancel := context.WithTimeout(browserCtx, 3*time.Minute)
	defer cancel()

	base := strings.TrimRight(d.cfg.OMSBaseURL, "/")
	if err := chromedp.Run(ctx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookies(cookieParams(cookies)).Do(ctx)
		}),
		chromedp.Navigate(base+modelLinePath),
	); err != nil {
		return "", fmt.Errorf("open %s: %w", modelLinePath, err)
	}

	home, err := d.request(ctx, "GET", modelLinePath, nil)
	if err != nil {
		return "", fmt.Errorf("auth check: %w", err)
	}
	if home.Status == 401 || strings.Contains(strings.ToLower(string(home.Body)), "login") {
		return "", fmt.Errorf("authentication failed, check %s_COOKIE: %w", strings.ToUpper(job.Name), ErrLoginPage)
	}

	err = d.retry.Do(ctx, job.Name+" selldays", func(ctx context.Context) error {
		resp, err := d.request(ctx, "GET", sellDaysPath+"?"+SellDaysQuery(d.cfg.RollDays, d.cfg.SellDays).Encode(), nil)
		if err != nil {
			return err
		}
		if resp.Status >= 400 {
			return fmt.Errorf("selldays: status %d", resp.Status)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("setting sell days: %w", err)
	}

	out := filepath.Join(d.cfg.ExportDir, OutputName(job.Name, d.cfg.RollDays, d.cfg.AddDateStamp, d.now()))
	err = d.retry.Do(ctx, job.Name+" export", func(ctx context.Context) error {
		resp, err := d.request(ctx, "POST", modelLinePath, ExportForm(job.Dealer, d.cfg.RollDays))
		if err != nil {
			return err
		}
		if err := CheckExport(resp.Status, resp.ContentType, resp.Body); err != nil {
			return err
		}
		return os.WriteFile(out, resp.Body, 0644)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// pageResponse is what the in-page fetch hands back.
type pageResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Encoded     string `json:"body"`
	Body        []byte `json:"-"`
}

const fetchJS = `(async function(method, path, body) {
	const init = {method: method, credentials: 'include', redirect: 'follow'};
	if (body !== null) {
		init.headers = {'Content-Type': 'application/x-www-form-urlencoded'};
		init.body = body;
	}
	const r = await fetch(path, init);
	const buf = new Uint8Array(await r.arrayBuffer());
	let s = '';
	for (let i = 0; i < buf.length; i += 0x8000) {
		s += String.fromCharCode.apply(null, buf.subarray(i, i + 0x8000));
	}
	return {status: r.status, contentType: r.headers.get('content-type') || '', body: btoa(s)};
})(%s, %s, %s)`

// request runs fetch inside the page so the browser's cookies and origin
// apply. form, when non-nil, is sent url-encoded.
func (d *Downloader) request(ctx context.Context, method, path string, form url.Values) (*pageResponse, error) {
	body := "null"
	if form != nil {
		body = jsString(form.Encode())
	}
	expr := fmt.Sprintf(fetchJS, jsString(method), jsString(path), body)

	var resp pageResponse
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &resp, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	})); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Encoded)
	if err != nil {
		return nil, fmt.Errorf("%s %s: decode body: %w", method, path, err)
	}
	resp.Body = raw
	d.logger.Debug("[oms] %s %s -> %d %s (%d bytes)", method, path, resp.Status, resp.ContentType, len(raw))
	return &resp, nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Cookie is one name=value pair from a cookie header.
type Cookie struct {
	Name  string
	Value string
}

// ParseCookieHeader splits a "k=v; k=v" header. Surrounding quotes are
// allowed and parts without "=" are skipped.
func ParseCookieHeader(header string) []Cookie {
	h := strings.Trim(strings.TrimSpace(header), `"`)
	var out []Cookie
	for _, part := range strings.Split(h, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		out = append(out, Cookie{Name: name, Value: value})
	}
	return out
}

func cookieParams(cookies []Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies)*len(cookieDomains))
	for _, c := range cookies {
		for _, dom := range cookieDomains {
			params = append(params, &network.CookieParam{
				Name:   c.Name,
				Value:  c.Value,
				Domain: dom,
				Path:   "/",
			})
		}
	}
	return params
}

// ShortCookieID identifies a cookie header in logs without printing it:
// the JSESSIONID tail when present, otherwise the first 24 characters.
func ShortCookieID(header string) string {
	h := strings.Trim(strings.TrimSpace(header), `"`)
	for _, part := range strings.Split(h, ";") {
		p := strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(p, "JSESSIONID="); ok {
			if len(v) > 8 {
				v = v[len(v)-8:]
			}
			return "JSESSIONID:" + v
		}
	}
	if len(h) > 24 {
		return h[:24] + "..."
	}
	return h
}

// rollDaysParam is the rollDays value OMS accepts; other spans go blank.
func rollDaysParam(rollDays int) string {
	if rollDays == 30 || rollDays == 90 {
		return strconv.Itoa(rollDays)
	}
	return ""
}

// SellDaysQuery is the query that sets the selling-days basis before export.
func SellDaysQuery(rollDays, sellDays int) url.Values {
	return url.Values{
		"startDate":  {""},
		"rollDays":   {rollDaysParam(rollDays)},
		"endDate":    {""},
		"sourcePage": {"selldays"},
		"targetPage": {"modelline"},
		"sellDays":   {strconv.Itoa(sellDays)},
	}
}

// ExportForm is the model line form requesting the Excel rendering.
func ExportForm(dealer string, rollDays int) url.Values {
	return url.Values{
		"dlrNum":      {dealer},
		"startDate":   {""},
		"endDate":     {""},
		"rollDays":    {rollDaysParam(rollDays)},
		"sellDays":    {""},
		"modelLine":   {""},
		"targetPage":  {"modelline"},
		"sourcePage":  {"modelline"},
		"sortBy":      {""},
		"sortFlag":    {""},
		"contentType": {"Excel"},
	}
}

// OutputName is <Name><RollDays>.xls, with _YYYYMMDD before the extension
// when stamped.
func OutputName(name string, rollDays int, stamp bool, now time.Time) string {
	base := name + strconv.Itoa(rollDays)
	if stamp {
		base += "_" + now.Format("20060102")
	}
	return base + ".xls"
}

// CheckExport rejects an export response that is an error status or the
// sign-in page. Only the first 4000 bytes of an HTML body are inspected.
func CheckExport(status int, contentType string, body []byte) error {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "text/html") && !strings.Contains(ct, "excel") {
		sample := body
		if len(sample) > 4000 {
			sample = sample[:4000]
		}
		s := strings.ToLower(string(sample))
		if strings.Contains(s, "login") || strings.Contains(s, "sign in") {
			return ErrLoginPage
		}
	}
	if status >= 400 {
		return fmt.Errorf("export: status %d", status)
	}
	return nil
}

func allocatorOptions(chromeBin string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}
	return opts
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
