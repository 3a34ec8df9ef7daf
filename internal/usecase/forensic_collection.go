package usecase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
	"github.com/LexatoBR/lexato-extension-sub001/internal/metrics"

	"go.uber.org/zap"
)

// Per-task timeout budgets. Cheap local tasks get the floor; network tasks
// that talk to slow registries get more.
const (
	localTaskBudget   = 3 * time.Second
	networkTaskBudget = 5 * time.Second
	slowTaskBudget    = 10 * time.Second
)

// CollectParams is the input for one forensic collection run.
type CollectParams struct {
	URL     string
	Title   string
	Browser *domain.BrowserEnvironment
	Consent domain.ConsentConfig
}

// ForensicCollection fans out to every eligible collector task, isolates
// individual failures, and merges partial results into one aggregate
// record. Opt-in tasks gated off by consent are skipped entirely: no timer,
// no error entry. One task failing or timing out never aborts its siblings.
type ForensicCollection struct {
	Collectors CollectorServices
	Policy     ConsentPolicy
	Logger     *zap.Logger
	Now        func() time.Time

	// Budgets overrides the built-in per-task timeout for the named tasks.
	Budgets map[string]time.Duration
}

type taskOutcome struct {
	name    string
	apply   func(*domain.ForensicRecord)
	dns     *domain.DNSRecords
	err     error
	elapsed time.Duration
}

// A task sets exactly one of run or dns. DNS provider tasks deliver their
// records through the outcome so the merge sees timeouts as provider
// failures and no state crosses goroutines outside the channel.
type forensicTask struct {
	name   string
	optIn  bool
	budget time.Duration
	run    func(ctx context.Context) (func(*domain.ForensicRecord), error)
	dns    func(ctx context.Context) (*domain.DNSRecords, error)
}

// Collect runs the full two-wave collection. Wave one gathers everything
// derivable from the target URL; wave two runs the address-derived tasks
// that need wave one's resolved DNS output. The aggregate always carries
// the consent snapshot and a fresh timestamp, however many tasks failed.
func (f *ForensicCollection) Collect(ctx context.Context, params CollectParams) (*domain.ForensicRecord, error) {
	now := f.clock()
	consent := params.Consent.Normalized()
	allowed, err := f.allowedSet(ctx, consent)
	if err != nil {
		return nil, err
	}

	host := hostOf(params.URL)
	record := &domain.ForensicRecord{
		CollectionErrors: make(map[string]string),
		TaskDurationsMs:  make(map[string]int64),
		Consent:          consent,
		CollectedAt:      now(),
	}

	waveOne := []forensicTask{
		{
			name:   domain.CollectorPageContext,
			budget: localTaskBudget,
			run: func(ctx context.Context) (func(*domain.ForensicRecord), error) {
				page, err := f.Collectors.PageContext(ctx, params.URL, params.Title)
				if err != nil {
					return nil, err
				}
				return func(r *domain.ForensicRecord) { r.Page = page }, nil
			},
		},
		{
			name:   domain.CollectorCaptureEnvironment,
			budget: localTaskBudget,
			run: func(ctx context.Context) (func(*domain.ForensicRecord), error) {
				env, err := f.Collectors.CaptureEnvironment(ctx)
				if err != nil {
					return nil, err
				}
				return func(r *domain.ForensicRecord) { r.Environment = env }, nil
			},
		},
		{
			name:   domain.CollectorBrowserEnvironment,
			optIn:  true,
			budget: localTaskBudget,
			run: func(ctx context.Context) (func(*domain.ForensicRecord), error) {
				if params.Browser == nil {
					return nil, fmt.Errorf("no browser environment supplied by capture client")
				}
				browser := *params.Browser
				return func(r *domain.ForensicRecord) { r.Browser = &browser }, nil
			},
		},
		{
			name:   domain.CollectorHTTPHeaders,
			budget: networkTaskBudget,
			run: func(ctx context.Context) (func(*domain.ForensicRecord), error) {
				headers, err := f.Collectors.Headers(ctx, params.URL)
				if err != nil {
					return nil, err
				}
				return func(r *domain.ForensicRecord) { r.Headers = headers }, nil
			},
		},
		{
			name:   domain.CollectorSSLCertificate,
			budget: networkTaskBudget,
			run: func(ctx context.Context) (func(*domain.ForensicRecord), error) {
				cert, err := f.Collectors.Certificate(ctx, host)
				if err != nil {
					return nil, err
				}
				return func(r *domain.ForensicRecord) { r.Certificate = cert }, nil
			},
		},
		{
			name:   domain.CollectorDNSRecords,
			budget: networkTaskBudget,
			dns: func(ctx context.Context) (*domain.DNSRecords, error) {
				return f.Collectors.DNSRecords(ctx, host)
			},
		},
		{
			name:   domain.CollectorDNSOverHTTPS,
			budget: networkTaskBudget,
			dns: func(ctx context.Context) (*domain.DNSRecords, error) {
				return f.Collectors.DNSOverHTTPS(ctx, host)
			},
		},
		{
			name:   domain.CollectorRobotsTxt,
			budget: networkTaskBudget,
			run: func(ctx context.Context) (func(*domain.ForensicRecord), error) {
				file, err := f.Collectors.RobotsTxt(ctx, params.URL)
				if err != nil {
					return nil, err
				}
				return func(r *domain.ForensicRecord) { r.Robots = file }, nil
			},
		},
		{
			name:   domain.CollectorSecurityTxt,
			budget: networkTaskBudget,
			run: func(ctx context.Context) (func(*domain.ForensicRecord), error) {
				file, err := f.Collectors.SecurityTxt(ctx, params.URL)
				if err != nil {
					return nil, err
				}
				return func(r *domain.ForensicRecord) { r.Security = file }, nil
			},
		},
		{
			name:   domain.CollectorWhois,
			budget: slowTaskBudget,
			run: func(ctx context.Context) (func(*domain.ForensicRecord), error) {
				info, err := f.Collectors.Whois(ctx, host)
				if err != nil {
					return nil, err
				}
				return func(r *domain.ForensicRecord) { r.Whois = info }, nil
			},
		},
		{
			name:   domain.CollectorArchiveSnapshot,
			optIn:  true,
			budget: slowTaskBudget,
			run: func(ctx context.Context) (func(*domain.ForensicRecord), error) {
				snapshot, err := f.Collectors.ArchiveSnapshot(ctx, params.URL)
				if err != nil {
					return nil, err
				}
				return func(r *domain.ForensicRecord) { r.Archive = snapshot }, nil
			},
		},
	}

	dnsOutcomes := f.runWave(ctx, record, allowed, waveOne)
	f.mergeDNS(record, dnsOutcomes[domain.CollectorDNSRecords], dnsOutcomes[domain.CollectorDNSOverHTTPS])

	// Wave two consumes wave one's resolved address; it must not start
	// until the whole first wave has settled.
	ip := firstAddress(record.DNS)
	waveTwo := []forensicTask{
		{
			name:   domain.CollectorIPInfo,
			budget: networkTaskBudget,
			run: func(ctx context.Context) (func(*domain.ForensicRecord), error) {
				if ip == "" {
					return nil, fmt.Errorf("no resolved address for %s", host)
				}
				info, err := f.Collectors.IPInfo(ctx, ip)
				if err != nil {
					return nil, err
				}
				return func(r *domain.ForensicRecord) { r.IP = info }, nil
			},
		},
		{
			name:   domain.CollectorReverseDNS,
			budget: networkTaskBudget,
			run: func(ctx context.Context) (func(*domain.ForensicRecord), error) {
				if ip == "" {
					return nil, fmt.Errorf("no resolved address for %s", host)
				}
				names, err := f.Collectors.ReverseDNS(ctx, ip)
				if err != nil {
					return nil, err
				}
				return func(r *domain.ForensicRecord) { r.ReverseDNS = names }, nil
			},
		},
		{
			name:   domain.CollectorGeolocation,
			optIn:  true,
			budget: networkTaskBudget,
			run: func(ctx context.Context) (func(*domain.ForensicRecord), error) {
				if ip == "" {
					return nil, fmt.Errorf("no resolved address for %s", host)
				}
				geo, err := f.Collectors.Geolocation(ctx, ip)
				if err != nil {
					return nil, err
				}
				return func(r *domain.ForensicRecord) { r.Geolocation = geo }, nil
			},
		},
	}

	f.runWave(ctx, record, allowed, waveTwo)
	return record, nil
}

func isDNSTask(name string) bool {
	return name == domain.CollectorDNSRecords || name == domain.CollectorDNSOverHTTPS
}

// runWave launches every eligible task concurrently and waits for all of
// them. Results are applied to the record after the wave settles. DNS
// provider outcomes (timeouts included) are returned to the caller for the
// merge instead of being recorded directly, so a healthy fallback can
// absorb a failed primary.
func (f *ForensicCollection) runWave(ctx context.Context, record *domain.ForensicRecord, allowed map[string]bool, tasks []forensicTask) map[string]taskOutcome {
	outcomes := make(chan taskOutcome, len(tasks))
	launched := 0
	for _, task := range tasks {
		if task.optIn && !allowed[task.name] {
			continue
		}
		launched++
		go func(task forensicTask) {
			outcomes <- f.runTask(ctx, task)
		}(task)
	}

	dnsOutcomes := make(map[string]taskOutcome)
	for i := 0; i < launched; i++ {
		outcome := <-outcomes
		record.TaskDurationsMs[outcome.name] = outcome.elapsed.Milliseconds()
		if isDNSTask(outcome.name) {
			dnsOutcomes[outcome.name] = outcome
		}
		if outcome.err != nil {
			if !isDNSTask(outcome.name) {
				record.CollectionErrors[outcome.name] = outcome.err.Error()
			}
			if f.Logger != nil {
				f.Logger.Warn("collector failed",
					zap.String("collector", outcome.name),
					zap.Duration("elapsed", outcome.elapsed),
					zap.Error(outcome.err))
			}
			metrics.ObserveCollector(outcome.name, "error", outcome.elapsed)
			continue
		}
		if outcome.apply != nil {
			outcome.apply(record)
		}
		metrics.ObserveCollector(outcome.name, "ok", outcome.elapsed)
	}
	return dnsOutcomes
}

// runTask wraps one collector with its own timeout and panic isolation.
// Whatever happens inside the task surfaces as an outcome, never as a
// propagated failure.
func (f *ForensicCollection) runTask(ctx context.Context, task forensicTask) taskOutcome {
	now := f.clock()
	start := now()
	budget := task.budget
	if v, ok := f.Budgets[task.name]; ok {
		budget = v
	}
	tctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	done := make(chan taskOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- taskOutcome{name: task.name, err: fmt.Errorf("collector panicked: %v", r)}
			}
		}()
		if task.dns != nil {
			records, err := task.dns(tctx)
			done <- taskOutcome{name: task.name, dns: records, err: err}
			return
		}
		apply, err := task.run(tctx)
		done <- taskOutcome{name: task.name, apply: apply, err: err}
	}()

	select {
	case outcome := <-done:
		outcome.elapsed = now().Sub(start)
		return outcome
	case <-tctx.Done():
		err := fmt.Errorf("%w after %s", domain.ErrTimeoutExceeded, budget)
		if ctx.Err() != nil {
			err = domain.ErrCollectionCanceled
		}
		return taskOutcome{name: task.name, err: err, elapsed: now().Sub(start)}
	}
}

// mergeDNS applies the two-provider preference: the primary resolver's
// result wins when present and non-empty, the fallback fills in otherwise,
// and an error is recorded only when both providers failed. A timed-out
// provider counts as a failed one.
func (f *ForensicCollection) mergeDNS(record *domain.ForensicRecord, primary, fallback taskOutcome) {
	switch {
	case primary.err == nil && !primary.dns.Empty():
		record.DNS = primary.dns
	case fallback.err == nil && !fallback.dns.Empty():
		record.DNS = fallback.dns
	case primary.err == nil:
		record.DNS = primary.dns
	case fallback.err == nil:
		record.DNS = fallback.dns
	default:
		record.CollectionErrors[domain.CollectorDNSRecords] = fmt.Sprintf(
			"primary: %v; fallback: %v", primary.err, fallback.err)
	}
}

func (f *ForensicCollection) allowedSet(ctx context.Context, consent domain.ConsentConfig) (map[string]bool, error) {
	allowed := map[string]bool{
		domain.CollectorGeolocation:        consent.OptInAllows(domain.CollectorGeolocation),
		domain.CollectorArchiveSnapshot:    consent.OptInAllows(domain.CollectorArchiveSnapshot),
		domain.CollectorBrowserEnvironment: consent.OptInAllows(domain.CollectorBrowserEnvironment),
	}
	if f.Policy == nil {
		return allowed, nil
	}
	names, err := f.Policy.AllowedCollectors(ctx, consent)
	if err != nil {
		return nil, err
	}
	decided := make(map[string]bool, len(names))
	for _, name := range names {
		decided[name] = true
	}
	// The policy can only narrow the consent flags, never widen them.
	for name := range allowed {
		allowed[name] = allowed[name] && decided[name]
	}
	return allowed, nil
}

func (f *ForensicCollection) clock() func() time.Time {
	if f.Now != nil {
		return f.Now
	}
	return time.Now
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return rawURL
	}
	return parsed.Hostname()
}

func firstAddress(records *domain.DNSRecords) string {
	if records == nil {
		return ""
	}
	if len(records.A) > 0 {
		return records.A[0]
	}
	if len(records.AAAA) > 0 {
		return records.AAAA[0]
	}
	return ""
}
