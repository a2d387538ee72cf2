package probe

import (
	"context"
	"log/slog"
	"math"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"golang.org/x/sync/errgroup"

	"fortigate-audit-toolkit/internal/model"
)

// Target is one IP to probe, carrying the object it was expanded from.
type Target struct {
	ObjectName string
	IP         string
	// Origin is the raw object value (bare IP or CIDR) the IP came from.
	Origin string
}

// ProbeFunc reports whether a single reachability probe to ip succeeded
// within the timeout. A timeout is a failed probe, never an error.
type ProbeFunc func(ctx context.Context, ip string, timeout time.Duration) bool

// PingProbe sends one unprivileged ICMP echo and waits up to timeout for
// the reply. There is no retry: a dropped probe is a failure.
func PingProbe(ctx context.Context, ip string, timeout time.Duration) bool {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		return false
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(false)

	if err := pinger.RunWithContext(ctx); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}

// Prober fans probes out over a bounded worker pool.
type Prober struct {
	Workers int
	Timeout time.Duration
	Probe   ProbeFunc
}

func NewProber(workers int, timeout time.Duration) *Prober {
	if workers < 1 {
		workers = 1
	}
	return &Prober{Workers: workers, Timeout: timeout, Probe: PingProbe}
}

// Run probes every target. Each probe writes into its own pre-indexed slot,
// so results always come back in input order no matter how the pool
// schedules them.
func (p *Prober) Run(ctx context.Context, targets []Target) []model.PingResult {
	results := make([]model.PingResult, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)
	for i, target := range targets {
		g.Go(func() error {
			ok := p.Probe(ctx, target.IP, p.Timeout)
			results[i] = model.PingResult{
				ObjectName: target.ObjectName,
				IP:         target.IP,
				Origin:     target.Origin,
				Success:    ok,
			}
			slog.Info("Probe finished", "ip", target.IP, "object", target.ObjectName, "reachable", ok)
			return nil
		})
	}
	g.Wait()

	return results
}

// BuildReport aggregates probe results into the connectivity report.
// The failed list keeps probe order.
func BuildReport(results []model.PingResult, skipped []model.SkippedObject, source string, totalObjects int) *model.ConnectivityReport {
	successes := 0
	var failed []model.PingFailure
	for _, result := range results {
		if result.Success {
			successes++
			continue
		}
		failed = append(failed, model.PingFailure{
			Name:   result.ObjectName,
			IP:     result.IP,
			Origin: result.Origin,
		})
	}

	report := &model.ConnectivityReport{
		PingAuditInfo: model.PingAuditInfo{
			Date:                  time.Now().Format(time.RFC3339),
			SourceFile:            source,
			TotalObjectsProcessed: totalObjects,
		},
		Summary: model.PingSummary{
			TotalIPsTested:     len(results),
			SuccessfulPings:    successes,
			FailedPingsCount:   len(failed),
			SuccessRatePercent: successRate(successes, len(results)),
		},
		FailedPings: failed,
		Skipped:     skipped,
	}

	if len(failed) > 0 {
		report.Recommendations = append(report.Recommendations, model.Recommendation{
			Priority: model.SeverityHigh,
			Category: "Network Connectivity",
			Issue:    "Unreachable IP addresses in objects",
			Count:    len(failed),
			Action:   "Verify network connectivity and update or remove unreachable object IPs",
		})
	}
	if len(skipped) > 0 {
		report.Recommendations = append(report.Recommendations, model.Recommendation{
			Priority: model.SeverityMedium,
			Category: "Data Quality",
			Issue:    "Objects skipped before probing",
			Count:    len(skipped),
			Action:   "Fix malformed or oversized address values so these objects can be checked",
		})
	}
	return report
}

func successRate(successes, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(successes)/float64(total)*10000) / 100
}
