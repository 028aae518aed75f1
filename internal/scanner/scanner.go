package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/example/auth0scan/internal/checks"
	"github.com/example/auth0scan/internal/client"
	"github.com/example/auth0scan/internal/config"
	"github.com/example/auth0scan/internal/events"
	"github.com/example/auth0scan/internal/report"
)

// Scanner runs the configured phases against one tenant and assembles the
// final report. Execution is strictly sequential; the only pacing is the
// gateway's inter-request delay.
type Scanner struct {
	cfg  config.ScanConfig
	gw   *client.Client
	sink events.Sink
}

// New builds a scanner. The sink receives progress events between steps.
func New(cfg config.ScanConfig, gw *client.Client, sink events.Sink) *Scanner {
	if sink == nil {
		sink = events.Nop{}
	}
	return &Scanner{cfg: cfg, gw: gw, sink: sink}
}

// Run executes the selected phases. A rate-limit or account-block condition
// aborts immediately and propagates; results gathered before the abort are
// discarded.
func (s *Scanner) Run(ctx context.Context) (report.Report, error) {
	start := time.Now()

	_ = s.sink.Emit(events.Event{
		Type:    events.TypeScanStart,
		Message: fmt.Sprintf("Scanning tenant %s (client %s)", s.cfg.Domain, s.cfg.ClientID),
		Fields: map[string]interface{}{
			"domain":     s.cfg.Domain,
			"client_id":  s.cfg.ClientID,
			"target_app": s.cfg.TargetAppURL,
			"phases":     s.cfg.Phases,
		},
	})

	var results []checks.Result
	var discovered []string

	if s.cfg.RunPhase(1) {
		phase1, err := s.runPhase1(ctx)
		if err != nil {
			return report.Report{}, err
		}
		results = append(results, phase1...)
	}

	if s.cfg.RunPhase(2) {
		_ = s.sink.Emit(events.Event{Type: events.TypePhaseStart, Message: "PHASE 2: CONNECTION DISCOVERY"})

		res, found, err := checks.ConnectionEnumeration(ctx, s.gw, s.cfg, s.sink)
		if err != nil {
			return report.Report{}, err
		}
		results = append(results, res)
		discovered = found
	}

	if s.cfg.RunPhase(3) {
		phase3, err := s.runPhase3(ctx, discovered)
		if err != nil {
			return report.Report{}, err
		}
		results = append(results, phase3...)
	}

	end := time.Now()
	stats := s.gw.Stats()

	meta := report.Metadata{
		TargetDomain:        s.cfg.Domain,
		ClientID:            s.cfg.ClientID,
		TargetAppURL:        s.cfg.TargetAppURL,
		ScanStart:           start,
		ScanEnd:             end,
		ScanDurationSeconds: end.Sub(start).Seconds(),
		TotalRequests:       stats.TotalRequests,
		RateLimitedCount:    stats.RateLimitedCount,
		ErrorCount:          stats.ErrorCount,
	}

	rep := report.Build(meta, results, discovered)

	_ = s.sink.Emit(events.Event{
		Type:    events.TypeScanFinished,
		Message: fmt.Sprintf("Scan completed in %.1f seconds", meta.ScanDurationSeconds),
		Fields: map[string]interface{}{
			"total_requests": stats.TotalRequests,
			"overall_risk":   rep.RiskSummary.OverallRisk,
		},
	})

	return rep, nil
}

func (s *Scanner) runPhase1(ctx context.Context) ([]checks.Result, error) {
	_ = s.sink.Emit(events.Event{Type: events.TypePhaseStart, Message: "PHASE 1: RECONNAISSANCE"})

	steps := []func(context.Context) (checks.Result, error){
		func(ctx context.Context) (checks.Result, error) {
			return checks.OpenIDConfiguration(ctx, s.gw, s.sink)
		},
		func(ctx context.Context) (checks.Result, error) {
			return checks.CORSMisconfiguration(ctx, s.gw, s.sink)
		},
		func(ctx context.Context) (checks.Result, error) {
			return checks.OpenRedirect(ctx, s.gw, s.cfg, s.sink)
		},
	}

	var results []checks.Result
	for _, step := range steps {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		res, err := step(ctx)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	return results, nil
}

func (s *Scanner) runPhase3(ctx context.Context, discovered []string) ([]checks.Result, error) {
	if len(discovered) == 0 {
		_ = s.sink.Emit(events.Event{Type: events.TypePhaseSkipped, Message: "No connections discovered, skipping Phase 3"})
		return nil, nil
	}

	_ = s.sink.Emit(events.Event{Type: events.TypePhaseStart, Message: "PHASE 3: PER-CONNECTION TESTING"})

	var results []checks.Result
	for _, connection := range discovered {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		_ = s.sink.Emit(events.Event{Type: events.TypePhaseStart, Message: "Testing Connection: " + connection})

		steps := []func(context.Context) (checks.Result, error){
			func(ctx context.Context) (checks.Result, error) {
				return checks.UsernameEnumeration(ctx, s.gw, s.cfg, connection, s.sink)
			},
			func(ctx context.Context) (checks.Result, error) {
				return checks.PasswordPolicy(ctx, s.gw, s.cfg, connection, s.sink)
			},
			func(ctx context.Context) (checks.Result, error) {
				return checks.PublicSignup(ctx, s.gw, s.cfg, connection, s.sink)
			},
		}

		for _, step := range steps {
			res, err := step(ctx)
			if err != nil {
				return nil, err
			}
			results = append(results, res)
		}
	}

	return results, nil
}
