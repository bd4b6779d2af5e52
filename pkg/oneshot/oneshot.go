// Package oneshot deploys a synthetic test, polls it until it produces
// fresh health results and tears it down again, collecting everything that
// happened into a report.
package oneshot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/errors"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

// DefaultRetries is the number of health poll attempts when Options does
// not specify one.
const DefaultRetries = 3

// Client is the API surface the runner drives. *synthetics.Client
// implements it.
type Client interface {
	CreateTest(ctx context.Context, t synthetics.Test) (synthetics.Test, error)
	SetTestStatus(ctx context.Context, id string, status synthetics.TestStatus) error
	GetHealthForTests(ctx context.Context, req synthetics.HealthRequest) ([]map[string]any, error)
	DeleteTest(ctx context.Context, t synthetics.Test) error
}

// Options adjust a one-shot run.
type Options struct {
	// Retries bounds the health poll attempts; zero or less selects
	// DefaultRetries.
	Retries int
	// Delete removes the test after the run; false pauses it instead. An
	// abnormal exit still deletes the deployed test regardless.
	Delete bool
}

// Run deploys test, activates it if needed, polls for health results and
// finally deletes or pauses the test. A cleanup guard deletes the deployed
// test on every abnormal exit path; it is disarmed only once the final
// delete or pause went through.
func Run(ctx context.Context, client Client, test synthetics.Test, opts Options) *Report {
	log := zap.S().Named("oneshot")
	report := newReport(test)
	retries := opts.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}

	name := test.Base().Name
	log.Debugw("creating test", "test", name)
	created, err := client.CreateTest(ctx, test)
	if err != nil {
		report.recordError(RunStatusCreationFailed, "API_ERROR: TestCreate", err.Error())
		log.Errorw("failed to create test", "test", name, "error", err)
		return report
	}
	report.attach(created)
	base := created.Base()
	tid := report.TestID()
	log.Infow("created test", "test", base.Name, "id", tid)
	start := time.Now()

	cleaned := false
	defer func() {
		if !cleaned {
			report.deleteTest(context.WithoutCancel(ctx), client, created)
		}
	}()

	if base.Status != synthetics.TestStatusActive {
		log.Infow("activating test", "id", tid)
		if err := client.SetTestStatus(ctx, tid, synthetics.TestStatusActive); err != nil {
			report.recordError(RunStatusStatusChangeFailed, "API_ERROR: TestStatusUpdate", err.Error())
			log.Errorw("failed to activate test", "id", tid, "error", err)
			return report
		}
	}

	period := time.Duration(base.Period()) * time.Second
	// the first poll may start as soon as one period has passed since
	// creation
	wait := period - time.Since(start)

	for retries > 0 {
		if wait > 0 {
			log.Debugw("waiting for test to accumulate results", "id", tid, "wait", wait.String())
			select {
			case <-ctx.Done():
				report.recordError(RunStatusNoHealthData, "TIMEOUT", ctx.Err().Error())
				log.Warnw("interrupted while waiting for results", "id", tid, "error", ctx.Err())
				return report
			case <-time.After(wait):
			}
		}
		wait = period
		now := time.Now()
		report.Polls++
		health, err := client.GetHealthForTests(ctx, synthetics.HealthRequest{
			TestIDs: []string{tid},
			Start:   windowStart(start, now, period),
			End:     now,
		})
		if err != nil {
			if errors.IsAPIRequestError(err) {
				report.recordError(RunStatusRetryableError, "API_ERROR: GetHealthForTests", err.Error())
				log.Errorw("failed to retrieve test health, retrying", "id", tid, "error", err)
				retries--
				continue
			}
			report.recordError(RunStatusNoHealthData, "API_ERROR: GetHealthForTests", err.Error())
			log.Errorw("failed to retrieve test health, giving up", "id", tid, "error", err)
			break
		}
		if len(health) == 0 {
			log.Debugw("health not available yet", "id", tid, "elapsed", time.Since(start).String())
			retries--
			continue
		}
		ts, ok := healthTimestamp(health[0])
		if !ok || now.Sub(ts) > period {
			log.Infow("stale health data", "id", tid, "timestamp", ts.String(), "elapsed", time.Since(start).String())
			retries--
			continue
		}
		report.setHealth(health[0])
		log.Debugw("received health data", "id", tid, "timestamp", ts.String())
		break
	}
	if retries == 0 {
		report.recordError(RunStatusNoHealthData, "TIMEOUT", "failed to get valid health data")
		log.Warnw("failed to get valid health data", "id", tid)
	}

	if opts.Delete {
		cleaned = report.deleteTest(ctx, client, created)
	} else {
		cleaned = report.pauseTest(ctx, client, created)
	}
	log.Debugw("one-shot run finished", "id", tid, "status", string(report.Status), "errors", len(report.Errors))
	return report
}

// deleteTest removes the deployed test. A failure is appended to the error
// records without changing the run status, so health results gathered
// before it stay reported as such.
func (r *Report) deleteTest(ctx context.Context, client Client, t synthetics.Test) bool {
	log := zap.S().Named("oneshot")
	name := t.Base().Name
	log.Debugw("deleting test", "test", name, "id", r.testID)
	if err := client.DeleteTest(ctx, t); err != nil {
		r.appendError("API_ERROR: TestDelete", err.Error())
		log.Errorw("failed to delete test", "test", name, "id", r.testID, "error", err)
		return false
	}
	log.Infow("deleted test", "test", name, "id", r.testID)
	return true
}

// pauseTest pauses the deployed test instead of removing it. Like delete,
// a failure only appends an error record.
func (r *Report) pauseTest(ctx context.Context, client Client, t synthetics.Test) bool {
	log := zap.S().Named("oneshot")
	log.Debugw("pausing test", "test", t.Base().Name, "id", r.testID)
	if err := client.SetTestStatus(ctx, r.testID, synthetics.TestStatusPaused); err != nil {
		r.appendError("API_ERROR: TestStatusUpdate", err.Error())
		log.Errorw("failed to pause test", "test", t.Base().Name, "id", r.testID, "error", err)
		return false
	}
	log.Infow("paused test", "test", t.Base().Name, "id", r.testID)
	return true
}

// healthTimestamp extracts the overall health timestamp of a test health
// object.
func healthTimestamp(health map[string]any) (time.Time, bool) {
	overall, _ := health["overallHealth"].(map[string]any)
	raw, _ := overall["time"].(string)
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// windowStart clamps the health query window to the run start.
func windowStart(start, now time.Time, period time.Duration) time.Time {
	ws := now.Add(-period)
	if ws.Before(start) {
		return start
	}
	return ws
}
