// Package sensor implements the cron-enforcement reconciliation loop: per
// poll cycle it verifies that every enabled cron-timer rule fired inside its
// most recent schedule window and alerts on rules that did not run, failed,
// or recovered.
package sensor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"heimdall/errtree"
	"heimdall/hub"
	"heimdall/ledger"
	"heimdall/model"
	"heimdall/schedule"
)

// Platform is the slice of the platform API the sensor consumes.
type Platform interface {
	CronRules(ctx context.Context) ([]model.Rule, error)
	Enforcements(ctx context.Context, ruleRef string) ([]model.Enforcement, error)
	Enforcement(ctx context.Context, id string) (*model.Enforcement, error)
	Execution(ctx context.Context, id string) (*model.Execution, error)
	DispatchTrigger(ctx context.Context, ref string, payload model.TriggerPayload) error
}

// History records dispatched alerts. Recording is best effort and never
// aborts a cycle.
type History interface {
	InsertAlert(ctx context.Context, rec *model.AlertRecord) error
}

// Sensor runs reconciliation cycles. Exactly one cycle runs at a time; the
// scheduler wrapping Poll is responsible for skipping overlapping runs.
type Sensor struct {
	Platform   Platform
	Ledger     *ledger.Ledger
	History    History  // optional
	Events     *hub.Hub // optional
	Server     string
	TriggerRef string
	Now        func() time.Time // injectable clock, defaults to time.Now

	mu sync.Mutex // serializes cycles triggered by schedule and by API
}

func (s *Sensor) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Poll runs one reconciliation cycle: enumerate eligible rules, compute each
// rule's window, inspect its enforcement history, and dispatch alerts. The
// dedup ledger is loaded once at the start and saved once at the end. Lookup
// failures abort the cycle; the next scheduled cycle self-heals.
func (s *Sensor) Poll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := s.now().UTC()

	rules, err := s.Platform.CronRules(ctx)
	if err != nil {
		return fmt.Errorf("sensor: list cron rules: %w", err)
	}
	if err := s.Ledger.Load(ctx); err != nil {
		return fmt.Errorf("sensor: load ledger: %w", err)
	}
	log.Printf("sensor: checking %d cron rules, current problem rules: %v", len(rules), s.Ledger.Entries())

	for _, rule := range rules {
		expr := schedule.Crontab(rule.Trigger.Parameters)
		win, err := schedule.Compute(expr, ref)
		if err != nil {
			// A rule whose schedule can never fire is a configuration
			// problem, not a missed run.
			log.Printf("sensor: rule %s: %v", rule.Ref, err)
			s.dispatchDeduped(ctx, rule.Ref, "", "",
				fmt.Sprintf("Cron rule has an unsatisfiable schedule: %v", err), model.StateOpen)
			continue
		}

		enfs, err := s.Platform.Enforcements(ctx, rule.Ref)
		if err != nil {
			return fmt.Errorf("sensor: %w", err)
		}
		if len(enfs) == 0 {
			s.dispatchDeduped(ctx, rule.Ref, "", "",
				"Cron job is not running and no enforcements can be found", model.StateOpen)
			continue
		}

		resolved, err := s.checkEnforcements(ctx, rule.Ref, enfs, win)
		if err != nil {
			return fmt.Errorf("sensor: %w", err)
		}
		if resolved {
			s.Ledger.Delete(rule.Ref)
		}
	}

	if err := s.Ledger.Save(ctx); err != nil {
		return fmt.Errorf("sensor: save ledger: %w", err)
	}
	if s.Events != nil {
		s.Events.Broadcast(hub.Event{Type: "poll.completed", Payload: map[string]any{
			"rules":     len(rules),
			"reference": ref.Format(time.RFC3339),
		}})
	}
	return nil
}

// checkEnforcements walks the rule's enforcement history in order and decides
// on the first enforcement inside the buffered window. The returned bool is
// true only when the run succeeded and the caller should clear the rule's
// ledger entry.
func (s *Sensor) checkEnforcements(ctx context.Context, ruleRef string, enfs []model.Enforcement, win schedule.Window) (bool, error) {
	for i := range enfs {
		enf := &enfs[i]
		at, err := enf.EnforcedTime()
		if err != nil {
			log.Printf("sensor: enforcement %s has unparseable timestamp %q: %v", enf.ID, enf.EnforcedAt, err)
			continue
		}
		if !win.Contains(at) {
			continue
		}

		if enf.ExecutionID == "" {
			// Rule evaluation failed before producing an execution; the
			// failure reason only exists on the full record.
			full, err := s.Platform.Enforcement(ctx, enf.ID)
			if err != nil {
				return false, err
			}
			s.dispatchDeduped(ctx, ruleRef, "", enf.ID,
				errtree.EscapeTemplate(full.FailureReason), model.StateError)
			return false, nil
		}

		exec, err := s.Platform.Execution(ctx, enf.ExecutionID)
		if err != nil {
			return false, err
		}
		switch {
		case exec.Status.InProgress():
			log.Printf("sensor: rule %s execution %s still in progress, will check next cycle", ruleRef, exec.ID)
			return false, nil
		case exec.Status.Errored():
			s.dispatchDeduped(ctx, ruleRef, enf.ExecutionID, enf.ID,
				"Cron job execution failed", model.StateError)
			return false, nil
		default:
			if s.Ledger.Has(ruleRef) {
				s.dispatch(ctx, ruleRef, "", model.TriggerPayload{
					RuleName:    ruleRef,
					Server:      s.Server,
					ExecutionID: enf.ExecutionID,
					Comments:    "Cron job ran successfully",
					State:       model.StateSuccess,
				})
			}
			return true, nil
		}
	}

	// Nothing enforced inside the window: the schedule was changed or the
	// timer service stopped firing.
	s.dispatch(ctx, ruleRef, "", model.TriggerPayload{
		RuleName: ruleRef,
		Server:   s.Server,
		Comments: "Cron job did not run",
		State:    model.StateOpen,
	})
	return false, nil
}

// dispatchDeduped sends an alert unless the ledger shows it was already sent
// for the same enforcement (or for an evaluation error with no enforcement to
// point at), then records the enforcement in the ledger.
func (s *Sensor) dispatchDeduped(ctx context.Context, ruleRef, executionID, enforcementID, comments, state string) {
	if v, ok := s.Ledger.Get(ruleRef); ok {
		if v == ledger.Sentinel || (enforcementID != "" && v == enforcementID) {
			log.Printf("sensor: alert for rule %s already dispatched, waiting for a new enforcement", ruleRef)
			return
		}
	}

	s.dispatch(ctx, ruleRef, enforcementID, model.TriggerPayload{
		RuleName:    ruleRef,
		Server:      s.Server,
		ExecutionID: executionID,
		Comments:    comments,
		State:       state,
	})

	if enforcementID != "" {
		s.Ledger.Set(ruleRef, enforcementID)
	} else {
		s.Ledger.Set(ruleRef, ledger.Sentinel)
	}
}

// dispatch fires the alert at the platform trigger endpoint and fans it out
// to the history store and event hub. All three sinks are best effort.
func (s *Sensor) dispatch(ctx context.Context, ruleRef, enforcementID string, payload model.TriggerPayload) {
	log.Printf("sensor: dispatching %s alert for rule %s: %s", payload.State, ruleRef, payload.Comments)

	if err := s.Platform.DispatchTrigger(ctx, s.TriggerRef, payload); err != nil {
		log.Printf("sensor: dispatch trigger for %s: %v", ruleRef, err)
	}

	if s.History != nil {
		rec := &model.AlertRecord{
			ID:            uuid.New().String(),
			RuleRef:       ruleRef,
			Server:        payload.Server,
			ExecutionID:   payload.ExecutionID,
			EnforcementID: enforcementID,
			Comments:      payload.Comments,
			State:         payload.State,
			CreatedAt:     s.now().UTC(),
		}
		if err := s.History.InsertAlert(ctx, rec); err != nil {
			log.Printf("sensor: record alert for %s: %v", ruleRef, err)
		}
	}

	if s.Events != nil {
		s.Events.Broadcast(hub.Event{Type: "alert.dispatched", Rule: ruleRef, Payload: payload})
	}
}
