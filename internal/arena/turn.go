package arena

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vorion-labs/gauntlet/internal/agent"
	"github.com/vorion-labs/gauntlet/internal/intel"
	"github.com/vorion-labs/gauntlet/internal/model"
)

// run is the per-session turn loop. Failures are caught here, at the loop
// boundary: they fail this session without touching the arena process or
// other running sessions. Cancellation is only observed between turns.
func (a *Arena) run(rt *runtime) {
	defer rt.cancel()
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "arena: session %s panicked: %v\n", rt.sess.ID, r)
			a.finalize(rt, model.StatusFailed)
		}
	}()

	for {
		a.mu.Lock()
		status := rt.sess.Status
		turns := rt.sess.Results.TotalTurns
		started := rt.sess.StartedAt
		a.mu.Unlock()

		if status != model.StatusRunning {
			// StopSession already finalized.
			return
		}
		if turns >= rt.sess.Config.MaxTurns || time.Since(started) >= rt.sess.Config.Timeout {
			a.finalize(rt, model.StatusCompleted)
			return
		}

		if err := a.runTurn(rt); err != nil {
			fmt.Fprintf(os.Stderr, "arena: session %s turn failed: %v\n", rt.sess.ID, err)
			a.finalize(rt, model.StatusFailed)
			return
		}

		// Back-pressure between turns, not a correctness requirement.
		time.Sleep(a.cfg.TurnDelay)
	}
}

// runTurn executes one attack/detect/evaluate exchange. A started turn
// always runs to completion; there is no mid-turn cancellation.
func (a *Arena) runTurn(rt *runtime) error {
	cfg := rt.sess.Config
	turnStart := time.Now().UTC()
	number := rt.sess.Results.TotalTurns + 1

	red := selectRed(rt.reds, cfg.Categories)
	payload, err := red.GenerateAttack(rt.ctx, agent.TargetContext{
		SystemContext: rt.sandbox.SystemContext(),
		History:       rt.sandbox.History(),
	}, agent.AttackContext{
		Turn:       number - 1,
		Categories: cfg.Categories,
		Mutate:     cfg.MutatePayloads,
	})
	if err != nil {
		return fmt.Errorf("red agent %s: %w", red.ID(), err)
	}

	detection, err := a.analyze(rt, payload.Content)
	if err != nil {
		return err
	}

	// A blocked attack never reaches the sandbox: contained, no response.
	var response string
	successful := false
	if detection.Action != model.ActionBlock {
		response, err = rt.sandbox.ProcessInput(rt.ctx, payload.Content)
		if err != nil {
			return fmt.Errorf("sandbox dispatch: %w", err)
		}
		successful, err = red.EvaluateSuccess(rt.ctx, payload, response)
		if err != nil {
			return fmt.Errorf("red agent %s evaluate: %w", red.ID(), err)
		}
	}

	falsePositive := detection.Action == model.ActionBlock &&
		model.SevRank[payload.Severity] < model.SevRank[model.SevHigh]
	falseNegative := successful && !detection.Detected

	turn := model.SessionTurn{
		Number:        number,
		RedAgent:      red.ID(),
		Role:          string(red.Variant()),
		Attack:        payload.Content,
		Response:      response,
		Category:      payload.Category,
		Successful:    successful,
		Detection:     detection,
		FalsePositive: falsePositive,
		FalseNegative: falseNegative,
		StartedAt:     turnStart,
		EndedAt:       time.Now().UTC(),
	}

	a.mu.Lock()
	if rt.sess.Status != model.StatusRunning {
		// Stopped while the turn was in flight; terminal sessions are
		// read-only history, so the late turn is discarded.
		a.mu.Unlock()
		return nil
	}
	res := &rt.sess.Results
	res.TotalTurns++
	res.AttacksAttempted++
	if detection.Detected {
		res.AttacksDetected++
	}
	if successful {
		res.AttacksSuccessful++
	}
	if falseNegative {
		res.AttacksMissed++
	}
	if falsePositive {
		res.FalsePositives++
	}
	rt.sess.Turns = append(rt.sess.Turns, turn)
	a.mu.Unlock()

	a.collector.CollectTurnData(turn, *payload, detection)

	if falseNegative {
		if vector := a.collector.RecordNovelVector(*payload, red.ID(), rt.sess.ID); vector != nil {
			a.mu.Lock()
			rt.sess.Results.NovelVectors++
			a.mu.Unlock()
			a.events.dispatch(Event{
				Type:      EventNovelDiscovery,
				SessionID: rt.sess.ID,
				Session:   rt.sess.Name,
				Vector:    vector,
			})
		}
	}

	a.events.dispatch(Event{
		Type:      EventTurnComplete,
		SessionID: rt.sess.ID,
		Session:   rt.sess.Name,
		Turn:      &turn,
	})
	a.events.dispatch(Event{
		Type:      EventAttackDetected,
		SessionID: rt.sess.ID,
		Session:   rt.sess.Name,
		Turn:      &turn,
		Vector:    provisionalVector(payload, red.ID(), rt.sess.ID),
	})
	return nil
}

// analyze fans the payload out to every blue agent concurrently and merges
// their independent verdicts. The turn cannot proceed until all return.
func (a *Arena) analyze(rt *runtime, content string) (model.DetectionResult, error) {
	conversation := rt.sandbox.History()
	results := make([]model.DetectionResult, len(rt.blues))
	errs := make([]error, len(rt.blues))

	var wg sync.WaitGroup
	for i, blue := range rt.blues {
		wg.Add(1)
		go func(i int, blue agent.Blue) {
			defer wg.Done()
			res, err := blue.Analyze(rt.ctx, content, conversation)
			if err != nil {
				errs[i] = fmt.Errorf("blue agent %s: %w", blue.ID(), err)
				return
			}
			results[i] = *res
		}(i, blue)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return model.DetectionResult{}, err
		}
	}
	return Aggregate(results), nil
}

// finalize computes the session's final metrics, transitions it to the
// given terminal state, removes it from the active set, and notifies
// subscribers. Safe to call more than once; only the first call wins.
func (a *Arena) finalize(rt *runtime, status model.SessionStatus) {
	a.mu.Lock()
	if rt.sess.Status.Terminal() {
		a.mu.Unlock()
		return
	}
	rt.sess.Status = status
	rt.sess.EndedAt = time.Now().UTC()

	res := &rt.sess.Results
	if res.AttacksAttempted > 0 {
		res.DetectionAccuracy = float64(res.AttacksDetected-res.FalsePositives) / float64(res.AttacksAttempted)
	}
	if len(rt.sess.Turns) > 0 {
		var total time.Duration
		for _, t := range rt.sess.Turns {
			total += t.Duration()
		}
		res.MeanLatency = total / time.Duration(len(rt.sess.Turns))
	}

	delete(a.active, rt.sess.ID)
	a.finished[rt.sess.ID] = rt.sess
	a.sandboxes[rt.sess.ID] = rt.sandbox
	snapshot := cloneSession(rt.sess)
	a.mu.Unlock()

	// Notify before releasing waiters: WaitSession must not return until
	// every subscriber has seen the completion event.
	a.events.dispatch(Event{
		Type:      EventSessionComplete,
		SessionID: snapshot.ID,
		Session:   snapshot.Name,
		Results:   &snapshot.Results,
	})
	for _, unsub := range rt.unsubs {
		unsub()
	}
	close(rt.done)
}

// provisionalVector shapes a payload like a catalogued vector for
// observers; it is not deduplicated or persisted by the collector.
func provisionalVector(payload *model.AttackPayload, discoveredBy, sessionID string) *model.AttackVector {
	return &model.AttackVector{
		Hash:         intel.ContentHash(payload.Content),
		Category:     payload.Category,
		Subcategory:  payload.Subcategory,
		Technique:    payload.Technique,
		Payload:      payload.Content,
		Description:  payload.Description,
		Severity:     payload.Severity,
		Indicators:   append([]string(nil), payload.Indicators...),
		DiscoveredBy: discoveredBy,
		SessionID:    sessionID,
		Status:       model.VectorPending,
	}
}
