// Package workflow implements the trigger and queueing engine that connects
// pods on a canvas.
//
// When a source pod finishes producing output, CheckAndTriggerWorkflows
// fetches its outgoing connections, partitions them by trigger mode, and runs
// the three strategy branches concurrently:
//
//   - auto: always eligible; triggers as soon as a summary is generated,
//     subject to multi-input gating.
//   - ai-decide: the whole batch is sent to an external decision service;
//     approved connections behave like auto, rejected ones are recorded
//     against the multi-input gate and never trigger.
//   - direct: targets with a single direct inbound connection trigger
//     immediately; targets with two or more open a debounce window that
//     merges every source arriving within it into one hand-off.
//
// Key mechanics:
//   - Multi-input gate: a target with two or more required upstream sources
//     (auto or ai-decide inbound) fires only once every required source has
//     reported. Record + completeness check + consume happen under one lock,
//     so exactly one caller observes the firing decision.
//   - Direct-merge aggregator: one one-shot result channel per target; only
//     the first arrival in a window blocks on it. Timer resets use a
//     monotonic generation counter, so a superseded timer firing is a no-op.
//   - Per-target FIFO queue: a hand-off for a busy pod is parked and replayed
//     in insertion order. Pipeline completion (success or failure) spawns a
//     fire-and-forget continuation that drains the next item, so a failed
//     dispatch never stalls the queue.
//
// Error handling: summary-generation failures silently skip the edge;
// per-connection decide errors are surfaced as events with decide_status
// error and never trigger; dispatch failures emit workflow:complete with
// success false, restore the target pod to idle, advance the queue, and
// propagate the error to the immediate caller. A failure inside one strategy
// branch never aborts the sibling branches.
package workflow
