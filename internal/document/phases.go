package document

import "github.com/colliery-io/metis/internal/merr"

type transitionKey struct {
	Type Type
	From string
	To   string
}

// transitions is the definitive (from,to) matrix per spec §4.1. Backward
// steps are listed explicitly rather than derived, since "immediate
// predecessor" is a property of the declared sequence, not a computed one.
var transitions = map[transitionKey]bool{
	// Vision: draft -> review -> published, with review -> draft back-step.
	{TypeVision, "draft", "review"}:     true,
	{TypeVision, "review", "published"}: true,
	{TypeVision, "review", "draft"}:     true,

	// Strategy: shaping -> design -> ready -> active -> completed.
	{TypeStrategy, "shaping", "design"}:   true,
	{TypeStrategy, "design", "ready"}:     true,
	{TypeStrategy, "ready", "active"}:     true,
	{TypeStrategy, "active", "completed"}: true,
	{TypeStrategy, "design", "shaping"}:   true,
	{TypeStrategy, "ready", "design"}:     true,

	// Initiative: discovery -> design -> ready -> decompose -> active -> completed.
	{TypeInitiative, "discovery", "design"}:  true,
	{TypeInitiative, "design", "ready"}:       true,
	{TypeInitiative, "ready", "decompose"}:    true,
	{TypeInitiative, "decompose", "active"}:   true,
	{TypeInitiative, "active", "completed"}:   true,
	{TypeInitiative, "design", "discovery"}:   true,
	{TypeInitiative, "ready", "design"}:       true,
	{TypeInitiative, "decompose", "ready"}:     true,
	{TypeInitiative, "active", "decompose"}:    true,

	// Task: todo -> active -> blocked/completed, plus fast-path and reopen.
	{TypeTask, "todo", "active"}:       true,
	{TypeTask, "active", "blocked"}:    true,
	{TypeTask, "blocked", "active"}:    true,
	{TypeTask, "active", "completed"}:  true,
	{TypeTask, "todo", "completed"}:    true,
	{TypeTask, "completed", "active"}:  true,

	// ADR: draft -> discussion -> decided -> superseded.
	{TypeADR, "draft", "discussion"}:     true,
	{TypeADR, "discussion", "decided"}:   true,
	{TypeADR, "decided", "superseded"}:   true,
}

// forwardOrder lists the full forward phase sequence per type, ending with
// its terminal phase, used for next_phase and for "Blocked"'s
// return-to-preceding-non-terminal-state.
var forwardOrder = map[Type][]string{
	TypeVision:     {"draft", "review", "published"},
	TypeStrategy:   {"shaping", "design", "ready", "active", "completed"},
	TypeInitiative: {"discovery", "design", "ready", "decompose", "active", "completed"},
	TypeTask:       {"todo", "active", "completed"},
	TypeADR:        {"draft", "discussion", "decided", "superseded"},
}

// Phases returns the ordered forward phase sequence for a document type.
func Phases(t Type) []string {
	seq := forwardOrder[t]
	out := make([]string, len(seq))
	copy(out, seq)
	return out
}

// ValidPhase reports whether phase is a legal phase name for type t
// (including "blocked", which only Task reaches).
func ValidPhase(t Type, phase string) bool {
	for _, p := range forwardOrder[t] {
		if p == phase {
			return true
		}
	}
	return t == TypeTask && phase == "blocked"
}

// Terminal returns the terminal phase name for a document type.
func Terminal(t Type) string {
	seq := forwardOrder[t]
	if len(seq) == 0 {
		return ""
	}
	return seq[len(seq)-1]
}

// CanTransition reports whether (from,to) is a legal transition for type t.
func CanTransition(t Type, from, to string) bool {
	return transitions[transitionKey{t, from, to}]
}

// NextPhase returns the forward transition from current, per the declared
// sequence. For Task "todo", the canonical forward step is "active" (the
// fast-path to "completed" must be requested explicitly, never implied).
func NextPhase(t Type, current string) (string, error) {
	seq := forwardOrder[t]
	for i, p := range seq {
		if p == current && i+1 < len(seq) {
			return seq[i+1], nil
		}
	}
	if current == "blocked" && t == TypeTask {
		return "active", nil
	}
	return "", &merr.InvalidPhaseTransitionError{From: current, To: "<next>"}
}

// Transition validates and applies a phase change to from, returning to.
// If to is empty, the forward transition is chosen via NextPhase.
func Transition(t Type, from, to string) (string, error) {
	if to == "" {
		next, err := NextPhase(t, from)
		if err != nil {
			return "", err
		}
		to = next
	}
	if !CanTransition(t, from, to) {
		return "", &merr.InvalidPhaseTransitionError{From: from, To: to}
	}
	return to, nil
}

// InitialPhase returns the phase a newly created document of type t starts in.
func InitialPhase(t Type) string {
	seq := forwardOrder[t]
	if len(seq) == 0 {
		return ""
	}
	return seq[0]
}
