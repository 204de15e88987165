package infra

// Action is a state change a card resolver may request.
type Action string

const (
	ActionExploit  Action = "exploit"
	ActionAttack   Action = "attack"
	ActionShield   Action = "shield"
	ActionFortify  Action = "fortify"
	ActionResponse Action = "response"
	ActionCounter  Action = "counter"
	ActionReaction Action = "reaction"
)

type edge struct {
	action Action
	from   State
}

// edges holds every legal move along the attacker path
// (secure -> vulnerable -> compromised) and the defender path
// (secure -> shielded -> fortified -> fortified_weaken -> secure), plus the
// undo moves that return a marked target to secure.
var edges = map[edge]State{
	{ActionExploit, StateSecure}:          StateVulnerable,
	{ActionExploit, StateFortified}:       StateFortifiedWeaken,
	{ActionExploit, StateFortifiedWeaken}: StateVulnerable,
	{ActionAttack, StateVulnerable}:       StateCompromised,
	{ActionShield, StateSecure}:           StateShielded,
	{ActionShield, StateFortifiedWeaken}:  StateShielded,
	{ActionFortify, StateShielded}:        StateFortified,
	{ActionResponse, StateCompromised}:    StateSecure,
	{ActionCounter, StateShielded}:        StateSecure,
	{ActionCounter, StateFortifiedWeaken}: StateSecure,
	{ActionReaction, StateVulnerable}:     StateSecure,
}

// Next returns the state that action leads to from from. ok is false when no
// edge exists, which callers report as "no effect".
func Next(from State, action Action) (State, bool) {
	to, ok := edges[edge{action, from}]
	return to, ok
}

// Change describes one applied transition.
type Change struct {
	InfrastructureID string
	From             State
	To               State
	Action           Action
}

// Transition applies action to target. The returned value is a fresh copy;
// target is not modified. When no edge exists the target is returned
// unchanged with ok == false.
func Transition(target Infrastructure, action Action, mark Mark) (Infrastructure, Change, bool) {
	to, ok := Next(target.State, action)
	if !ok {
		return target, Change{}, false
	}

	next := target.Clone()
	change := Change{
		InfrastructureID: target.ID,
		From:             target.State,
		To:               to,
		Action:           action,
	}
	next.State = to

	switch action {
	case ActionExploit:
		if to == StateVulnerable && mark.Vector != "" {
			next.Vulnerabilities = append(next.Vulnerabilities, mark)
		}
	case ActionShield:
		next.Shields = append(next.Shields, mark)
		next.Vulnerabilities = nil
	case ActionResponse, ActionReaction:
		next.Vulnerabilities = nil
	case ActionCounter:
		next.Shields = nil
	}

	return next, change, true
}
