package infra

import (
	"fmt"
	"slices"
)

// State is the security state of an infrastructure target.
type State string

const (
	StateSecure          State = "secure"
	StateVulnerable      State = "vulnerable"
	StateCompromised     State = "compromised"
	StateShielded        State = "shielded"
	StateFortified       State = "fortified"
	StateFortifiedWeaken State = "fortified_weaken"

	// StateAny matches every state in a trigger condition. It is never a
	// state of an infrastructure target.
	StateAny State = "any"
)

var allStates = []State{
	StateSecure,
	StateVulnerable,
	StateCompromised,
	StateShielded,
	StateFortified,
	StateFortifiedWeaken,
}

// States returns the six target states in declaration order.
func States() []State {
	return slices.Clone(allStates)
}

// Valid reports whether s is one of the six target states.
func (s State) Valid() bool {
	return slices.Contains(allStates, s)
}

// Matches reports whether s, used as a trigger condition, accepts actual.
func (s State) Matches(actual State) bool {
	return s == StateAny || s == actual
}

// Category is the infrastructure type printed on the card.
type Category string

const (
	CategoryNetwork  Category = "network"
	CategoryWeb      Category = "web"
	CategoryData     Category = "data"
	CategoryUser     Category = "user"
	CategoryCritical Category = "critical"
)

// Vector is an attack vector.
type Vector string

const (
	VectorNetwork Vector = "network"
	VectorWeb     Vector = "web"
	VectorSocial  Vector = "social"
	VectorMalware Vector = "malware"
	VectorExploit Vector = "exploit"
	VectorDDoS    Vector = "ddos"
	VectorAttack  Vector = "attack"
)

// KnownVector reports whether v is an attack vector the engine understands.
func KnownVector(v string) bool {
	switch Vector(v) {
	case VectorNetwork, VectorWeb, VectorSocial, VectorMalware, VectorExploit, VectorDDoS, VectorAttack:
		return true
	}
	return false
}

// Mark is a vulnerability or shield applied to a target by a card.
type Mark struct {
	Vector    Vector `json:"vector" yaml:"vector"`
	AppliedBy string `json:"applied_by" yaml:"applied_by"`
	Role      string `json:"role" yaml:"role"`
}

// Infrastructure is one shared target. Values are copied on every update;
// use Clone before mutating the slices of a value you do not own.
type Infrastructure struct {
	ID                string   `json:"id" yaml:"id"`
	Name              string   `json:"name" yaml:"name"`
	Category          Category `json:"category" yaml:"type"`
	Description       string   `json:"description,omitempty" yaml:"description"`
	State             State    `json:"state" yaml:"state"`
	VulnerableVectors []Vector `json:"vulnerable_vectors" yaml:"vulnerable_vectors"`
	Vulnerabilities   []Mark   `json:"vulnerabilities,omitempty" yaml:"-"`
	Shields           []Mark   `json:"shields,omitempty" yaml:"-"`
}

// Clone returns a deep copy.
func (i Infrastructure) Clone() Infrastructure {
	i.VulnerableVectors = slices.Clone(i.VulnerableVectors)
	i.Vulnerabilities = slices.Clone(i.Vulnerabilities)
	i.Shields = slices.Clone(i.Shields)
	return i
}

// IsVulnerableTo reports whether the target is naturally susceptible to v.
func (i Infrastructure) IsVulnerableTo(v Vector) bool {
	return slices.Contains(i.VulnerableVectors, v)
}

// HasVulnerability reports whether an applied vulnerability matches v.
func (i Infrastructure) HasVulnerability(v Vector) bool {
	for _, m := range i.Vulnerabilities {
		if m.Vector == v {
			return true
		}
	}
	return false
}

// AttackerControlled reports whether the attacker scores this target.
func (i Infrastructure) AttackerControlled() bool {
	return i.State == StateCompromised
}

// DefenderControlled reports whether the defender scores this target.
func (i Infrastructure) DefenderControlled() bool {
	return i.State == StateFortified || i.State == StateFortifiedWeaken
}

func (i Infrastructure) String() string {
	return fmt.Sprintf("%s(%s)", i.ID, i.State)
}

// Roster is the ordered list of targets in a match.
type Roster []Infrastructure

// Clone returns a deep copy of the roster.
func (r Roster) Clone() Roster {
	if r == nil {
		return nil
	}
	out := make(Roster, len(r))
	for idx, item := range r {
		out[idx] = item.Clone()
	}
	return out
}

// Index returns the position of id, or -1.
func (r Roster) Index(id string) int {
	for idx, item := range r {
		if item.ID == id {
			return idx
		}
	}
	return -1
}

// Find returns the target with id.
func (r Roster) Find(id string) (Infrastructure, bool) {
	if idx := r.Index(id); idx >= 0 {
		return r[idx], true
	}
	return Infrastructure{}, false
}

// InState returns the ids of targets currently in one of states.
func (r Roster) InState(states ...State) []string {
	var ids []string
	for _, item := range r {
		if slices.Contains(states, item.State) {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// Scores counts attacker- and defender-controlled targets.
func (r Roster) Scores() (attacker, defender int) {
	for _, item := range r {
		switch {
		case item.AttackerControlled():
			attacker++
		case item.DefenderControlled():
			defender++
		}
	}
	return attacker, defender
}
