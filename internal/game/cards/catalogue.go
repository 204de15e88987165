package cards

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/darknet-duel/duel-server-go/internal/game/infra"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"gopkg.in/yaml.v3"
)

//go:embed catalogue.yaml
var defaultCatalogue []byte

// ErrUnknownCard is returned when a catalogue lookup misses.
var ErrUnknownCard = errors.New("unknown card")

// Catalogue holds the immutable card and infrastructure definitions for both
// sides. It is read-only once loaded; every card handed out is a copy.
type Catalogue struct {
	Version        string                 `yaml:"version"`
	Attacker       []Card                 `yaml:"attacker"`
	Defender       []Card                 `yaml:"defender"`
	Infrastructure []infra.Infrastructure `yaml:"infrastructure"`

	index map[string]Card
}

// Default returns the catalogue compiled into the binary.
func Default() (*Catalogue, error) {
	return Parse(defaultCatalogue)
}

// LoadFile reads a catalogue from a YAML file. An empty path loads the
// built-in catalogue.
func LoadFile(path string) (*Catalogue, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalogue.
func Parse(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalogue YAML: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalogue) validate() error {
	c.index = make(map[string]Card, len(c.Attacker)+len(c.Defender))
	for _, side := range [][]Card{c.Attacker, c.Defender} {
		for _, card := range side {
			if card.ID == "" {
				return fmt.Errorf("card %q has no id", card.Name)
			}
			if _, dup := c.index[card.ID]; dup {
				return fmt.Errorf("duplicate card id %s", card.ID)
			}
			if !card.Type.Known() {
				return fmt.Errorf("card %s: unknown type %q", card.ID, card.Type)
			}
			if card.Cost < 0 {
				return fmt.Errorf("card %s: negative cost", card.ID)
			}
			if card.IsWildcard() && card.WildcardType == "" {
				return fmt.Errorf("card %s: wildcard without wildcard_type", card.ID)
			}
			c.index[card.ID] = card
		}
	}

	seen := make(map[string]struct{}, len(c.Infrastructure))
	for i, item := range c.Infrastructure {
		if item.ID == "" {
			return fmt.Errorf("infrastructure %d has no id", i)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("duplicate infrastructure id %s", item.ID)
		}
		seen[item.ID] = struct{}{}
		if item.State == "" {
			c.Infrastructure[i].State = infra.StateSecure
		} else if !item.State.Valid() {
			return fmt.Errorf("infrastructure %s: unknown state %q", item.ID, item.State)
		}
	}
	return nil
}

// Lookup returns a copy of the card definition with id.
func (c *Catalogue) Lookup(id string) (Card, error) {
	card, ok := c.index[id]
	if !ok {
		return Card{}, fmt.Errorf("%w: %s", ErrUnknownCard, id)
	}
	return card.Clone(), nil
}

// Side returns the definitions belonging to role.
func (c *Catalogue) Side(role rules.Role) []Card {
	if role == rules.RoleAttacker {
		return c.Attacker
	}
	return c.Defender
}

// Roster returns a fresh copy of the first n infrastructure definitions. A
// non-positive n returns all of them.
func (c *Catalogue) Roster(n int) infra.Roster {
	defs := c.Infrastructure
	if n > 0 && n < len(defs) {
		defs = defs[:n]
	}
	return infra.Roster(defs).Clone()
}
