// Package topology loads the agents of a simulation, and the links between
// them, from a YAML file.
package topology

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raskyld/netagents"
	"gopkg.in/yaml.v3"
)

var ErrInvalidTopology = errors.New("topology: invalid file")

// RefPrefix marks an attribute value naming another agent. It is replaced
// by that agent's identifier when the topology is applied.
const RefPrefix = "@"

// File is the root of a topology document.
type File struct {
	Agents []Agent `yaml:"agents"`
}

// Agent declares one agent and the agents it sends to.
type Agent struct {
	Name  string             `yaml:"name"`
	ID    netagents.UniqueID `yaml:"id,omitempty"`
	Kind  string             `yaml:"kind"`
	Attrs map[string]string  `yaml:"attrs,omitempty"`
	Links []string           `yaml:"links,omitempty"`
}

// Load reads and parses the topology file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a topology document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidTopology)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidTopology, err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate checks what can be checked without a Simulation: names are
// unique and every link and reference targets a declared agent.
func (f *File) Validate() error {
	if len(f.Agents) == 0 {
		return fmt.Errorf("%w: no agents", ErrInvalidTopology)
	}

	names := make(map[string]struct{}, len(f.Agents))
	for _, agent := range f.Agents {
		if _, dup := names[agent.Name]; dup {
			return fmt.Errorf("%w: agent %q declared twice", ErrInvalidTopology, agent.Name)
		}
		names[agent.Name] = struct{}{}
	}

	for _, agent := range f.Agents {
		for _, link := range agent.Links {
			if _, ok := names[link]; !ok {
				return fmt.Errorf("%w: %q links to unknown agent %q", ErrInvalidTopology, agent.Name, link)
			}
		}
		for key, val := range agent.Attrs {
			ref, isRef := strings.CutPrefix(val, RefPrefix)
			if !isRef {
				continue
			}
			if _, ok := names[ref]; !ok {
				return fmt.Errorf("%w: %q attribute %q references unknown agent %q",
					ErrInvalidTopology, agent.Name, key, ref)
			}
		}
	}
	return nil
}

// Apply declares every agent of f on sim, then every link.
//
// Agents carrying an explicit identifier are declared first so the
// identifiers generated for the others can never collide with them.
func (f *File) Apply(sim *netagents.Simulation) error {
	ordered := make([]Agent, 0, len(f.Agents))
	for _, agent := range f.Agents {
		if agent.ID != 0 {
			ordered = append(ordered, agent)
		}
	}
	for _, agent := range f.Agents {
		if agent.ID == 0 {
			ordered = append(ordered, agent)
		}
	}

	ids := make(map[string]netagents.UniqueID, len(ordered))
	for _, agent := range ordered {
		id, err := sim.AddAgent(netagents.AgentSpec{
			Name: agent.Name,
			ID:   agent.ID,
			Kind: agent.Kind,
		})
		if err != nil {
			return fmt.Errorf("agent %q: %w", agent.Name, err)
		}
		ids[agent.Name] = id
	}

	for _, agent := range f.Agents {
		attrs, err := resolveAttrs(sim, agent.Attrs)
		if err != nil {
			return fmt.Errorf("agent %q: %w", agent.Name, err)
		}
		if err := sim.SetAttrs(ids[agent.Name], attrs); err != nil {
			return fmt.Errorf("agent %q: %w", agent.Name, err)
		}

		for _, link := range agent.Links {
			dst, err := sim.Resolve(link)
			if err != nil {
				return fmt.Errorf("agent %q: %w", agent.Name, err)
			}
			if err := sim.Link(ids[agent.Name], dst); err != nil {
				return err
			}
		}
	}
	return nil
}

func resolveAttrs(sim *netagents.Simulation, attrs map[string]string) (netagents.Attrs, error) {
	resolved := make(netagents.Attrs, len(attrs))
	for key, val := range attrs {
		if ref, isRef := strings.CutPrefix(val, RefPrefix); isRef {
			id, err := sim.Resolve(ref)
			if err != nil {
				return nil, err
			}
			val = id.String()
		}
		resolved[key] = val
	}
	return resolved, nil
}
