// Package token resolves token descriptors to literal tokens, polling the
// coordination store when the token is distributed through it.
package token

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-federation/internal/coordination"
)

// ProtocolConsul identifies the Consul coordination backend
const ProtocolConsul = "consul"

// Descriptor describes where a token comes from. It is either a literal
// token (Literal set, Protocol empty) or a pointer into a coordination store.
type Descriptor struct {
	// Literal is an already usable token
	Literal string `yaml:"-" json:"-"`

	// Protocol names the coordination backend (only "consul" is supported)
	Protocol string `yaml:"protocol,omitempty" json:"protocol,omitempty"`

	// Config parameterizes the coordination client
	Config coordination.Options `yaml:"config,omitempty" json:"config,omitempty"`

	// URI is the key to read, e.g. /debug/supervisor/TOKEN
	URI string `yaml:"uri,omitempty" json:"uri,omitempty"`
}

// LiteralDescriptor wraps an already usable token.
func LiteralDescriptor(token string) Descriptor {
	return Descriptor{Literal: token}
}

// IsLiteral reports whether the descriptor carries the token itself.
func (d Descriptor) IsLiteral() bool {
	return d.Protocol == "" && d.URI == ""
}

// IsEmpty reports whether the descriptor describes no token at all, as
// written by an empty mapping or an empty string.
func (d Descriptor) IsEmpty() bool {
	return d.IsLiteral() && d.Literal == ""
}

// UnmarshalYAML accepts either a scalar token or a structured mapping.
func (d *Descriptor) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*d = Descriptor{Literal: value.Value}
		return nil
	case yaml.MappingNode:
		type plain Descriptor
		var p plain
		if err := value.Decode(&p); err != nil {
			return fmt.Errorf("invalid token descriptor: %w", err)
		}
		*d = Descriptor(p)
		return nil
	default:
		return fmt.Errorf("invalid token descriptor: expected string or mapping at line %d", value.Line)
	}
}
