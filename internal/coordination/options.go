package coordination

const (
	// DefaultPort is the Consul HTTP API port used when only a host is configured
	DefaultPort = 8500

	// ConsistencyDefault uses the Consul default read mode
	ConsistencyDefault = "default"

	// ConsistencyConsistent forces a consistent read through the leader
	ConsistencyConsistent = "consistent"

	// ConsistencyStale allows any server to answer the read
	ConsistencyStale = "stale"
)

// Options parameterizes the connection to the coordination store.
// Zero values are treated as "not set" and left to the client defaults.
type Options struct {
	// Host is the coordination store hostname
	Host string `yaml:"host,omitempty" json:"host,omitempty"`

	// Port is the coordination store HTTP port (8500 when Host is set and Port is not)
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// Token is the ACL token sent with every read
	Token string `yaml:"token,omitempty" json:"token,omitempty"`

	// Scheme is http or https
	Scheme string `yaml:"scheme,omitempty" json:"scheme,omitempty"`

	// Consistency is one of default, consistent or stale
	Consistency string `yaml:"consistency,omitempty" json:"consistency,omitempty"`

	// Datacenter selects the Consul datacenter
	Datacenter string `yaml:"dc,omitempty" json:"dc,omitempty"`

	// Verify controls TLS certificate verification; nil keeps the default (verify)
	Verify *bool `yaml:"verify,omitempty" json:"verify,omitempty"`

	// Cert is the path to a client certificate
	Cert string `yaml:"cert,omitempty" json:"cert,omitempty"`
}
