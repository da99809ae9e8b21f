package endpoint

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/tether"
	"github.com/arloliu/tether/types"
)

// ErrNotFound is returned when a named endpoint is not in the set.
var ErrNotFound = errors.New("tether: endpoint not found")

// File is the YAML document layout.
//
//	defaults:
//	  open_timeout: 5s
//	  close_timeout: 2s
//	endpoints:
//	  inventory:
//	    binding: grpc
//	    address: dns:///inventory.internal:443
//	    call_timeout: 1s
//	    identity:
//	      token: ${INVENTORY_TOKEN}
//	      tls: true
//	    metadata:
//	      header.x-tenant: acme
type File struct {
	Defaults  Defaults          `yaml:"defaults"`
	Endpoints map[string]Config `yaml:"endpoints"`
}

// Defaults fill zero values of every endpoint.
type Defaults struct {
	Binding      string        `yaml:"binding"`
	OpenTimeout  time.Duration `yaml:"open_timeout"`
	CloseTimeout time.Duration `yaml:"close_timeout"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
}

// Config is one endpoint entry.
type Config struct {
	Address      string            `yaml:"address"`
	Binding      string            `yaml:"binding"`
	OpenTimeout  time.Duration     `yaml:"open_timeout"`
	CloseTimeout time.Duration     `yaml:"close_timeout"`
	CallTimeout  time.Duration     `yaml:"call_timeout"`
	Identity     Identity          `yaml:"identity"`
	Metadata     map[string]string `yaml:"metadata"`
}

// Identity is the YAML form of types.Identity.
type Identity struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Token      string `yaml:"token"`
	TLS        bool   `yaml:"tls"`
	ServerName string `yaml:"server_name"`
}

// Set is a validated collection of named endpoint configurations.
type Set struct {
	endpoints map[string]types.EndpointConfig
}

// Load reads a YAML endpoint file.
//
// Environment variables in the file are expanded before parsing, so
// secrets can be kept out of the file.
//
// Parameters:
//   - path: File path
//
// Returns:
//   - *Set: The parsed endpoints
//   - error: Read, parse or validation failure
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoint file: %w", err)
	}

	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes and validates a YAML endpoint document.
//
// Parameters:
//   - data: YAML content
//
// Returns:
//   - *Set: The parsed endpoints
//   - error: Parse or validation failure
func Parse(data []byte) (*Set, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse endpoint file: %w", err)
	}

	return f.Set()
}

// Set validates the file and applies defaults.
func (f File) Set() (*Set, error) {
	s := &Set{endpoints: make(map[string]types.EndpointConfig, len(f.Endpoints))}

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(f.Endpoints)) {
		c := f.Endpoints[name]
		if name == "" {
			errs = append(errs, errors.New("endpoint with empty name"))
			continue
		}
		if c.Address == "" {
			errs = append(errs, fmt.Errorf("endpoint %q: address is required", name))
			continue
		}
		for _, d := range []struct {
			field string
			value time.Duration
		}{
			{"open_timeout", c.OpenTimeout},
			{"close_timeout", c.CloseTimeout},
			{"call_timeout", c.CallTimeout},
		} {
			if d.value < 0 {
				errs = append(errs, fmt.Errorf("endpoint %q: %s must not be negative", name, d.field))
			}
		}

		s.endpoints[name] = c.toEndpointConfig(name, f.Defaults)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return s, nil
}

func (c Config) toEndpointConfig(name string, d Defaults) types.EndpointConfig {
	cfg := types.EndpointConfig{
		Name:         name,
		Address:      c.Address,
		Binding:      c.Binding,
		OpenTimeout:  c.OpenTimeout,
		CloseTimeout: c.CloseTimeout,
		CallTimeout:  c.CallTimeout,
		Identity: types.Identity{
			Username:   c.Identity.Username,
			Password:   c.Identity.Password,
			Token:      c.Identity.Token,
			TLS:        c.Identity.TLS,
			ServerName: c.Identity.ServerName,
		},
	}
	if len(c.Metadata) > 0 {
		cfg.Metadata = maps.Clone(c.Metadata)
	}

	if cfg.Binding == "" {
		cfg.Binding = d.Binding
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = d.OpenTimeout
	}
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = d.CloseTimeout
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = d.CallTimeout
	}

	return cfg
}

// Names returns the endpoint names in sorted order.
func (s *Set) Names() []string {
	return slices.Sorted(maps.Keys(s.endpoints))
}

// Get returns a copy of the named endpoint configuration.
//
// Parameters:
//   - name: Endpoint name
//
// Returns:
//   - types.EndpointConfig: The configuration
//   - error: ErrNotFound if name is unknown
func (s *Set) Get(name string) (types.EndpointConfig, error) {
	cfg, ok := s.endpoints[name]
	if !ok {
		return types.EndpointConfig{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	return cfg.Clone(), nil
}

// Apply returns a mutator for Wrapper.Configure that replaces the wrapper's
// endpoint settings with the named entry. The wrapper keeps its binding
// name.
//
// Parameters:
//   - name: Endpoint name
//
// Returns:
//   - func(*types.EndpointConfig): Mutator for Configure
//   - error: ErrNotFound if name is unknown
func (s *Set) Apply(name string) (func(*types.EndpointConfig), error) {
	cfg, err := s.Get(name)
	if err != nil {
		return nil, err
	}

	return func(target *types.EndpointConfig) {
		binding := target.Name
		*target = cfg.Clone()
		target.Name = binding
	}, nil
}

// Options returns wrapper options selecting the named endpoint: its
// configuration and, as binding name, the endpoint name.
//
// Parameters:
//   - name: Endpoint name
//
// Returns:
//   - []tether.Option: Options for tether.New
//   - error: ErrNotFound if name is unknown
func (s *Set) Options(name string) ([]tether.Option, error) {
	cfg, err := s.Get(name)
	if err != nil {
		return nil, err
	}

	return []tether.Option{
		tether.WithBindingName(name),
		tether.WithEndpoint(cfg),
	}, nil
}
