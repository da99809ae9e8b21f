// Package endpoint loads named endpoint configurations from YAML.
//
// Durations use Go duration strings ("250ms", "5s"). Every endpoint needs
// an address; a top-level defaults block fills unset timeouts and binding.
//
//	set, err := endpoint.Load("endpoints.yaml")
//	if err != nil {
//	    return err
//	}
//	opts, err := set.Options("inventory")
//	if err != nil {
//	    return err
//	}
//	w, err := tether.New[pb.InventoryClient](factory, opts...)
//
// # Watching NATS KV
//
// A Watcher reads the same document from a NATS KV key and publishes a new
// Set on every valid revision. Wrappers already in use keep their frozen
// endpoint; build new wrappers from the new set.
package endpoint
