// Package observer provides the failure notification registry.
//
// Every failure that the lifecycle runner reports through its default error
// handler is delivered to the observers registered for the invocation's
// contract. Observers are plain callbacks:
//
//	reg := observer.NewRegistry()
//	unregister := reg.RegisterFunc("Inventory", func(n types.Notification) {
//	    log.Printf("%s failed: %v", n.Contract, n.Err)
//	})
//	defer unregister()
//
// # Delivery
//
//   - Synchronous, on the reporting goroutine
//   - In registration order, contract observers before Wildcard observers
//   - No deduplication
//   - A panicking observer is recovered and logged; the rest still run
//
// A Registry is owned by each wrapper by default. Wrappers that should share
// observers are given the same registry with tether.WithRegistry.
package observer
