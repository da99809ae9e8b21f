// Package journal records reported failures for later inspection.
//
// A journal is an [observer.Observer]: attach it with tether.WithJournal or
// register it on a registry, and every reported failure becomes a [Record]
// carrying the contract, binding, invocation ID, verdict, failure kind and
// the flattened error chain.
//
// # Memory Journal
//
// [MemoryJournal] is a bounded in-memory queue. When full, new records are
// dropped and counted through MetricsCollector.IncJournalDropped.
//
//	j := journal.NewMemoryJournal(journal.WithCapacity(500))
//	w, _ := tether.New[Inventory](factory, tether.WithJournal(j))
//	...
//	for _, r := range j.Drain() {
//	    fmt.Println(r.Contract, r.Kind, r.Message)
//	}
//
// # NATS JetStream Journal
//
// [NATSJournal] publishes MessagePack-encoded records to a JetStream stream,
// so they survive restarts and can be consumed by another process.
//
// # Worker
//
// [Worker] drains any [Source] in the background and hands each record to a
// [HandleFunc]. Records whose handler fails are naked for redelivery.
package journal
