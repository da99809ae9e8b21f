// Package natsconn provides a NATS request/reply connection factory for tether.
//
// Each handle dials its own *nats.Conn in Open and drains it in Close.
// The contract is built from a [Client], which applies the endpoint's
// subject prefix and call timeout:
//
//	type Pricing struct{ c *natsconn.Client }
//
//	func (p Pricing) Quote(ctx context.Context, sku string) (Quote, error) {
//	    var q Quote
//	    err := p.c.RequestJSON(ctx, "quote", QuoteRequest{SKU: sku}, &q)
//	    return q, err
//	}
//
//	factory := natsconn.NewFactory(func(c *natsconn.Client) Pricing { return Pricing{c} })
//	w, _ := tether.New(factory, tether.WithEndpoint(tether.EndpointConfig{
//	    Address:  "nats://127.0.0.1:4222",
//	    Metadata: map[string]string{natsconn.MetaSubjectPrefix: "pricing"},
//	}))
//
// Replies carrying the NATS micro error headers surface as
// *types.RemoteFault. Translate maps nats.go errors such as
// nats.ErrNoResponders and nats.ErrTimeout to failure kinds.
package natsconn
