// Package grpcconn provides a gRPC connection factory for tether.
//
// Each handle owns its own *grpc.ClientConn, created with grpc.NewClient and
// closed when the invocation ends. Any generated client constructor can be
// used as the contract:
//
//	factory := grpcconn.NewFactory(pb.NewInventoryClient)
//	w, _ := tether.New(factory, tether.WithEndpoint(tether.EndpointConfig{
//	    Address:     "dns:///inventory:9090",
//	    OpenTimeout: 3 * time.Second,
//	    CallTimeout: time.Second,
//	    Metadata:    map[string]string{"header.x-tenant": "acme"},
//	}))
//
// The factory translates gRPC status codes into failure kinds (see
// Translate), so Unavailable is reported as an unreachable endpoint and
// Unauthenticated propagates after the handle is aborted.
//
// With an OpenTimeout the handle waits for the connection to become ready
// during Open; otherwise connecting happens on the first call.
package grpcconn
