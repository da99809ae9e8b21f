// Package cqlconn provides a Cassandra/ScyllaDB connection factory for tether.
//
// Each handle owns a gocql session built from the endpoint: the address is
// a comma separated list of contact points, identity maps to password
// authentication and TLS, and the metadata keys [MetaKeyspace],
// [MetaConsistency] and [MetaDatacenter] select keyspace, default
// consistency and a DC-aware host policy.
//
// Example:
//
//	w, err := tether.New[*gocql.Session](cqlconn.NewSessionFactory(),
//	    tether.WithEndpoint(types.EndpointConfig{
//	        Name:     "orders-db",
//	        Address:  "10.0.0.1,10.0.0.2",
//	        Metadata: map[string]string{cqlconn.MetaKeyspace: "orders"},
//	    }))
package cqlconn
