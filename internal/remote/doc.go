// Package remote serves a storage.Store over gRPC and provides a Client
// that satisfies storage.Store against such a server.
//
// The service is declared by hand (no generated stubs). Its messages are
// protobuf well-known types, so calls use the default proto codec. Store
// errors travel as gRPC status codes and are mapped back to the storage
// sentinel errors on the client side.
package remote
