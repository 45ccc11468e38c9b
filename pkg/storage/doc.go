// Package storage resolves the API sources an application publishes for its
// endpoints.
//
// An APIEncoding either carries its .proto sources inline (ProtoFiles) or
// references a bundle on content-addressed storage (APISource). The bundle
// is a tar or tar.gz archive of .proto files.
//
// # Supported Backends
//
// IPFS:
//   - Access via the Kubo HTTP RPC API (/api/v0/cat)
//   - URIs of the form ipfs://<cid> or a bare CID
//   - Raw-codec CIDs are verified against the fetched bytes
//
// Lighthouse (Filecoin gateway):
//   - Access via the HTTP gateway
//   - URIs of the form filecoin://<cid>
//   - Default: https://gateway.lighthouse.storage/ipfs/
//
// # Usage
//
//	client, err := storage.NewStorage(cfg.IpfsURL, cfg.LighthouseURL, cfg.Timeouts.Fetch)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	files, err := client.ResolveProtoFiles(ctx, view.Encoding)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for name := range files {
//		fmt.Println(name)
//	}
//
// ReadFile caches successful reads by URI for the lifetime of the Client.
// Failed reads are retried on the next call.
//
// # See Also
//
//   - grpc package, which compiles the resolved sources
//   - sdk package for automatic storage integration
package storage
