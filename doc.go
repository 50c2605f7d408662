// Package exchange ties together the bridge's five moving parts:
//
//   - internal/wire decodes the bit-exact batch protocol producers speak.
//   - internal/registry holds one bounded page queue per in-flight query.
//   - internal/server accepts producer connections and feeds the registry.
//   - internal/pagesource turns a registry entry into a pull-side cursor.
//   - internal/dispatch starts producer jobs and fans out end-of-job
//     control signals once they finish.
//
// A caller constructs a Bridge, calls Serve to start accepting producer
// connections, opens a PageSource per query before dispatching it, and
// calls Dispatch to launch the producer job and declare end-of-stream to
// every consumer worker once it completes.
package exchange
