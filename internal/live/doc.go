// Package live coordinates real-time performance sessions between a host
// and any number of followers connected over WebSockets.
//
// A host opens a session under a short shareable code and broadcasts the
// current setlist, song index and scroll position. Followers join by code
// and receive every update. Ending the session, or the host disconnecting,
// tears it down and notifies every follower.
//
// All session, store and membership state is owned by a Coordinator and
// guarded by a single mutex. Outbound messages are queued on a per
// connection buffer and never block the coordinator.
package live
