// Package core implements the single-threaded actor runtime for simactor.
//
// Actors own private state and talk to each other only through immutable
// Envelopes. A Router holds the topic subscription table and a pending
// queue, and dispatches every Envelope synchronously to the actors
// subscribed to its Topic, in registration order, until nothing is left.
//
// Topics are an open set: any comparable value with a String method can be
// used, so downstream packages add channels without touching the router.
//
// Actors added with Router.Add get an ActorID handle. Actors that implement
// Named are also entered in the router's directory under their name.
package core
