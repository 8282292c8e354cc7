// Package workspace implements the per-tenant bootstrap file resolver.
//
// A Resolver is bound to one tenant's workspace directory and a shared
// template directory. Reads are layered custom > template > builtin, so an
// operator can override any bootstrap file per-tenant, fall back to a
// shared template, or rely on the built-in defaults baked into this
// package. Writes always land in the tenant's custom layer; the template
// and builtin layers are read-only from the Resolver's point of view.
package workspace
