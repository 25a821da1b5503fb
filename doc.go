// Package pagination implements stateless cursor-based keyset pagination
// over a GORM data source.
//
// # Overview
//
// The package is built from three layers:
//   - Codec: encodes a CursorDescriptor into an opaque, URL-safe token and
//     back. Tokens are self-contained; no pagination state is stored server
//     side. An optional HMAC signature can be attached to reject tampered
//     tokens.
//   - FetchPage: translates a descriptor into a bounded, ordered, filtered
//     query with a composite keyset predicate and one-row lookahead.
//   - Pager: the orchestrator callers interact with. It resolves the incoming
//     token (falling back to the first page when the token is invalid),
//     applies per-field overrides, runs the query and derives the next and
//     previous cursor tokens from the boundary rows of the page.
//
// Key concepts
//   - CursorDescriptor: the sole unit of pagination state. It carries the
//     ordering columns, last-seen values, limit, direction and ad hoc filters.
//   - Keyset predicate: the tuple comparison
//     (c1 > v1) OR (c1 = v1 AND c2 > v2) OR ... built in orderBy order, which
//     keeps pagination stable under concurrent inserts and deletes.
//   - Lookahead row: the (limit+1)-th row fetched solely to decide whether
//     more pages exist; it is trimmed before results reach the caller.
package pagination
