// Package ballotengine implements the ballot session engine inside the
// governance-core context.
//
// The module owns the multi-round decision workflow: an authority admits
// participants and drives each round through a strict six-phase sequence,
// participants submit proposals and cast single votes, and tallying picks
// the proposal with the most votes (earliest index on ties). It keeps
// business rules in application/domain layers and isolates infrastructure
// concerns behind ports and adapters.
package ballotengine
