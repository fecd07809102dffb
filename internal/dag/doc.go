// Package dag builds the dependency graph of the catalog: one node per
// declared step and one per referenced snapshot, with edges from every
// upstream input to the step that consumes it. The graph is validated at
// build time (unknown runners, missing producers, cycles) and then handed to
// the executor, which walks it concurrently.
package dag
