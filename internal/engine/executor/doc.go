// Package executor implements the level-barrier DAG executor. Nodes within
// one level run concurrently, bounded by max_parallel_nodes; no node in
// level N+1 starts before every node in level N has finished. Pause,
// resume, and cancellation take effect at level boundaries; in-flight node
// calls are never preempted, though they receive the execution's context
// and may honor its cancellation.
package executor
