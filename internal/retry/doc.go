// Package retry retries the establishment of database connections.
//
// Only opening a connection is retried. Statements, copies and batches run
// once; a failure there rolls the transaction back and is reported as is.
//
//	executor := retry.ForConnections(logger)
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
//
// A Classifier decides which errors are transient, and an ExponentialBackoff
// decides how long to wait between attempts. Both satisfy the interfaces in
// pkg/pgingest so callers can plug in their own.
package retry
