// Package ingest loads delimited text files into PostgreSQL tables.
//
// A load reads the whole file, infers a column type for every header
// field, creates the table if it is missing and copies every row with
// COPY inside a single transaction:
//
//	src, _ := ingest.ReadSource(f, ",")
//	schema, _ := ingest.InferSchema(src.Header, src.Rows, pgingest.InferConsensus, "", nil)
//	_ = ingest.CreateTable(ctx, tx, "staging.rewards", schema)
//	n, _ := ingest.BulkCopy(ctx, tx, "staging.rewards", schema, src.Rows, "")
//
// Loader wires these steps together with truncate approval and logging.
package ingest
