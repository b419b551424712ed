// Package pipeline expands source rows into embedded output records.
//
// For every row the Pipeline reads the embed column, splits it into chunks
// under the configured chunk.Policy, queues each chunk on an embed.Batcher,
// attaches the results and emits the row's output records followed by its
// linking record. Rows are emitted strictly in input order, and a row is
// emitted only once every one of its chunks has a result.
//
// Without chunking every row yields exactly one record, even when its text
// is blank. With chunking a row yields one record per non-empty chunk, and
// rows without chunks are dropped.
package pipeline
