// Package errors provides the classified error primitives used across sitegen.
//
// Every failure a run can hit belongs to one category:
//   - CategoryConfig: the site definition is wrong (unknown route, unresolved
//     placeholder, navbar grouping). The run cannot proceed.
//   - CategoryContent: one source file is invalid (bad date, missing excerpt).
//     These may be collected with a Collector and reported together.
//   - CategoryTemplate: unknown template or template syntax/execution failure.
//   - CategoryFileSystem: unreadable sources or unwritable outputs.
//
// Example usage:
//
//	err := errors.ContentError("blog post date must be YYYY/MM/DD").
//		WithPath(record.SourcePath).
//		WithCause(parseErr).
//		Build()
package errors
