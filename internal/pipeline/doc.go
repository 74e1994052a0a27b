// Package pipeline turns a source tree into a rendered output tree.
//
// A run executes eight stages in a fixed order with a barrier between them:
//
//	load_sources     discover sources, fill the template catalog, parse records
//	resolve_urls     resolve record URLs from the route table
//	index            navigation tree, post index, growing sitemap
//	expand           one record per tag page template and tag; freeze sitemap
//	render           render every non-asset record
//	map_outputs      output paths per record
//	prepare_outputs  create output directories
//	persist          copy assets and write rendered files
//
// Per-record work inside a stage runs on a bounded worker pool. Every error
// class is detected before prepare_outputs, so a failed run leaves the output
// directory untouched.
package pipeline
