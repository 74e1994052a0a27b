// Package render turns records into their final text.
//
// A run builds one Catalog from the template sources, then a Renderer bound
// to the run's read-only aggregates (route table, navigation tree, post
// index, frozen sitemap). Render is safe to call from many goroutines: every
// call works on its own clone of the catalog.
//
// Markdown records that are inlined (blog posts, or every markdown record
// when InlineAll is set) are rendered by substituting the converted HTML
// for the content placeholder in their template's raw source and executing
// the merged text once. Template syntax inside the Markdown is therefore
// interpreted exactly once.
package render
