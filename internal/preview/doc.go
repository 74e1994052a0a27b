// Package preview rebuilds the site when sources change and serves the
// output tree locally with live reload.
package preview
