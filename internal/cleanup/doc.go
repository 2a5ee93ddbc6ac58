// Package cleanup implements the prune/expire/autoclean engine of spec.md
// §4.7. Prune is fail-open: a stat error other than NotFound never
// triggers removal, since an inaccessible path isn't evidence the
// reservation's path is actually gone.
package cleanup
