// Package internal contains the implementation packages of minima.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - pager: Pager window calculation and link descriptors
//   - theme: Theme hooks that preprocess page, region, block and menu variables
//   - renderer: templ components emitting the themed markup
//   - site: YAML site fixture and the Builder that renders its pages
//   - server: HTTP server with live reload over WebSocket
//   - middleware, security: Request middleware, origin policy and headers
//   - watcher: File system monitoring with debouncing
//   - accessibility: Audit of rendered documents
//   - config, logging, errors, validation, version: Ambient support
//   - performance: Render latency percentiles
//
// # Data Flow
//
// A request reaches the server, which asks the current site.Builder for the
// page. The builder resolves the node, computes one pager per paged listing,
// runs the theme hooks and renders the document through the renderer
// components. The watcher reloads the fixture when it changes and the server
// tells connected browsers to reload.
//
// For detailed documentation, see the individual package documentation.
package internal
