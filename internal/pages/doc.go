// Package pages renders the site's HTML pages.
//
// Templates, the instructions Markdown, the model catalog and the static
// assets are embedded in the binary. Each page is parsed together with
// layout.html once, in New; rendering afterwards only reads shared state.
package pages
