// Package render turns portfolio snapshots into output documents.
//
// # Formats
//
//   - [RenderJSON]: the presentation document served by the HTTP API and
//     printed by "coinstack show --format json"
//   - [RenderText]: a terminal grid with one glyph per occupied cell
//   - [RenderSVG]: a static picture of the grid using each asset's colors
//
// All renderers are pure: they read the snapshot, never the live engine, and
// are safe to call concurrently.
//
//	snap := svc.Snapshot()
//	doc, err := render.RenderJSON(snap, render.WithJSONCells())
//	fmt.Print(render.RenderText(snap.Engine, render.WithTextBorder()))
package render
