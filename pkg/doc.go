// Package pkg holds the coinstack libraries.
//
// Coinstack draws a crypto portfolio as shaped blocks that fall into a
// fixed-size grid and settle where they land. The packages build on each
// other roughly bottom-up:
//
//  1. [shape], [grid], [block]: masks, the occupancy matrix and the placed unit
//  2. [catalog]: which shape and how many replicas an asset holding gets
//  3. [engine]: spawning, the per-tick descent, settling, reorganizing
//  4. [prices], [ledger]: market quotes and portfolio metrics
//  5. [store]: file, Redis and MongoDB persistence of saved records
//  6. [portfolio]: the service tying engine, ledger and store together
//  7. [render], [export], [server]: JSON/text/SVG documents, workbook
//     export and the HTTP/websocket API
//
// Cross-cutting: [errors] (coded errors), [observability] (engine and store
// hooks), [config] (TOML settings) and [buildinfo].
//
// # Quick Start
//
//	eng := engine.New(engine.Config{Width: 20, Height: 30})
//	svc := portfolio.NewService(eng, nil, nil, nil, portfolio.Options{})
//	if _, err := svc.Add(ctx, "bitcoin", 0.5); err != nil {
//	    return err
//	}
//	svc.Drain()
//	fmt.Print(render.RenderText(svc.Snapshot().Engine, render.WithTextBorder()))
//
// [shape]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/shape
// [grid]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/grid
// [block]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/block
// [catalog]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/catalog
// [engine]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/engine
// [prices]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/prices
// [ledger]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/ledger
// [store]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/store
// [portfolio]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/portfolio
// [render]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/render
// [export]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/export
// [server]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/server
// [errors]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/observability
// [config]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/config
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/coinstack/pkg/buildinfo
package pkg
