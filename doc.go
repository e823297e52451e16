// Package toposplit partitions a nationwide TopoJSON topology of counties
// into one self-contained topology per state.
//
// # Overview
//
// A TopoJSON topology stores every boundary segment once in a shared arcs
// array; geometries reference arcs by index, and a negative reference walks
// the arc backwards. Splitting therefore cannot copy geometries alone: each
// state file must carry the arcs its counties reference, renumbered densely
// from zero, with every reference rewritten to the new numbering.
//
// A run has four stages:
//
//  1. Group: counties are bucketed by the first two digits of their
//     zero-padded FIPS id. Unknown codes are logged and skipped; counties
//     without an id are dropped.
//  2. Collect: the arc references of every county are gathered into roaring
//     bitmaps and unioned per state.
//  3. Remap: the sorted union defines the new numbering. Each county is
//     cloned and its references rewritten, keeping their direction.
//  4. Emit: a state document with the nationwide transform, one geometry
//     collection and the restricted arcs is encoded and written to
//     <State_Name>.json.
//
// # Quick Start
//
//	toposplit split --input counties-10m.json --output state_topojsons
//
// Inputs ending in .gz, .zst, .sz, .s2 or .lz4 are decompressed on load.
// States can be selected with an expression:
//
//	toposplit split --filter 'code in ["17", "19"]' --compression zstd
//
// The reorder command moves geometries with the given id prefixes to the end
// of the collection, so they draw on top:
//
//	toposplit reorder --prefix 17 --prefix 19 --output counties-reordered.json
//
// # Configuration
//
// Settings are layered: defaults, toposplit.yaml (with ${VAR} substitution),
// TOPOSPLIT_* environment variables (a .env file is loaded first), and
// command-line flags. `toposplit config init` writes the defaults.
//
// # Packages
//
//   - internal/partition: the four stages and the run orchestration
//   - pkg/topology: the document model and arc reference encodings
//   - pkg/states: the FIPS code table
//   - pkg/source, pkg/mmap, pkg/compression: input loading
//   - pkg/sink: output storage
//   - pkg/config, pkg/logger, pkg/errors, pkg/metrics, pkg/observability:
//     the ambient stack
package toposplit
