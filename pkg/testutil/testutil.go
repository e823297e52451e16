// Package testutil provides testing utilities for toposplit
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/toposplit/pkg/topology"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// ObservedLogger creates a logger whose entries at level or above are
// captured for assertions.
func ObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

// County is one geometry of a fixture topology. ID and Arcs are raw JSON
// literals; an empty ID omits the member.
type County struct {
	ID         string
	Type       string
	Arcs       string
	Properties string
}

// ArcEntry returns a coordinate payload unique to index i
func ArcEntry(i int) string {
	return fmt.Sprintf("[[%d,0],[%d,1]]", i, i)
}

// TopologyJSON renders a nationwide topology holding counties under the
// "counties" object and arcCount distinct arcs.
func TopologyJSON(arcCount int, counties ...County) string {
	geometries := make([]string, 0, len(counties))
	for _, c := range counties {
		typ := c.Type
		if typ == "" {
			typ = "Polygon"
		}
		members := []string{fmt.Sprintf(`"type":%q`, typ)}
		if c.ID != "" {
			members = append(members, `"id":`+c.ID)
		}
		if c.Arcs != "" {
			members = append(members, `"arcs":`+c.Arcs)
		}
		if c.Properties != "" {
			members = append(members, `"properties":`+c.Properties)
		}
		geometries = append(geometries, "{"+strings.Join(members, ",")+"}")
	}

	arcs := make([]string, arcCount)
	for i := range arcs {
		arcs[i] = ArcEntry(i)
	}

	return `{"type":"Topology",` +
		`"transform":{"scale":[0.001,0.001],"translate":[-180,18]},` +
		`"objects":{"counties":{"type":"GeometryCollection","geometries":[` + strings.Join(geometries, ",") + `]}},` +
		`"arcs":[` + strings.Join(arcs, ",") + `]}`
}

// Topology decodes TopologyJSON(arcCount, counties...)
func Topology(t *testing.T, arcCount int, counties ...County) *topology.Document {
	t.Helper()
	doc, err := topology.Decode([]byte(TopologyJSON(arcCount, counties...)))
	require.NoError(t, err)
	return doc
}
