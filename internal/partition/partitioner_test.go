package partition

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ajitpratap0/toposplit/pkg/errors"
	"github.com/ajitpratap0/toposplit/pkg/json"
	"github.com/ajitpratap0/toposplit/pkg/metrics"
	"github.com/ajitpratap0/toposplit/pkg/sink"
	"github.com/ajitpratap0/toposplit/pkg/states"
	"github.com/ajitpratap0/toposplit/pkg/testutil"
	"github.com/ajitpratap0/toposplit/pkg/topology"
)

// mixedCounties covers every geometry shape, numeric and string ids, an
// unknown state and both kinds of missing id.
func mixedCounties() []testutil.County {
	return []testutil.County{
		{ID: `"01001"`, Arcs: `[[0,1,-2]]`, Properties: `{"n":0}`},
		{ID: `"17031"`, Type: "MultiPolygon", Arcs: `[[[4,-6]],[[7]]]`, Properties: `{"n":1}`},
		{ID: `1003`, Arcs: `[[2,3]]`, Properties: `{"n":2}`},
		{ID: `"06037"`, Type: "LineString", Arcs: `[8,-9]`, Properties: `{"n":3}`},
		{ID: `"17043"`, Arcs: `[[6],[5,-7]]`, Properties: `{"n":4}`},
		{ID: `"99001"`, Arcs: `[[10]]`, Properties: `{"n":5}`},
		{Arcs: `[[11]]`, Properties: `{"n":6}`},
		{ID: `null`, Arcs: `[[11]]`, Properties: `{"n":7}`},
	}
}

func run(t *testing.T, doc *topology.Document, opts Options) (*Summary, *sink.Memory) {
	t.Helper()
	mem := sink.NewMemory()
	summary, err := New(mem, opts, testutil.TestLogger(t), nil).Run(context.Background(), doc)
	require.NoError(t, err)
	return summary, mem
}

func output(t *testing.T, mem *sink.Memory, name string) (*topology.Document, *topology.GeometryCollection) {
	t.Helper()
	data, ok := mem.Get(name)
	require.True(t, ok, "missing output %s", name)

	doc, err := topology.Decode(data)
	require.NoError(t, err)
	c, err := doc.Collection("counties")
	require.NoError(t, err)
	for i := range c.Geometries {
		require.NoError(t, c.Geometries[i].ResolveArcs())
	}
	return doc, c
}

func sourceByID(t *testing.T, doc *topology.Document) map[string]topology.Geometry {
	t.Helper()
	c, err := doc.Collection("counties")
	require.NoError(t, err)

	byID := make(map[string]topology.Geometry)
	for i := range c.Geometries {
		g := &c.Geometries[i]
		if g.HasID() {
			require.NoError(t, g.ResolveArcs())
			byID[g.ID.String()] = *g
		}
	}
	return byID
}

// lockstep walks two trees of the same shape and calls fn on each pair of
// references.
func lockstep(t *testing.T, src, dst topology.ArcTree, fn func(v, w int)) {
	t.Helper()
	require.Equal(t, src.IsRing(), dst.IsRing())
	require.Equal(t, src.Len(), dst.Len())
	if src.IsRing() {
		for i := range src.Refs() {
			fn(src.Refs()[i], dst.Refs()[i])
		}
		return
	}
	for i := range src.Children() {
		lockstep(t, src.Children()[i], dst.Children()[i], fn)
	}
}

func TestGroupingCompleteness(t *testing.T) {
	doc := testutil.Topology(t, 12, mixedCounties()...)
	_, mem := run(t, doc, DefaultOptions())

	assert.Equal(t, []string{"Alabama.json", "California.json", "Illinois.json"}, mem.Names())

	seen := make(map[string]string)
	for _, name := range mem.Names() {
		_, c := output(t, mem, name)
		for _, g := range c.Geometries {
			id := g.ID.String()
			_, dup := seen[id]
			require.False(t, dup, "%s emitted twice", id)
			seen[id] = name

			s, _, ok := states.ForID(id)
			require.True(t, ok)
			assert.Equal(t, s.FileStem()+".json", name, id)
		}
	}

	assert.Len(t, seen, 5)
	for _, id := range []string{"01001", "17031", "1003", "06037", "17043"} {
		assert.Contains(t, seen, id)
	}
}

func TestReferenceClosureSignsDensityAndShape(t *testing.T) {
	doc := testutil.Topology(t, 12, mixedCounties()...)
	_, mem := run(t, doc, DefaultOptions())
	sources := sourceByID(t, doc)

	for _, name := range mem.Names() {
		out, c := output(t, mem, name)

		used := make(map[int]bool)
		oldForNew := make(map[int]int)
		for _, g := range c.Geometries {
			src := sources[g.ID.String()]
			require.NotNil(t, g.Arcs)

			lockstep(t, *src.Arcs, *g.Arcs, func(v, w int) {
				oldIndex, oldRev := topology.Signed.Decode(v)
				newIndex, newRev := topology.Signed.Decode(w)

				require.Less(t, newIndex, len(out.Arcs), "reference closure in %s", name)
				assert.Equal(t, oldRev, newRev, "sign of %d in %s", v, name)
				assert.JSONEq(t, testutil.ArcEntry(oldIndex), string(out.Arcs[newIndex]))

				if prev, ok := oldForNew[newIndex]; ok {
					assert.Equal(t, prev, oldIndex, "new index %d maps back to one old index", newIndex)
				}
				oldForNew[newIndex] = oldIndex
				used[newIndex] = true
			})
		}

		for i := 0; i < len(out.Arcs); i++ {
			assert.True(t, used[i], "index %d of %s is unused", i, name)
		}
		assert.Len(t, used, len(out.Arcs))
	}
}

func TestRoundTripSample(t *testing.T) {
	doc := testutil.Topology(t, 4,
		testutil.County{ID: `"01001"`, Arcs: `[[0,1,-2]]`},
		testutil.County{ID: `"01003"`, Arcs: `[[1,3]]`},
	)
	summary, mem := run(t, doc, DefaultOptions())

	require.Len(t, summary.States, 1)
	assert.Equal(t, "01", summary.States[0].Code)
	assert.Equal(t, 2, summary.States[0].Geometries)
	assert.Equal(t, 4, summary.States[0].Arcs)

	data, ok := mem.Get("Alabama.json")
	require.True(t, ok)
	assert.Equal(t,
		`{"type":"Topology","transform":{"scale":[0.001,0.001],"translate":[-180,18]},`+
			`"objects":{"counties":{"type":"GeometryCollection","geometries":[`+
			`{"type":"Polygon","id":"01001","arcs":[[0,1,-2]]},`+
			`{"type":"Polygon","id":"01003","arcs":[[1,3]]}]}},`+
			`"arcs":[[[0,0],[0,1]],[[1,0],[1,1]],[[2,0],[2,1]],[[3,0],[3,1]]]}`,
		string(data))
}

func TestNonIdentityRemap(t *testing.T) {
	doc := testutil.Topology(t, 10,
		testutil.County{ID: `"17031"`, Arcs: `[[-5,2],[9]]`},
	)
	_, mem := run(t, doc, DefaultOptions())

	out, c := output(t, mem, "Illinois.json")
	require.Len(t, out.Arcs, 3)
	assert.JSONEq(t, testutil.ArcEntry(2), string(out.Arcs[0]))
	assert.JSONEq(t, testutil.ArcEntry(5), string(out.Arcs[1]))
	assert.JSONEq(t, testutil.ArcEntry(9), string(out.Arcs[2]))

	arcs, err := c.Geometries[0].Arcs.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `[[-1,0],[2]]`, string(arcs))
}

func TestUnknownKeyWarnsAndMissingIDIsSilent(t *testing.T) {
	doc := testutil.Topology(t, 12, mixedCounties()...)

	log, logs := testutil.ObservedLogger(zap.WarnLevel)
	mem := sink.NewMemory()
	summary, err := New(mem, DefaultOptions(), log, nil).Run(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Excluded)
	assert.Equal(t, 5, summary.Grouped)
	assert.Equal(t, 8, summary.Geometries)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "99001", logs.All()[0].ContextMap()["id"])

	for _, name := range mem.Names() {
		data, _ := mem.Get(name)
		assert.NotContains(t, string(data), `"99001"`)
		assert.NotContains(t, string(data), `"n":5`)
		assert.NotContains(t, string(data), `"n":6`)
		assert.NotContains(t, string(data), `"n":7`)
	}

	_, c := output(t, mem, "Alabama.json")
	assert.Len(t, c.Geometries, 2, "other records unaffected")
}

func TestDuplicateIDsKeepBothRecords(t *testing.T) {
	doc := testutil.Topology(t, 4,
		testutil.County{ID: `"01001"`, Arcs: `[[3]]`},
		testutil.County{ID: `"01001"`, Arcs: `[[1]]`},
	)
	_, mem := run(t, doc, DefaultOptions())

	out, c := output(t, mem, "Alabama.json")
	require.Len(t, c.Geometries, 2)
	assert.Len(t, out.Arcs, 2)
	assert.Equal(t, []int{1}, c.Geometries[0].Arcs.Children()[0].Refs())
	assert.Equal(t, []int{0}, c.Geometries[1].Arcs.Children()[0].Refs())
}

func TestWorkersProduceIdenticalOutput(t *testing.T) {
	counties := mixedCounties()
	for i, code := range []string{"04", "05", "08", "09", "10", "11", "12", "13"} {
		counties = append(counties, testutil.County{
			ID:   `"` + code + `001"`,
			Arcs: `[[` + string(rune('0'+i)) + `,-11]]`,
		})
	}
	doc := testutil.Topology(t, 12, counties...)

	first, firstMem := run(t, doc, DefaultOptions())

	opts := DefaultOptions()
	opts.Workers = 4
	second, secondMem := run(t, doc, opts)

	require.Equal(t, firstMem.Names(), secondMem.Names())
	for _, name := range firstMem.Names() {
		a, _ := firstMem.Get(name)
		b, _ := secondMem.Get(name)
		assert.Equal(t, string(a), string(b), name)
	}

	require.Len(t, second.States, len(first.States))
	for i := range first.States {
		assert.Equal(t, first.States[i].Code, second.States[i].Code, "emission order")
	}
}

func TestFilterRestrictsStates(t *testing.T) {
	doc := testutil.Topology(t, 12, mixedCounties()...)

	f, err := CompileFilter(`code == "17"`)
	require.NoError(t, err)
	opts := DefaultOptions()
	opts.Filter = f

	collector := metrics.NewCollector("toposplit")
	mem := sink.NewMemory()
	summary, err := New(mem, opts, nil, collector).Run(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"Illinois.json"}, mem.Names())
	assert.Equal(t, 2, summary.Filtered)
	assert.Equal(t, int64(len(mustGet(t, mem, "Illinois.json"))), summary.BytesWritten())
}

func mustGet(t *testing.T, mem *sink.Memory, name string) []byte {
	t.Helper()
	data, ok := mem.Get(name)
	require.True(t, ok)
	return data
}

func TestComplementEncoding(t *testing.T) {
	doc := testutil.Topology(t, 6,
		testutil.County{ID: `"01001"`, Arcs: `[[-4,5]]`},
	)
	opts := DefaultOptions()
	opts.Encoding = topology.Complement
	_, mem := run(t, doc, opts)

	out, c := output(t, mem, "Alabama.json")
	require.Len(t, out.Arcs, 2)
	assert.JSONEq(t, testutil.ArcEntry(3), string(out.Arcs[0]))
	assert.Equal(t, []int{-1, 1}, c.Geometries[0].Arcs.Children()[0].Refs())
}

func TestIndentAndCustomObject(t *testing.T) {
	raw := strings.Replace(testutil.TopologyJSON(2, testutil.County{ID: `"56001"`, Arcs: `[[1]]`}), `"counties":`, `"tracts":`, 1)
	doc, err := topology.Decode([]byte(raw))
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Object = "tracts"
	opts.Indent = "  "
	_, mem := run(t, doc, opts)

	data := mustGet(t, mem, "Wyoming.json")
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"type\": \"Topology\""))

	out, err := topology.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"tracts"}, out.ObjectNames())
}

func TestTransformOmittedWhenAbsent(t *testing.T) {
	doc, err := topology.Decode([]byte(`{"type":"Topology","objects":{"counties":{"type":"GeometryCollection",` +
		`"geometries":[{"type":"Polygon","id":"50001","arcs":[[0]]}]}},"arcs":[[[0,0],[1,1]]],"bbox":[0,0,1,1]}`))
	require.NoError(t, err)

	_, mem := run(t, doc, DefaultOptions())
	assert.Equal(t,
		`{"type":"Topology","objects":{"counties":{"type":"GeometryCollection","geometries":[`+
			`{"type":"Polygon","id":"50001","arcs":[[0]]}]}},"arcs":[[[0,0],[1,1]]]}`,
		string(mustGet(t, mem, "Vermont.json")))
}

func TestInputIsNotModified(t *testing.T) {
	doc := testutil.Topology(t, 12, mixedCounties()...)
	before, err := json.Marshal(doc)
	require.NoError(t, err)

	run(t, doc, DefaultOptions())

	after, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestRunErrors(t *testing.T) {
	t.Run("arc index out of range", func(t *testing.T) {
		doc := testutil.Topology(t, 4,
			testutil.County{ID: `"01001"`, Arcs: `[[0,1]]`},
			testutil.County{ID: `"17001"`, Arcs: `[[0,-7]]`},
		)
		mem := sink.NewMemory()
		_, err := New(mem, DefaultOptions(), nil, nil).Run(context.Background(), doc)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeData))
		assert.Zero(t, mem.Len(), "nothing is written before the check")
	})

	t.Run("missing object", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Object = "tracts"
		_, err := New(sink.NewMemory(), opts, nil, nil).Run(context.Background(), testutil.Topology(t, 1))
		assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		doc := testutil.Topology(t, 12, mixedCounties()...)
		_, err := New(sink.NewMemory(), DefaultOptions(), nil, nil).Run(ctx, doc)
		assert.True(t, errors.IsType(err, errors.ErrorTypeCanceled))
	})

	t.Run("sink failure stops the run", func(t *testing.T) {
		doc := testutil.Topology(t, 12, mixedCounties()...)
		opts := DefaultOptions()
		opts.Workers = 2
		_, err := New(failingSink{}, opts, nil, nil).Run(context.Background(), doc)
		assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
	})
}

type failingSink struct{}

func (failingSink) Put(context.Context, string, []byte) (sink.Object, error) {
	return sink.Object{}, errors.New(errors.ErrorTypeFile, "disk full")
}

func TestUngroupedRecordsAreNotInspected(t *testing.T) {
	doc := testutil.Topology(t, 2,
		testutil.County{ID: `"01001"`, Arcs: `[[0,1]]`},
		testutil.County{ID: `"99001"`, Arcs: `[[1.5]]`},
		testutil.County{Arcs: `[[0,"x"]]`},
	)

	log, logs := testutil.ObservedLogger(zap.WarnLevel)
	mem := sink.NewMemory()
	summary, err := New(mem, DefaultOptions(), log, nil).Run(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Excluded)
	assert.Equal(t, []string{"Alabama.json"}, mem.Names())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "99001", logs.All()[0].ContextMap()["id"])

	out, c := output(t, mem, "Alabama.json")
	assert.Len(t, out.Arcs, 2)
	assert.Equal(t, []int{0, 1}, c.Geometries[0].Arcs.Children()[0].Refs())
}

func TestMalformedArcsOnGroupedRecordIsFatal(t *testing.T) {
	doc := testutil.Topology(t, 2,
		testutil.County{ID: `"01001"`, Arcs: `[[0,1]]`},
		testutil.County{ID: `"17031"`, Arcs: `[[0,1.5]]`},
	)

	mem := sink.NewMemory()
	_, err := New(mem, DefaultOptions(), nil, nil).Run(context.Background(), doc)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Contains(t, err.Error(), "id=17031")
	assert.Zero(t, mem.Len(), "nothing is written before the check")
}
