package cmd

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jonit-dev/vibe-coder-3d-sub004/manager"
	"github.com/jonit-dev/vibe-coder-3d-sub004/metrics"
	"github.com/jonit-dev/vibe-coder-3d-sub004/query"
	"github.com/olekukonko/tablewriter"
)

func newTable(buf *bytes.Buffer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	return table
}

func millis(d time.Duration) string {
	return fmt.Sprintf("%.3f ms", float64(d)/float64(time.Millisecond))
}

// Render the object index statistics of every cached mesh.
func meshStatsTable(is *indexedScene) string {
	refs := make(map[string]int)
	for _, name := range is.meshNames {
		refs[name]++
	}

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	table := newTable(&buf, "Mesh", "Instances", "Triangles", "Nodes", "Leafs", "Depth", "Tris/leaf", "Build time")
	for _, name := range names {
		index, cached := is.cache.Lookup(name)
		if !cached {
			table.Append([]string{name, fmt.Sprint(refs[name]), "dynamic", "-", "-", "-", "-", "-"})
			continue
		}
		stats := index.Stats()
		table.Append([]string{
			name,
			fmt.Sprint(refs[name]),
			fmt.Sprintf("%d / %d", index.TriangleCount(), index.InputTriangleCount()),
			fmt.Sprint(stats.Nodes),
			fmt.Sprint(stats.Leafs),
			fmt.Sprint(stats.MaxDepth),
			fmt.Sprintf("%d - %d", stats.MinLeafItems, stats.MaxLeafItems),
			millis(stats.BuildTime),
		})
	}
	table.Render()
	return buf.String()
}

// Render a metrics snapshot.
func snapshotTable(s metrics.Snapshot, opts manager.Options) string {
	var buf bytes.Buffer
	table := newTable(&buf, "Metric", "Value")
	table.AppendBulk([][]string{
		{"split strategy", opts.Split().Name()},
		{"object indices", fmt.Sprint(s.MeshIndices)},
		{"object triangles", fmt.Sprint(s.MeshTriangles)},
		{"object nodes", fmt.Sprint(s.MeshNodes)},
		{"object build time", millis(s.MeshBuildTime)},
		{"dynamic objects", fmt.Sprint(s.DynamicObjects)},
		{"scene refs", fmt.Sprint(s.SceneRefs)},
		{"scene nodes", fmt.Sprint(s.SceneNodes)},
		{"scene depth", fmt.Sprint(s.SceneDepth)},
		{"scene build time", millis(s.SceneBuildTime)},
		{"refit time", millis(s.RefitTime)},
		{"rebuilds / refits", fmt.Sprintf("%d / %d", s.Rebuilds, s.Refits)},
		{"budget overruns", fmt.Sprint(s.BudgetOverruns)},
		{"visible / culled", fmt.Sprintf("%d / %d (%.1f %%)", s.VisibleLastFrame, s.CulledLastFrame, 100*s.VisibleRatio())},
		{"raycasts", fmt.Sprint(s.RaycastsLastFrame)},
		{"candidates per ray", fmt.Sprintf("%.2f", s.CandidatesPerRay())},
		{"ray triangle tests", fmt.Sprint(s.RayTriangleTestsLastFrame)},
	})
	table.Render()
	return buf.String()
}

// Render a list of script hits.
func hitsTable(hits []query.Hit, meshNames map[uint64]string) string {
	var buf bytes.Buffer
	table := newTable(&buf, "Entity", "Mesh", "Distance", "Point", "Triangle", "Barycentric")
	for _, hit := range hits {
		table.Append([]string{
			fmt.Sprint(hit.EntityID),
			meshNames[hit.EntityID],
			fmt.Sprintf("%.4f", hit.Distance),
			fmt.Sprintf("(%.3f, %.3f, %.3f)", hit.Point[0], hit.Point[1], hit.Point[2]),
			fmt.Sprint(hit.TriangleIndex),
			fmt.Sprintf("(%.3f, %.3f, %.3f)", hit.Barycentric[0], hit.Barycentric[1], hit.Barycentric[2]),
		})
	}
	table.SetFooter([]string{"", "", "", "", "HITS", fmt.Sprint(len(hits))})
	table.Render()
	return buf.String()
}
