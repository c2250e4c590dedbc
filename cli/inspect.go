package cli

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/mo"
	"github.com/urfave/cli/v2"

	"github.com/viam-labs/depthoverlay/rimage"
	"github.com/viam-labs/depthoverlay/rimage/auxdepth"
)

// InspectAction lists the auxiliary depth entries of an image and summarizes the one the
// importer would use.
func InspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errorf("inspect takes exactly one image")
	}
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	src := c.Args().First()
	entries, err := auxdepth.NewExtractor(s.logger).Entries(c.Context, src)
	if err != nil {
		return errorf("%v", err)
	}
	if len(entries) == 0 {
		infof(c.App.Writer, "%s has no auxiliary depth", src)
		return nil
	}

	preferred := auxdepth.Preferred(entries).MustGet()
	printf(c.App.Writer, "%s", entriesTable(entries, preferred.Index))

	dm, ok := rimage.ToDepthMap(preferred.Sample).Get()
	if !ok {
		return nil
	}
	stats, err := dm.Stats()
	if err != nil {
		warningf(c.App.Writer, "entry %d: %v", preferred.Index, err)
		return nil
	}
	printf(c.App.Writer, "%s", statsTable(stats))
	return nil
}

func entriesTable(entries []auxdepth.Entry, preferred int) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Source", "Kind", "Encoding", "Size", "Stored", "Range", "Used"})
	for _, e := range entries {
		used := ""
		if e.Index == preferred {
			used = "*"
		}
		t.AppendRow(table.Row{
			e.Index,
			e.Source,
			e.Kind(),
			e.Sample.Encoding(),
			fmt.Sprintf("%dx%d", e.Sample.Width(), e.Sample.Height()),
			units.HumanSize(float64(e.EncodedSize)),
			formatRange(e.Sample.Range()),
			used,
		})
	}
	return t.Render()
}

func formatRange(rng mo.Option[rimage.DepthRange]) string {
	r, ok := rng.Get()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.3g..%.3g", r.Near, r.Far)
}

func statsTable(stats rimage.DepthStats) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Valid", "Missing", "Min", "P5", "Median", "Mean", "P95", "Max"})
	t.AppendRow(table.Row{
		stats.Valid,
		stats.Missing,
		fmt.Sprintf("%.3f", stats.Min),
		fmt.Sprintf("%.3f", stats.P5),
		fmt.Sprintf("%.3f", stats.Median),
		fmt.Sprintf("%.3f", stats.Mean),
		fmt.Sprintf("%.3f", stats.P95),
		fmt.Sprintf("%.3f", stats.Max),
	})
	return t.Render()
}
