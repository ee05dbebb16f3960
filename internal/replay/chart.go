package replay

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/itsWihy/TryGoneRobotTemplate/internal/poselog"
)

// WriteTrajectoryChart renders an HTML chart overlaying the recorded
// and replayed XY trajectories.
func (r *Report) WriteTrajectoryChart(w io.Writer) error {
	recorded := scatterData(r.Recorded)
	replayed := scatterData(r.Replayed)

	pad := math.Max(trajectoryPad(r.Recorded), trajectoryPad(r.Replayed))

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pose Replay", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Recorded vs replayed trajectory",
			Subtitle: fmt.Sprintf("session=%s %s", r.Session.ID, r.Metrics),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	scatter.AddSeries("recorded", recorded, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("replayed", replayed, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	return scatter.Render(w)
}

// WriteTrajectoryChartFile renders the trajectory chart to a file.
func (r *Report) WriteTrajectoryChartFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.WriteTrajectoryChart(f)
}

func scatterData(records []poselog.EstimateRecord) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(records))
	for _, r := range records {
		data = append(data, opts.ScatterData{Value: []interface{}{r.Pose.X, r.Pose.Y}})
	}
	return data
}

func trajectoryPad(records []poselog.EstimateRecord) float64 {
	maxAbs := 0.0
	for _, r := range records {
		if math.Abs(r.Pose.X) > maxAbs {
			maxAbs = math.Abs(r.Pose.X)
		}
		if math.Abs(r.Pose.Y) > maxAbs {
			maxAbs = math.Abs(r.Pose.Y)
		}
	}

	// Pad so edge points stay visible.
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	return pad
}
