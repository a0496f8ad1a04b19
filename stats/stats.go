// Package stats exports training results as ';' separated CSV files and charts.
package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zeu5/snake-rl/types"
	"github.com/zeu5/snake-rl/util"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const Delimiter = ';'

var Header = []string{"cycle", "steps", "score", "wins", "loses", "starves"}

// Row summarizes one world, or all worlds, of a cycle
type Row struct {
	Cycle   int
	Steps   float64
	Score   float64
	Wins    float64
	Loses   float64
	Starves float64
}

func (r Row) record() []string {
	f := func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return []string{strconv.Itoa(r.Cycle), f(r.Steps), f(r.Score), f(r.Wins), f(r.Loses), f(r.Starves)}
}

// WorldRow summarizes the results of one world in a cycle
func WorldRow(cycle int, r types.Results) Row {
	return Row{
		Cycle:   cycle,
		Steps:   r.MeanSteps(),
		Score:   r.MeanScore(),
		Wins:    float64(r.Wins),
		Loses:   float64(r.Loses),
		Starves: float64(r.Starves),
	}
}

// CycleRow averages the results of every world of a cycle
func CycleRow(cycle int, results []types.Results) Row {
	n := len(results)
	steps, scores := make([]float64, n), make([]float64, n)
	wins, loses, starves := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, r := range results {
		steps[i] = r.MeanSteps()
		scores[i] = r.MeanScore()
		wins[i] = float64(r.Wins)
		loses[i] = float64(r.Loses)
		starves[i] = float64(r.Starves)
	}
	row := Row{Cycle: cycle}
	if n == 0 {
		return row
	}
	row.Steps = stat.Mean(steps, nil)
	row.Score = stat.Mean(scores, nil)
	row.Wins = stat.Mean(wins, nil)
	row.Loses = stat.Mean(loses, nil)
	row.Starves = stat.Mean(starves, nil)
	return row
}

// Append adds a row to the CSV file at path, writing the header first when the file is new
func Append(path string, row Row) error {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	lines := make([]string, 0, 2)
	if util.IsEmptyFile(path) {
		lines = append(lines, encode(Header))
	}
	lines = append(lines, encode(row.record()))
	return util.AppendToFile(path, lines...)
}

func encode(record []string) string {
	b := &strings.Builder{}
	w := csv.NewWriter(b)
	w.Comma = Delimiter
	w.Write(record)
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// ReadRows parses a file written by Append
func ReadRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = Delimiter
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		if i == 0 && rec[0] == Header[0] {
			continue
		}
		if len(rec) != len(Header) {
			return nil, fmt.Errorf("%s line %d: expected %d fields, got %d", path, i+1, len(Header), len(rec))
		}
		row := Row{}
		if row.Cycle, err = strconv.Atoi(rec[0]); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		for j, dst := range []*float64{&row.Steps, &row.Score, &row.Wins, &row.Loses, &row.Starves} {
			if *dst, err = strconv.ParseFloat(rec[j+1], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// PlotCycles charts the mean score and steps of every cycle into a PNG
func PlotCycles(title string, rows []Row, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Cycle"
	p.Y.Label.Text = "Mean per episode"

	series := []struct {
		name  string
		value func(Row) float64
	}{
		{"score", func(r Row) float64 { return r.Score }},
		{"steps", func(r Row) float64 { return r.Steps }},
	}
	for i, s := range series {
		points := make(plotter.XYs, len(rows))
		for j, r := range rows {
			points[j] = plotter.XY{
				X: float64(r.Cycle),
				Y: s.value(r),
			}
		}
		line, err := plotter.NewLine(points)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 8*vg.Inch, path)
}
