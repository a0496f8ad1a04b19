package experiment

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/zeu5/snake-rl/policies"
	"github.com/zeu5/snake-rl/snake"
	"github.com/zeu5/snake-rl/storage"
	"github.com/zeu5/snake-rl/types"
	"golang.org/x/exp/rand"
)

const smallWorld = `{"size": 5, "data": [[1,1,1,1,1],[1,0,0,0,1],[1,0,0,0,1],[1,0,0,0,1],[1,1,1,1,1]], "snake": {"position": [1, 1], "direction": [1, 0], "length": 2}}`

func newTestSession(training bool, config *SessionConfig) (*Session, *policies.SingleTable) {
	rng := rand.New(rand.NewSource(11))
	table, err := policies.NewSingleTable(storage.NewDictAdapter(), snake.Actions, rng)
	So(err, ShouldBeNil)
	learning, discount := 0.75, 0.9
	if !training {
		learning, discount = 0, 0
	}
	agent, err := policies.NewAgent(learning, discount, table, rng)
	So(err, ShouldBeNil)

	for _, name := range []string{"first", "second"} {
		w, err := snake.ParseWorld(name, []byte(smallWorld))
		So(err, ShouldBeNil)
		config.Worlds = append(config.Worlds, WorldRun{World: w, Episodes: 5})
	}
	config.Training = training
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSession(config, agent, &snake.DefaultReward{}, rng, logger), table
}

func lines(t *testing.T, path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	Convey("Given a training session over two worlds", t, func() {
		dir := t.TempDir()
		session, table := newTestSession(true, &SessionConfig{
			Name:       "test",
			Cycles:     2,
			Epsilon:    types.LinearEpsilon,
			MemoryPath: filepath.Join(dir, "memories", "test.json"),
			StatsDir:   filepath.Join(dir, "stats"),
			Plot:       true,
		})

		Convey("A missing memory starts a fresh table", func() {
			So(session.LoadMemory(ctx), ShouldBeNil)
		})

		Convey("Running exports statistics and saves the memory", func() {
			summary, err := session.Run(ctx)
			So(err, ShouldBeNil)
			So(summary.Aborted, ShouldBeFalse)
			So(summary.Cycles, ShouldEqual, 2)
			So(summary.Episodes, ShouldEqual, 20)
			So(summary.Wins+summary.Loses+summary.Starves, ShouldEqual, 20)
			So(summary.Rows, ShouldHaveLength, 2)

			So(lines(t, filepath.Join(dir, "stats", "first.csv")), ShouldHaveLength, 3)
			So(lines(t, filepath.Join(dir, "stats", "second.csv")), ShouldHaveLength, 3)
			results := lines(t, filepath.Join(dir, "stats", "results.csv"))
			So(results, ShouldHaveLength, 3)
			So(results[0], ShouldEqual, "cycle;steps;score;wins;loses;starves")
			_, err = os.Stat(filepath.Join(dir, "stats", "results.png"))
			So(err, ShouldBeNil)

			Convey("and the saved memory can be loaded back", func() {
				fresh, err := policies.NewSingleTable(storage.NewDictAdapter(), snake.Actions, rand.New(rand.NewSource(1)))
				So(err, ShouldBeNil)
				So(fresh.Load(ctx, filepath.Join(dir, "memories", "test.json")), ShouldBeNil)

				want, _ := table.States(ctx)
				got, _ := fresh.States(ctx)
				So(got, ShouldResemble, want)
			})
		})

		Convey("An interrupted session still saves the memory", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			summary, err := session.Run(cancelled)
			So(err, ShouldBeNil)
			So(summary.Aborted, ShouldBeTrue)
			So(summary.Cycles, ShouldEqual, 0)
			_, err = os.Stat(filepath.Join(dir, "memories", "test.json"))
			So(err, ShouldBeNil)
		})
	})

	Convey("Given an evaluation session", t, func() {
		dir := t.TempDir()
		session, table := newTestSession(false, &SessionConfig{
			Name:       "eval",
			Cycles:     1,
			Epsilon:    types.ConstantEpsilon(0),
			MemoryPath: filepath.Join(dir, "missing.json"),
		})

		Convey("A missing memory is an error", func() {
			err := session.LoadMemory(ctx)
			So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
		})

		Convey("Playing leaves the memory untouched", func() {
			summary, err := session.Run(ctx)
			So(err, ShouldBeNil)
			So(summary.Episodes, ShouldEqual, 10)
			states, _ := table.States(ctx)
			So(states, ShouldBeEmpty)
			_, err = os.Stat(filepath.Join(dir, "missing.json"))
			So(os.IsNotExist(err), ShouldBeTrue)
		})
	})
}

func TestTerminalPrinter(t *testing.T) {
	Convey("The printer writes the latest output when stopped", t, func() {
		out := &bytes.Buffer{}
		output := NewOutput()
		printer := NewTerminalPrinter(output, out, time.Hour)
		printer.Start(context.Background())
		output.Set("Cycle: 1")
		printer.Stop()
		So(out.String(), ShouldContainSubstring, "Cycle: 1")
	})
}
