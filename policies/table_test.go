package policies

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/zeu5/snake-rl/storage"
	"github.com/zeu5/snake-rl/types"
	"golang.org/x/exp/rand"
)

var testActions = types.ActionSet{
	types.NewAction(-1, "Turn Left"),
	types.NewAction(0, "Go Forward"),
	types.NewAction(1, "Turn Right"),
}

func testState(kind int) types.State {
	return types.NewState(types.Component{Kind: kind, Distance: 1}, types.Component{Kind: 45, Distance: 2})
}

func newSingle(seed uint64) *SingleTable {
	table, err := NewSingleTable(storage.NewDictAdapter(), testActions, rand.New(rand.NewSource(seed)))
	if err != nil {
		panic(err)
	}
	return table
}

// replaceOnlyAdapter fails if the table asks it to read a snapshot file itself
type replaceOnlyAdapter struct {
	*storage.DictAdapter
}

func (r *replaceOnlyAdapter) Load(context.Context, string) error {
	return errors.New("snapshot read twice")
}

func weightOf(ctx context.Context, table *SingleTable, state types.State, action types.Action) types.Weight {
	w, ok, err := storage.Weight(ctx, table.Adapter(), state, action)
	So(err, ShouldBeNil)
	So(ok, ShouldBeTrue)
	return w
}

func dec(v string) types.Weight {
	return decimal.RequireFromString(v)
}

func TestSingleTable(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty single table", t, func() {
		table := newSingle(1)
		s := testState(4)

		Convey("An unseen state is unknown and greedy returns the undefined action", func() {
			ok, err := table.Exists(ctx, s)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			action, w, err := table.Greedy(ctx, s)
			So(err, ShouldBeNil)
			So(action.Defined(), ShouldBeFalse)
			So(w.Equal(types.DefaultWeight), ShouldBeTrue)

			keys, _ := table.Adapter().Keys(ctx)
			So(keys, ShouldBeEmpty)
		})

		Convey("Choosing on an unseen state does not initialize it", func() {
			action, err := table.Choose(ctx, s)
			So(err, ShouldBeNil)
			_, found := testActions.Find(action.Value)
			So(found, ShouldBeTrue)

			ok, _ := table.Exists(ctx, s)
			So(ok, ShouldBeFalse)
		})

		Convey("Initializing a state sets every action to 1", func() {
			So(table.InitializeState(ctx, s), ShouldBeNil)
			ok, _ := table.Exists(ctx, s)
			So(ok, ShouldBeTrue)
			for _, a := range testActions {
				So(weightOf(ctx, table, s, a).Equal(decimal.NewFromInt(1)), ShouldBeTrue)
			}
		})

		Convey("Greedy breaks ties by action order", func() {
			So(table.InitializeState(ctx, s), ShouldBeNil)
			action, _, err := table.Greedy(ctx, s)
			So(err, ShouldBeNil)
			So(action.Value, ShouldEqual, -1)

			So(storage.SetWeight(ctx, table.Adapter(), s, testActions[2], dec("3")), ShouldBeNil)
			So(storage.SetWeight(ctx, table.Adapter(), s, testActions[1], dec("3")), ShouldBeNil)
			action, w, _ := table.Greedy(ctx, s)
			So(action.Value, ShouldEqual, 0)
			So(w.Equal(dec("3")), ShouldBeTrue)
		})

		Convey("An update with learning rate 0 keeps the weight", func() {
			tr := types.NewTransition(s, testActions[1], dec("-10"), testState(2), false)
			So(table.Update(ctx, tr, decimal.Zero, dec("0.9")), ShouldBeNil)
			So(weightOf(ctx, table, s, testActions[1]).Equal(decimal.NewFromInt(1)), ShouldBeTrue)
		})

		Convey("An update with learning rate 1 discards the prior value", func() {
			next := testState(2)
			So(table.InitializeState(ctx, next), ShouldBeNil)
			So(storage.SetWeight(ctx, table.Adapter(), next, testActions[0], dec("4")), ShouldBeNil)

			tr := types.NewTransition(s, testActions[2], dec("5"), next, false)
			So(table.Update(ctx, tr, decimal.NewFromInt(1), dec("0.9")), ShouldBeNil)
			So(weightOf(ctx, table, s, testActions[2]).Equal(dec("8.6")), ShouldBeTrue)
		})

		Convey("Unknown successor states bootstrap with 1 and stay unknown", func() {
			next := testState(1)
			tr := types.NewTransition(s, testActions[0], decimal.Zero, next, false)
			So(table.Update(ctx, tr, dec("0.5"), dec("0.9")), ShouldBeNil)
			// 0.5*1 + 0.5*(0 + 0.9*1)
			So(weightOf(ctx, table, s, testActions[0]).Equal(dec("0.95")), ShouldBeTrue)

			ok, _ := table.Exists(ctx, next)
			So(ok, ShouldBeFalse)
		})

		Convey("Terminal transitions do not bootstrap", func() {
			tr := types.NewTransition(s, testActions[1], dec("10"), testState(2), true)
			So(table.Update(ctx, tr, decimal.NewFromInt(1), dec("0.9")), ShouldBeNil)
			So(weightOf(ctx, table, s, testActions[1]).Equal(dec("10")), ShouldBeTrue)
		})

		Convey("Updated weights are rounded to the table precision", func() {
			reward := dec("0.12345678901234567891")
			tr := types.NewTransition(s, testActions[0], reward, testState(2), true)
			one := decimal.NewFromInt(1)

			So(table.Update(ctx, tr, one, dec("0.9")), ShouldBeNil)
			So(weightOf(ctx, table, s, testActions[0]).Equal(dec("0.1234567890123457")), ShouldBeTrue)

			table.SetPrecision(2)
			So(table.Update(ctx, tr, one, dec("0.9")), ShouldBeNil)
			So(weightOf(ctx, table, s, testActions[0]).Equal(dec("0.12")), ShouldBeTrue)

			table.SetPrecision(-1)
			So(table.Update(ctx, tr, one, dec("0.9")), ShouldBeNil)
			So(weightOf(ctx, table, s, testActions[0]).Equal(reward), ShouldBeTrue)
		})

		Convey("Updating with an unconfigured action fails", func() {
			tr := types.NewTransition(s, types.NewAction(7, "Jump"), decimal.Zero, s, false)
			err := table.Update(ctx, tr, dec("0.5"), dec("0.5"))
			So(errors.Is(err, types.ErrConfiguration), ShouldBeTrue)
		})

		Convey("States lists each initialized state once", func() {
			So(table.InitializeState(ctx, testState(4)), ShouldBeNil)
			So(table.InitializeState(ctx, testState(2)), ShouldBeNil)
			states, err := table.States(ctx)
			So(err, ShouldBeNil)
			So(states, ShouldResemble, []types.State{testState(2), testState(4)})
		})
	})
}

func TestChooseFrequencies(t *testing.T) {
	ctx := context.Background()

	Convey("Given a state with equal weights", t, func() {
		table := newSingle(42)
		s := testState(4)
		So(table.InitializeState(ctx, s), ShouldBeNil)

		Convey("Choose picks every action about a third of the time", func() {
			trials := 30000
			counts := make(map[int]int)
			for i := 0; i < trials; i++ {
				action, err := table.Choose(ctx, s)
				So(err, ShouldBeNil)
				counts[action.Value]++
			}
			for _, a := range testActions {
				So(float64(counts[a.Value])/float64(trials), ShouldAlmostEqual, 1.0/3, 0.02)
			}
		})

		Convey("Choose favours heavier actions", func() {
			So(storage.SetWeight(ctx, table.Adapter(), s, testActions[2], dec("5")), ShouldBeNil)
			counts := make(map[int]int)
			for i := 0; i < 1000; i++ {
				action, _ := table.Choose(ctx, s)
				counts[action.Value]++
			}
			So(counts[1], ShouldBeGreaterThan, counts[0]+counts[-1])
		})
	})
}

func TestDoubleTable(t *testing.T) {
	ctx := context.Background()

	Convey("Given a double table and a single table fed the same updates", t, func() {
		delay := 4
		single := newSingle(1)
		double, err := NewDoubleTable(newSingle(1), newSingle(1), delay)
		So(err, ShouldBeNil)

		transitions := []types.Transition{
			types.NewTransition(testState(1), testActions[0], dec("0"), testState(2), false),
			types.NewTransition(testState(2), testActions[1], dec("5"), testState(1), false),
			types.NewTransition(testState(1), testActions[0], dec("-1"), testState(4), false),
			types.NewTransition(testState(4), testActions[2], dec("-10"), testState(4), true),
		}
		lr, discount := dec("0.75"), dec("0.9")

		Convey("Reads see the primary table only until the merge", func() {
			So(double.Update(ctx, transitions[0], lr, discount), ShouldBeNil)
			ok, _ := double.Exists(ctx, testState(1))
			So(ok, ShouldBeFalse)
			So(double.Pending(), ShouldEqual, 1)
		})

		Convey("After delay updates the primary equals the single table and hidden is empty", func() {
			for _, tr := range transitions {
				So(single.Update(ctx, tr, lr, discount), ShouldBeNil)
				So(double.Update(ctx, tr, lr, discount), ShouldBeNil)
			}
			So(double.Pending(), ShouldEqual, 0)

			hiddenKeys, _ := double.Hidden().Adapter().Keys(ctx)
			So(hiddenKeys, ShouldBeEmpty)

			want, err := storage.Snapshot(ctx, single.Adapter())
			So(err, ShouldBeNil)
			got, err := storage.Snapshot(ctx, double.Adapter())
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, len(want))
			for k, w := range want {
				So(got[k].Equal(w), ShouldBeTrue)
			}
		})

		Convey("Hidden updates start from the primary weights", func() {
			s := testState(2)
			So(double.InitializeState(ctx, s), ShouldBeNil)
			So(storage.SetWeight(ctx, double.Adapter(), s, testActions[1], dec("6")), ShouldBeNil)

			tr := types.NewTransition(s, testActions[0], dec("1"), s, false)
			So(double.Update(ctx, tr, dec("0.5"), dec("0.5")), ShouldBeNil)
			So(double.Flush(ctx), ShouldBeNil)
			// 0.5*1 + 0.5*(1 + 0.5*6)
			So(weightOf(ctx, double.SingleTable, s, testActions[0]).Equal(dec("2.5")), ShouldBeTrue)
			So(weightOf(ctx, double.SingleTable, s, testActions[1]).Equal(dec("6")), ShouldBeTrue)
		})

		Convey("Save merges pending updates", func() {
			So(double.Update(ctx, transitions[0], lr, discount), ShouldBeNil)
			path := filepath.Join(t.TempDir(), "double.json")
			So(double.Save(ctx, path), ShouldBeNil)
			So(double.Pending(), ShouldEqual, 0)

			ok, _ := double.Exists(ctx, testState(1))
			So(ok, ShouldBeTrue)
		})

		Convey("The precision applies to the merged weights", func() {
			double.SetPrecision(1)
			So(double.Update(ctx, transitions[3], lr, discount), ShouldBeNil)
			So(double.Flush(ctx), ShouldBeNil)
			// 0.25*1 + 0.75*-10
			So(weightOf(ctx, double.SingleTable, testState(4), testActions[2]).Equal(dec("-7.3")), ShouldBeTrue)
		})

		Convey("A non positive delay is rejected", func() {
			_, err := NewDoubleTable(newSingle(1), newSingle(1), 0)
			So(errors.Is(err, types.ErrConfiguration), ShouldBeTrue)
		})
	})
}

func TestTablePersistence(t *testing.T) {
	ctx := context.Background()

	Convey("Given a trained table saved to disk", t, func() {
		table := newSingle(3)
		for i, kind := range []int{1, 2, 4, -1} {
			tr := types.NewTransition(testState(kind), testActions[i%3], decimal.NewFromInt(int64(kind)), testState(1), false)
			So(table.Update(ctx, tr, dec("0.75"), dec("0.9")), ShouldBeNil)
		}
		path := filepath.Join(t.TempDir(), "memory.json")
		So(table.Save(ctx, path), ShouldBeNil)

		Convey("Loading into a fresh table reproduces weights and greedy actions", func() {
			fresh := newSingle(9)
			So(fresh.Load(ctx, path), ShouldBeNil)

			states, err := table.States(ctx)
			So(err, ShouldBeNil)
			for _, s := range states {
				a1, w1, _ := table.Greedy(ctx, s)
				a2, w2, _ := fresh.Greedy(ctx, s)
				So(a2, ShouldResemble, a1)
				So(w2.Equal(w1), ShouldBeTrue)
				for _, a := range testActions {
					So(weightOf(ctx, fresh, s, a).Equal(weightOf(ctx, table, s, a)), ShouldBeTrue)
				}
			}
		})

		Convey("A missing file is reported as not found", func() {
			err := newSingle(9).Load(ctx, filepath.Join(t.TempDir(), "missing.json"))
			So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
		})

		Convey("Partially initialized states are rejected", func() {
			bad := filepath.Join(t.TempDir(), "partial.json")
			So(os.WriteFile(bad, []byte(`{"1,1|45,2_0": "2"}`), 0o644), ShouldBeNil)
			err := newSingle(9).Load(ctx, bad)
			So(errors.Is(err, storage.ErrCorruptFormat), ShouldBeTrue)
		})

		Convey("Loading hands the validated entries to the adapter without reading the file again", func() {
			fresh, err := NewSingleTable(&replaceOnlyAdapter{storage.NewDictAdapter()}, testActions, rand.New(rand.NewSource(9)))
			So(err, ShouldBeNil)
			So(fresh.Load(ctx, path), ShouldBeNil)

			states, err := fresh.States(ctx)
			So(err, ShouldBeNil)
			So(states, ShouldHaveLength, 4)
		})

		Convey("Unknown actions are rejected", func() {
			bad := filepath.Join(t.TempDir(), "unknown.json")
			So(os.WriteFile(bad, []byte(`{"1,1|45,2_5": "2"}`), 0o644), ShouldBeNil)
			err := newSingle(9).Load(ctx, bad)
			So(errors.Is(err, storage.ErrCorruptFormat), ShouldBeTrue)
		})
	})
}

func TestNewTable(t *testing.T) {
	Convey("NewTable builds tables by name", t, func() {
		rng := rand.New(rand.NewSource(1))
		adapters := []storage.Adapter{storage.NewDictAdapter(), storage.NewDictAdapter()}

		table, err := NewTable("single", testActions, adapters, 10, rng)
		So(err, ShouldBeNil)
		So(table, ShouldHaveSameTypeAs, &SingleTable{})

		table, err = NewTable("double", testActions, adapters, 10, rng)
		So(err, ShouldBeNil)
		So(table, ShouldHaveSameTypeAs, &DoubleTable{})

		_, err = NewTable("double", testActions, adapters[:1], 10, rng)
		So(errors.Is(err, types.ErrConfiguration), ShouldBeTrue)

		_, err = NewTable("triple", testActions, adapters, 10, rng)
		So(errors.Is(err, types.ErrConfiguration), ShouldBeTrue)
	})
}
