package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zeu5/snake-rl/types"
)

var (
	testState  = types.NewState(types.Component{Kind: 1, Distance: 0}, types.Component{Kind: -45, Distance: 2})
	testLeft   = types.NewAction(-1, "Turn Left")
	testRight  = types.NewAction(1, "Turn Right")
	testWeight = decimal.RequireFromString("0.123456789012345678901234567890")
)

// exerciseAdapter checks the behaviour every adapter must share
func exerciseAdapter(t *testing.T, a Adapter) {
	t.Helper()
	ctx := context.Background()

	if _, err := a.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if ok, err := a.Exists(ctx, "missing"); err != nil || ok {
		t.Fatalf("exists on missing key: %v %v", ok, err)
	}

	if _, ok, err := Weight(ctx, a, testState, testLeft); err != nil || ok {
		t.Fatalf("expected undefined weight, got ok=%v err=%v", ok, err)
	}
	if err := SetWeight(ctx, a, testState, testLeft, decimal.Zero); err != nil {
		t.Fatalf("set weight: %v", err)
	}
	w, ok, err := Weight(ctx, a, testState, testLeft)
	if err != nil || !ok || !w.IsZero() {
		t.Fatalf("expected a defined zero weight, got %v ok=%v err=%v", w, ok, err)
	}

	if err := a.SetAll(ctx, map[string]types.Weight{
		Key(testState, testLeft):  testWeight,
		Key(testState, testRight): decimal.NewFromInt(-10),
	}); err != nil {
		t.Fatalf("set all: %v", err)
	}
	got, err := a.Get(ctx, Key(testState, testLeft))
	if err != nil || !got.Equal(testWeight) {
		t.Fatalf("expected %v, got %v (%v)", testWeight, got, err)
	}

	keys, err := a.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}

	path := filepath.Join(t.TempDir(), "memories", "memory.json")
	if err := a.Persist(ctx, path); err != nil {
		t.Fatalf("persist: %v", err)
	}

	if err := a.Remove(ctx, Key(testState, testLeft)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := a.Set(ctx, "extra_0", decimal.NewFromInt(3)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ok, _ := a.Exists(ctx, Key(testState, testLeft)); ok {
		t.Fatal("removed key still exists")
	}

	if err := a.Load(ctx, path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok, _ := a.Exists(ctx, "extra_0"); ok {
		t.Fatal("load should replace previous contents")
	}
	got, err = a.Get(ctx, Key(testState, testLeft))
	if err != nil || !got.Equal(testWeight) {
		t.Fatalf("expected %v after load, got %v (%v)", testWeight, got, err)
	}

	if err := a.Replace(ctx, map[string]types.Weight{"replaced_1": decimal.NewFromInt(7)}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	keys, err = a.Keys(ctx)
	if err != nil || len(keys) != 1 || keys[0] != "replaced_1" {
		t.Fatalf("replace should swap all contents, got %v (%v)", keys, err)
	}

	if err := Clear(ctx, a); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if keys, _ := a.Keys(ctx); len(keys) != 0 {
		t.Fatalf("expected empty adapter, got %v", keys)
	}
}

func TestDictAdapter(t *testing.T) {
	exerciseAdapter(t, NewDictAdapter())
}

func TestLoadMissingFileIsNotFound(t *testing.T) {
	err := NewDictAdapter().Load(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLoadCorruptFileKeepsContents(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte(`{"1,0_0": "one"`), 0o644); err != nil {
		t.Fatal(err)
	}
	a := NewDictAdapter()
	_ = a.Set(ctx, "kept_0", decimal.NewFromInt(2))
	if err := a.Load(ctx, path); !errors.Is(err, ErrCorruptFormat) {
		t.Fatalf("expected corrupt format, got %v", err)
	}
	if ok, _ := a.Exists(ctx, "kept_0"); !ok {
		t.Fatal("failed load must not drop existing entries")
	}
}

func TestReadSnapshotAcceptsNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numbers.json")
	if err := os.WriteFile(path, []byte(`{"1,0_0": 1.5, "1,0_1": "-2.25"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !entries["1,0_0"].Equal(decimal.RequireFromString("1.5")) || !entries["1,0_1"].Equal(decimal.RequireFromString("-2.25")) {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestSplitKey(t *testing.T) {
	state, action, err := SplitKey(Key(testState, testLeft))
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if state != testState || action != -1 {
		t.Fatalf("unexpected split %v %d", state, action)
	}
	for _, bad := range []string{"nounderscore", "1,2_x", "x_1"} {
		if _, _, err := SplitKey(bad); !errors.Is(err, ErrCorruptFormat) {
			t.Errorf("expected corrupt format for %q, got %v", bad, err)
		}
	}
}
