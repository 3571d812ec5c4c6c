package scenario

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestCheckpointDone(t *testing.T) {
	cp := Checkpoint{LastCompletedStep: 3, Completed: []int{5, 7}}
	for index, want := range map[int]bool{0: true, 3: true, 4: false, 5: true, 6: false, 7: true, 8: false} {
		if got := cp.Done(index); got != want {
			t.Fatalf("Done(%d) = %v, want %v", index, got, want)
		}
	}

	fresh := Checkpoint{LastCompletedStep: -1}
	if fresh.Done(0) {
		t.Fatalf("fresh checkpoint marks step 0 done")
	}
}

func TestCheckpointStoreSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp", "checkpoint.json")
	store := NewCheckpointStore(path, true)

	if err := store.Save("s", 2, []int{6, 1, 4, 2}); err != nil {
		t.Fatalf("save: %v", err)
	}
	cp, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if cp.Script != "s" || cp.LastCompletedStep != 2 {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}
	if !reflect.DeepEqual(cp.Completed, []int{4, 6}) {
		t.Fatalf("completed = %v, want [4 6]", cp.Completed)
	}

	disabled := NewCheckpointStore(path, false)
	if _, ok, _ := disabled.Load(); ok {
		t.Fatalf("disabled store loaded a checkpoint")
	}
}
