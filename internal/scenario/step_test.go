package scenario

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitSegments(t *testing.T) {
	steps := []Step{
		{Index: 0, Op: StepFund},
		{Index: 1, Op: StepFund},
		{Index: 2, Op: StepCreate, Pool: "a"},
		{Index: 3, Op: StepCreate, Pool: "b"},
		{Index: 4, Op: StepAdd, Pool: "a"},
		{Index: 5, Op: StepFund},
		{Index: 6, Op: StepSwap, Pool: "b"},
	}

	got := SplitSegments(steps)
	if len(got) != 4 {
		t.Fatalf("segments = %d, want 4", len(got))
	}
	lasts := []int{got[0].Last(), got[1].Last(), got[2].Last(), got[3].Last()}
	if !reflect.DeepEqual(lasts, []int{0, 1, 4, 6}) {
		t.Fatalf("segment ends mismatch: %v", lasts)
	}

	groups := got[2].ByPool()
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0][0].Index != 2 || groups[0][1].Index != 4 || groups[1][0].Index != 3 {
		t.Fatalf("groups out of order: %+v", groups)
	}
}

func TestSplitSegmentsEmpty(t *testing.T) {
	if got := SplitSegments(nil); len(got) != 0 {
		t.Fatalf("expected no segments, got %+v", got)
	}
}

func TestParse(t *testing.T) {
	input := `
# two pools
{"op":"fund","account":"lp","asset":"usdc","amount":"10"}
{"op":"create","pool":"main","asset0":"usdc","asset1":"weth","fee_numerator":3,"fee_denominator":1000}

{"op":"swap","pool":"main","account":"lp","asset_in":"weth","amount":"1","expect":{"amount_out":0}}
`
	script, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(script.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(script.Steps))
	}
	if script.Steps[2].Line != 6 || script.Steps[2].Index != 2 {
		t.Fatalf("position mismatch: %+v", script.Steps[2])
	}
	if script.Steps[2].Expect == nil || script.Steps[2].Expect.AmountOut == nil || *script.Steps[2].Expect.AmountOut != 0 {
		t.Fatalf("expect not parsed: %+v", script.Steps[2].Expect)
	}
	spec, ok := script.Pools["main"]
	if !ok || spec.Asset1 != "weth" || !strings.HasPrefix(string(spec.ID), "0x") {
		t.Fatalf("pool alias not resolved: %+v", spec)
	}
}

func TestParseInvalid(t *testing.T) {
	create := `{"op":"create","pool":"main","asset0":"usdc","asset1":"weth","fee_numerator":3,"fee_denominator":1000}` + "\n"
	cases := map[string]string{
		"unknown op":       `{"op":"burn"}`,
		"unknown field":    `{"op":"fund","account":"a","asset":"b","amount":"1","colour":"red"}`,
		"undefined pool":   `{"op":"add","pool":"main","account":"a","amount0":"1","amount1":"1"}`,
		"duplicate alias":  create + create,
		"foreign asset":    create + `{"op":"swap","pool":"main","account":"a","asset_in":"dai","amount":"1"}`,
		"missing account":  create + `{"op":"remove","pool":"main","claim":"1"}`,
		"incomplete fund":  `{"op":"fund","account":"a"}`,
		"malformed json":   `{"op":`,
		"missing amount1":  create + `{"op":"add","pool":"main","account":"a","amount0":"1"}`,
		"missing swap amt": create + `{"op":"swap","pool":"main","account":"a","asset_in":"usdc"}`,
	}
	for name, input := range cases {
		if _, err := Parse(strings.NewReader(input)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
