package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	h := newHarness(t)
	m := h.compile(t, `[
		{"filename": {"path": "https://example.com/a.laz", "query": {"sig": "abc"}}, "tag": "src"},
		{"type": "filters.planefit", "knn": 6, "inputs": "src"},
		"out.ply"
	]`)

	got := Describe(m)
	want := GraphDescription{
		Stages: []StageDescription{
			{ID: 0, Role: "reader", Type: "readers.las", Tag: "src", Name: "readers.las", Path: "https://example.com/a.laz"},
			{ID: 1, Role: "filter", Type: "filters.planefit", Name: "filters.planefit", Inputs: []int{0}},
			{ID: 2, Role: "writer", Type: "writers.ply", Name: "writers.ply", Path: "out.ply", Inputs: []int{1}},
		},
		Leaves: []int{2},
	}
	opts := cmpopts.IgnoreFields(StageDescription{}, "UID", "Source", "Options")
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Errorf("Describe() mismatch (-want +got):\n%s", diff)
	}

	for _, s := range got.Stages {
		if s.UID == "" {
			t.Errorf("stage %d has no UID", s.ID)
		}
	}
	if got.Stages[0].Source == nil {
		t.Fatal("reader with query parameters should describe its source")
	}
	if got.Stages[1].Options.String() != `{"knn":6}` {
		t.Errorf("options = %s", got.Stages[1].Options.String())
	}
	if got.Stages[2].Options != nil {
		t.Errorf("writer without options should omit them")
	}

	data, err := json.Marshal(got)
	require.NoError(t, err)
	var back map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &back))
	stages := back["stages"].([]interface{})
	src := stages[0].(map[string]interface{})["source"].(map[string]interface{})
	if src["path"] != "https://example.com/a.laz" {
		t.Errorf("source path = %v", src["path"])
	}
}
