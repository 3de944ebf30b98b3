package store

import (
	"testing"

	"cvrpsolver/internal/model"
)

func TestJSONArgNulls(t *testing.T) {
	var routes [][]int
	var metrics *model.RunMetrics
	var labels map[string]any
	for _, v := range []any{nil, routes, metrics, labels} {
		got, err := jsonArg(v)
		if err != nil {
			t.Fatalf("jsonArg: %v", err)
		}
		if got != nil {
			t.Fatalf("want nil for %T, got %v", v, got)
		}
	}
	got, err := jsonArg([][]int{{1, 2}, {}})
	if err != nil {
		t.Fatalf("jsonArg: %v", err)
	}
	if got != "[[1,2],[]]" {
		t.Fatalf("unexpected encoding %v", got)
	}
}

func TestDecodeColumn(t *testing.T) {
	var routes [][]int
	if err := decodeColumn(nil, &routes); err != nil || routes != nil {
		t.Fatalf("empty column should leave dst untouched: %v %v", routes, err)
	}
	if err := decodeColumn([]byte(`[[3,1]]`), &routes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(routes) != 1 || routes[0][0] != 3 {
		t.Fatalf("unexpected routes %v", routes)
	}
}

func TestNullIfEmpty(t *testing.T) {
	if v := nullIfEmpty(""); v != nil {
		t.Fatalf("empty -> nil expected")
	}
	if v := nullIfEmpty("x"); v != "x" {
		t.Fatalf("non-empty passthrough expected")
	}
}
