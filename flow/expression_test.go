package flow

import (
	"reflect"
	"testing"
)

func TestScanExpressions(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		bodies []string
		ok     bool
	}{
		{name: "no expressions", in: "plain text", bodies: nil, ok: true},
		{name: "single", in: "a {{$json.x}} b", bodies: []string{"$json.x"}, ok: true},
		{
			name:   "multiple",
			in:     "{{$json.a}}-{{$json.b}}",
			bodies: []string{"$json.a", "$json.b"},
			ok:     true,
		},
		{name: "unclosed opener", in: "a {{$json.x", bodies: nil, ok: false},
		{name: "stray closer", in: "a }} b", bodies: nil, ok: false},
		{name: "closer before opener", in: "}} {{$json.x}}", bodies: nil, ok: false},
		{name: "empty body", in: "{{}}", bodies: []string{""}, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bodies, ok := scanExpressions(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.ok && !reflect.DeepEqual(bodies, tt.bodies) {
				t.Errorf("bodies = %v, want %v", bodies, tt.bodies)
			}
		})
	}
}

func TestNodeRefs(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{name: "bracket form", body: `$node["Fetch Data"].json.body`, want: []string{"Fetch Data"}},
		{name: "call single quotes", body: `$('Fetch Data').item.json`, want: []string{"Fetch Data"}},
		{name: "call double quotes", body: `$("Fetch Data").item.json`, want: []string{"Fetch Data"}},
		{
			name: "multiple references",
			body: `$node["A"].x + $('B').y`,
			want: []string{"A", "B"},
		},
		{name: "escaped quote in name", body: `$node["Say \"hi\""].json`, want: []string{`Say "hi"`}},
		{name: "whitespace tolerated", body: `$node[ "A" ]`, want: []string{"A"}},
		{name: "current item only", body: `$json.field`, want: nil},
		{name: "env and workflow", body: `$env.HOST + $workflow.id`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nodeRefs(tt.body)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("nodeRefs(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

func TestWalkStrings(t *testing.T) {
	params := map[string]any{
		"url": "u",
		"options": map[string]any{
			"b": "vb",
			"a": "va",
			"list": []any{
				"first",
				map[string]any{"deep": "d"},
			},
		},
		"count": 3,
	}

	var fields []string
	walkStrings("", params, func(field, s string) {
		fields = append(fields, field+"="+s)
	})

	// Map keys visited in sorted order, slices in index order.
	want := []string{
		"options.a=va",
		"options.b=vb",
		"options.list[0]=first",
		"options.list[1].deep=d",
		"url=u",
	}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("visit order = %v, want %v", fields, want)
	}
}
