package phpserial

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_AsInt(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want int64
		ok   bool
	}{
		{"int", Int(43), 43, true},
		{"numeric string", String("43"), 43, true},
		{"padded numeric string", String(" 43 "), 43, true},
		{"integral float", Float(43), 43, true},
		{"fractional float", Float(43.5), 0, false},
		{"text", String("43px"), 0, false},
		{"empty", String(""), 0, false},
		{"bool", Bool(true), 0, false},
		{"array", List(Int(43)), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.in.AsInt()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValue_WalkPaths(t *testing.T) {
	v := Map(map[string]Value{
		"gallery": List(Int(1), Int(2)),
		"title":   String("x"),
	})

	var paths []string
	v.Walk(func(path []string, value Value) bool {
		if !value.IsContainer() {
			paths = append(paths, strings.Join(path, "/"))
		}
		return true
	})

	assert.Equal(t, []string{"gallery/0", "gallery/1", "title"}, paths)
}

func TestValue_WalkStops(t *testing.T) {
	v := List(Int(1), Int(2), Int(3))

	visited := 0
	completed := v.Walk(func(path []string, value Value) bool {
		visited++
		return !(value.Kind == KindInt && value.Int == 2)
	})

	assert.False(t, completed)
	assert.Equal(t, 3, visited)
}

func TestValue_Interface(t *testing.T) {
	v := Map(map[string]Value{
		"file":  String("2024/01/cat.jpg"),
		"sizes": Map(map[string]Value{"thumbnail": Map(map[string]Value{"file": String("cat-150x150.jpg")})}),
		"list":  List(Int(1), Null()),
	})

	got := v.Interface().(map[string]any)
	assert.Equal(t, "2024/01/cat.jpg", got["file"])
	assert.Equal(t, []any{int64(1), nil}, got["list"])

	sizes := got["sizes"].(map[string]any)
	thumb := sizes["thumbnail"].(map[string]any)
	assert.Equal(t, "cat-150x150.jpg", thumb["file"])
}
