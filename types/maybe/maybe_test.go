package maybe

import (
	"encoding/json"
	"testing"
)

func TestValueOrDefault(t *testing.T) {
	if v := Some(3.5).ValueOrDefault(1); v != 3.5 {
		t.Errorf("expected 3.5, got %v", v)
	}
	if v := None[float64]().ValueOrDefault(1); v != 1 {
		t.Errorf("expected 1, got %v", v)
	}
}

func TestFromPtrAndOr(t *testing.T) {
	v := 7
	if m := FromPtr(&v); !m.IsValid() || m.Value() != 7 {
		t.Errorf("expected Some(7), got %+v", m)
	}
	if m := FromPtr[int](nil); m.IsValid() {
		t.Errorf("expected None, got %+v", m)
	}
	if m := None[int]().Or(Some(2)).Or(Some(3)); m.Value() != 2 {
		t.Errorf("expected first valid alternative 2, got %d", m.Value())
	}
}

func TestJSON(t *testing.T) {
	type payload struct {
		A Maybe[int]    `json:"a"`
		B Maybe[string] `json:"b"`
	}

	b, err := json.Marshal(payload{A: Some(1), B: None[string]()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":1,"b":null}` {
		t.Errorf("unexpected json %s", b)
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"a":null,"b":"x"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.A.IsValid() {
		t.Errorf("expected a to be None")
	}
	if !p.B.IsValid() || p.B.Value() != "x" {
		t.Errorf("expected b to be Some(x), got %+v", p.B)
	}
}
