package factory

import (
	"testing"
	"time"
)

type sample struct{ A int }

type sampleConf struct {
	A       int           `json:"a"`
	Timeout time.Duration `json:"timeout"`
}

// Test registry registration and instantiation using Decode.
func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("s", func(conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{A: c.A}, nil
	}, "alias"); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "S", Conf: map[string]any{"a": 3}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.A != 3 {
		t.Fatalf("expected 3 got %d", inst.A)
	}
	if _, err := reg.Create(ModuleConfig{Type: "alias"}); err != nil {
		t.Fatalf("alias: %v", err)
	}
	if got := reg.Names(); len(got) != 2 || got[0] != "alias" || got[1] != "s" {
		t.Fatalf("unexpected names %v", got)
	}
}

// Test duplicate registration and unknown type errors.
func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if err := reg.Register("y", func(map[string]any) (int, error) { return 2, nil }, "X"); err == nil {
		t.Fatal("expected duplicate alias error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "y"}); err == nil {
		t.Fatal("expected unknown type error")
	}
}

func TestDecodeDuration(t *testing.T) {
	var c sampleConf
	if err := Decode(map[string]any{"timeout": "1m30s"}, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Timeout != 90*time.Second {
		t.Fatalf("expected 90s got %v", c.Timeout)
	}
}
