package envconfig

import (
	"log/slog"
	"testing"
)

func TestVar(t *testing.T) {
	cases := map[string]string{
		"value":        "value",
		" value ":      "value",
		"\"value\"":    "value",
		"'value'":      "value",
		" \"value\" ":  "value",
		"' value '":    " value ",
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("CUNUM_VAR", k)
			if s := Var("CUNUM_VAR"); s != v {
				t.Errorf("%s: expected %q, got %q", k, v, s)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"f":     slog.LevelInfo,
		"0":     slog.LevelInfo,
		"true":  slog.LevelDebug,
		"t":     slog.LevelDebug,
		"1":     slog.LevelDebug,
		"2":     slog.Level(-8),
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("CUNUM_DEBUG", k)
			if l := LogLevel(); l != v {
				t.Errorf("%s: expected %d, got %d", k, v, l)
			}
		})
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"true":  true,
		"false": false,
		"1":     true,
		"0":     false,
		// invalid values are treated as set
		"x": true,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("CUNUM_BOOL", k)
			if b := Bool("CUNUM_BOOL")(); b != v {
				t.Errorf("%s: expected %t, got %t", k, v, b)
			}
		})
	}
}

func TestUint(t *testing.T) {
	cases := map[string]uint{
		"":      100,
		"0":     0,
		"1":     1,
		"-1":    100,
		"abc":   100,
		"10000": 10000,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("CUNUM_UINT", k)
			if n := Uint("CUNUM_UINT", 100)(); n != v {
				t.Errorf("%s: expected %d, got %d", k, v, n)
			}
		})
	}
}

func TestAsMap(t *testing.T) {
	m := AsMap()
	for _, k := range []string{"CUNUM_DEBUG", "CUNUM_GENERATOR_SIZE", "CUNUM_SIM_DEVICES"} {
		v, ok := m[k]
		if !ok {
			t.Errorf("missing %s", k)
			continue
		}
		if v.Name != k {
			t.Errorf("%s: name mismatch %q", k, v.Name)
		}
	}
}
