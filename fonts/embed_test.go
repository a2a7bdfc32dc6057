package fonts

import "testing"

func TestLoadAcceptsPrefixes(t *testing.T) {
	for _, name := range []string{"lmroman10-regular", "embed:lmroman10-regular", "builtin:LMRoman10-Regular", "built-in:lmroman10-regular.ttf"} {
		data, err := Load(name)
		if err != nil {
			t.Fatalf("Load(%q): %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("Load(%q) returned no data", name)
		}
	}
}

func TestLoadUnknown(t *testing.T) {
	if _, err := Load("embed:Inter-Regular"); err == nil {
		t.Fatal("expected an error for an unknown font")
	}
}

func TestIsBuiltin(t *testing.T) {
	if !IsBuiltin("embed:x") || !IsBuiltin("builtin:x") || IsBuiltin("fonts/x.ttf") {
		t.Fatal("IsBuiltin misclassified a source")
	}
}
