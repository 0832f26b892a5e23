package token

import "testing"

func TestTokenizeBasics(t *testing.T) {
	tokens, err := Tokenize("package app:main@1.0.0;")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	want := []struct {
		typ   Type
		value string
	}{
		{Ident, "package"},
		{Ident, "app"},
		{Colon, ":"},
		{Ident, "main"},
		{At, "@"},
		{Version, "1.0.0"},
		{Semi, ";"},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, w := range want {
		if tokens[i].Type != w.typ || tokens[i].Value != w.value {
			t.Errorf("token %d = {%v %q}, want {%v %q}",
				i, tokens[i].Type, tokens[i].Value, w.typ, w.value)
		}
	}
}

func TestTokenizeCommentsAndArrows(t *testing.T) {
	src := `// line comment
f: func() -> u32; /* block
comment */ g: func();`
	tokens, err := Tokenize(src)
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	var arrows, idents int
	for _, tok := range tokens {
		switch tok.Type {
		case Arrow:
			arrows++
		case Ident:
			idents++
		}
	}
	if arrows != 1 {
		t.Errorf("got %d arrows, want 1", arrows)
	}
	if idents != 5 { // f, func, u32, g, func
		t.Errorf("got %d idents, want 5", idents)
	}
}

func TestTokenizeLineNumbers(t *testing.T) {
	tokens, err := Tokenize("a\nb\n\nc")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	lines := []int{1, 2, 4}
	for i, want := range lines {
		if tokens[i].Line != want {
			t.Errorf("token %d on line %d, want %d", i, tokens[i].Line, want)
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	for _, src := range []string{"@", "%", "$bad", "/* unterminated"} {
		if _, err := Tokenize(src); err == nil {
			t.Errorf("Tokenize(%q): expected error", src)
		}
	}
}

func TestTokenizeVersionBeforeUseList(t *testing.T) {
	tokens, err := Tokenize("use wasi:clocks/wall-clock@0.2.0.{datetime};")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	want := []struct {
		typ   Type
		value string
	}{
		{Ident, "use"},
		{Ident, "wasi"},
		{Colon, ":"},
		{Ident, "clocks"},
		{Slash, "/"},
		{Ident, "wall-clock"},
		{At, "@"},
		{Version, "0.2.0"},
		{Dot, "."},
		{LBrace, "{"},
		{Ident, "datetime"},
		{RBrace, "}"},
		{Semi, ";"},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, w := range want {
		if tokens[i].Type != w.typ || tokens[i].Value != w.value {
			t.Errorf("token %d = {%v %q}, want {%v %q}",
				i, tokens[i].Type, tokens[i].Value, w.typ, w.value)
		}
	}
}

func TestTokenizeEscapedIdent(t *testing.T) {
	tokens, err := Tokenize("%record")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Type != EscapedIdent || tokens[0].Value != "record" {
		t.Errorf("tokens = %v, want one escaped identifier \"record\"", tokens)
	}
}
