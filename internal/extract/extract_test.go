package extract

import "testing"

func TestContentText(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			"simple show operator",
			`BT /F1 12 Tf 72 712 Td (Hello world) Tj ET`,
			"Hello world",
		},
		{
			"kerning array",
			`[(Cel) -10 (l membrane)] TJ`,
			"Cel l membrane",
		},
		{
			"escaped parens and backslash",
			`(f\(x\) = a\\b) Tj`,
			`f(x) = a\b`,
		},
		{
			"nested parens",
			`(outer (inner) text) Tj`,
			"outer (inner) text",
		},
		{
			"octal escape skipped",
			`(caf\351 au lait) Tj`,
			"caf au lait",
		},
		{
			"no text operators",
			`q 1 0 0 1 0 0 cm /Im0 Do Q`,
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentText([]byte(tt.stream)); got != tt.want {
				t.Errorf("contentText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHashBytes(t *testing.T) {
	a := HashBytes([]byte("lecture one"))
	b := HashBytes([]byte("lecture one"))
	c := HashBytes([]byte("lecture two"))
	if a != b {
		t.Error("hash should be deterministic")
	}
	if a == c {
		t.Error("distinct content should hash differently")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}
