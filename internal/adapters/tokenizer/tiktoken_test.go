package tokenizer

import "testing"

func TestTiktokenRoundTrip(t *testing.T) {
	tok, err := NewTiktoken(DefaultEncoding)
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}

	text := "func main() { fmt.Println(\"hello\") }"
	tokens := tok.Encode(text)
	if len(tokens) == 0 {
		t.Fatal("no tokens produced")
	}
	if tok.Count(text) != len(tokens) {
		t.Errorf("Count = %d, Encode produced %d", tok.Count(text), len(tokens))
	}
	if got := tok.Decode(tokens); got != text {
		t.Errorf("round trip produced %q", got)
	}
}

func TestTiktokenUnknownEncoding(t *testing.T) {
	if _, err := NewTiktoken("no-such-encoding"); err == nil {
		t.Error("unknown encoding accepted")
	}
}
