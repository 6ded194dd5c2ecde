package search

import (
	"testing"
)

func TestCompile_Empty(t *testing.T) {
	if result := Compile(""); result != "" {
		t.Errorf("Expected empty expression for empty query, got %q", result)
	}

	if result := Compile("   \t\n  "); result != "" {
		t.Errorf("Expected empty expression for whitespace query, got %q", result)
	}
}

func TestCompile_SingleTerm(t *testing.T) {
	result := Compile("rust")

	expected := `"rust"*`
	if result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

func TestCompile_MultipleTerms(t *testing.T) {
	result := Compile("  async   runtime ")

	expected := `"async"* "runtime"*`
	if result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

func TestCompile_OperatorsAreLiteral(t *testing.T) {
	result := Compile("sqlite AND -wal")

	expected := `"sqlite"* "AND"* "-wal"*`
	if result != expected {
		t.Errorf("Expected operators quoted as literals, got %q", result)
	}
}

func TestCompile_EmbeddedQuotes(t *testing.T) {
	result := Compile(`say "hello"`)

	expected := `"say"* """hello"""*`
	if result != expected {
		t.Errorf("Expected doubled quotes, got %q", result)
	}
}
