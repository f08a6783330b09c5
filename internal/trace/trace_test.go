package trace

import "testing"

func TestFilterWildcardMatchesAny(t *testing.T) {
	f := ParseFilter("*")
	if !f.Match(123) {
		t.Fatalf("wildcard filter should match any id")
	}
}

func TestFilterIDList(t *testing.T) {
	f := ParseFilter("0x10, 32, 99")
	if !f.Match(0x10) || !f.Match(32) || !f.Match(99) {
		t.Fatalf("expected listed ids to match")
	}
	if f.Match(7) {
		t.Fatalf("unlisted id should not match")
	}
}

func TestFilterNegationOverridesWildcard(t *testing.T) {
	f := ParseFilter("*,!55")
	if !f.Match(1) {
		t.Fatalf("wildcard should still match unrelated ids")
	}
	if f.Match(55) {
		t.Fatalf("negated id should never match, even under a wildcard")
	}
}

func TestFilterEmptyMatchesNothing(t *testing.T) {
	f := ParseFilter("")
	if f.Match(1) {
		t.Fatalf("empty filter should match nothing")
	}
}
