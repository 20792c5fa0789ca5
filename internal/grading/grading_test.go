package grading

import "testing"

func TestNormalize_StripsPunctuationAndCase(t *testing.T) {
	if got := Normalize("Ik ga naar huis."); got != "ik ga naar huis" {
		t.Fatalf("Normalize = %q, want %q", got, "ik ga naar huis")
	}
	if got := Normalize("  Hallo, wereld!  "); got != "hallo wereld" {
		t.Fatalf("Normalize = %q, want %q", got, "hallo wereld")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Ik ga naar huis.",
		"  Wat?! Echt;  niet:  ",
		"",
		"al genormaliseerd",
	}
	for _, s := range inputs {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", s, twice, once)
		}
	}
}

func TestNormalize_KeepsInnerWhitespace(t *testing.T) {
	if got := Normalize("twee  spaties"); got != "twee  spaties" {
		t.Fatalf("Normalize collapsed whitespace: %q", got)
	}
}

func TestIsMatch(t *testing.T) {
	cases := []struct {
		reference string
		input     string
		want      bool
	}{
		{"Ik ga naar huis.", "ik ga naar huis", true},
		{"Ik ga naar huis.", "IK GA NAAR HUIS!", true},
		{"Ik ga naar huis.", "ik ga naar school", false},
		// Inner whitespace is not collapsed by normalization.
		{"een twee", "een  twee", false},
		{"", "", true},
	}
	for _, c := range cases {
		if got := IsMatch(c.reference, c.input); got != c.want {
			t.Fatalf("IsMatch(%q, %q) = %v, want %v", c.reference, c.input, got, c.want)
		}
	}
}

func TestIsMatch_Reflexive(t *testing.T) {
	for _, s := range []string{"a", "Ik zie een hond.", "Wat? Echt!"} {
		if !IsMatch(s, s) {
			t.Fatalf("IsMatch(%q, %q) = false, want true", s, s)
		}
	}
}

func TestDiff_WrongLastWord(t *testing.T) {
	got := Diff("Ik zie een hond.", "ik zie een kat")
	want := []WordAnnotation{
		{Word: "Ik", Correct: true},
		{Word: "zie", Correct: true},
		{Word: "een", Correct: true},
		{Word: "hond.", Correct: false},
	}
	assertAnnotations(t, got, want)
}

func TestDiff_MissingWordsMarkedIncorrect(t *testing.T) {
	got := Diff("Een twee drie.", "een twee")
	want := []WordAnnotation{
		{Word: "Een", Correct: true},
		{Word: "twee", Correct: true},
		{Word: "drie.", Correct: false},
	}
	assertAnnotations(t, got, want)
}

func TestDiff_ExtraWordsIgnored(t *testing.T) {
	got := Diff("een twee", "een twee drie vier")
	want := []WordAnnotation{
		{Word: "een", Correct: true},
		{Word: "twee", Correct: true},
	}
	assertAnnotations(t, got, want)
}

func TestDiff_PositionalCascade(t *testing.T) {
	// A single inserted word shifts every later position; the comparison is
	// by index, not by alignment.
	got := Diff("ik ga naar huis", "ik eh ga naar huis")
	want := []WordAnnotation{
		{Word: "ik", Correct: true},
		{Word: "ga", Correct: false},
		{Word: "naar", Correct: false},
		{Word: "huis", Correct: false},
	}
	assertAnnotations(t, got, want)
}

func TestDiff_AnnotationCountMatchesReference(t *testing.T) {
	for _, input := range []string{"", "een", "een twee drie vier vijf"} {
		got := Diff("Een twee drie.", input)
		if len(got) != 3 {
			t.Fatalf("Diff(%q) returned %d annotations, want 3", input, len(got))
		}
	}
}

func TestGrade(t *testing.T) {
	res := Grade("Ik ga naar huis.", "ik ga naar huis")
	if !res.Match {
		t.Fatalf("Grade match = false, want true")
	}
	if len(res.Words) != 4 {
		t.Fatalf("Grade words = %d, want 4", len(res.Words))
	}
	for _, w := range res.Words {
		if !w.Correct {
			t.Fatalf("Grade word %q marked incorrect on full match", w.Word)
		}
	}
}

func assertAnnotations(t *testing.T, got, want []WordAnnotation) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d annotations, want %d: %#v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("annotation %d = %#v, want %#v", i, got[i], want[i])
		}
	}
}
