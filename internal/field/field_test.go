package field

import "testing"

func TestIntRangeClampsOutOfRange(t *testing.T) {
	v := IntRange(1, 96)

	r := v("120")
	if !r.Valid {
		t.Fatalf("clamped value must still be valid: %+v", r)
	}
	if r.Normalized != 96 {
		t.Fatalf("got %v, want clamp to 96", r.Normalized)
	}

	r = v(-3)
	if !r.Valid || r.Normalized != 1 {
		t.Fatalf("got %+v, want clamp to 1", r)
	}
}

func TestValidationIdempotence(t *testing.T) {
	v := IntRange(1, 96)
	first := v("12")
	second := v(first.Normalized)
	if !second.Valid {
		t.Fatalf("re-validating a normalized value must stay valid")
	}
	if second.Normalized != first.Normalized {
		t.Fatalf("normalized value changed on re-validation: %v -> %v", first.Normalized, second.Normalized)
	}
}

func TestIntRangeRejectsGarbageWithFallback(t *testing.T) {
	v := IntRange(1, 96)
	r := v("twelve")
	if r.Valid {
		t.Fatalf("garbage input must be invalid")
	}
	if r.Message == "" {
		t.Fatalf("rejection must carry a message")
	}
	if r.Fallback != 1 {
		t.Fatalf("fallback %v, want 1", r.Fallback)
	}
}

func TestFloatRange(t *testing.T) {
	v := FloatRange(0, 1200)
	if r := v("701.955"); !r.Valid || r.Normalized != 701.955 {
		t.Fatalf("got %+v", r)
	}
	if r := v("1300"); !r.Valid || r.Normalized != 1200.0 {
		t.Fatalf("got %+v, want clamp to 1200", r)
	}
}

func TestOneOf(t *testing.T) {
	v := OneOf("fifths", "thirds")
	if r := v("thirds"); !r.Valid || r.Normalized != "thirds" {
		t.Fatalf("got %+v", r)
	}
	r := v("sevenths")
	if r.Valid {
		t.Fatalf("unknown choice must be invalid")
	}
	if r.Fallback != "fifths" {
		t.Fatalf("fallback %v, want first choice", r.Fallback)
	}
}

func TestBool(t *testing.T) {
	v := Bool()
	if r := v(true); !r.Valid || r.Normalized != true {
		t.Fatalf("got %+v", r)
	}
	if r := v("1"); !r.Valid || r.Normalized != true {
		t.Fatalf("got %+v", r)
	}
	if r := v("maybe"); r.Valid {
		t.Fatalf("non-bool text must be invalid")
	}
}

func TestSpecValidatorFromKind(t *testing.T) {
	s := Spec{Name: "divisions", Kind: KindInt, Min: 1, Max: 96}
	r := s.Validator()("48")
	if !r.Valid || r.Normalized != 48 {
		t.Fatalf("got %+v", r)
	}
	if !s.Kind.Continuous() {
		t.Fatalf("numeric fields are continuous")
	}
	if (Spec{Kind: KindBool}).Kind.Continuous() {
		t.Fatalf("bool fields are discrete")
	}
}
