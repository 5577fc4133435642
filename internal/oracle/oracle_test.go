package oracle

import "testing"

func TestIsSatisfiedNativeShortCircuit(t *testing.T) {
	o := New(nil, Options{}, map[string]bool{"zlib": true}, nil, nil, nil)
	if !o.IsSatisfied("zlib") {
		t.Error("natively installed package should be satisfied")
	}
}

func TestIsSatisfiedIgnoreLanguageManaged(t *testing.T) {
	o := New(nil, Options{IgnoreLanguageManaged: true}, nil,
		map[string]bool{"requests": true}, nil, map[string]bool{"requests": true})
	if o.IsSatisfied("python-requests") {
		t.Error("novirtual should prevent pip-satisfied check")
	}
}

func TestIsSatisfiedPip3DirectNameMatch(t *testing.T) {
	o := New(nil, Options{}, nil, nil,
		map[string]bool{"requests": true}, map[string]bool{"requests": true})
	if !o.IsSatisfied("python3-requests") {
		t.Error("python3-requests should resolve via direct pypi name match")
	}
}

func TestIsSatisfiedSpecialCaseMapping(t *testing.T) {
	o := New(nil, Options{}, nil, nil,
		map[string]bool{"Django": true}, map[string]bool{"Django": true})
	if !o.IsSatisfied("python3-django") {
		t.Error("python3-django should map to Django via the special-case table")
	}
}

func TestIsSatisfiedSpecialCaseNoneIsNeverSatisfied(t *testing.T) {
	o := New(nil, Options{}, nil,
		map[string]bool{"python-xrandr": true}, nil, map[string]bool{})
	if o.IsSatisfied("python-xrandr") {
		t.Error("python-xrandr maps to an explicit none and must never be satisfied via pip")
	}
}

func TestIsSatisfiedIgnorePip2(t *testing.T) {
	o := New(nil, Options{IgnorePip2: true}, nil,
		map[string]bool{"requests": true}, nil, map[string]bool{"requests": true})
	if o.IsSatisfied("python-requests") {
		t.Error("nopip2 should suppress the pip2 membership check")
	}
}

func TestPipVersion(t *testing.T) {
	cases := map[string]string{
		"python-foo":  "",
		"python3-foo": "3",
		"foo":         "",
	}
	for name, want := range cases {
		if got := PipVersion(name); got != want {
			t.Errorf("PipVersion(%q) = %q, want %q", name, got, want)
		}
	}
}
