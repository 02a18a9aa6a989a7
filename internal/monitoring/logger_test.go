package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("layout saved")
	if got != "layout saved" {
		t.Errorf("custom logger saw %q", got)
	}

	// nil installs a no-op, not a nil function.
	SetLogger(nil)
	Logf("dropped")
	if got != "layout saved" {
		t.Error("no-op logger still forwarded the message")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}
