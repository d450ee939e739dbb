package profile

import "testing"

func TestGetKnown(t *testing.T) {
	p := Get("archive")
	if p.Quality != 100 || !p.Lossless {
		t.Errorf("archive: got %+v", p)
	}
	if p.MinQuality != 90 || p.MaxQuality != 100 {
		t.Errorf("archive range: got %d..%d", p.MinQuality, p.MaxQuality)
	}
}

func TestGetUnknownFallsBackToWeb(t *testing.T) {
	p := Get("billboard")
	if p.Name != "billboard" {
		t.Errorf("name: got %q, want requested name kept", p.Name)
	}
	web := Get("web")
	if p.Quality != web.Quality || p.MinQuality != web.MinQuality || p.MaxQuality != web.MaxQuality {
		t.Errorf("fallback: got %+v, want web settings", p)
	}
	if Known("billboard") {
		t.Error("unknown profile reported known")
	}
}

func TestProfilesAreValidSweeps(t *testing.T) {
	for _, name := range Names() {
		p := Get(name)
		if p.MinQuality < 1 || p.MinQuality > p.MaxQuality || p.MaxQuality > 100 {
			t.Errorf("%s: invalid range %d..%d", name, p.MinQuality, p.MaxQuality)
		}
		if p.Quality < 0 || p.Quality > 100 {
			t.Errorf("%s: invalid quality %d", name, p.Quality)
		}
	}
}
