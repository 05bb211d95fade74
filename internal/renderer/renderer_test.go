package renderer

import (
	"math"
	"strings"
	"testing"
)

var allEasings = []Easing{Linear, EaseOutCubic, EaseOutQuad, EaseOutExpo, EaseInOutSine, EaseOutBack}

func TestEaseEndpoints(t *testing.T) {
	for _, e := range allEasings {
		t.Run(string(e), func(t *testing.T) {
			if got := Ease(e, 0); abs(got) > 1e-9 {
				t.Errorf("Ease(%s, 0) = %f, want 0", e, got)
			}
			if got := Ease(e, 1); abs(got-1) > 1e-9 {
				t.Errorf("Ease(%s, 1) = %f, want 1", e, got)
			}
		})
	}
}

func TestEaseOutBackOvershootsButStaysPositive(t *testing.T) {
	peak := 0.0
	for i := 0; i <= 1000; i++ {
		v := Ease(EaseOutBack, float64(i)/1000)
		if v < -1e-9 {
			t.Fatalf("Ease(back, %.3f) = %f, want >= 0", float64(i)/1000, v)
		}
		peak = math.Max(peak, v)
	}
	if peak <= 1 {
		t.Errorf("expected overshoot above 1, peak %f", peak)
	}
}

func TestEaseClampsInput(t *testing.T) {
	if got := Ease(Linear, -2); got != 0 {
		t.Errorf("Ease(linear, -2) = %f", got)
	}
	if got := Ease(EaseOutCubic, 3); got != 1 {
		t.Errorf("Ease(cubic, 3) = %f", got)
	}
}

func TestParseEasing(t *testing.T) {
	tests := []struct {
		in   string
		want Easing
	}{
		{"linear", Linear},
		{" EASE_OUT_BACK ", EaseOutBack},
		{"ease_in_out_sine", EaseInOutSine},
		{"bounce", EaseOutCubic},
		{"", EaseOutCubic},
	}
	for _, tt := range tests {
		if got := ParseEasing(tt.in); got != tt.want {
			t.Errorf("ParseEasing(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSlide(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			"up from bottom",
			SlideUpFromBottom(932, 1080, 0.5, EaseOutCubic),
			"'if(lt(t,0.5),1080-148*(1-pow(1-t/0.5,3)),932)'",
		},
		{
			"down from top",
			SlideDownFromTop(40, 0.5, Linear),
			"'if(lt(t,0.5),(0-(100))+140*(t/0.5),40)'",
		},
		{
			"negative start moving further negative",
			Slide(EaseOutQuad, -100, -300, 1),
			"'if(lt(t,1),(0-(100))-200*(1-pow(1-t/1,2)),-300)'",
		},
		{
			"in from right",
			SlideInFromRight(1500, 1920, 0.5, EaseOutCubic),
			"'if(lt(t,0.5),1920-420*(1-pow(1-t/0.5,3)),1500)'",
		},
		{
			"zero duration pins to end",
			Slide(EaseOutCubic, 0, 10, 0),
			"'10'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got  %s\nwant %s", tt.got, tt.want)
			}
			if strings.Contains(tt.got, "--") || strings.Contains(tt.got, "+-") {
				t.Errorf("double sign in %s", tt.got)
			}
		})
	}
}

func TestClampAlwaysOrdered(t *testing.T) {
	durations := []float64{0.0005, 0.2, 0.5, 1, 3.7, 6, 60}
	windows := []Window{{0.5, 0.9}, {1.0, 0.2}, {-1, 0.3}, {5.5, 6}, {0, 0}, {7, 9}}
	for _, d := range durations {
		for _, w := range windows {
			c := Clamp(w.Start, w.End, d)
			if !(c.Start >= 0 && c.Start < c.End && c.End <= d+1e-12) {
				t.Errorf("Clamp(%v, %.4f) = %v violates 0 <= start < end <= duration", w, d, c)
			}
		}
	}
}

func TestSequenceShortClip(t *testing.T) {
	d := 0.2
	ws := Sequence(d, Window{0.5, 0.9}, Window{0.6, 1.0})
	if len(ws) != 2 {
		t.Fatalf("len = %d", len(ws))
	}
	for i, w := range ws {
		if !w.Valid() || w.End > d+float64(len(ws))*MinSpan {
			t.Errorf("window %d = %v invalid for duration %.1f", i, w, d)
		}
	}
	if ws[1].Start < ws[0].End {
		t.Errorf("windows overlap: %v %v", ws[0], ws[1])
	}
}

func TestSequenceKeepsRoomyWindows(t *testing.T) {
	ws := Sequence(6, Window{0.5, 0.9}, Window{5.1, 5.5})
	if ws[0] != (Window{0.5, 0.9}) || ws[1] != (Window{5.1, 5.5}) {
		t.Errorf("unexpected adjustment: %v", ws)
	}
}

func TestTrackExpr(t *testing.T) {
	tr := Track{
		Rest: "H+20",
		Tweens: []Tween{
			{Window: Window{0.5, 0.9}, From: "H+20", To: "H-h-40", Easing: Linear},
			{Window: Window{5.1, 5.5}, From: "H-h-40", To: "H+20", Easing: Linear},
		},
	}
	expr := tr.Expr()
	want := "if(lt(t,0.5),H+20,if(lt(t,0.9),(H+20)+((H-h-40)-(H+20))*(((t-0.5)/0.4)),if(lt(t,5.1),H-h-40,if(lt(t,5.5),(H-h-40)+((H+20)-(H-h-40))*(((t-5.1)/0.4)),H+20))))"
	if expr != want {
		t.Errorf("got  %s\nwant %s", expr, want)
	}
	if strings.Count(expr, "(") != strings.Count(expr, ")") {
		t.Errorf("unbalanced parentheses in %s", expr)
	}
	if got := Static("100").Expr(); got != "100" {
		t.Errorf("static track = %s", got)
	}
}

func TestWindowProgress(t *testing.T) {
	w := Window{1, 3}
	for _, tt := range []struct{ t, want float64 }{{0, 0}, {1, 0}, {2, 0.5}, {3, 1}, {9, 1}} {
		if got := w.Progress(tt.t); abs(got-tt.want) > 1e-9 {
			t.Errorf("Progress(%.1f) = %f, want %f", tt.t, got, tt.want)
		}
	}
	if got := w.Between(); got != "between(t,1,3)" {
		t.Errorf("Between = %s", got)
	}
}

func TestNum(t *testing.T) {
	for _, tt := range []struct {
		in   float64
		want string
	}{{1080, "1080"}, {0.5, "0.5"}, {0.5 + 0.6, "1.1"}, {-0.0, "0"}, {5.5004, "5.5"}, {-148, "-148"}} {
		if got := Num(tt.in); got != tt.want {
			t.Errorf("Num(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
