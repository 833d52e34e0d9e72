package css

import "testing"

func TestColorToHex(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"#ABC", "AABBCC", true},
		{"#AABBCC", "AABBCC", true},
		{"#aabbcc", "AABBCC", true},
		{" #666 ", "666666", true},
		{"#11223344", "112233", true},
		{"#12", "", false},
		{"#xyzxyz", "", false},
		{"rgb(255,0,0)", "FF0000", true},
		{"rgb(255, 0, 0)", "FF0000", true},
		{"rgba(0, 128, 255, 0.5)", "0080FF", true},
		{"RGB(300, -5, 16)", "FF0010", true},
		{"rgb(100%, 0%, 0%)", "FF0000", true},
		{"rgb(255 0 0 / 50%)", "FF0000", true},
		{"rgb(1, 2)", "", false},
		{"hsl(0, 100%, 50%)", "", false},
		{"White", "FFFFFF", true},
		{"grey", "808080", true},
		{"lightgrey", "D3D3D3", true},
		{"transparent", "FFFFFF", true},
		{"linear-gradient(135deg, #667eea 0%, #764ba2 100%)", "667EEA", true},
		{"linear-gradient(to right, red, blue)", "", false},
		{"not-a-color", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ColorToHex(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ColorToHex(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestColorToHex_ShortFormEquivalence(t *testing.T) {
	short, ok1 := ColorToHex("#ABC")
	long, ok2 := ColorToHex("#AABBCC")
	if !ok1 || !ok2 || short != long {
		t.Errorf("ColorToHex(#ABC) = %q, ColorToHex(#AABBCC) = %q, want equal", short, long)
	}
}

func TestFindColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1px solid #ddd", "DDDDDD", true},
		{"3px solid #1A1A1A", "1A1A1A", true},
		{"2px dashed rgb(0, 0, 255)", "0000FF", true},
		{"thin solid navy", "000080", true},
		{"1px solid", "", false},
		{"0", "", false},
	}
	for _, tt := range tests {
		got, ok := FindColor(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FindColor(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsTransparent(t *testing.T) {
	for _, v := range []string{"transparent", " None ", "inherit"} {
		if !IsTransparent(v) {
			t.Errorf("IsTransparent(%q) = false, want true", v)
		}
	}
	if IsTransparent("#FFF") {
		t.Error("IsTransparent(#FFF) = true, want false")
	}
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		in    string
		want  Length
		ok    bool
		px    float64
		pxOK  bool
		twips int
	}{
		{"55px", Length{55, "px"}, true, 55, true, 825},
		{"70%", Length{70, "%"}, true, 0, false, 0},
		{"12pt", Length{12, "pt"}, true, 16, true, 240},
		{"100", Length{100, ""}, true, 100, true, 1500},
		{"1.5EM", Length{1.5, "em"}, true, 0, false, 0},
		{"10px 0", Length{10, "px"}, true, 10, true, 150},
		{"auto", Length{}, false, 0, false, 0},
		{"-", Length{}, false, 0, false, 0},
		{"", Length{}, false, 0, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLength(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("ParseLength(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
			if !ok {
				return
			}
			px, pxOK := got.Pixels()
			if pxOK != tt.pxOK || (pxOK && px != tt.px) {
				t.Errorf("Pixels() = %v, %v; want %v, %v", px, pxOK, tt.px, tt.pxOK)
			}
			if tw, ok := got.Twips(); ok && tw != tt.twips {
				t.Errorf("Twips() = %d, want %d", tw, tt.twips)
			}
		})
	}
}
