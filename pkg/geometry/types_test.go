package geometry

import (
	"image"
	"testing"
)

func TestRectFromImage(t *testing.T) {
	r := RectFromImage(image.Rect(10, 20, 110, 70))
	want := RectInt{X: 10, Y: 20, Width: 100, Height: 50}
	if r != want {
		t.Fatalf("RectFromImage = %+v, want %+v", r, want)
	}
}

func TestRectCenterAndArea(t *testing.T) {
	r := RectInt{X: 100, Y: 100, Width: 101, Height: 101}

	c := r.Center()
	if c.X != 150.5 || c.Y != 150.5 {
		t.Errorf("Center = %+v, want (150.5, 150.5)", c)
	}
	if r.Area() != 101*101 {
		t.Errorf("Area = %d, want %d", r.Area(), 101*101)
	}
	if r.X2() != 201 || r.Y2() != 201 {
		t.Errorf("X2,Y2 = %d,%d, want 201,201", r.X2(), r.Y2())
	}
}

func TestRectContains(t *testing.T) {
	r := RectInt{X: 5, Y: 5, Width: 10, Height: 10}

	cases := []struct {
		x, y int
		want bool
	}{
		{5, 5, true},
		{14, 14, true},
		{15, 15, false}, // exclusive edges
		{4, 5, false},
	}
	for _, c := range cases {
		if got := r.Contains(c.x, c.y); got != c.want {
			t.Errorf("Contains(%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}
