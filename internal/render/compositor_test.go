package render

import (
	"image/color"
	"testing"
)

func TestTextCompositor_TitleCardSize(t *testing.T) {
	c := NewTextCompositor(testLogger())

	card := c.TitleCard("Summer Trip", "June 2026", 256)
	if card.Bounds().Dx() != 256 || card.Bounds().Dy() != 256 {
		t.Fatalf("card size = %dx%d, want 256x256", card.Bounds().Dx(), card.Bounds().Dy())
	}
}

func TestTextCompositor_DrawsText(t *testing.T) {
	c := NewTextCompositor(testLogger())
	card := c.TitleCard("Movie", "", 128)

	// The card must not be a uniform background: the glyphs light up
	// at least one pixel.
	bg := color.RGBA{R: 16, G: 16, B: 20, A: 255}
	found := false
	for y := 0; y < 128 && !found; y++ {
		for x := 0; x < 128; x++ {
			if card.At(x, y) != bg {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("title card is a uniform background, expected rendered glyphs")
	}
}

func TestTextCompositor_NoSubtitle(t *testing.T) {
	c := NewTextCompositor(testLogger())
	card := c.TitleCard("Only Title", "", 64)
	if card == nil {
		t.Fatal("TitleCard() = nil")
	}
}

func TestNullCompositor(t *testing.T) {
	card := NullCompositor{}.TitleCard("anything", "at all", 1080)
	if card.Bounds().Dx() != 1 || card.Bounds().Dy() != 1 {
		t.Fatalf("null card = %dx%d, want 1x1", card.Bounds().Dx(), card.Bounds().Dy())
	}
}
