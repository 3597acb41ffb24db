package discord

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"time"

	"rifei/domain/interfaces"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// CardStyle controls the draw result card layout
type CardStyle struct {
	Width      int
	Height     int
	Padding    float64
	Background [2]color.RGBA // Top and bottom of the gradient
	Accent     color.RGBA
}

// DrawCardRenderer renders a PNG card announcing a raffle winner
type DrawCardRenderer struct {
	style CardStyle
}

// NewDrawCardRenderer creates a renderer with the default style
func NewDrawCardRenderer() *DrawCardRenderer {
	return &DrawCardRenderer{
		style: CardStyle{
			Width:   600,
			Height:  320,
			Padding: 28,
			Background: [2]color.RGBA{
				{R: 12, G: 18, B: 40, A: 255},
				{R: 28, G: 44, B: 92, A: 255},
			},
			Accent: color.RGBA{R: 255, G: 196, B: 0, A: 255},
		},
	}
}

// Render draws the card for a completed draw
func (r *DrawCardRenderer) Render(result *interfaces.RaffleDrawResult) ([]byte, error) {
	if result == nil || result.Raffle == nil || result.Raffle.WinnerNumber == nil {
		return nil, fmt.Errorf("draw result has no winner")
	}

	start := time.Now()
	defer func() {
		log.WithField("durationMs", time.Since(start).Milliseconds()).
			WithField("raffleId", result.Raffle.ID).
			Debug("Draw card rendered")
	}()

	raffle := result.Raffle
	width, height := float64(r.style.Width), float64(r.style.Height)
	dc := gg.NewContext(r.style.Width, r.style.Height)

	gradient := gg.NewLinearGradient(0, 0, 0, height)
	gradient.AddColorStop(0, r.style.Background[0])
	gradient.AddColorStop(1, r.style.Background[1])
	dc.SetFillStyle(gradient)
	dc.DrawRectangle(0, 0, width, height)
	dc.Fill()

	titleFace, err := loadFont(gobold.TTF, 26)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	numberFace, err := loadFont(gobold.TTF, 96)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	bodyFace, err := loadFont(goregular.TTF, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	monoFace, err := loadFont(gomono.TTF, 11)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	// Title
	dc.SetFontFace(titleFace)
	dc.SetRGB(1, 1, 1)
	title := truncate(raffle.Title, 36)
	dc.DrawStringAnchored(title, width/2, r.style.Padding+20, 0.5, 0.5)

	// Winning number inside an accent ring
	centerY := height/2 + 4
	dc.SetColor(r.style.Accent)
	dc.SetLineWidth(6)
	dc.DrawCircle(width/2, centerY, 78)
	dc.Stroke()

	dc.SetFontFace(numberFace)
	dc.SetColor(r.style.Accent)
	dc.DrawStringAnchored(strconv.FormatInt(*raffle.WinnerNumber, 10), width/2, centerY, 0.5, 0.35)

	// Footer
	dc.SetFontFace(bodyFace)
	dc.SetRGBA(1, 1, 1, 0.85)
	footer := fmt.Sprintf("%d de %d números vendidos", raffle.SoldCount, raffle.TotalNumbers)
	if raffle.DrawDate != nil {
		footer += " · " + raffle.DrawDate.Format("02/01/2006 15:04")
	}
	dc.DrawStringAnchored(footer, width/2, height-r.style.Padding-22, 0.5, 0.5)

	if raffle.DrawProof != nil {
		dc.SetFontFace(monoFace)
		dc.SetRGBA(1, 1, 1, 0.5)
		dc.DrawStringAnchored("prova "+truncate(*raffle.DrawProof, 64), width/2, height-r.style.Padding, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode draw card: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func loadFont(fontData []byte, size float64) (font.Face, error) {
	f, err := truetype.Parse(fontData)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}
