package tg_charts

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"token-holders/internal/features/holders"
	"token-holders/internal/infra/fs"
	logging "token-holders/internal/infra/log"

	"github.com/fogleman/gg"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	chartWidth  = 1600
	chartHeight = 900

	chartAreaLeft   = 120.0
	chartAreaRight  = 1540.0
	chartAreaTop    = 160.0
	chartAreaBottom = 720.0

	barSpacingRatio = 0.25 // share of each slot left empty

	gridLinesCount = 4

	titleFontSize = 36.0
	labelFontSize = 16.0

	titleY          = 80.0
	barValueOffsetY = 10.0
	labelOffsetY    = 30.0

	DefaultTopHolders = 20
)

var (
	backgroundColor = color.Black
	barColor        = color.RGBA{128, 128, 128, 255}
	gridColor       = color.RGBA{60, 60, 60, 255}
	accentColor     = color.RGBA{0, 255, 0, 255}
)

var fontPaths = []string{
	"etc/fonts/InterVariable.ttf",
	"etc/fonts/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

// TopHolders returns up to n holders with the largest balances. Ties keep
// their input order.
func TopHolders(list []holders.Holder, n int) []holders.Holder {
	if n <= 0 {
		n = DefaultTopHolders
	}
	sorted := make([]holders.Holder, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Balance.GreaterThan(sorted[j].Balance)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// GenerateHoldersChart renders a bar chart of the top holders to path as PNG.
func GenerateHoldersChart(path, token string, list []holders.Holder, top int) error {
	if len(list) == 0 {
		return fmt.Errorf("no holders to chart")
	}
	bars := TopHolders(list, top)

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(backgroundColor)
	dc.Clear()

	fontPath := findFont()
	setFont := func(size float64) {
		if fontPath != "" {
			if err := dc.LoadFontFace(fontPath, size); err != nil {
				logging.LogWarn("Failed to load font face", zap.String("path", fontPath), zap.Error(err))
			}
		}
	}

	// Title
	setFont(titleFontSize)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(fmt.Sprintf("Top %d holders of %s", len(bars), ShortAddress(token)),
		chartWidth/2, titleY, 0.5, 0.5)

	maxBalance := bars[0].Balance
	if !maxBalance.IsPositive() {
		maxBalance = decimal.NewFromInt(1)
	}
	chartAreaHeight := chartAreaBottom - chartAreaTop

	// Grid
	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	for i := 0; i <= gridLinesCount; i++ {
		y := chartAreaBottom - float64(i)/gridLinesCount*chartAreaHeight
		dc.DrawLine(chartAreaLeft, y, chartAreaRight, y)
		dc.Stroke()
	}

	slot := (chartAreaRight - chartAreaLeft) / float64(len(bars))
	barWidth := slot * (1 - barSpacingRatio)

	setFont(labelFontSize)
	for i, h := range bars {
		ratio := h.Balance.Div(maxBalance).InexactFloat64()
		barHeight := ratio * chartAreaHeight
		barX := chartAreaLeft + float64(i)*slot + (slot-barWidth)/2
		barY := chartAreaBottom - barHeight

		if i == 0 {
			dc.SetColor(accentColor)
		} else {
			dc.SetColor(barColor)
		}
		dc.DrawRectangle(barX, barY, barWidth, barHeight)
		dc.Fill()

		dc.SetColor(color.White)
		dc.DrawStringAnchored(FormatBalance(h.Balance), barX+barWidth/2, barY-barValueOffsetY, 0.5, 0)

		// Rotated address labels fit any bar count.
		dc.Push()
		dc.RotateAbout(gg.Radians(-45), barX+barWidth/2, chartAreaBottom+labelOffsetY)
		dc.DrawStringAnchored(ShortAddress(h.Address), barX+barWidth/2, chartAreaBottom+labelOffsetY, 1, 0.5)
		dc.Pop()
	}

	out, err := fs.CreateAtomic(path)
	if err != nil {
		return err
	}
	if err := dc.EncodePNG(out); err != nil {
		out.Abort()
		return fmt.Errorf("failed to encode chart: %w", err)
	}
	if err := out.Commit(); err != nil {
		return err
	}

	logging.LogInfo("Holders chart generated",
		zap.String("filename", path),
		zap.Int("barsCount", len(bars)))
	return nil
}

func findFont() string {
	for _, p := range fontPaths {
		if _, err := os.Stat(filepath.Clean(p)); err == nil {
			return p
		}
	}
	logging.LogDebug("No TTF font found, using the built-in face")
	return ""
}

// ShortAddress keeps the first 6 and last 4 characters of an address.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + ".." + addr[len(addr)-4:]
}

// FormatBalance abbreviates large balances with K, M and B suffixes.
func FormatBalance(d decimal.Decimal) string {
	units := []struct {
		suffix string
		size   decimal.Decimal
	}{
		{"B", decimal.New(1, 9)},
		{"M", decimal.New(1, 6)},
		{"K", decimal.New(1, 3)},
	}
	for _, u := range units {
		if d.Abs().GreaterThanOrEqual(u.size) {
			return trimZeros(d.Div(u.size).StringFixed(1)) + u.suffix
		}
	}
	if d.Abs().LessThan(decimal.NewFromInt(1)) {
		return trimZeros(d.StringFixed(4))
	}
	return trimZeros(d.StringFixed(2))
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
