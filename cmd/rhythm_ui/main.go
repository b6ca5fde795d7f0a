package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/rhythmbar-go"
	"github.com/cbegin/rhythmbar-go/internal/config"
)

const (
	windowW    = 1000
	windowH    = 560
	minWindowW = 900
	minWindowH = 500

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale
)

var (
	bgColor       = color.RGBA{192, 192, 192, 255}
	panelColor    = color.RGBA{192, 192, 192, 255}
	borderColor   = color.RGBA{128, 128, 128, 255}
	bevelLight    = color.RGBA{255, 255, 255, 255}
	bevelDarker   = color.RGBA{64, 64, 64, 255}
	sunkenBgColor = color.RGBA{24, 24, 32, 255}
	disabledShade = color.RGBA{0, 0, 0, 110}
	noteColor     = color.RGBA{0, 0, 128, 255}
	restColor     = color.RGBA{128, 64, 0, 255}
	mixedColor    = color.RGBA{0, 96, 96, 255}
	playheadColor = color.RGBA{255, 210, 0, 255}
	meterColor    = color.RGBA{0, 160, 0, 255}
)

type game struct {
	session *rhythmbar.Session
	log     logrus.FieldLogger

	status    string
	statusErr bool

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(s *rhythmbar.Session, log logrus.FieldLogger) *game {
	g := &game{
		session:   s,
		log:       log,
		status:    "Pick cards to fill the bar",
		textCache: make(map[string]*ebiten.Image, 256),
		viewW:     windowW,
		viewH:     windowH,
	}
	s.OnChange(func(snap rhythmbar.Snapshot) {
		if !snap.Playing() && g.status == "Playing" {
			g.setStatus("Stopped")
		}
	})
	return g
}

// Update runs the session's frame loop once per display refresh; all
// playback callbacks happen here.
func (g *game) Update() error {
	g.session.Frame()
	g.handleMouse()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()

	g.drawCards(screen, l.cards)
	g.drawLane(screen, l.lane)
	g.drawButton(screen, l.play, g.playButtonLabel())
	g.drawButton(screen, l.clear, "Clear")
	g.drawMeter(screen, l.meter)
	g.drawSunkenPanel(screen, l.status)
	g.drawStatus(screen, l.status)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	if outsideW < minWindowW {
		outsideW = minWindowW
	}
	if outsideH < minWindowH {
		outsideH = minWindowH
	}
	g.viewW = outsideW
	g.viewH = outsideH
	return outsideW, outsideH
}

func (g *game) Close() {
	if err := g.session.Close(); err != nil {
		g.log.WithError(err).Warn("close session")
	}
}

type uiLayout struct {
	cards                    []image.Rectangle
	lane, play, clear, meter image.Rectangle
	status                   image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	const pad = 12
	w, h := g.viewW, g.viewH
	var l uiLayout

	symbols := g.session.Catalog().Symbols()
	perRow := 5
	cardW := (w - pad*(perRow+1)) / perRow
	cardH := 64
	for i := range symbols {
		row, col := i/perRow, i%perRow
		x := pad + col*(cardW+pad)
		y := pad + row*(cardH+pad)
		l.cards = append(l.cards, image.Rect(x, y, x+cardW, y+cardH))
	}
	rows := (len(symbols) + perRow - 1) / perRow
	top := pad + rows*(cardH+pad) + pad

	l.lane = image.Rect(pad, top, w-pad, top+120)
	btnY := l.lane.Max.Y + pad
	l.play = image.Rect(pad, btnY, pad+160, btnY+48)
	l.clear = image.Rect(l.play.Max.X+pad, btnY, l.play.Max.X+pad+160, btnY+48)
	l.meter = image.Rect(l.clear.Max.X+pad, btnY, w-pad, btnY+48)
	l.status = image.Rect(pad, h-pad-40, w-pad, h-pad)
	return l
}

func (g *game) handleMouse() {
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()
	switch {
	case pointInRect(mx, my, l.play):
		g.togglePlay()
		return
	case pointInRect(mx, my, l.clear):
		g.session.Clear()
		g.setStatus("Cleared")
		return
	case pointInRect(mx, my, l.lane):
		g.clickLane(mx, l.lane)
		return
	}
	symbols := g.session.Catalog().Symbols()
	for i, rect := range l.cards {
		if pointInRect(mx, my, rect) {
			g.appendCard(symbols[i])
			return
		}
	}
}

func (g *game) appendCard(sym rhythmbar.Symbol) {
	if !g.session.CanAppend(sym.ID) {
		return
	}
	if _, err := g.session.Append(sym.ID); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Added " + sym.Name)
}

func (g *game) clickLane(mx int, lane image.Rectangle) {
	total := g.session.Timeline().TotalTicks()
	for _, p := range g.session.Placements() {
		if r := blockRect(lane, p, total); mx >= r.Min.X && mx < r.Max.X {
			if err := g.session.Remove(p.InstanceID); err != nil {
				g.setError(err.Error())
				return
			}
			g.setStatus("Removed block")
			return
		}
	}
}

func (g *game) togglePlay() {
	if g.session.Playing() {
		g.session.Stop()
		g.setStatus("Stopped")
		return
	}
	batch := g.session.Start(context.Background())
	g.setStatus("Playing")
	if batch.Skipped > 0 && batch.Submitted == 0 {
		g.log.Warn("audio unavailable; playing without sound")
	}
}

func (g *game) playButtonLabel() string {
	if g.session.Playing() {
		return "Stop"
	}
	return "Start"
}

func blockRect(lane image.Rectangle, p rhythmbar.Placement, total int) image.Rectangle {
	inner := lane.Inset(4)
	x0 := inner.Min.X + inner.Dx()*p.StartTick/total
	x1 := inner.Min.X + inner.Dx()*p.EndTick()/total
	return image.Rect(x0, inner.Min.Y, x1, inner.Max.Y)
}

func (g *game) drawCards(screen *ebiten.Image, rects []image.Rectangle) {
	tl := g.session.Timeline()
	for i, sym := range g.session.Catalog().Symbols() {
		rect := rects[i]
		g.drawPanel(screen, rect)
		cost, _ := tl.Cost(sym.ID)
		g.drawText(screen, sym.Name, rect.Min.X+8, rect.Min.Y+6)
		g.drawText(screen, fmt.Sprintf("%d ticks", cost), rect.Min.X+8, rect.Min.Y+6+lineH)
		if !tl.CanAppend(sym.ID) {
			fillRect(screen, rect, disabledShade)
		}
	}
}

func (g *game) drawLane(screen *ebiten.Image, lane image.Rectangle) {
	g.drawSunkenPanel(screen, lane)
	tl := g.session.Timeline()
	total := tl.TotalTicks()
	inner := lane.Inset(4)
	for t := 0; t <= total; t++ {
		x := float64(inner.Min.X + inner.Dx()*t/total)
		ebitenutil.DrawRect(screen, x, float64(inner.Min.Y), 1, float64(inner.Dy()), borderColor)
	}
	for _, p := range tl.Placements() {
		rect := blockRect(lane, p, total).Inset(2)
		sym, _ := tl.Symbol(p)
		fillRect(screen, rect, blockColor(sym))
		drawBorder(screen, rect)
		label := sym.ID
		if len(label)*charW < rect.Dx()-8 {
			g.drawText(screen, label, rect.Min.X+6, rect.Min.Y+6)
		}
	}
	if g.session.Playing() {
		x := float64(inner.Min.X + inner.Dx()*g.session.Tick()/total)
		ebitenutil.DrawRect(screen, x-1, float64(lane.Min.Y), 3, float64(lane.Dy()), playheadColor)
	}
}

func blockColor(sym rhythmbar.Symbol) color.Color {
	rests, notes := 0, 0
	for _, ev := range sym.SubEvents {
		if ev.Rest {
			rests++
		} else {
			notes++
		}
	}
	switch {
	case rests > 0 && notes > 0:
		return mixedColor
	case rests > 0:
		return restColor
	}
	return noteColor
}

func (g *game) drawMeter(screen *ebiten.Image, rect image.Rectangle) {
	g.drawPanel(screen, rect)
	tl := g.session.Timeline()
	g.drawText(screen, fmt.Sprintf("remaining: %d / %d", tl.RemainingTicks(), tl.TotalTicks()), rect.Min.X+8, rect.Min.Y+(rect.Dy()-lineH)/2)
	peak := float64(g.session.Peak())
	if peak > 1 {
		peak = 1
	}
	bar := image.Rect(rect.Max.X-88, rect.Min.Y+8, rect.Max.X-8, rect.Max.Y-8)
	g.drawDarkPanel(screen, bar)
	fill := bar.Inset(2)
	fill.Max.X = fill.Min.X + int(float64(fill.Dx())*peak)
	fillRect(screen, fill, meterColor)
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	msg := "Status: " + g.status
	if g.statusErr {
		msg = "Status: ERROR - " + g.status
	}
	g.drawText(screen, msg, rect.Min.X+8, rect.Min.Y+6)
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func fillRect(screen *ebiten.Image, rect image.Rectangle, c color.Color) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), c)
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	fillRect(screen, rect, panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	fillRect(screen, rect, sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawDarkPanel(screen *ebiten.Image, rect image.Rectangle) {
	fillRect(screen, rect, color.RGBA{0, 0, 0, 255})
	drawSunkenBorder(screen, rect)
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string) {
	g.drawPanel(screen, rect)
	labelW := len([]rune(label)) * charW
	x := rect.Min.X + (rect.Dx()-labelW)/2
	y := rect.Min.Y + (rect.Dy()-lineH)/2
	g.drawText(screen, label, x, y)
}

// drawBorder draws a raised bevel.
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
}

// drawSunkenBorder draws a sunken bevel.
func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, borderColor)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelLight)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelLight)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		w := max(1, len([]rune(msg))*7)
		img = ebiten.NewImage(w, 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		g.textCache[msg] = img
	}
	opS := &ebiten.DrawImageOptions{}
	opS.GeoM.Scale(textScale, textScale)
	opS.GeoM.Translate(float64(x+2), float64(y+2))
	opS.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, opS)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return x >= rect.Min.X && x < rect.Max.X && y >= rect.Min.Y && y < rect.Max.Y
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		logLevel   = flag.String("log-level", "", "log level (overrides config)")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger.SetLevel(lvl)

	s, err := rhythmbar.NewSession(rhythmbar.WithConfig(cfg), rhythmbar.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	g := newGame(s, logger)
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("rhythmbar")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
