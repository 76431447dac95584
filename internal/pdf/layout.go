package pdf

import (
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	marginX      = 18.0
	contentTop   = 34.0
	bottomMargin = 26.0
	framePad     = 8.0
	fontFamily   = "Helvetica"
)

type rgb [3]int

var (
	bodyColor      = rgb{20, 20, 20}
	headerColor    = rgb{110, 110, 110}
	ruleColor      = rgb{171, 139, 139}
	frameColor     = rgb{40, 40, 40}
	footerColor    = rgb{120, 120, 120}
	highlightColor = rgb{250, 244, 120}
)

// layout is a top-down cursor over fpdf pages. Every block is measured
// before it is drawn and starts a new page when it would cross the safe
// bottom.
type layout struct {
	doc      *fpdf.Fpdf
	tr       func(string) string
	header   string
	pageW    float64
	pageH    float64
	contentW float64
	y        float64
	page     int
}

func newLayout(doc *fpdf.Fpdf, header string) *layout {
	w, h := doc.GetPageSize()
	return &layout{
		doc:      doc,
		tr:       doc.UnicodeTranslatorFromDescriptor(""),
		header:   header,
		pageW:    w,
		pageH:    h,
		contentW: w - 2*marginX,
	}
}

func (l *layout) safeBottom() float64 {
	return l.pageH - bottomMargin
}

// newPage adds a page with its frame, header and footer and resets the
// cursor.
func (l *layout) newPage() {
	l.doc.AddPage()
	l.page++
	l.drawFrame()
	l.drawHeader()
	l.drawFooter()
	l.y = contentTop
}

func (l *layout) drawFrame() {
	l.doc.SetDrawColor(frameColor[0], frameColor[1], frameColor[2])
	l.doc.SetLineWidth(0.5)
	l.doc.Rect(framePad, framePad, l.pageW-2*framePad, l.pageH-2*framePad, "D")
}

func (l *layout) drawHeader() {
	l.doc.SetFont(fontFamily, "", 14)
	l.doc.SetTextColor(headerColor[0], headerColor[1], headerColor[2])
	title := l.tr(l.header)
	l.doc.Text(l.pageW/2-l.doc.GetStringWidth(title)/2, 20, title)

	l.doc.SetDrawColor(ruleColor[0], ruleColor[1], ruleColor[2])
	l.doc.SetLineWidth(1.2)
	l.doc.Line(marginX, 24, l.pageW-marginX, 24)
}

func (l *layout) drawFooter() {
	l.doc.SetFont(fontFamily, "", 10)
	l.doc.SetTextColor(footerColor[0], footerColor[1], footerColor[2])
	label := l.tr("Page | " + strconv.Itoa(l.page))
	l.doc.Text(l.pageW-18-l.doc.GetStringWidth(label), l.pageH-14, label)
}

// ensureSpace starts a new page unless height fits above the safe bottom.
func (l *layout) ensureSpace(height float64) {
	if l.y+height <= l.safeBottom() {
		return
	}
	l.newPage()
}

type textStyle struct {
	lineHeight float64
	fontSize   float64
	bold       bool
	color      *rgb
	indent     float64
	before     float64
	after      float64
}

func (s textStyle) withDefaults() textStyle {
	if s.lineHeight == 0 {
		s.lineHeight = 6
	}
	if s.fontSize == 0 {
		s.fontSize = 11
	}
	if s.color == nil {
		c := bodyColor
		s.color = &c
	}
	return s
}

func (l *layout) setFont(size float64, bold bool, c rgb) {
	style := ""
	if bold {
		style = "B"
	}
	l.doc.SetFont(fontFamily, style, size)
	l.doc.SetTextColor(c[0], c[1], c[2])
}

// paragraph writes wrapped text as one block.
func (l *layout) paragraph(text string, s textStyle) {
	s = s.withDefaults()
	if s.before > 0 {
		l.y += s.before
	}
	l.setFont(s.fontSize, s.bold, *s.color)
	lines := l.wrap(l.tr(text), l.contentW-s.indent)
	height := float64(len(lines)) * s.lineHeight
	l.ensureSpace(height + s.after)
	l.drawLines(lines, marginX+s.indent, s.lineHeight)
	l.y += height + s.after
}

// bullets writes one block per non-blank item. Highlighted items get a
// filled band behind the text.
func (l *layout) bullets(items []string, highlight bool) {
	const lineHeight, gap = 6.0, 2.0
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		l.setFont(11, false, bodyColor)
		lines := l.wrap(l.tr("• "+item), l.contentW-8)
		height := float64(len(lines)) * lineHeight
		l.ensureSpace(height + gap)
		if highlight {
			l.doc.SetFillColor(highlightColor[0], highlightColor[1], highlightColor[2])
			l.doc.Rect(marginX-1, l.y-4.8, l.contentW+2, height+1.8, "F")
		}
		l.drawLines(lines, marginX+4, lineHeight)
		l.y += height + gap
	}
}

func (l *layout) drawLines(lines []string, x, lineHeight float64) {
	for i, line := range lines {
		l.doc.Text(x, l.y+float64(i)*lineHeight, line)
	}
}

// wrap splits already-translated text into lines no wider than width at
// the current font. Explicit newlines are kept; words longer than a line
// are broken by character.
func (l *layout) wrap(text string, width float64) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, w := range words {
			for l.doc.GetStringWidth(w) > width && len(w) > 1 {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				n := l.fit(w, width)
				out = append(out, w[:n])
				w = w[n:]
			}
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if line != "" && l.doc.GetStringWidth(candidate) > width {
				out = append(out, line)
				line = w
				continue
			}
			line = candidate
		}
		out = append(out, line)
	}
	return out
}

// fit returns how many leading bytes of w fit in width, at least one.
func (l *layout) fit(w string, width float64) int {
	n := 1
	for n < len(w) && l.doc.GetStringWidth(w[:n+1]) <= width {
		n++
	}
	return n
}
