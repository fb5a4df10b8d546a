package export

import (
	"fmt"
	"strconv"

	"github.com/jonathan/cv-builder/internal/types"
)

// mmPerInch converts page millimetres to the inches Chrome's printer expects
const mmPerInch = 25.4

// PageSetup is the printed page box
type PageSetup struct {
	WidthMM  float64
	HeightMM float64
	MarginMM float64
}

var templateMargins = map[types.TemplateName]float64{
	types.TemplateOriginal: 10,
	types.TemplateModern:   10,
	types.TemplateClassic:  0,
}

// SetupFor returns A4 portrait with the template's margin.
func SetupFor(name types.TemplateName) PageSetup {
	return PageSetup{WidthMM: 210, HeightMM: 297, MarginMM: templateMargins[name]}
}

// WidthIn is the paper width in inches
func (p PageSetup) WidthIn() float64 { return p.WidthMM / mmPerInch }

// HeightIn is the paper height in inches
func (p PageSetup) HeightIn() float64 { return p.HeightMM / mmPerInch }

// MarginIn is the margin in inches
func (p PageSetup) MarginIn() float64 { return p.MarginMM / mmPerInch }

// CSS returns the @page rule and print overrides matching the setup.
func (p PageSetup) CSS() string {
	return fmt.Sprintf("@page{size:%smm %smm;margin:%smm}"+
		"html,body{background:#ffffff !important}"+
		".page{width:auto !important;min-height:0 !important;margin:0 !important}",
		fmtMM(p.WidthMM), fmtMM(p.HeightMM), fmtMM(p.MarginMM))
}

func fmtMM(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
