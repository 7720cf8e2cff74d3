package dcim

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/sashashura/netbox/domain"
)

// SVGOptions control the rendered size of an elevation drawing.
type SVGOptions struct {
	Width      int // pixel width of the rack body
	SlotHeight int // pixel height of one rack unit
}

// DefaultSVGOptions matches the proportions of a 42U rack drawing.
var DefaultSVGOptions = SVGOptions{Width: 230, SlotHeight: 20}

// roleColors maps well-known device roles to fill colors. Unknown roles get
// the default gray.
var roleColors = map[string]string{
	"router":  "#2962ff",
	"switch":  "#00838f",
	"server":  "#43a047",
	"pdu":     "#ef6c00",
	"storage": "#6a1b9a",
	"console": "#546e7a",
}

const defaultDeviceColor = "#9e9e9e"

// ElevationSVG renders an elevation (as produced by Elevation, top-down) as
// an SVG document.
func ElevationSVG(rack *domain.Rack, elevation []*Unit, opts SVGOptions) ([]byte, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultSVGOptions.Width
	}
	if opts.SlotHeight <= 0 {
		opts.SlotHeight = DefaultSVGOptions.SlotHeight
	}

	height := rack.UHeight * opts.SlotHeight

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	svg := doc.CreateElement("svg")
	svg.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.CreateAttr("width", fmt.Sprint(opts.Width))
	svg.CreateAttr("height", fmt.Sprint(height))
	svg.CreateAttr("viewBox", fmt.Sprintf("0 0 %d %d", opts.Width, height))

	defs := svg.CreateElement("defs")
	pattern := defs.CreateElement("pattern")
	pattern.CreateAttr("id", "hatch")
	pattern.CreateAttr("width", "8")
	pattern.CreateAttr("height", "8")
	pattern.CreateAttr("patternUnits", "userSpaceOnUse")
	pattern.CreateAttr("patternTransform", "rotate(45)")
	hatchLine := pattern.CreateElement("line")
	hatchLine.CreateAttr("x1", "0")
	hatchLine.CreateAttr("y1", "0")
	hatchLine.CreateAttr("x2", "0")
	hatchLine.CreateAttr("y2", "8")
	hatchLine.CreateAttr("stroke", "#b0bec5")
	hatchLine.CreateAttr("stroke-width", "3")

	// Elevation rows arrive top-down while devices anchor at their lowest
	// unit, so a device's blocked units precede its anchor. The anchor draws
	// one box covering the whole span, measured upward from its own row;
	// blocked units that belong to an anchored device are skipped since the
	// box covers them.
	for i, unit := range elevation {
		y := i * opts.SlotHeight
		switch unit.State {
		case UnitOccupied:
			span := unit.Span
			if span < 1 {
				span = 1
			}
			top := y - (span-1)*opts.SlotHeight
			drawDevice(svg, unit.Device, top, span, opts)
		case UnitBlocked:
			if unit.Device != nil && unit.Span == 0 && hasAnchor(elevation, unit.Device) {
				continue
			}
			drawPatterned(svg, y, 1, opts, "url(#hatch)")
		case UnitReserved:
			drawPatterned(svg, y, 1, opts, "url(#hatch)")
			drawSlotLabel(svg, fmt.Sprintf("U%d reserved", unit.ID), y, 1, opts)
		default:
			drawSlot(svg, unit.ID, y, opts)
		}
	}

	frame := svg.CreateElement("rect")
	frame.CreateAttr("x", "0")
	frame.CreateAttr("y", "0")
	frame.CreateAttr("width", fmt.Sprint(opts.Width))
	frame.CreateAttr("height", fmt.Sprint(height))
	frame.CreateAttr("fill", "none")
	frame.CreateAttr("stroke", "#263238")
	frame.CreateAttr("stroke-width", "2")

	doc.Indent(2)
	return doc.WriteToBytes()
}

// hasAnchor reports whether the elevation holds an occupied unit for the
// device, i.e. the device is mounted on the viewed face.
func hasAnchor(elevation []*Unit, device *domain.Device) bool {
	for _, unit := range elevation {
		if unit.State == UnitOccupied && unit.Device != nil && unit.Device.ID == device.ID {
			return true
		}
	}
	return false
}

func drawDevice(svg *etree.Element, device *domain.Device, y, span int, opts SVGOptions) {
	color := defaultDeviceColor
	if device != nil {
		if c, ok := roleColors[device.Role]; ok {
			color = c
		}
	}

	rect := svg.CreateElement("rect")
	rect.CreateAttr("x", "0")
	rect.CreateAttr("y", fmt.Sprint(y))
	rect.CreateAttr("width", fmt.Sprint(opts.Width))
	rect.CreateAttr("height", fmt.Sprint(span*opts.SlotHeight))
	rect.CreateAttr("fill", color)
	rect.CreateAttr("stroke", "#263238")

	if device != nil {
		drawSlotLabel(svg, device.Name, y, span, opts)
	}
}

func drawPatterned(svg *etree.Element, y, span int, opts SVGOptions, fill string) {
	rect := svg.CreateElement("rect")
	rect.CreateAttr("x", "0")
	rect.CreateAttr("y", fmt.Sprint(y))
	rect.CreateAttr("width", fmt.Sprint(opts.Width))
	rect.CreateAttr("height", fmt.Sprint(span*opts.SlotHeight))
	rect.CreateAttr("fill", fill)
	rect.CreateAttr("stroke", "#cfd8dc")
}

func drawSlot(svg *etree.Element, unitID, y int, opts SVGOptions) {
	rect := svg.CreateElement("rect")
	rect.CreateAttr("x", "0")
	rect.CreateAttr("y", fmt.Sprint(y))
	rect.CreateAttr("width", fmt.Sprint(opts.Width))
	rect.CreateAttr("height", fmt.Sprint(opts.SlotHeight))
	rect.CreateAttr("fill", "#fafafa")
	rect.CreateAttr("stroke", "#cfd8dc")

	drawSlotLabel(svg, fmt.Sprintf("U%d", unitID), y, 1, opts)
}

func drawSlotLabel(svg *etree.Element, label string, y, span int, opts SVGOptions) {
	text := svg.CreateElement("text")
	text.CreateAttr("x", fmt.Sprint(opts.Width/2))
	text.CreateAttr("y", fmt.Sprint(y+(span*opts.SlotHeight)/2))
	text.CreateAttr("text-anchor", "middle")
	text.CreateAttr("dominant-baseline", "central")
	text.CreateAttr("font-family", "sans-serif")
	text.CreateAttr("font-size", "11")
	text.SetText(label)
}
