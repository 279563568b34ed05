// Package report renders compliance results as a PDF schedule.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"Circuitry/internal/calc/circuit"
	"Circuitry/internal/calc/compliance"

	"github.com/phpdave11/gofpdf"
)

type Meta struct {
	Project string `json:"project"`
	Author  string `json:"author"`
	Title   string `json:"title"`
	Notes   string `json:"notes"`
}

type column struct {
	head  string
	width float64
	value func(compliance.Result) string
}

var columns = []column{
	{"Circuit", 24, func(r compliance.Result) string { return r.Reference }},
	{"Size mm2", 16, func(r compliance.Result) string { return size(r.Capacity.SelectedSizeMM2) }},
	{"CPC mm2", 15, func(r compliance.Result) string { return size(r.Capacity.CPCSizeMM2) }},
	{"Cf", 13, func(r compliance.Result) string { return circuit.Fixed(r.Capacity.CorrectionFactor, 3) }},
	{"It req A", 16, func(r compliance.Result) string { return circuit.Fixed(r.Capacity.RequiredRatingA, 1) }},
	{"It A", 14, func(r compliance.Result) string { return circuit.Fixed(r.Capacity.TabulatedRatingA, 1) }},
	{"Capacity", 26, func(r compliance.Result) string { return string(r.Capacity.Verdict) }},
	{"VD %", 14, func(r compliance.Result) string { return circuit.Fixed(r.VoltageDrop.DropPct, 2) }},
	{"Limit %", 14, func(r compliance.Result) string { return circuit.Num(r.VoltageDrop.LimitPct) }},
	{"Voltage drop", 26, func(r compliance.Result) string { return string(r.VoltageDrop.Verdict) }},
	{"Zs ohm", 16, func(r compliance.Result) string { return circuit.Fixed(r.LoopImpedance.ZsOhm, 3) }},
	{"Max Zs", 15, func(r compliance.Result) string { return circuit.Fixed(r.LoopImpedance.MaxZsOhm, 2) }},
	{"Meas. max", 17, func(r compliance.Result) string { return circuit.Fixed(r.LoopImpedance.MeasuredMaxZsOhm, 2) }},
	{"Loop", 26, func(r compliance.Result) string { return string(r.LoopImpedance.Verdict) }},
}

func size(v float64) string {
	if v == 0 {
		return "-"
	}
	return circuit.Num(v)
}

// Render writes a landscape A4 report: header, summary, one schedule row per
// circuit and every diagnostic. Figures come straight from the results.
func Render(w io.Writer, meta Meta, batch compliance.BatchResult, date time.Time) error {
	if meta.Title == "" {
		meta.Title = "Circuit Compliance Report"
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(meta.Title, true)
	pdf.SetAuthor(meta.Author, true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(meta.Title))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Project: %s", meta.Project)))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Author: %s", meta.Author)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", date.Format("2006-01-02")))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Reference data: %s %s", batch.Dataset, batch.DatasetVersion))
	pdf.Ln(6)
	s := batch.Summary
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Overall: %s  (%d circuits: %d pass, %d fail, %d indeterminate)",
		s.Overall(), s.Total, s.Pass, s.Fail, s.Indeterminate))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.head, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 8)
	for _, r := range batch.Results {
		if r.Overall != circuit.Pass {
			pdf.SetTextColor(170, 0, 0)
		}
		for _, c := range columns {
			pdf.CellFormat(c.width, 6, tr(c.value(r)), "1", 0, "C", false, 0, "")
		}
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(-1)
	}

	if findings := diagnostics(batch.Results); len(findings) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 6, "Diagnostics")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 9)
		for _, line := range findings {
			pdf.MultiCell(0, 5, tr(line), "", "L", false)
		}
	}

	if strings.TrimSpace(meta.Notes) != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 6, "Notes")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(meta.Notes), "", "L", false)
	}

	return pdf.Output(w)
}

func diagnostics(results []compliance.Result) []string {
	var out []string
	for _, r := range results {
		for _, d := range r.Diagnostics {
			line := fmt.Sprintf("%s [%s/%s] %s", r.Reference, d.Check, d.Kind, d.Message)
			if d.Table != "" {
				line += fmt.Sprintf(" (table %s", d.Table)
				if d.Key != "" {
					line += ", key " + d.Key
				}
				line += ")"
			}
			out = append(out, line)
		}
	}
	return out
}
