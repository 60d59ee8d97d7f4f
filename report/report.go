// Package report renders cross-validation results of survival models as
// Markdown, HTML and Excel workbooks.
package report

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
	"github.com/YuminosukeSato/gosurv/sklearn/survival"
)

// Sheet names of the workbook written by WriteXLSX.
const (
	SheetSummary = "summary"
	SheetFolds   = "folds"
	SheetBrier   = "brier"
)

// Markdown renders cv as a Markdown document titled name.
func Markdown(name string, cv *survival.CVResult) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "Time bins: %v\n\n", cv.TimeBins)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Mean ± Std | Folds |\n")
	b.WriteString("|---|---|---|\n")
	fmt.Fprintf(&b, "| Integrated Brier score | %s | %d |\n", cv.IBS, cv.IBS.N)
	fmt.Fprintf(&b, "| Concordance index | %s | %d |\n\n", cv.CIndex, cv.CIndex.N)

	b.WriteString("## Folds\n\n")
	b.WriteString("| Fold | IBS | C-index | Duration |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, f := range cv.Folds {
		fmt.Fprintf(&b, "| %d | %.4f | %.4f | %s |\n", f.Fold, f.IBS, f.CIndex, f.Duration.Round(time.Millisecond))
	}

	if brier := cv.MeanBrierScores(); len(brier) > 0 {
		b.WriteString("\n## Brier score by time\n\n")
		b.WriteString("| Time | Brier |\n")
		b.WriteString("|---|---|\n")
		for j, s := range brier {
			fmt.Fprintf(&b, "| %g | %.4f |\n", cv.TimeBins[j], s)
		}
	}
	return b.Bytes()
}

// HTML renders the Markdown report as a standalone HTML page.
func HTML(name string, cv *survival.CVResult) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: name,
	})
	return markdown.ToHTML(Markdown(name, cv), p, r)
}

// WriteXLSX writes cv to an Excel workbook at path.
func WriteXLSX(path, name string, cv *survival.CVResult) error {
	f, err := workbook(name, cv)
	if err != nil {
		return err
	}
	defer f.Close()
	return errors.Wrapf(f.SaveAs(path), "report: save %s", path)
}

// EncodeXLSX writes cv as an Excel workbook to w.
func EncodeXLSX(w io.Writer, name string, cv *survival.CVResult) error {
	f, err := workbook(name, cv)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return errors.Wrap(err, "report: write workbook")
}

func workbook(name string, cv *survival.CVResult) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "report: rename sheet")
	}

	summary := [][]interface{}{
		{"name", name},
		{"metric", "mean", "std", "n"},
		{"ibs", cv.IBS.Mean, cv.IBS.Std, cv.IBS.N},
		{"c_index", cv.CIndex.Mean, cv.CIndex.Std, cv.CIndex.N},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		f.Close()
		return nil, err
	}

	folds := [][]interface{}{{"fold", "ibs", "c_index", "duration_ms"}}
	for _, fs := range cv.Folds {
		folds = append(folds, []interface{}{fs.Fold, fs.IBS, fs.CIndex, fs.Duration.Milliseconds()})
	}
	if err := writeSheet(f, SheetFolds, folds); err != nil {
		f.Close()
		return nil, err
	}

	brier := [][]interface{}{{"time", "brier"}}
	for j, s := range cv.MeanBrierScores() {
		brier = append(brier, []interface{}{cv.TimeBins[j], s})
	}
	if err := writeSheet(f, SheetBrier, brier); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.Wrapf(err, "report: create sheet %s", sheet)
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return errors.Wrap(err, "report: cell name")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "report: write %s row %d", sheet, r+1)
		}
	}
	return nil
}
