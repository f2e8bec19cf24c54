package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/chromedp/chromedp"
)

// PNGExporter renders the SVG drawing with headless Chrome and captures it
type PNGExporter struct {
	svg *SVGExporter
	// Timeout bounds the whole browser session.
	Timeout time.Duration
	// ExecPath overrides the browser binary; empty uses the chromedp lookup.
	ExecPath string
}

// NewPNGExporter creates a new PNG exporter
func NewPNGExporter() *PNGExporter {
	return &PNGExporter{svg: NewSVGExporter(), Timeout: 30 * time.Second}
}

// Export writes a PNG screenshot of the scene
func (e *PNGExporter) Export(ctx context.Context, s Scene, w io.Writer) error {
	doc, err := e.svg.Render(s)
	if err != nil {
		return err
	}
	dataURI := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(doc)

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Headless)
	if e.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(e.ExecPath))
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var shot []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate(dataURI),
		chromedp.WaitVisible(`svg`, chromedp.ByQuery),
		chromedp.Screenshot(`svg`, &shot, chromedp.ByQuery),
	}
	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	if len(shot) == 0 {
		return fmt.Errorf("render png: empty screenshot")
	}
	_, err = w.Write(shot)
	return err
}

// GetFileExtension returns the file extension for PNG
func (e *PNGExporter) GetFileExtension() string {
	return ".png"
}

// GetFormatName returns the format name
func (e *PNGExporter) GetFormatName() string {
	return "PNG"
}
