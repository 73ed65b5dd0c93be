// Command overlaytest renders the alignment overlay to a PNG for inspection.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"

	"lapsecam/internal/guide"
	imagex "lapsecam/internal/image"
	"lapsecam/internal/overlay"
	"lapsecam/internal/store"
	"lapsecam/pkg/colorutil"
	"lapsecam/pkg/geometry"
)

func main() {
	dbPath := flag.String("db", "", "Path to settings store (renders persisted state when set)")
	projectID := flag.Int64("project", 1, "Project ID")
	width := flag.Int("w", 1000, "Viewport width")
	height := flag.Int("h", 2000, "Viewport height")
	offX := flag.Float64("ox", guide.DefaultOffset.X, "Horizontal guide offset (0..1)")
	offY := flag.Float64("oy", guide.DefaultOffset.Y, "Vertical guide offset (0..1)")
	ghostPath := flag.String("ghost", "", "Path to a stabilized photo to place as ghost")
	landmarkX := flag.Float64("lx", 0.2, "Ghost landmark X fraction")
	landmarkY := flag.Float64("ly", 0.3, "Ghost landmark Y fraction")
	out := flag.String("o", "overlay.png", "Output PNG path")
	flag.Parse()

	off := guide.NewOffset(*offX, *offY)
	viewport := geometry.NewSize(float64(*width), float64(*height))

	layout := guide.ComputeLayout(off, viewport)
	fmt.Printf("=== Guide layout %dx%d ===\n", *width, *height)
	fmt.Printf("vertical lines: x=%.1f x=%.1f\n", layout.LeftX, layout.RightX)
	fmt.Printf("horizontal line: y=%.1f\n", layout.HorizontalY)

	if *dbPath != "" {
		renderFromStore(*dbPath, *projectID, *width, *height, *out)
		return
	}

	// No store: render lines and an optional ghost directly.
	dst := image.NewRGBA(image.Rect(0, 0, *width, *height))
	imagex.DrawBackground(dst, colorutil.Black)

	if *ghostPath != "" {
		layer, err := imagex.Load(*ghostPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load ghost: %v\n", err)
			os.Exit(1)
		}
		landmark := guide.NewOffset(*landmarkX, *landmarkY)
		rect, err := guide.PlaceGhost(off, viewport, layer.Size(), landmark)
		if err != nil {
			fmt.Fprintf(os.Stderr, "place ghost: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("ghost rect: x=%.1f y=%.1f w=%.1f h=%.1f\n",
			rect.X, rect.Y, rect.Width, rect.Height)
		tf, err := guide.GhostTransform(off, viewport, layer.Size(), landmark)
		if err != nil {
			fmt.Fprintf(os.Stderr, "place ghost: %v\n", err)
			os.Exit(1)
		}
		imagex.DrawGhost(dst, layer.Image, tf, 0.5)
	}

	imagex.DrawVerticalLine(dst, int(layout.LeftX), colorutil.White, 2)
	imagex.DrawVerticalLine(dst, int(layout.RightX), colorutil.White, 2)
	imagex.DrawHorizontalLine(dst, int(layout.HorizontalY), colorutil.White, 2)

	if err := writePNG(*out, dst); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}

// renderFromStore renders through the full overlay engine using the
// persisted offsets, grid mode, and stabilized set.
func renderFromStore(dbPath string, projectID int64, width, height int, out string) {
	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	stored, err := st.LoadOffset(projectID, guide.Portrait)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load offsets: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("stored portrait offsets: x=%.3f y=%.3f\n", stored.X, stored.Y)

	ov, err := overlay.New(st, projectID, guide.Portrait, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "overlay: %v\n", err)
		os.Exit(1)
	}
	defer ov.Close()

	if err := writePNG(out, ov.Render(width, height, nil)); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (mode %s)\n", out, ov.Mode())
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
