// Command cameratest enumerates lenses and exercises the capture session.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"lapsecam/internal/camera"
	"lapsecam/internal/logging"
)

func main() {
	probe := flag.Int("probe", 4, "Number of device indices to probe")
	lens := flag.Int("lens", 0, "Lens slot to start")
	frames := flag.Int("frames", 30, "Number of preview frames to pull")
	capturePath := flag.String("capture", "", "Take a still and write it to this path")
	doSwitch := flag.Bool("switch", false, "Switch to the paired lens after streaming")
	exposure := flag.Float64("exposure", 0, "Exposure bias to apply")
	flag.Parse()

	logger := logging.New("debug", "text")

	lenses := camera.EnumerateLenses(*probe)
	fmt.Printf("=== Lenses (%d found) ===\n", len(lenses))
	for i, l := range lenses {
		fmt.Printf("  slot %d: device %d (%s)\n", i, l.Index, l.Direction)
	}
	if len(lenses) == 0 {
		fmt.Fprintln(os.Stderr, "no camera hardware found")
		os.Exit(1)
	}

	session := camera.NewSession(lenses, camera.OpenVideoDevice, logger)
	defer session.Stop()

	if err := session.Start(*lens); err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}
	if active, ok := session.ActiveLens(); ok {
		fmt.Printf("streaming from device %d (%s)\n", active.Index, active.Direction)
	}

	if *exposure != 0 {
		if err := session.SetExposure(*exposure); err != nil {
			fmt.Fprintf(os.Stderr, "exposure: %v\n", err)
		} else {
			fmt.Printf("exposure set to %.1f\n", session.Exposure())
		}
	}

	pulled := pullFrames(session, *frames)
	fmt.Printf("pulled %d/%d frames\n", pulled, *frames)

	if *doSwitch {
		if err := session.SwitchLens(); err != nil {
			fmt.Fprintf(os.Stderr, "switch: %v\n", err)
		} else if active, ok := session.ActiveLens(); ok {
			fmt.Printf("switched to device %d (%s)\n", active.Index, active.Direction)
			fmt.Printf("pulled %d frames after switch\n", pullFrames(session, 10))
		}
	}

	if *capturePath != "" {
		err := session.Capture(func(img image.Image) error {
			file, err := os.Create(*capturePath)
			if err != nil {
				return err
			}
			if err := png.Encode(file, img); err != nil {
				file.Close()
				return err
			}
			return file.Close()
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "capture: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("still written to %s\n", *capturePath)
	}
}

// pullFrames drains up to n frames from the mailbox with a short
// timeout per frame.
func pullFrames(session *camera.Session, n int) int {
	var pulled int
	for i := 0; i < n; i++ {
		select {
		case frame := <-session.Frames():
			bounds := frame.Bounds()
			if pulled == 0 {
				fmt.Printf("frame size: %dx%d\n", bounds.Dx(), bounds.Dy())
			}
			pulled++
		case <-time.After(2 * time.Second):
			return pulled
		}
	}
	return pulled
}
