package detector

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// Network input resolution for YOLO models.
const inputSize = 640

// personClassID is the COCO class index for "person".
const personClassID = 0

// YOLODetector implements Detector using a YOLO model loaded through the
// OpenCV DNN module. Only detections of the person class are returned.
type YOLODetector struct {
	config Config
	net    gocv.Net
	mu     sync.Mutex
}

// NewYOLODetector creates a new YOLO-based person detector.
// The model file must exist on disk; it is not downloaded automatically.
func NewYOLODetector(config Config) (*YOLODetector, error) {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", config.ModelPath)
	}

	var net gocv.Net
	if config.ConfigPath != "" {
		net = gocv.ReadNet(config.ModelPath, config.ConfigPath)
	} else {
		net = gocv.ReadNetFromONNX(config.ModelPath)
	}
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", config.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}

	return &YOLODetector{
		config: config,
		net:    net,
	}, nil
}

// Detect runs the network on a frame and returns person detections with
// boxes in the frame's pixel coordinates.
func (d *YOLODetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	blob := gocv.BlobFromImage(*frame, 1.0/255.0, image.Pt(inputSize, inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.decode(&output, frame.Cols(), frame.Rows()), nil
}

// decode converts the raw network output into person detections.
// YOLO v8 output layout is [1, 4+numClasses, numAnchors]: four box values
// (cx, cy, w, h) followed by per-class scores for each anchor column.
func (d *YOLODetector) decode(output *gocv.Mat, frameWidth, frameHeight int) []Detection {
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil
	}
	anchors := sizes[2]

	// Scale factors from network input space back to frame space.
	sx := float64(frameWidth) / float64(inputSize)
	sy := float64(frameHeight) / float64(inputSize)

	var boxes []image.Rectangle
	var scores []float32

	for i := 0; i < anchors; i++ {
		score := output.GetFloatAt3(0, 4+personClassID, i)
		if float64(score) < d.config.ConfThreshold {
			continue
		}

		cx := float64(output.GetFloatAt3(0, 0, i))
		cy := float64(output.GetFloatAt3(0, 1, i))
		w := float64(output.GetFloatAt3(0, 2, i))
		h := float64(output.GetFloatAt3(0, 3, i))

		x1 := (cx - w/2) * sx
		y1 := (cy - h/2) * sy
		x2 := (cx + w/2) * sx
		y2 := (cy + h/2) * sy

		boxes = append(boxes, image.Rect(int(x1), int(y1), int(x2), int(y2)))
		scores = append(scores, score)
	}

	if len(boxes) == 0 {
		return nil
	}

	// Overlapping anchor columns fire for the same person; suppress all
	// but the highest-scoring box per cluster.
	indices := gocv.NMSBoxes(boxes, scores, float32(d.config.ConfThreshold), float32(d.config.NMSThreshold))

	detections := make([]Detection, 0, len(indices))
	for _, idx := range indices {
		r := boxes[idx]
		detections = append(detections, Detection{
			Box: Box{
				X1: float64(r.Min.X),
				Y1: float64(r.Min.Y),
				X2: float64(r.Max.X),
				Y2: float64(r.Max.Y),
			},
			Conf: float64(scores[idx]),
		})
	}

	return detections
}

// Close releases the network resources.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
