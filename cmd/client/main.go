// Command client asks a running detector service to process one image and
// prints the detections.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go-tag-detector/internal/logger"
	"go-tag-detector/pkg/models"
)

type options struct {
	serverURL string
	loadPath  string
	savePath  string
	fx, fy    float64
	cx, cy    float64
	width     uint
	height    uint
	timeout   time.Duration
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.StringVar(&opts.serverURL, "server", "http://localhost:8080", "detector service base URL")
	fs.StringVar(&opts.loadPath, "image_load_path", "", "path of the image to analyze")
	fs.StringVar(&opts.savePath, "image_save_path", "", "path the annotated image is written to")
	fs.Float64Var(&opts.fx, "fx", 0, "focal length x in pixels")
	fs.Float64Var(&opts.fy, "fy", 0, "focal length y in pixels")
	fs.Float64Var(&opts.cx, "cx", 0, "principal point x in pixels")
	fs.Float64Var(&opts.cy, "cy", 0, "principal point y in pixels")
	fs.UintVar(&opts.width, "width", 0, "image width in pixels")
	fs.UintVar(&opts.height, "height", 0, "image height in pixels")
	fs.DurationVar(&opts.timeout, "timeout", time.Minute, "request timeout")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.loadPath == "" || opts.savePath == "" {
		return opts, fmt.Errorf("image_load_path and image_save_path are required")
	}
	if opts.fx <= 0 || opts.fy <= 0 {
		return opts, fmt.Errorf("fx and fy must be > 0")
	}
	return opts, nil
}

// buildRequest fills a pinhole calibration from the flags
func buildRequest(opts options) models.AnalyzeSingleImageRequest {
	var info models.CameraInfo
	info.Width = uint32(opts.width)
	info.Height = uint32(opts.height)
	info.DistortionModel = "plumb_bob"
	info.D = []float64{0, 0, 0, 0, 0}
	info.K = [9]float64{opts.fx, 0, opts.cx, 0, opts.fy, opts.cy, 0, 0, 1}
	info.R = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	info.P = [12]float64{opts.fx, 0, opts.cx, 0, 0, opts.fy, opts.cy, 0, 0, 0, 1, 0}

	return models.AnalyzeSingleImageRequest{
		FullPathWhereToGetImage:  opts.loadPath,
		FullPathWhereToSaveImage: opts.savePath,
		CameraInfo:               info,
	}
}

func analyze(ctx context.Context, client *http.Client, serverURL string, request models.AnalyzeSingleImageRequest) (*models.AnalyzeSingleImageResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(serverURL, "/") + "/single_image_tag_detection"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call detector service: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusUnprocessableEntity:
		var result models.AnalyzeSingleImageResponse
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &result, nil
	default:
		var errResp models.ErrorResponse
		if json.Unmarshal(payload, &errResp) == nil && errResp.Message != "" {
			return nil, fmt.Errorf("detector service: %s (%d)", errResp.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("detector service returned status %d", resp.StatusCode)
	}
}

func run(args []string, stdout io.Writer) int {
	opts, err := parseFlags(args)
	if err != nil {
		logger.WithError(err).Error("Invalid arguments")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	result, err := analyze(ctx, &http.Client{}, opts.serverURL, buildRequest(opts))
	if err != nil {
		logger.WithError(err).Error("Failed to call service")
		return 1
	}
	if !result.Success {
		logger.WithField("image_load_path", opts.loadPath).Error("Service reported failure")
		return 1
	}

	logger.WithFields(logrus.Fields{
		"request_id": result.RequestID,
		"detections": result.TagDetections.Len(),
	}).Info("Done!")

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result.TagDetections); err != nil {
		logger.WithError(err).Error("Failed to print detections")
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}
