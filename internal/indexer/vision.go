package indexer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekognitiontypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/user/signalhub/internal/db"
)

// Metric keys used by the vision enricher.
const (
	MetricScreenshots = "screenshots"
	MetricVision      = "vision"
)

const (
	maxOCRChars        = 2500
	labelMinConfidence = 70
	maxLabels          = 10
)

// RekognitionAPI is the subset of the Rekognition client the enricher uses.
type RekognitionAPI interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// VisionEnricher reads text and labels from an item's screenshots.
type VisionEnricher struct {
	client    RekognitionAPI
	maxImages int
	readFile  func(string) ([]byte, error)
}

// NewVisionEnricher uses ambient AWS credentials.
func NewVisionEnricher(ctx context.Context, region string, maxImages int) (*VisionEnricher, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{}
	if trimmed := strings.TrimSpace(region); trimmed != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(trimmed))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newVisionEnricher(rekognition.NewFromConfig(cfg), maxImages), nil
}

func newVisionEnricher(client RekognitionAPI, maxImages int) *VisionEnricher {
	if maxImages <= 0 {
		maxImages = 2
	}
	return &VisionEnricher{client: client, maxImages: maxImages, readFile: os.ReadFile}
}

func (e *VisionEnricher) Name() string { return "vision" }

func (e *VisionEnricher) Enrich(ctx context.Context, it db.Item) (db.Item, error) {
	raw, _ := it.Metrics.Get(MetricScreenshots)
	paths := screenshotPaths(raw)
	if len(paths) == 0 {
		return it, nil
	}
	if len(paths) > e.maxImages {
		paths = paths[:e.maxImages]
	}

	var (
		lines     []string
		labels    []string
		seenLabel = map[string]struct{}{}
		errs      []string
	)
	for _, path := range paths {
		data, err := e.readFile(path)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		image := &rekognitiontypes.Image{Bytes: data}

		textOut, err := e.client.DetectText(ctx, &rekognition.DetectTextInput{Image: image})
		if err != nil {
			return it, &EnrichmentError{Provider: e.Name(), ItemID: it.ID, Err: fmt.Errorf("rekognition detect text: %w", err)}
		}
		for _, d := range textOut.TextDetections {
			if d.Type == rekognitiontypes.TextTypesLine {
				if s := strings.TrimSpace(aws.ToString(d.DetectedText)); s != "" {
					lines = append(lines, s)
				}
			}
		}

		labelOut, err := e.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
			Image:         image,
			MaxLabels:     aws.Int32(maxLabels),
			MinConfidence: aws.Float32(labelMinConfidence),
		})
		if err != nil {
			return it, &EnrichmentError{Provider: e.Name(), ItemID: it.ID, Err: fmt.Errorf("rekognition detect labels: %w", err)}
		}
		for _, l := range labelOut.Labels {
			name := aws.ToString(l.Name)
			if _, ok := seenLabel[name]; name == "" || ok {
				continue
			}
			seenLabel[name] = struct{}{}
			labels = append(labels, name)
		}
	}

	if len(lines) == 0 && len(labels) == 0 {
		if len(errs) > 0 {
			return it, &EnrichmentError{Provider: e.Name(), ItemID: it.ID, Err: fmt.Errorf("read screenshots: %s", strings.Join(errs, "; "))}
		}
		return it, nil
	}

	ocr := strings.Join(lines, " ")
	if len(ocr) > maxOCRChars {
		ocr = ocr[:maxOCRChars]
	}
	labelList := make([]any, len(labels))
	for i, l := range labels {
		labelList[i] = l
	}
	it.Metrics.Set(MetricVision, map[string]any{
		"ocr_text": ocr,
		"labels":   labelList,
	})
	if tickers := ExtractTickers(ocr); len(tickers) > 0 {
		it.Metrics.Tickers = mergeSorted(it.Metrics.Tickers, tickers)
	}
	return it, nil
}

func screenshotPaths(v any) []string {
	switch s := v.(type) {
	case string:
		if s = strings.TrimSpace(s); s != "" {
			return []string{s}
		}
	case []string:
		return s
	case []any:
		var out []string
		for _, e := range s {
			if str, ok := e.(string); ok && strings.TrimSpace(str) != "" {
				out = append(out, strings.TrimSpace(str))
			}
		}
		return out
	}
	return nil
}
