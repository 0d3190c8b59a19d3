package utils

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

type RekognitionDetector struct {
	client        *rekognition.Client
	maxLabels     int32
	minConfidence float32
}

func NewRekognitionDetector(ctx context.Context, region string) (*RekognitionDetector, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config for Rekognition: %w", err)
	}
	return &RekognitionDetector{
		client:        rekognition.NewFromConfig(cfg),
		maxLabels:     5,
		minConfidence: 75,
	}, nil
}

// DetectLabels returns the top labels for a data URL image.
func (r *RekognitionDetector) DetectLabels(ctx context.Context, dataURL string) ([]string, error) {
	_, _, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: data},
		MaxLabels:     aws.Int32(r.maxLabels),
		MinConfidence: aws.Float32(r.minConfidence),
	})
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(out.Labels))
	for _, l := range out.Labels {
		if l.Name != nil {
			labels = append(labels, *l.Name)
		}
	}
	return labels, nil
}
