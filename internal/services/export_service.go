package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"stocksense/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const presignExpiry = 24 * time.Hour

// ExportService serializes analysis snapshots to CSV in object storage and
// hands out presigned download URLs for the dashboard.
type ExportService interface {
	ExportABC(ctx context.Context, analysis *models.ABCAnalysis) (string, error)
	ExportKPI(ctx context.Context, snapshots []*models.KPIMetrics, period string) (string, error)
}

type exportService struct {
	client *minio.Client
	bucket string
}

func NewExportService(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (ExportService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		log.Printf("export: created bucket %s", bucket)
	}
	return &exportService{client: client, bucket: bucket}, nil
}

func (s *exportService) ExportABC(ctx context.Context, analysis *models.ABCAnalysis) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"rank", "sku", "name", "tier", "annual_usage", "annual_value", "percentage_of_value", "cumulative_percentage"}); err != nil {
		return "", err
	}
	for i, item := range analysis.Items {
		record := []string{
			strconv.Itoa(i + 1),
			item.SKU,
			item.Name,
			string(item.Tier),
			formatFloat(item.AnnualUsage),
			formatFloat(item.AnnualValue),
			formatFloat(item.PercentageOfValue),
			formatFloat(item.CumulativePercentage),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	object := fmt.Sprintf("abc/%s-%s.csv", analysis.Period, analysis.ID)
	return s.store(ctx, object, &buf)
}

func (s *exportService) ExportKPI(ctx context.Context, snapshots []*models.KPIMetrics, period string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"period", "location_id", "item_id", "category", "fill_rate", "stockout_rate", "stockout_source", "inventory_turns", "days_of_supply", "otif", "forecast_accuracy", "carrying_cost", "stockout_cost", "total_cost"}); err != nil {
		return "", err
	}
	for _, m := range snapshots {
		loc, item, cat := "", "", ""
		if m.Scope.LocationID != nil {
			loc = m.Scope.LocationID.String()
		}
		if m.Scope.ItemID != nil {
			item = m.Scope.ItemID.String()
		}
		if m.Scope.Category != nil {
			cat = *m.Scope.Category
		}
		record := []string{
			m.Scope.Period, loc, item, cat,
			formatFloat(m.FillRate),
			formatFloat(m.StockoutRate),
			m.StockoutSource,
			formatFloat(m.InventoryTurns),
			formatFloat(m.DaysOfSupply),
			formatFloat(m.OTIF),
			formatFloat(m.ForecastAccuracy),
			formatFloat(m.CarryingCost),
			formatFloat(m.StockoutCost),
			formatFloat(m.TotalCost),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	object := fmt.Sprintf("kpi/%s-%d.csv", period, time.Now().Unix())
	return s.store(ctx, object, &buf)
}

func (s *exportService) store(ctx context.Context, object string, buf *bytes.Buffer) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(buf.Bytes()), int64(buf.Len()),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return "", fmt.Errorf("store %s: %w", object, err)
	}

	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, object, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", object, err)
	}
	log.Printf("export: stored %s", object)
	return presigned.String(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
