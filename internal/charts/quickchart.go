package charts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"BesCrmSaas/internal/config"
)

const defaultColor = "#2563eb"

// SavingsLineChart generates a base64 PNG data URI line chart for savings
// progression using a QuickChart-compatible server. It returns "" (not an
// error) when the chart service is unreachable or rejects the request, so
// callers can simply omit the image.
func SavingsLineChart(ctx context.Context, labels []string, values []float64) string {
	if len(labels) == 0 || len(labels) != len(values) {
		return ""
	}

	apiURL := os.Getenv("QUICKCHART_URL")
	if apiURL == "" {
		apiURL = config.DefaultChartURL
	}

	chartConfig := map[string]interface{}{
		"type": "line",
		"data": map[string]interface{}{
			"labels": labels,
			"datasets": []map[string]interface{}{{
				"label":                "Birikim",
				"data":                 values,
				"fill":                 false,
				"borderColor":          defaultColor,
				"backgroundColor":      defaultColor,
				"borderWidth":          3,
				"pointRadius":          5,
				"pointBackgroundColor": defaultColor,
				"pointHoverRadius":     7,
				"tension":              0.2,
			}},
		},
		"options": map[string]interface{}{
			"responsive": false,
			"plugins": map[string]interface{}{
				"legend": map[string]interface{}{
					"display": true,
					"labels": map[string]interface{}{
						"font": map[string]interface{}{"size": 14, "family": "Arial, sans-serif"},
					},
				},
				"title": map[string]interface{}{"display": false},
			},
			"scales": map[string]interface{}{
				"x": map[string]interface{}{
					"ticks": map[string]interface{}{
						"font": map[string]interface{}{"size": 13, "family": "Arial, sans-serif"},
					},
				},
				"y": map[string]interface{}{
					"ticks": map[string]interface{}{
						"font": map[string]interface{}{"size": 13, "family": "Arial, sans-serif"},
					},
				},
			},
		},
	}

	payload, err := json.Marshal(map[string]interface{}{
		"width":            700,
		"height":           320,
		"format":           "png",
		"devicePixelRatio": 2,
		"chart":            chartConfig,
	})
	if err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return ""
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("[ERROR] QuickChart request failed: %v", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	png, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
